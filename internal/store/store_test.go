// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PatrolHub Contributors

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/patrolhub/patrolhub/pkg/errutil"
)

func TestOpen_Validation(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, "", OpenOptions{})
	errutil.AssertErrorCode(t, err, "DB_URL_MISSING")

	_, err = Open(ctx, "postgres://localhost:notaport/db", OpenOptions{})
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "DB_CONFIG_INVALID")
}
