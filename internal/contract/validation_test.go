// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package contract_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/tia/internal/contract"
)

func TestValidateDiffInputAcceptsSmallDiff(t *testing.T) {
	result := contract.ValidateDiffInput("diff --git a/x.py b/x.py\n")
	require.True(t, result.OK)
}

func TestValidateDiffInputRejectsOversizedDiff(t *testing.T) {
	t.Setenv("TIA_DIFF_SOFT_LIMIT_BYTES", "16")

	result := contract.ValidateDiffInput(strings.Repeat("a", 32))
	require.False(t, result.OK)
	require.Contains(t, result.Message, "exceeds soft limit")
}

func TestDiffSoftLimitBytesFallsBackOnInvalidEnv(t *testing.T) {
	t.Setenv("TIA_DIFF_SOFT_LIMIT_BYTES", "not-a-number")
	require.Equal(t, contract.DefaultDiffSoftLimitBytes, contract.DiffSoftLimitBytes())
}
