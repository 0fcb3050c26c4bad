// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package contract

import (
	"fmt"
	"os"
	"strconv"
)

const (
	// DefaultDiffSoftLimitBytes is the baseline soft limit on a unified
	// diff's size before it reaches ParseUnifiedDiff.
	DefaultDiffSoftLimitBytes = 16 << 20 // 16 MiB

	// DiffPathMaxBytes is the maximum length for one file path parsed
	// out of a diff --git header.
	DiffPathMaxBytes = 4096
)

// DiffSoftLimitBytes returns the effective soft limit for a unified
// diff's size. Controlled via env TIA_DIFF_SOFT_LIMIT_BYTES; falls
// back to DefaultDiffSoftLimitBytes.
func DiffSoftLimitBytes() int {
	if v := os.Getenv("TIA_DIFF_SOFT_LIMIT_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return DefaultDiffSoftLimitBytes
}

// ValidationResult represents the result of a validation check.
type ValidationResult struct {
	OK      bool
	Message string
}

// ValidateDiffInput checks a unified diff's size against the soft
// limit before it reaches diff.ParseUnifiedDiff, so an accidentally
// oversized input (a full repository re-diff instead of a feature
// branch's diff) fails fast with a clear message instead of burning
// CPU walking a multi-gigabyte string.
func ValidateDiffInput(diffText string) *ValidationResult {
	if len(diffText) > DiffSoftLimitBytes() {
		return &ValidationResult{
			OK:      false,
			Message: fmt.Sprintf("diff input exceeds soft limit of %d bytes", DiffSoftLimitBytes()),
		}
	}
	return &ValidationResult{OK: true}
}
