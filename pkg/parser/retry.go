// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"errors"
	"os"
	"time"

	tiaerrors "github.com/kraklabs/tia/internal/errors"
)

// acquisitionBaseDelay and acquisitionMaxAttempts implement the
// acquisition-retry contract: on a transient file-lock
// (AcquisitionFailure), retry up to three times with exponential
// backoff starting at 0.5s and doubling.
const (
	acquisitionBaseDelay   = 500 * time.Millisecond
	acquisitionMaxAttempts = 3
)

// readFileWithRetry reads path, retrying permission-denied failures
// (the signature of a file mid-sync by a cloud-storage client) with
// exponential backoff. A non-retryable read error or exhausted retries
// both log a warning and return (nil, false), meaning a skipped file,
// never a fatal error. Nothing in the module calls it: the pipeline's
// parse stage reads files with a single os.ReadFile.
func readFileWithRetry(path string) ([]byte, bool) {
	var lastErr error
	for attempt := 0; attempt < acquisitionMaxAttempts; attempt++ {
		content, err := os.ReadFile(path)
		if err == nil {
			return content, true
		}
		lastErr = err
		if !errors.Is(err, os.ErrPermission) {
			tiaerrors.WarnParseFailure(path, err)
			return nil, false
		}
		time.Sleep(acquisitionBaseDelay * time.Duration(1<<attempt))
	}
	tiaerrors.WarnAcquisitionExhausted(path, acquisitionMaxAttempts, lastErr)
	return nil, false
}
