// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package store

// modernc.org/sqlite registers itself as the "sqlite" database/sql
// driver. It is pure Go and always available, unlike the CGO driver in
// driver_cgo.go.
import _ "modernc.org/sqlite"
