// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

//go:build cgo

package store

// github.com/mattn/go-sqlite3 registers itself as the "sqlite3"
// database/sql driver. It requires CGO and is the driver DriverCGO
// selects; it is also the driver that can load the sqlite-vec
// extension for the embedded vector backend (see pkg/embedding).
import _ "github.com/mattn/go-sqlite3"
