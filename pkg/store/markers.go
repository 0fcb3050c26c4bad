// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package store

import "encoding/json"

func decodeMarkers(raw string) []string {
	if raw == "" {
		return nil
	}
	var markers []string
	if err := json.Unmarshal([]byte(raw), &markers); err != nil {
		return nil
	}
	return markers
}
