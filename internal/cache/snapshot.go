// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

// Package cache provides auth.SessionCache implementations backed by Redis
// and by process memory.
package cache

import (
	"encoding/json"

	"github.com/samber/oops"

	"github.com/contactbook/contactbook/internal/auth"
)

// DefaultPrefix namespaces session cache keys.
const DefaultPrefix = "contactbook:identity:"

// snapshot is the stored form of an identity. The version field lets a
// deployment change the layout without misreading old entries.
type snapshot struct {
	Version int `json:"v"`
	auth.Identity
}

func encodeSnapshot(identity auth.Identity) ([]byte, error) {
	data, err := json.Marshal(snapshot{Version: auth.SnapshotVersion, Identity: identity})
	if err != nil {
		return nil, oops.Code("CACHE_ENCODE_FAILED").With("email", identity.Email).Wrap(err)
	}
	return data, nil
}

// decodeSnapshot returns ok=false for entries written with another version.
func decodeSnapshot(data []byte) (*auth.Identity, bool, error) {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, false, oops.Code("CACHE_DECODE_FAILED").Wrap(err)
	}
	if s.Version != auth.SnapshotVersion {
		return nil, false, nil
	}
	return &s.Identity, true, nil
}
