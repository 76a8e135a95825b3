// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

package web

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyedLimiter_OnePerInterval(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewKeyedLimiter(5*time.Second, 1)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "keys are independent")

	now = now.Add(4 * time.Second)
	assert.False(t, l.Allow("a"))

	now = now.Add(time.Second)
	assert.True(t, l.Allow("a"))
}

func TestKeyedLimiter_Burst(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewKeyedLimiter(time.Minute, 3)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("k"), "request %d", i)
	}
	assert.False(t, l.Allow("k"))
}

func TestKeyedLimiter_Disabled(t *testing.T) {
	l := NewKeyedLimiter(0, 0)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("k"))
	}
	assert.Zero(t, l.Len())
}

func TestKeyedLimiter_PrunesIdleKeys(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewKeyedLimiter(time.Second, 1)
	l.now = func() time.Time { return now }

	for i := 0; i < pruneThreshold; i++ {
		l.Allow(strconv.Itoa(i))
	}
	assert.Equal(t, pruneThreshold, l.Len())

	now = now.Add(idleLimiterTTL + time.Second)
	l.Allow("fresh")
	assert.Equal(t, 1, l.Len())
}
