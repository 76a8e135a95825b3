// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

package web

import (
	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// originMatcher matches request origins against CORS patterns. A pattern is
// an exact origin or a glob such as https://*.example.com, where * stays
// within one host label. The lone pattern * allows every origin.
type originMatcher struct {
	any   bool
	globs []glob.Glob
}

func newOriginMatcher(patterns []string) (*originMatcher, error) {
	m := &originMatcher{}
	for _, pattern := range patterns {
		if pattern == "*" {
			m.any = true
			continue
		}
		g, err := glob.Compile(pattern, '.', ':', '/')
		if err != nil {
			return nil, oops.Code("WEB_SERVER_INVALID").With("origin", pattern).Wrap(err)
		}
		m.globs = append(m.globs, g)
	}
	return m, nil
}

// Allow is an echo CORS AllowOriginFunc.
func (m *originMatcher) Allow(origin string) (bool, error) {
	if m.any {
		return true, nil
	}
	for _, g := range m.globs {
		if g.Match(origin) {
			return true, nil
		}
	}
	return false, nil
}
