// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	for _, sub := range []string{"serve", "migrate", "status"} {
		assert.Contains(t, output, sub, "Help missing %q command", sub)
	}
}

func TestRootCommand_PersistentFlags(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantConfig  string
		wantEnvFile string
	}{
		{
			name:        "defaults",
			args:        []string{"--help"},
			wantConfig:  "",
			wantEnvFile: ".env",
		},
		{
			name:        "config flag",
			args:        []string{"--config", "/path/to/config.yaml", "--help"},
			wantConfig:  "/path/to/config.yaml",
			wantEnvFile: ".env",
		},
		{
			name:        "flags with equals",
			args:        []string{"--config=/etc/contactbook.yaml", "--env-file=/etc/contactbook.env", "--help"},
			wantConfig:  "/etc/contactbook.yaml",
			wantEnvFile: "/etc/contactbook.env",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_CONFIG_HOME", t.TempDir())
			opts := &rootOptions{}
			cmd := newRootCmd(opts, nil)
			cmd.SetOut(new(bytes.Buffer))
			cmd.SetArgs(tt.args)

			require.NoError(t, cmd.Execute())
			assert.Equal(t, tt.wantConfig, opts.configFile)
			assert.Equal(t, tt.wantEnvFile, opts.envFile)
			assert.Equal(t, tt.wantConfig, opts.sources().ConfigFile)
		})
	}
}

func TestRootOptions_SourcesUseXDGConfigFile(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)
	path := filepath.Join(base, "contactbook", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600))

	assert.Equal(t, path, (&rootOptions{}).sources().ConfigFile)
	assert.Equal(t, "/etc/contactbook.yaml", (&rootOptions{configFile: "/etc/contactbook.yaml"}).sources().ConfigFile)
}

func TestRootCommand_Version(t *testing.T) {
	cmd := NewRootCmd()
	cmd.Version = "1.2.3 (commit: abc, built: today)"
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "1.2.3 (commit: abc, built: today)")
}

func TestServeCommand_HelpListsServerFlags(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"serve", "--help"})

	require.NoError(t, cmd.Execute())

	for _, flag := range []string{"--addr", "--metrics-addr", "--database-url", "--auto-migrate", "--cache-driver", "--access-ttl"} {
		assert.Contains(t, buf.String(), flag)
	}
	assert.NotContains(t, buf.String(), "--token-secret")
}
