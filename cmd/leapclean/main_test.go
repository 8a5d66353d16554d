// Package main provides tests for the leapclean CLI.
package main

import (
	"bytes"
	"testing"

	"github.com/leapstack-labs/leapclean/internal/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelpCommand(t *testing.T) {
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	for _, expected := range []string{"run", "preview", "history", "config", "version", "completion"} {
		assert.Contains(t, buf.String(), expected)
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := cli.NewRootCmd()

	tests := []struct {
		name      string
		shorthand string
	}{
		{name: "config"},
		{name: "database"},
		{name: "state"},
		{name: "verbose", shorthand: "v"},
		{name: "format", shorthand: "f"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := cmd.PersistentFlags().Lookup(tt.name)
			require.NotNil(t, flag, "missing global flag %q", tt.name)
			assert.Equal(t, tt.shorthand, flag.Shorthand)
		})
	}
}

func TestUnknownCommand(t *testing.T) {
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"deploy"})

	assert.Error(t, cmd.Execute())
}
