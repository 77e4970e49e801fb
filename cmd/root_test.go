package cmd

import (
	"bytes"
	"context"
	"net"
	"strconv"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()
	assert.Equal(t, "backend", cmd.Use)
	assert.Empty(t, cmd.Commands(), "Should have no subcommands")

	envFlag := cmd.Flags().Lookup("env-file")
	require.NotNil(t, envFlag)
	assert.Equal(t, ".env", envFlag.DefValue)
	assert.NotNil(t, cmd.PersistentFlags().Lookup("no-color"))
}

func TestExecute_RejectsArguments(t *testing.T) {
	var stderr bytes.Buffer
	code := Execute(context.Background(), []string{"serve"}, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "unknown command")
}

func TestExecute_UnknownFlag(t *testing.T) {
	var stderr bytes.Buffer
	code := Execute(context.Background(), []string{"--verbose"}, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "unknown flag")
}

func TestExecute_PortInUse(t *testing.T) {
	color.NoColor = true
	chdir(t, t.TempDir())

	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	t.Setenv("PORT", strconv.Itoa(port))
	t.Setenv("MONGO_URI", "")

	var stderr bytes.Buffer
	code := Execute(context.Background(), []string{"--no-color"}, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Error: failed to start application")
	assert.Contains(t, stderr.String(), `step "listen"`)
}
