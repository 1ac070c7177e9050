/*
MIT License

Copyright (c) 2025 Mike Lane

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikelane/driftrelay/internal/config"
)

func TestRootCommand_Flags(t *testing.T) {
	cmd := newRootCommand()

	for _, name := range []string{"config", "listen-address", "zap-log-level", "zap-devel", "zap-encoder"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "flag --%s is not registered", name)
	}
}

func TestRun_ConfigurationErrorFailsStartup(t *testing.T) {
	t.Setenv("TFE_TOKEN", "")

	cmd := newRootCommand()
	cmd.SetArgs([]string{"--zap-log-level=error"})
	err := cmd.Execute()

	require.Error(t, err)
	var cfgErr *config.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestRun_MissingConfigFileFailsStartup(t *testing.T) {
	t.Setenv("TFE_TOKEN", "test-token")

	cmd := newRootCommand()
	cmd.SetArgs([]string{"--config", t.TempDir() + "/missing.yaml", "--zap-log-level=error"})

	require.Error(t, cmd.Execute())
}

func TestStartupWarnings(t *testing.T) {
	cfg := config.Default()
	assert.Empty(t, startupWarnings(cfg))

	cfg.AutoApply = true
	warnings := startupWarnings(cfg)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "TFE_AUTO_APPLY")
}
