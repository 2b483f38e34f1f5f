package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/hostbridge/internal/demo"
	"github.com/wippyai/hostbridge/runtime"
)

func TestLoadConfig_EnvAndFlags(t *testing.T) {
	var stderr bytes.Buffer
	cfg, err := loadConfig(nil, map[string]string{
		"BRIDGE_WORKERS":        "4",
		"BRIDGE_FRAME_INTERVAL": "5ms",
		"BRIDGE_SCRIPT":         "env.js",
	}, &stderr)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 5*time.Millisecond, cfg.Interval)
	assert.Equal(t, "env.js", cfg.Script)
	assert.Equal(t, 3, cfg.Frames)
	assert.Equal(t, "warn", cfg.LogLevel)

	cfg, err = loadConfig([]string{"-workers", "1", "-script", "flag.js", "-list"},
		map[string]string{"BRIDGE_WORKERS": "4"}, &stderr)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, "flag.js", cfg.Script)
	assert.True(t, cfg.List)
}

func TestLoadConfig_Invalid(t *testing.T) {
	var stderr bytes.Buffer
	tests := []struct {
		name    string
		args    []string
		environ map[string]string
	}{
		{"negative workers", []string{"-workers", "-1"}, map[string]string{}},
		{"bad interval", []string{"-interval", "0s"}, map[string]string{}},
		{"bad env", nil, map[string]string{"BRIDGE_FRAMES": "many"}},
		{"unknown flag", []string{"-nope"}, map[string]string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(tt.args, tt.environ, &stderr)
			assert.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		l, err := newLogger(level)
		require.NoError(t, err, level)
		require.NotNil(t, l)
	}
	_, err := newLogger("loud")
	assert.Error(t, err)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testConfig() Config {
	return Config{
		LogLevel: "error",
		Frames:   1,
		Interval: time.Millisecond,
		Timeout:  10 * time.Second,
	}
}

func TestRun_List(t *testing.T) {
	cfg := testConfig()
	cfg.List = true

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(cfg, &stdout, &stderr))

	out := stdout.String()
	assert.Contains(t, out, "resource user {")
	assert.Contains(t, out, "get-age: func() -> s32;")
	assert.Contains(t, out, "resource swap-chain {")
	assert.Contains(t, out, "[method]renderer.draw")
	assert.Contains(t, out, "[resource-drop]swap-chain")
}

func TestRun_Script(t *testing.T) {
	cfg := testConfig()
	cfg.Workers = 2
	cfg.Script = writeFile(t, "frame.js", `
		renderer.requestFrame(function(ts) { renderer.draw(ts, 0); });
		runtime.name + ":" + user.greet("Hi");
	`)

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(cfg, &stdout, &stderr))

	out := stdout.String()
	assert.Contains(t, out, "[main] main:Hi, Alice")
	assert.Contains(t, out, "[worker-1] worker-1:Hi, Alice")
	assert.Contains(t, out, "[worker-2] worker-2:Hi, Alice")
	assert.Contains(t, out, "[frame 1] 3 callbacks")

	// the two worker callbacks fire after their runtimes closed
	reports := strings.Count(stderr.String(), "report:")
	assert.Equal(t, 2, reports)
	assert.Contains(t, stderr.String(), "stale_runtime")
}

func TestRun_ScriptError(t *testing.T) {
	cfg := testConfig()
	cfg.Script = writeFile(t, "bad.js", `user.name = 42`)

	var stdout, stderr bytes.Buffer
	err := run(cfg, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected string, got number")
}

func TestRun_Lua(t *testing.T) {
	cfg := testConfig()
	cfg.Lua = writeFile(t, "demo.lua", `
		user.name = "Lua"
		return user:greet("Hello"), swapChain:present()
	`)

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(cfg, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "[lua] result 0: Hello, Lua")
	assert.Contains(t, stdout.String(), "[lua] result 1: 1")
}

func newTestHost(t *testing.T) (*runtime.Host, *demo.Set) {
	t.Helper()
	ctx := context.Background()
	host, err := runtime.NewHost(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = host.Close(ctx) })

	set := demo.NewSet(host.Frames())
	for _, g := range set.Globals() {
		require.NoError(t, host.Expose(ctx, g.Name, g.Value))
	}
	return host, set
}

func TestInteractiveModel(t *testing.T) {
	host, set := newTestHost(t)
	m := newInteractiveModel(host, set)
	require.Len(t, m.globals, 3)
	assert.Contains(t, m.globals[0].members, "greet")

	m.input.SetValue(`user.getAge()`)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg := cmd()
	m.Update(msg)

	require.Len(t, m.entries, 1)
	assert.Equal(t, "23", m.entries[0].result)
	assert.Equal(t, []string{"user.getAge()"}, m.history)

	m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, "user.getAge()", m.input.Value())

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.False(t, m.showPanel)
	assert.Contains(t, m.View(), "23")
}
