package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jumpres/viewer/internal/config"
	"github.com/jumpres/viewer/internal/geometry"
	"github.com/jumpres/viewer/internal/ipc"
	"github.com/jumpres/viewer/internal/viewer"
)

func TestParseOnOff(t *testing.T) {
	for _, in := range []string{"on", "ON", "true", "yes", "1"} {
		v, err := parseOnOff(in)
		require.NoError(t, err, in)
		assert.True(t, v, in)
	}
	for _, in := range []string{"off", "false", "no", "0", " Off "} {
		v, err := parseOnOff(in)
		require.NoError(t, err, in)
		assert.False(t, v, in)
	}
	_, err := parseOnOff("maybe")
	assert.Error(t, err)
}

func TestNativeLockReliable(t *testing.T) {
	assert.True(t, nativeLockReliable(config.RatioLockAuto, "linux", "Mutter"))
	assert.False(t, nativeLockReliable(config.RatioLockAuto, "linux", "i3"))
	assert.False(t, nativeLockReliable(config.RatioLockAuto, "windows", ""))
	assert.True(t, nativeLockReliable(config.RatioLockNative, "linux", "i3"))
	assert.False(t, nativeLockReliable(config.RatioLockIntercept, "linux", "Mutter"))
}

func TestIsPlatformVariant(t *testing.T) {
	steamEnv := func(key string) string {
		if key == "SteamAppId" {
			return "480"
		}
		return ""
	}
	noEnv := func(string) string { return "" }

	assert.True(t, isPlatformVariant(config.DistributionAuto, steamEnv))
	assert.False(t, isPlatformVariant(config.DistributionAuto, noEnv))
	assert.True(t, isPlatformVariant(config.DistributionSteam, noEnv))
	assert.False(t, isPlatformVariant(config.DistributionStandalone, steamEnv))
}

func TestViewerOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.KeepOnTop = false
	cfg.ZoomLevel = 1.5

	opts := viewerOptions(cfg)
	assert.Equal(t, viewer.Options{
		Width:           1280,
		Height:          720,
		BackgroundColor: "#282828",
		Title:           "JumPres Viewer",
		URL:             config.DefaultURL,
		Fullscreen:      true,
		AlwaysOnTop:     false,
		ZoomLevel:       1.5,
	}, opts)
}

func sampleStatus() *ipc.StatusData {
	return &ipc.StatusData{
		Status: viewer.Status{
			HasWindow: true,
			Ready:     true,
			Title:     "JumPres Viewer",
			State:     viewer.WindowState{Fullscreen: true, ZoomLevel: -1},
			RatioLock: "native",
			Insets:    &geometry.Insets{Width: 4, Height: 28},
		},
		PlatformVariant: true,
		UptimeSeconds:   42,
		Version:         "1.0.0",
	}
}

func TestWriteStatusTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeStatusTable(&buf, sampleStatus()))
	out := buf.String()

	assert.Contains(t, out, "window:            ready")
	assert.Contains(t, out, "zoom_level:        -1")
	assert.Contains(t, out, "insets:            4x28")
	assert.Contains(t, out, "platform_variant:  true")
}

func TestWriteStatusJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeStatusJSON(&buf, sampleStatus()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, true, decoded["ready"])
	assert.Equal(t, "native", decoded["ratio_lock"])
	assert.Equal(t, true, decoded["platform_variant"])
}

func TestWindowSummary(t *testing.T) {
	assert.Equal(t, "none", windowSummary(&ipc.StatusData{}))
	assert.Equal(t, "loading", windowSummary(&ipc.StatusData{Status: viewer.Status{HasWindow: true}}))
}

func TestFormatSource(t *testing.T) {
	assert.Equal(t, "default:defaults", formatSource(config.Source{Kind: config.SourceDefault, Name: "defaults"}))
	assert.Equal(t, "file:/c.yaml:3:5", formatSource(config.Source{Kind: config.SourceFile, File: "/c.yaml", Line: 3, Column: 5}))
	assert.Equal(t, "file:/c.yaml", formatSource(config.Source{Kind: config.SourceFile, File: "/c.yaml"}))
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		_ = rootCmd.Flags().Set("version", "false")
		flags = rootFlags{}
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionFlag(t *testing.T) {
	out, err := runCommand(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "JumPres "+version+"\n", out)
}

func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("zoom_level: 2\ndashboard:\n  listen: 127.0.0.1:9000\n"), 0o644))

	out, err := runCommand(t, "--config", path, "config", "validate")
	require.NoError(t, err)
	assert.Equal(t, "config: ok\n", out)

	out, err = runCommand(t, "--config", path, "config", "print")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "zoom_level: 2"), out)

	out, err = runCommand(t, "--config", path, "config", "print", "--explain", "dashboard.listen")
	require.NoError(t, err)
	assert.Contains(t, out, "source: file:"+path+":3:")
	assert.Contains(t, out, "127.0.0.1:9000")
}

func TestConfigValidateRejectsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ratio_lock: sideways\n"), 0o644))

	_, err := runCommand(t, "--config", path, "config", "validate")
	assert.Error(t, err)
}
