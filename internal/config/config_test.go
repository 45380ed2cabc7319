package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lex00/wetwire-cdk-go/core"
)

func clearEnv(t *testing.T) {
	t.Setenv(core.EnvOutdir, "")
	t.Setenv(core.EnvContext, "")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "go run .", cfg.App)
	assert.Equal(t, "cdk.out", cfg.Output)
	assert.Empty(t, cfg.Path)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(`app: go run ./cmd/platform
output: build/assembly
region: eu-west-1
context:
  env: staging
  nodes: 3
watch:
  include: ["cmd/**/*.go"]
  debounce: 750ms
`), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, FileName), cfg.Path)
	assert.Equal(t, "go run ./cmd/platform", cfg.App)
	assert.Equal(t, "build/assembly", cfg.Output)
	assert.Equal(t, "eu-west-1", cfg.Region)
	assert.Equal(t, map[string]any{"env": "staging", "nodes": 3}, cfg.Context)
	assert.Equal(t, []string{"cmd/**/*.go"}, cfg.Watch.Include)
	assert.Equal(t, 750*time.Millisecond, cfg.Watch.Debounce)
	// Sections absent from the file keep their defaults.
	assert.Equal(t, []string{"cdk.out/**", "vendor/**"}, cfg.Watch.Exclude)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown key", "apps: go run .\n", "apps"},
		{"bad yaml", "app: [\n", "parsing"},
		{"bad pattern", "watch:\n  include: [\"[\"]\n", "invalid watch pattern"},
		{"empty output", "output: \"\"\n", "output must not be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(tt.content), 0o644))
			_, err := Load(dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_DebounceMilliseconds(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("watch:\n  debounce: 200\n"), 0o644))
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 200*time.Millisecond, cfg.Watch.Debounce)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("context:\n  env: staging\n  team: data\n"), 0o644))
	t.Setenv(core.EnvOutdir, "/tmp/out")
	t.Setenv(core.EnvContext, `{"env":"prod"}`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/out", cfg.Output)
	assert.Equal(t, map[string]any{"env": "prod", "team": "data"}, cfg.Context)

	t.Setenv(core.EnvContext, "not json")
	_, err = Load(dir)
	assert.Error(t, err)
}

func TestWriteRoundTrip(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfg := Default()
	cfg.Region = "us-west-2"
	cfg.Watch.Debounce = 2 * time.Second
	require.NoError(t, cfg.Write(dir))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "us-west-2", loaded.Region)
	assert.Equal(t, 2*time.Second, loaded.Watch.Debounce)
	assert.Equal(t, cfg.Watch.Include, loaded.Watch.Include)
}

func TestWatchMatches(t *testing.T) {
	w := Default().Watch
	tests := []struct {
		path string
		want bool
	}{
		{"main.go", true},
		{"stacks/api/schema.go", true},
		{"go.mod", true},
		{FileName, true},
		{"cdk.out/Platform.template.json", false},
		{"vendor/github.com/x/y.go", false},
		{"README.md", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, w.Matches(tt.path))
		})
	}
}
