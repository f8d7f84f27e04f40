package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cord19q/cord19q/internal/config"
	"github.com/cord19q/cord19q/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupEnv isolates config lookup and returns the output directory.
func setupEnv(t *testing.T) (configHome, outputDir string) {
	t.Helper()
	configHome = t.TempDir()
	outputDir = filepath.Join(t.TempDir(), "models")
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", configHome)
	t.Setenv(config.EnvOutputDir, outputDir)
	t.Setenv(config.EnvWorkers, "")
	return configHome, outputDir
}

func writeCorpus(t *testing.T, metadata string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "metadata.csv"), []byte(metadata), 0644))
	return root
}

func TestExecute_Build(t *testing.T) {
	_, outputDir := setupEnv(t)
	root := writeCorpus(t, "sha,source_x,title,doi,publish_time,authors,journal\n"+
		"aaa,PMC,First,10.1/a,2020,,J\n"+
		"bbb,PMC,Second,,,,J\n")

	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), []string{root}, &stdout, &stderr)
	require.Equal(t, ExitSuccess, code, "stderr: %s", stderr.String())

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	assert.Equal(t, []string{
		"Building articles.db from " + root,
		"Total rows inserted: 2",
	}, lines)
	assert.Contains(t, stderr.String(), "build complete")

	db, err := storage.Open(filepath.Join(outputDir, config.DBFile), storage.DefaultTables())
	require.NoError(t, err)
	defer db.Close()
	n, err := db.Count("articles")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestExecute_RejectedRowsStillSucceed(t *testing.T) {
	setupEnv(t)
	root := writeCorpus(t, "sha,source_x,title,doi,publish_time,authors,journal\n"+
		"dup,PMC,A,,,,J\n"+
		"dup,PMC,B,,,,J\n")

	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), []string{root}, &stdout, &stderr)
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout.String(), "Total rows inserted: 2")
	assert.Contains(t, stderr.String(), "error inserting row")
}

func TestExecute_Progress(t *testing.T) {
	configHome, _ := setupEnv(t)
	dir := filepath.Join(configHome, config.GlobalConfigDir)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.GlobalConfigFile), []byte("progress_every: 1\nworkers: 2\n"), 0644))

	root := writeCorpus(t, "sha,source_x,title,doi,publish_time,authors,journal\n"+
		"a,PMC,A,,,,J\n"+
		"b,PMC,B,,,,J\n")

	var stdout, stderr bytes.Buffer
	require.Equal(t, ExitSuccess, execute(context.Background(), []string{root}, &stdout, &stderr), stderr.String())
	assert.Contains(t, stdout.String(), "Inserted 1 articles\nInserted 2 articles\n")
}

func TestExecute_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     func(t *testing.T) []string
		config   string
		wantCode int
		wantErr  string
	}{
		{
			name:     "no arguments",
			args:     func(t *testing.T) []string { return nil },
			wantCode: ExitError,
			wantErr:  "accepts 1 arg(s)",
		},
		{
			name:     "missing metadata",
			args:     func(t *testing.T) []string { return []string{t.TempDir()} },
			wantCode: ExitError,
			wantErr:  "opening metadata",
		},
		{
			name: "bad header",
			args: func(t *testing.T) []string {
				return []string{writeCorpus(t, "sha,title\n")}
			},
			wantCode: ExitError,
			wantErr:  "missing required column",
		},
		{
			name:     "invalid config",
			args:     func(t *testing.T) []string { return []string{t.TempDir()} },
			config:   "log_level: loud\n",
			wantCode: ExitConfigError,
			wantErr:  "loading config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configHome, _ := setupEnv(t)
			if tt.config != "" {
				dir := filepath.Join(configHome, config.GlobalConfigDir)
				require.NoError(t, os.MkdirAll(dir, 0755))
				require.NoError(t, os.WriteFile(filepath.Join(dir, config.GlobalConfigFile), []byte(tt.config), 0644))
			}

			var stdout, stderr bytes.Buffer
			code := execute(context.Background(), tt.args(t), &stdout, &stderr)
			assert.Equal(t, tt.wantCode, code)
			assert.Contains(t, stderr.String(), tt.wantErr)
		})
	}
}
