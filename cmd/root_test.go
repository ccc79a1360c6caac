package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes a config file rooted in a temp dir and returns its
// path together with the data dir.
func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	data := filepath.Join(dir, "data")
	cfg := strings.Join([]string{
		"sources:",
		"  - kind: wordpress",
		"    url: https://blog.example",
		"output:",
		"  data_dir: " + data,
		"  docs_dir: " + filepath.Join(dir, "docs"),
		"  readme: " + filepath.Join(dir, "docs", "README.md"),
		"  storage: memory",
		"",
	}, "\n")
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path, data
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootRegistersSubcommands(t *testing.T) {
	t.Parallel()

	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"collect", "content", "stats", "report", "run", "dupes", "serve"} {
		assert.Contains(t, names, want)
	}
}

func TestDupesCommand(t *testing.T) {
	t.Parallel()

	cfgPath, _ := writeConfig(t)
	csvPath := filepath.Join(t.TempDir(), "sources_wordpress.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(
		"Link,Date,Title,Type\n"+
			"https://a.example/1,2024-01-01,One,structured_api\n"+
			"https://a.example/2,2024-01-02,Two,structured_api\n"+
			"https://a.example/1/,2024-01-03,One again,structured_api\n"), 0o600))

	out, err := execute(t, "--config", cfgPath, "dupes", csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "3 rows, 2 unique links, 1 extra")
	assert.Contains(t, out, "2x https://a.example/1")
	assert.FileExists(t, filepath.Join(filepath.Dir(csvPath), "sources_wordpress_duplicates.csv"))
}

func TestDupesCommandSkipsMissingDefaults(t *testing.T) {
	t.Parallel()

	cfgPath, _ := writeConfig(t)
	out, err := execute(t, "--config", cfgPath, "dupes")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestReportCommand(t *testing.T) {
	t.Parallel()

	cfgPath, data := writeConfig(t)
	require.NoError(t, os.MkdirAll(data, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(data, "statistics_wordpress.csv"), []byte(
		"Link,Date,Title,Word Count,Character Count,Type\n"+
			"https://blog.example/a,2024-03-01,A,120,600,structured_api\n"), 0o600))

	out, err := execute(t, "--config", cfgPath, "report")
	require.NoError(t, err)
	assert.Contains(t, out, "1 entries on 1 days, 120 words (0h 1m)")
	assert.Contains(t, out, "wrote memory://assets/activity_2024.svg")
	assert.Contains(t, out, "wrote memory://index.html")

	readme, err := os.ReadFile(filepath.Join(filepath.Dir(cfgPath), "docs", "README.md"))
	require.NoError(t, err)
	assert.Contains(t, string(readme), "<!-- START_STATS -->")
}

func TestStatsCommandWithoutContent(t *testing.T) {
	t.Parallel()

	cfgPath, data := writeConfig(t)
	require.NoError(t, os.MkdirAll(data, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(data, "sources_wordpress.csv"), []byte(
		"Link,Date,Title,Type\n"+
			"https://blog.example/a,2024-03-01,A,structured_api\n"), 0o600))

	out, err := execute(t, "--config", cfgPath, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "statistics_wordpress.csv: 1 entries")
	assert.FileExists(t, filepath.Join(data, "statistics_wordpress.csv"))
}

func TestInvalidConfigFails(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  storage: s3\n"), 0o600))

	_, err := execute(t, "--config", path, "report")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output.storage")
}

func TestResolveAppWithoutApp(t *testing.T) {
	t.Parallel()

	_, err := resolveApp(context.Background())
	require.EqualError(t, err, "application services not initialized")
}
