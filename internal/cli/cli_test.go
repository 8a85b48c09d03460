package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Tributary-ai-services/aether-insights/internal/models"
)

const salesCSV = "day,region,sales,units\n" +
	"2024-01-01,north,10,1\n" +
	"2024-01-02,south,20,2\n" +
	"2024-01-03,north,30,3\n" +
	"2024-01-04,south,40,4\n"

// isolate points HOME at an empty directory so no user config is read
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAnalyzeProfileJSON(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "sales.csv", salesCSV)

	out, err := runCmd(t, "analyze", path, "--section", "profile")
	require.NoError(t, err)

	var profile models.DatasetProfile
	require.NoError(t, json.Unmarshal([]byte(out), &profile))
	assert.Equal(t, "sales", profile.DatasetID)
	assert.Equal(t, 4, profile.RowCount)
	assert.Equal(t, 4, profile.ColumnCount)

	col, ok := profile.Column("units")
	require.True(t, ok)
	assert.Equal(t, models.TypeInteger, col.DetectedType)
}

func TestAnalyzeAllYAML(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "sales.csv", salesCSV)

	out, err := runCmd(t, "analyze", path, "--format", "yaml", "--semantics")
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Contains(t, doc, "profile")
	assert.Contains(t, doc, "insights")
	assert.Contains(t, doc, "dashboard")
	assert.Contains(t, doc, "semantics")
}

func TestAnalyzeTSVAndOutputFile(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "sales.tsv", strings.ReplaceAll(salesCSV, ",", "\t"))
	target := filepath.Join(dir, "dashboard.json")

	out, err := runCmd(t, "analyze", path, "--section", "dashboard", "-o", target, "--max-rows", "3")
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	var dash models.Dashboard
	require.NoError(t, json.Unmarshal(data, &dash))
	assert.Equal(t, "sales", dash.DatasetID)
	assert.NotEmpty(t, dash.Charts)
}

func TestAnalyzeErrors(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "sales.csv", salesCSV)
	empty := writeFile(t, dir, "empty.csv", "")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"missing file", []string{"analyze", filepath.Join(dir, "nope.csv")}, "open dataset"},
		{"bad format", []string{"analyze", path, "--format", "xml"}, "unsupported --format"},
		{"bad section", []string{"analyze", path, "--section", "charts"}, "unsupported --section"},
		{"bad delimiter", []string{"analyze", path, "--delimiter", "#"}, "unsupported --delimiter"},
		{"empty file", []string{"analyze", empty}, "PARSE_ERROR"},
		{"no argument", []string{"analyze"}, "accepts 1 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCmd(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadSettings(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		isolate(t)
		s, err := LoadSettings("")
		require.NoError(t, err)
		assert.Equal(t, "local", s.Classifier.Mode)
		assert.Equal(t, 15, s.Analysis.MaxCharts)
		assert.Equal(t, []string{"localhost:9092"}, s.Kafka.Brokers)
	})

	t.Run("file then env", func(t *testing.T) {
		dir := isolate(t)
		cfg := writeFile(t, dir, "insights.yaml", `
analysis:
  workers: 2
  max_charts: 6
kafka:
  topic_prefix: staging
`)
		t.Setenv("INSIGHTS_ANALYSIS_MAX_CHARTS", "3")

		s, err := LoadSettings(cfg)
		require.NoError(t, err)
		assert.Equal(t, 2, s.Analysis.Workers)
		assert.Equal(t, 3, s.Analysis.MaxCharts)
		assert.Equal(t, "staging", s.Kafka.TopicPrefix)

		opt := s.EngineOptions()
		assert.Equal(t, 2, opt.Workers)
		assert.Equal(t, 3, opt.Charts.MaxCharts)
	})

	t.Run("invalid values", func(t *testing.T) {
		isolate(t)
		t.Setenv("INSIGHTS_CLASSIFIER_MODE", "oracle")
		_, err := LoadSettings("")
		assert.ErrorContains(t, err, "classifier.mode")
	})

	t.Run("missing explicit file", func(t *testing.T) {
		dir := isolate(t)
		_, err := LoadSettings(filepath.Join(dir, "missing.yaml"))
		assert.Error(t, err)
	})
}

func TestConfigCommand(t *testing.T) {
	isolate(t)
	t.Setenv("INSIGHTS_ANALYSIS_MAX_CHARTS", "4")

	out, err := runCmd(t, "config")
	require.NoError(t, err)

	var s Settings
	require.NoError(t, yaml.Unmarshal([]byte(out), &s))
	assert.Equal(t, 4, s.Analysis.MaxCharts)
	assert.Equal(t, "local", s.Classifier.Mode)
}

func TestEventPrinter(t *testing.T) {
	var buf bytes.Buffer
	handler := eventPrinter(&buf, &watchOptions{datasetID: "ds-1", failed: true})
	ctx := context.Background()

	require.NoError(t, handler(ctx, &models.RunEvent{ID: "1", DatasetID: "ds-1", Status: models.StatusFailed}))
	require.NoError(t, handler(ctx, &models.RunEvent{ID: "2", DatasetID: "ds-2", Status: models.StatusFailed}))
	require.NoError(t, handler(ctx, &models.RunEvent{ID: "3", DatasetID: "ds-1", Status: models.StatusCompleted}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var event models.RunEvent
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &event))
	assert.Equal(t, "1", event.ID)
}
