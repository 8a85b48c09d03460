package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Tributary-ai-services/aether-insights/internal/classifier"
	"github.com/Tributary-ai-services/aether-insights/internal/dataset"
	"github.com/Tributary-ai-services/aether-insights/internal/metrics"
	"github.com/Tributary-ai-services/aether-insights/internal/pipeline"
)

// Output sections
const (
	sectionAll       = "all"
	sectionProfile   = "profile"
	sectionInsights  = "insights"
	sectionDashboard = "dashboard"
	sectionSemantics = "semantics"
)

type analyzeOptions struct {
	format    string
	output    string
	section   string
	delimiter string
	maxRows   int
	semantics bool
}

func newAnalyzeCommand(root *rootOptions) *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Profile a CSV/TSV, mine insights and build a dashboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, root, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "json", "output format: json | yaml")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the result to this path instead of stdout")
	cmd.Flags().StringVar(&opts.section, "section", sectionAll, "part to print: all | profile | insights | dashboard | semantics")
	cmd.Flags().StringVar(&opts.delimiter, "delimiter", "", "field delimiter: ',' | ';' | 'tab' (default from extension)")
	cmd.Flags().IntVar(&opts.maxRows, "max-rows", 0, "maximum rows to read (0 = unlimited)")
	cmd.Flags().BoolVar(&opts.semantics, "semantics", false, "also classify column semantics")
	return cmd
}

func runAnalyze(cmd *cobra.Command, root *rootOptions, opts *analyzeOptions, path string) error {
	format := strings.ToLower(opts.format)
	if format != "json" && format != "yaml" {
		return fmt.Errorf("unsupported --format: %s", opts.format)
	}
	section := strings.ToLower(opts.section)
	switch section {
	case sectionAll, sectionProfile, sectionInsights, sectionDashboard:
	case sectionSemantics:
		opts.semantics = true
	default:
		return fmt.Errorf("unsupported --section: %s", opts.section)
	}

	readOpt := dataset.DefaultOptions()
	readOpt.MaxRows = opts.maxRows
	delim, err := resolveDelimiter(opts.delimiter, path)
	if err != nil {
		return err
	}
	readOpt.Delimiter = delim

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	ds, err := dataset.Read(f, readOpt)
	if err != nil {
		return err
	}
	base := filepath.Base(path)
	ds.ID = strings.TrimSuffix(base, filepath.Ext(base))
	ds.Name = ds.ID
	ds.FileName = base

	clsCfg, err := root.settings.classifierConfig()
	if err != nil {
		return err
	}
	cls, err := classifier.New(clsCfg, root.logger)
	if err != nil {
		return err
	}

	engine := pipeline.NewEngine(nil, nil, cls, root.settings.EngineOptions(), metrics.NewMetrics(root.logger), root.logger)
	result, err := engine.Analyze(cmd.Context(), ds, opts.semantics)
	if err != nil {
		return err
	}

	var out interface{} = result
	switch section {
	case sectionProfile:
		out = result.Profile
	case sectionInsights:
		out = result.Insights
	case sectionDashboard:
		out = result.Dashboard
	case sectionSemantics:
		out = result.Semantics
	}

	if opts.output == "" {
		return encode(cmd.OutOrStdout(), format, out)
	}

	file, err := os.Create(opts.output)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := encode(file, format, out); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote analysis to %s\n", opts.output)
	return nil
}

func resolveDelimiter(flag, path string) (rune, error) {
	switch strings.ToLower(flag) {
	case "":
		if strings.EqualFold(filepath.Ext(path), ".tsv") {
			return '\t', nil
		}
		return ',', nil
	case ",":
		return ',', nil
	case ";":
		return ';', nil
	case "tab", "\t":
		return '\t', nil
	case "|", "pipe":
		return '|', nil
	default:
		return 0, fmt.Errorf("unsupported --delimiter: %s", flag)
	}
}

func encode(w io.Writer, format string, v interface{}) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
