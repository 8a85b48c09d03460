// Package cli implements insightctl, a command line front end to the
// analysis engine and the run event stream.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Tributary-ai-services/aether-insights/internal/logger"
)

type rootOptions struct {
	cfgFile  string
	debug    bool
	settings *Settings
	logger   *logger.Logger
}

// NewRootCommand builds the insightctl command tree
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{logger: logger.NewNop()}

	root := &cobra.Command{
		Use:           "insightctl",
		Short:         "Profile CSV datasets and synthesize dashboards",
		Long:          `insightctl runs the dataset analysis engine locally: type inference, profiling, insight mining, chart recommendation and dashboard layout. It can also follow run events published by the insights server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			s, err := LoadSettings(opts.cfgFile)
			if err != nil {
				return err
			}
			opts.settings = s

			if opts.debug {
				log, err := logger.New(logger.Config{Level: "debug", Format: "console"})
				if err != nil {
					return fmt.Errorf("init logger: %w", err)
				}
				opts.logger = log
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default is ~/.aether-insights/config.yaml)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "log to stderr")

	root.AddCommand(newAnalyzeCommand(opts))
	root.AddCommand(newWatchCommand(opts))
	root.AddCommand(newConfigCommand(opts))
	return root
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newConfigCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(opts.settings); err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			return enc.Close()
		},
	}
}
