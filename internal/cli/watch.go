package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Tributary-ai-services/aether-insights/internal/models"
	"github.com/Tributary-ai-services/aether-insights/internal/services"
)

type watchOptions struct {
	groupID   string
	datasetID string
	failed    bool
}

func newWatchCommand(root *rootOptions) *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow run events from Kafka, one JSON object per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			kafkaService, err := services.NewKafkaService(root.settings.kafkaConfig(), root.logger)
			if err != nil {
				return err
			}
			defer kafkaService.Close()

			groupID := opts.groupID
			if groupID == "" {
				groupID = root.settings.Kafka.GroupID
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s\n", kafkaService.Topic())
			return kafkaService.ConsumeRunEvents(ctx, groupID, eventPrinter(cmd.OutOrStdout(), opts))
		},
	}

	cmd.Flags().StringVar(&opts.groupID, "group", "", "consumer group (default from config)")
	cmd.Flags().StringVar(&opts.datasetID, "dataset", "", "only show events for this dataset")
	cmd.Flags().BoolVar(&opts.failed, "failed", false, "only show failed runs")
	return cmd
}

// eventPrinter writes matching events to w as JSON lines
func eventPrinter(w io.Writer, opts *watchOptions) services.RunEventHandler {
	var mu sync.Mutex
	enc := json.NewEncoder(w)
	return func(ctx context.Context, event *models.RunEvent) error {
		if opts.datasetID != "" && event.DatasetID != opts.datasetID {
			return nil
		}
		if opts.failed && event.Status != models.StatusFailed {
			return nil
		}
		mu.Lock()
		defer mu.Unlock()
		return enc.Encode(event)
	}
}
