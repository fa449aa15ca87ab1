package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/SAP-F-2025/ielts-exam-service/internal/config"
	"github.com/SAP-F-2025/ielts-exam-service/internal/events"
	"github.com/spf13/cobra"
)

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect the scoring event stream",
	}

	tail := &cobra.Command{
		Use:   "tail",
		Short: "Print scoring events from Kafka as JSON lines",
		RunE:  runEventsTail,
	}
	tail.Flags().StringSlice("type", nil, "Only print these event types (repeatable)")
	cmd.AddCommand(tail)
	return cmd
}

func runEventsTail(cmd *cobra.Command, _ []string) error {
	logger, err := setupLogging(cmd)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	types, _ := cmd.Flags().GetStringSlice("type")
	wanted := make(map[events.EventType]bool, len(types))
	for _, t := range types {
		wanted[events.EventType(t)] = true
	}

	subscriber, err := events.NewKafkaSubscriber(events.SubscriberConfig{
		KafkaBrokers:  cfg.Events.GetKafkaBrokers(),
		ConsumerGroup: cfg.Events.ConsumerGroup,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	defer subscriber.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	enc := json.NewEncoder(cmd.OutOrStdout())
	logger.Info("Tailing scoring events", "topic", cfg.Events.ScoringTopic, "group", cfg.Events.ConsumerGroup)
	return events.Consume(ctx, subscriber, cfg.Events.ScoringTopic, func(_ context.Context, event *events.ScoringEvent) error {
		if len(wanted) > 0 && !wanted[event.Type] {
			return nil
		}
		return enc.Encode(event)
	}, logger)
}
