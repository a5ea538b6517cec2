/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/skillbridge/apiserver/internal/mq"
	"github.com/skillbridge/apiserver/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// eventsCmd groups commands for the course event stream.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect course events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Log course events as they are published",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		backend, err := mq.Open(ctx, cfg.MQ)
		if errors.Is(err, mq.ErrDisabled) {
			return errors.New("no mq backend configured, set MQ_BACKEND")
		}
		if err != nil {
			return fmt.Errorf("open mq: %w", err)
		}
		topic := mq.NewTopic(backend, cfg.MQ.EventsChannel)
		defer func() { _ = topic.Close() }()

		log.Info("tailing course events", zap.String("channel", topic.Channel()))
		err = topic.Subscribe(ctx, func(ctx context.Context, msg mq.Message) error {
			var event types.CourseEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				log.Warn("undecodable event", zap.String("message_id", msg.ID), zap.Error(err))
				return nil
			}
			log.Info("course event",
				zap.String("message_id", msg.ID),
				zap.String("type", string(event.Type)),
				zap.String("course_id", event.CourseID),
				zap.String("user_id", event.UserID),
				zap.Time("occurred_at", event.OccurredAt),
			)
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
