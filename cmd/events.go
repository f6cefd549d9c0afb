/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/todoweb/server/config"
	"github.com/todoweb/server/internal/mq"
)

// eventsCmd groups commands that work with the domain event channel.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect published todo events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Log every event published on the configured channel until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		if cfg.MQ.Backend == config.BackendNone || cfg.MQ.Backend == "" {
			return errors.New("MQ_BACKEND is none; nothing to tail")
		}
		log := newLogger(cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		backend, err := mq.NewBackend(ctx, cfg.MQ)
		if err != nil {
			return fmt.Errorf("init mq backend: %w", err)
		}
		events := mq.New(backend, cfg.MQ.Channel)
		defer events.Close()

		log.Info(ctx, "tailing events", "backend", cfg.MQ.Backend, "channel", cfg.MQ.Channel)
		err = events.SubscribeEvents(ctx, func(ctx context.Context, ev mq.Event) error {
			log.Info(ctx, "event", "type", ev.Type, "user_id", ev.UserID, "todo_id", ev.TodoID, "at", ev.At)
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
