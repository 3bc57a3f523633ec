package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/threader/config"
	"github.com/mohammad-safakhou/threader/internal/events"
)

func watchCMD(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print run events published to Redis",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if err := cfg.Events.Redis.Validate(); err != nil {
				return err
			}
			if !cfg.Events.Redis.Enabled {
				return errors.New("events.redis.enabled is false; nothing to watch")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client, err := events.Conn(ctx, cfg.Events.Redis)
			if err != nil {
				return err
			}
			defer client.Close()

			ch, err := events.Subscribe(ctx, client, cfg.Events.Redis.Channel, log.New(log.Writer(), "[EVENTS] ", log.LstdFlags))
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for e := range ch {
				if err := enc.Encode(e); err != nil {
					return err
				}
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		},
	}
}
