package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/threader/config"
	"github.com/mohammad-safakhou/threader/internal/mcpserver"
	"github.com/mohammad-safakhou/threader/internal/pipeline"
)

func mcpCMD(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the generate_thread tool over MCP stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries the protocol
			log.SetOutput(os.Stderr)
			cfg, err := config.LoadConfig(*cfgPath)
			if err != nil {
				return err
			}
			p, cleanup, err := pipeline.Build(cmd.Context(), cfg, nil, log.New(os.Stderr, "[PIPELINE] ", log.LstdFlags))
			if err != nil {
				return err
			}
			defer func() { _ = cleanup() }()

			s := &mcpserver.Server{Runner: p, Searcher: p.Searcher(), Fetcher: p.Fetcher()}
			log.Printf("threader MCP server ready on stdio")
			return s.Serve(cmd.Context())
		},
	}
}
