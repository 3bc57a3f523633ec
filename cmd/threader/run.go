package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mohammad-safakhou/threader/config"
	"github.com/mohammad-safakhou/threader/internal/pipeline"
	"github.com/mohammad-safakhou/threader/models"
)

func runCMD(cfgPath *string) *cobra.Command {
	var topic, format string
	var run = &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once and print the run",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "yaml" {
				return fmt.Errorf("unsupported format %q (json, yaml)", format)
			}
			cfg, err := config.LoadConfig(*cfgPath)
			if err != nil {
				return err
			}
			// Progress logs go to stderr so stdout stays machine readable.
			logger := log.New(os.Stderr, "[PIPELINE] ", log.LstdFlags)
			log.SetOutput(os.Stderr)
			p, cleanup, err := pipeline.Build(cmd.Context(), cfg, nil, logger)
			if err != nil {
				return err
			}
			defer func() { _ = cleanup() }()

			result, runErr := p.Run(cmd.Context(), topic)
			if err := writeRun(cmd.OutOrStdout(), result, format); err != nil {
				return err
			}
			return runErr
		},
	}
	run.Flags().StringVarP(&topic, "topic", "t", "", "topic to write a thread about")
	run.Flags().StringVarP(&format, "format", "f", "json", "output format: json or yaml")
	_ = run.MarkFlagRequired("topic")

	return run
}

func writeRun(w io.Writer, run *models.Run, format string) error {
	if run == nil {
		return nil
	}
	if format == "yaml" {
		// Round-trip through JSON so the YAML keys match the API field names.
		b, err := json.Marshal(run)
		if err != nil {
			return err
		}
		var doc any
		if err := json.Unmarshal(b, &doc); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(doc)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(run)
}
