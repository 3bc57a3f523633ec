package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var cfgPath string
	var root = &cobra.Command{
		Use:          "threader",
		Short:        "Turn a topic into a researched social media thread",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config/config.*)")

	root.AddCommand(serveCMD(&cfgPath), runCMD(&cfgPath), mcpCMD(&cfgPath), watchCMD(&cfgPath), tokenCMD(&cfgPath))
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
