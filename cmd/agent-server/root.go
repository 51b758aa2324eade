package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "agent-server",
	Short: "Realtime voice agent server for guided language practice",
	Long: `agent-server hosts realtime practice rooms: each room gets a
persona-driven AI agent wired to a generative model backend, a tool
dispatch pipeline, and data topics the web UI subscribes to.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
}
