// Package main is the blog writer binary: an HTTP API and a CLI over the
// resumable writing workflow.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const appName = "blogwriter"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Research, draft and edit blog posts with a human in the loop",
		Long: `blogwriter researches a topic on the web, drafts a post, edits it for
search quality and saves it as markdown. It pauses before each stage to ask
the reviewer a few questions and to approve or reject the previous result.

Runs are checkpointed, so they can be resumed later, from another process,
or after a restart.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "config file path (YAML)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	cmd.AddCommand(serveCmd(g), startCmd(g), resumeCmd(g), statusCmd(g))
	return cmd
}
