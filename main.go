package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ai_content_workflow/config"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "content-workflow",
		Short: "Four-stage AI content pipeline: idea, outline, draft, refine",
		Long: `content-workflow drives a topic through four model-backed stages.
Each stage output can be edited before the next one consumes it.
Finished runs can be scored, saved to the history store and exported.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath, "path to config.json")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logs")

	cmd.AddCommand(newServeCmd(opts), newRunCmd(opts), newHistoryCmd(opts))
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
