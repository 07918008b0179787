package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"ai_content_workflow/generator"
	"ai_content_workflow/history"
)

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved runs, oldest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), root)
			if err != nil {
				return err
			}
			defer a.Close()

			runs, err := a.runs.ListAll(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				if runs == nil {
					runs = []history.SavedRun{}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}
			return printRuns(cmd.OutOrStdout(), runs)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print full records as JSON")
	return cmd
}

func printRuns(w io.Writer, runs []history.SavedRun) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "no saved runs")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSAVED\tTOPIC\tTYPE\tTONE\tCLARITY\tENGAGEMENT\tFINAL")
	for _, r := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			r.ID,
			r.Timestamp.Local().Format(time.DateTime),
			r.Params.Topic,
			r.Params.ContentType,
			r.Params.Tone,
			r.ClarityScore,
			r.EngagementScore,
			preview(r.Edited(generator.StageRefine), 40),
		)
	}
	return tw.Flush()
}

func preview(s string, n int) string {
	r := []rune(s)
	for i, c := range r {
		if c == '\n' || c == '\t' {
			r[i] = ' '
		}
	}
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}
