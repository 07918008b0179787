package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ai_content_workflow/export"
	"ai_content_workflow/generator"
	"ai_content_workflow/history"
)

type runOptions struct {
	topic      string
	kind       string
	tone       string
	length     string
	edit       bool
	save       bool
	clarity    int
	engagement int
	out        string

	// editor lets tests replace $EDITOR.
	editor func(ctx context.Context, stage generator.Stage, text string) (string, error)
}

func newRunCmd(root *rootOptions) *cobra.Command {
	o := &runOptions{editor: externalEditor}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run all four stages for a topic",
		Long: `Run generates ideas, an outline, a draft and the refined content in order.
With --edit each stage output is opened in $EDITOR before the next stage uses it.
With --save the run is stored in the history with the given scores.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(o.topic) == "" {
				return errors.New("--topic is required")
			}
			if o.save {
				if err := (history.SavedRun{ClarityScore: o.clarity, EngagementScore: o.engagement}).Validate(); err != nil {
					return err
				}
			}
			a, err := newApp(cmd.Context(), root)
			if err != nil {
				return err
			}
			defer a.Close()
			return o.execute(cmd.Context(), a, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.topic, "topic", "", "topic to write about")
	f.StringVar(&o.kind, "type", "Blog Post", "content type")
	f.StringVar(&o.tone, "tone", "Professional", "tone of voice")
	f.StringVar(&o.length, "length", "Short (50 words)", "target length")
	f.BoolVar(&o.edit, "edit", false, "edit each stage output in $EDITOR")
	f.BoolVar(&o.save, "save", false, "save the run to the history store")
	f.IntVar(&o.clarity, "clarity", 3, "clarity score 1-5, used with --save")
	f.IntVar(&o.engagement, "engagement", 3, "engagement score 1-5, used with --save")
	f.StringVarP(&o.out, "out", "o", "", "write the export to this file; the extension picks the format")
	return cmd
}

func (o *runOptions) execute(ctx context.Context, a *app, w io.Writer) error {
	params := generator.Parameters{
		Topic:       strings.TrimSpace(o.topic),
		ContentType: o.kind,
		Tone:        o.tone,
		Length:      o.length,
	}
	sess := generator.NewSession(uuid.NewString(), params, a.exec)
	timeout := a.cfg.RequestTimeout.Duration

	for _, stage := range generator.Stages {
		stageCtx, cancel := context.WithTimeout(ctx, timeout)
		out, err := sess.Run(stageCtx, stage)
		cancel()
		if err != nil {
			return err
		}
		if o.edit && o.editor != nil {
			edited, err := o.editor(ctx, stage, out)
			if err != nil {
				return fmt.Errorf("edit %s: %w", stage, err)
			}
			if edited != out {
				if err := sess.Edit(stage, edited); err != nil {
					return err
				}
			}
		}
		a.logger.Debug("stage done", zap.Stringer("stage", stage))
	}

	if o.save {
		id, err := a.runs.Save(ctx, history.NewSnapshot(sess.State, o.clarity, o.engagement))
		a.metrics.ObserveSave(err)
		if err != nil {
			return err
		}
		a.logger.Info("run saved", zap.Int64("id", id))
		fmt.Fprintf(w, "saved run %d\n", id)
	}

	if o.out == "" {
		_, err := io.WriteString(w, export.Render(sess.State))
		return err
	}
	format, err := export.ParseFormat(strings.TrimPrefix(filepath.Ext(o.out), "."))
	if err != nil {
		return err
	}
	doc, err := export.Build(sess.State, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(o.out, doc.Body, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Fprintf(w, "exported to %s\n", o.out)
	return nil
}

// externalEditor opens text in $EDITOR (vi when unset) and returns the saved result.
func externalEditor(ctx context.Context, stage generator.Stage, text string) (string, error) {
	f, err := os.CreateTemp("", "content-"+stage.String()+"-*.md")
	if err != nil {
		return "", err
	}
	defer os.Remove(f.Name())
	if _, err := f.WriteString(text); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}
	args := strings.Fields(editor)
	cmd := exec.CommandContext(ctx, args[0], append(args[1:], f.Name())...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := cmd.Run(); err != nil {
		return "", err
	}
	b, err := os.ReadFile(f.Name())
	if err != nil {
		return "", err
	}
	return string(b), nil
}
