package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai_content_workflow/config"
	"ai_content_workflow/generator"
	"ai_content_workflow/history"
)

func writeMockConfig(t *testing.T) (cfgPath, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	dbPath = filepath.Join(dir, "runs.db")
	cfgPath = filepath.Join(dir, "config.json")
	raw, err := json.Marshal(map[string]any{
		"llm":     map[string]any{"provider": "mock", "model": "mock-model"},
		"history": map[string]any{"driver": "sqlite", "path": dbPath},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cfgPath, raw, 0o644))
	return cfgPath, dbPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestBuildLLM(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Provider = "mock"
	llm, err := buildLLM(cfg)
	require.NoError(t, err)
	assert.IsType(t, generator.MockLLM{}, llm)

	cfg.LLM.Provider = "deepseek"
	cfg.LLM.APIKey = "k"
	_, err = buildLLM(cfg)
	assert.ErrorContains(t, err, "base_url")

	cfg.LLM.BaseURL = "https://api.deepseek.com/v1/"
	llm, err = buildLLM(cfg)
	require.NoError(t, err)
	assert.IsType(t, &generator.OpenAILLM{}, llm)

	cfg.LLM.Provider = "claude-via-fax"
	_, err = buildLLM(cfg)
	assert.Error(t, err)

	cfg.LLM = nil
	_, err = buildLLM(cfg)
	assert.Error(t, err)
}

func TestRunCommand_SaveAndHistory(t *testing.T) {
	cfgPath, dbPath := writeMockConfig(t)

	out, err := execute(t, "--config", cfgPath, "run", "--topic", "electric bikes", "--save", "--clarity", "4", "--engagement", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "saved run 1")
	assert.Contains(t, out, "# Topic: electric bikes\n")
	assert.Contains(t, out, "## 4. Final Refined Content\nThis is the refined content.\n")
	assert.Contains(t, out, "## 5. Refinement Notes\nKeywords: example, mock\n")

	store, err := history.OpenSQLite(dbPath)
	require.NoError(t, err)
	runs, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.Len(t, runs, 1)
	assert.Equal(t, 4, runs[0].ClarityScore)
	assert.Equal(t, "Blog Post", runs[0].Params.ContentType)

	out, err = execute(t, "--config", cfgPath, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "electric bikes")
	assert.Contains(t, out, "This is the refined content.")

	out, err = execute(t, "--config", cfgPath, "history", "--json")
	require.NoError(t, err)
	var decoded []history.SavedRun
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, int64(1), decoded[0].ID)
}

func TestRunCommand_ExportFile(t *testing.T) {
	cfgPath, _ := writeMockConfig(t)
	dest := filepath.Join(t.TempDir(), "post.html")

	out, err := execute(t, "--config", cfgPath, "run", "--topic", "tea", "--out", dest)
	require.NoError(t, err)
	assert.Contains(t, out, "exported to "+dest)

	body, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(body), "<h1>Topic: tea</h1>")
}

func TestRunCommand_Validation(t *testing.T) {
	cfgPath, _ := writeMockConfig(t)

	_, err := execute(t, "--config", cfgPath, "run")
	assert.ErrorContains(t, err, "--topic")

	_, err = execute(t, "--config", cfgPath, "run", "--topic", "x", "--save", "--clarity", "9")
	assert.ErrorIs(t, err, history.ErrInvalidScore)

	_, err = execute(t, "--config", cfgPath, "run", "--topic", "x", "--out", filepath.Join(t.TempDir(), "a.pdf"))
	assert.ErrorContains(t, err, "unsupported export format")
}

func TestRunOptions_EditFeedsNextStage(t *testing.T) {
	cfgPath, _ := writeMockConfig(t)
	a, err := newApp(context.Background(), &rootOptions{configPath: cfgPath})
	require.NoError(t, err)
	defer a.Close()

	var seen []generator.Stage
	o := &runOptions{
		topic: "tea", kind: "Blog Post", tone: "Casual", length: "Short (50 words)", edit: true,
		editor: func(_ context.Context, stage generator.Stage, text string) (string, error) {
			seen = append(seen, stage)
			if stage == generator.StageIdea {
				return "only the green tea idea", nil
			}
			return text, nil
		},
	}
	var out bytes.Buffer
	require.NoError(t, o.execute(context.Background(), a, &out))

	assert.Equal(t, generator.Stages, seen)
	assert.True(t, strings.Contains(out.String(), "## 1. Ideas\nonly the green tea idea\n"))
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "a b", preview("a\nb", 10))
	assert.Equal(t, "abc...", preview("abcdef", 3))
}
