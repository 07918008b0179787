package generator

import (
	"context"
	"strings"
)

// MockLLM 一个简单的占位实现，便于本地调试，不调用外部模型。
type MockLLM struct{}

func (m MockLLM) Complete(_ context.Context, prompt Prompt, _ Sampling) (string, error) {
	var sb strings.Builder
	switch prompt.Name {
	case TemplateIdea:
		sb.WriteString("- Idea one\n- Idea two\n- Idea three\n")
	case TemplateOutline:
		sb.WriteString("1. Introduction\n2. Main points\n3. Conclusion\n")
	case TemplateDraft:
		sb.WriteString("This is a generated draft.\n\n")
	case TemplateRefine:
		sb.WriteString("This is the refined content.\n")
		sb.WriteString(NotesMarker)
		sb.WriteString("\nKeywords: example, mock\n")
		return sb.String(), nil
	}
	sb.WriteString("根据提示生成的内容：\n\n")
	sb.WriteString("```\n")
	sb.WriteString(prompt.Text)
	sb.WriteString("\n```\n")
	return sb.String(), nil
}
