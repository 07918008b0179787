package generator

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Prompt 表示发送给 LLM 的消息。
type Prompt struct {
	Name string
	Text string
}

// Template names, one per stage.
const (
	TemplateIdea    = "idea"
	TemplateOutline = "outline"
	TemplateDraft   = "draft"
	TemplateRefine  = "refine"
)

// Variable names the executor supplies.
const (
	VarTopic          = "topic"
	VarContentType    = "content_type"
	VarIdea           = "idea"
	VarOutline        = "outline"
	VarTone           = "tone"
	VarLength         = "length"
	VarFewShotExample = "few_shot_example"
	VarDraft          = "draft"
)

// stageInputs lists the variables the executor supplies for each stage. The
// first entry is the upstream text every template for that stage must consume.
var stageInputs = map[Stage][]string{
	StageIdea:    {VarTopic, VarContentType},
	StageOutline: {VarIdea},
	StageDraft:   {VarOutline, VarTone, VarLength, VarFewShotExample},
	StageRefine:  {VarDraft, VarTone},
}

var placeholderRE = regexp.MustCompile(`\{([a-z][a-z0-9_]*)\}`)

// NoExample is used as the style example for tones missing from the table.
const NoExample = "No example available."

// PromptTemplate is a named body with {variable} placeholders.
type PromptTemplate struct {
	Name     string   `yaml:"name"`
	Required []string `yaml:"required"`
	Body     string   `yaml:"body"`
}

// Render substitutes every required variable. A required variable absent from vars
// is reported as ErrTemplateVariableMissing; nothing is defaulted.
func (t PromptTemplate) Render(vars map[string]string) (string, error) {
	pairs := make([]string, 0, len(t.Required)*2)
	for _, name := range t.Required {
		v, ok := vars[name]
		if !ok {
			return "", fmt.Errorf("%w: template %q needs %q", ErrTemplateVariableMissing, t.Name, name)
		}
		pairs = append(pairs, "{"+name+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(t.Body), nil
}

func (t PromptTemplate) validate() error {
	if t.Name == "" {
		return fmt.Errorf("template without name")
	}
	if strings.TrimSpace(t.Body) == "" {
		return fmt.Errorf("template %q has empty body", t.Name)
	}
	seen := map[string]bool{}
	for _, name := range t.Required {
		if seen[name] {
			return fmt.Errorf("template %q declares %q twice", t.Name, name)
		}
		seen[name] = true
		if !strings.Contains(t.Body, "{"+name+"}") {
			return fmt.Errorf("template %q declares %q but never uses it", t.Name, name)
		}
	}
	for _, m := range placeholderRE.FindAllStringSubmatch(t.Body, -1) {
		if !seen[m[1]] {
			return fmt.Errorf("template %q uses {%s} without declaring it", t.Name, m[1])
		}
	}
	return nil
}

// TemplateSet maps every stage to its template.
type TemplateSet map[Stage]PromptTemplate

// Validate checks that each stage has a well-formed template that consumes its
// upstream text and declares every placeholder it uses.
func (ts TemplateSet) Validate() error {
	for _, s := range Stages {
		t, ok := ts[s]
		if !ok {
			return fmt.Errorf("no template for stage %s", s)
		}
		if err := t.validate(); err != nil {
			return err
		}
		upstream := stageInputs[s][0]
		if !slices.Contains(t.Required, upstream) {
			return fmt.Errorf("template %q for stage %s must declare %q", t.Name, s, upstream)
		}
	}
	return nil
}

// ToneExamples maps a tone name to a short sample of writing in that tone.
type ToneExamples map[string]string

// Lookup never fails: unknown tones get the NoExample placeholder.
func (te ToneExamples) Lookup(tone string) string {
	if ex, ok := te[tone]; ok {
		return ex
	}
	return NoExample
}

// Tones returns the configured tone names, sorted.
func (te ToneExamples) Tones() []string {
	out := make([]string, 0, len(te))
	for k := range te {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DefaultTemplates returns the built-in prompt set.
func DefaultTemplates() TemplateSet {
	return TemplateSet{
		StageIdea: {
			Name:     TemplateIdea,
			Required: []string{VarTopic, VarContentType},
			Body:     "Generate 3 distinct content ideas for a {content_type} about {topic}. Present them as a bulleted list.",
		},
		StageOutline: {
			Name:     TemplateOutline,
			Required: []string{VarIdea},
			Body: "Create a detailed, multi-point outline for the following content idea. " +
				"The outline should be structured to flow logically from introduction to conclusion.\n\nIdea:\n{idea}",
		},
		StageDraft: {
			Name:     TemplateDraft,
			Required: []string{VarOutline, VarTone, VarLength, VarFewShotExample},
			Body: "Write a draft that is approximately {length} words long, based on the following outline. \n\n" +
				"Adopt a {tone} tone. For reference, here is an example of that tone:\n{few_shot_example}\n\nOutline:\n{outline}",
		},
		StageRefine: {
			Name:     TemplateRefine,
			Required: []string{VarDraft, VarTone},
			Body: `Refine the following draft.
1.  Improve clarity and flow.
2.  Ensure the {tone} tone is consistent throughout.
3.  Suggest 3-5 relevant SEO keywords.

Return your response in two parts, separated by '` + NotesMarker + `'.
Part 1: The full, refined content.
Part 2: Your SEO and refinement notes.

Draft:
{draft}
`,
		},
	}
}

// DefaultToneExamples returns the built-in few-shot table.
func DefaultToneExamples() ToneExamples {
	return ToneExamples{
		"Professional": `**Example:** "We are pleased to announce our quarterly earnings, which demonstrate significant growth in key sectors. Our strategic initiatives have yielded positive results, and we anticipate continued success."`,
		"Witty":        `**Example:** "You know what's great? Saving money. You know what's not great? Missing this sale. Don't be the person who misses the sale. Your wallet will thank you (and so will we)."`,
		"Casual":       `**Example:** "Hey everyone, just wanted to share a quick update. We've been working on this new feature and it's finally ready. Check it out and let us know what you think!"`,
		"Informative":  `**Example:** "The new Series 8 processor utilizes a 4nm architecture, which allows for a 20% increase in computational efficiency while reducing power consumption by 15% compared to the previous generation."`,
	}
}

type templateFile struct {
	Templates    map[string]PromptTemplate `yaml:"templates"`
	ToneExamples map[string]string         `yaml:"tone_examples"`
}

// LoadTemplates reads a YAML prompt set. Stages the file leaves out keep their
// defaults; tone examples in the file are merged over the defaults.
//
//	templates:
//	  draft:
//	    required: [outline, tone, length, few_shot_example]
//	    body: "..."
//	tone_examples:
//	  Playful: "..."
func LoadTemplates(path string) (TemplateSet, ToneExamples, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return ParseTemplates(data)
}

// ParseTemplates is LoadTemplates without the file read.
func ParseTemplates(data []byte) (TemplateSet, ToneExamples, error) {
	var f templateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("parse templates: %w", err)
	}

	set := DefaultTemplates()
	for key, t := range f.Templates {
		stage, err := ParseStage(key)
		if err != nil {
			return nil, nil, fmt.Errorf("templates: %w", err)
		}
		if t.Name == "" {
			t.Name = stage.String()
		}
		set[stage] = t
	}
	if err := set.Validate(); err != nil {
		return nil, nil, err
	}

	tones := DefaultToneExamples()
	for k, v := range f.ToneExamples {
		tones[k] = v
	}
	return set, tones, nil
}
