// Package prompt turns a processing category and a serialized payload
// into the message list sent to a provider.
//
// Each category owns a template with a single substitution point for
// the payload; the custom category additionally interpolates
// caller-supplied instructions. An explicit override template always
// wins over the category template.
package prompt

import (
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/platenhq/platen/provider"
)

// Type selects a processing category. The set is closed; anything else
// is rejected by Render.
type Type string

const (
	TypeAnalyze   Type = "analyze"
	TypeClassify  Type = "classify"
	TypeExtract   Type = "extract"
	TypeSummarize Type = "summarize"
	TypeCustom    Type = "custom"
)

// System prompts sent as the first message of every rendered
// conversation. Structured payloads and plain text get slightly
// different framing.
const (
	SystemPrompt = "You are an expert AI assistant specialized in data analysis and processing. " +
		"Provide accurate, structured, and actionable responses."
	SystemPromptText = "You are an expert AI assistant specialized in text analysis and processing. " +
		"Provide accurate, structured, and actionable responses."
)

var templates = map[Type]*template.Template{
	TypeAnalyze:   template.Must(template.New(string(TypeAnalyze)).Parse(analyzeTemplate)),
	TypeClassify:  template.Must(template.New(string(TypeClassify)).Parse(classifyTemplate)),
	TypeExtract:   template.Must(template.New(string(TypeExtract)).Parse(extractTemplate)),
	TypeSummarize: template.Must(template.New(string(TypeSummarize)).Parse(summarizeTemplate)),
	TypeCustom:    template.Must(template.New(string(TypeCustom)).Parse(customTemplate)),
}

// Types lists the valid categories in sorted order, for error messages
// and CLI help.
func Types() []Type {
	out := make([]Type, 0, len(templates))
	for t := range templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseType validates a category tag, typically from a flag or config
// file.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := templates[t]; !ok {
		return "", &provider.ConfigError{Msg: fmt.Sprintf("unknown prompt type: %q (valid: %v)", s, Types())}
	}
	return t, nil
}

// Selection describes how a payload should be prompted.
type Selection struct {
	// Type picks the category template. It is validated even when
	// Override is set, since results are tagged with it.
	Type Type

	// CustomInstructions is required for TypeCustom and ignored by the
	// other categories.
	CustomInstructions string

	// Override, when non-empty, is parsed as a template and used in
	// place of the category template. It may reference {{.Payload}}
	// and {{.Instructions}}.
	Override string
}

type templateData struct {
	Payload      string
	Instructions string
}

// Render builds the messages for a serialized JSON payload: the
// structured-data system prompt followed by the rendered user prompt.
//
// Unknown categories return a *provider.ConfigError. A custom
// selection without instructions returns a *provider.ValidationError.
func Render(sel Selection, payload string) ([]provider.Message, error) {
	return render(sel, payload, SystemPrompt)
}

// RenderText is Render for plain-text payloads; the only difference is
// the system prompt.
func RenderText(sel Selection, text string) ([]provider.Message, error) {
	return render(sel, text, SystemPromptText)
}

func render(sel Selection, payload, system string) ([]provider.Message, error) {
	tmpl, ok := templates[sel.Type]
	if !ok {
		return nil, &provider.ConfigError{Msg: fmt.Sprintf("unknown prompt type: %q (valid: %v)", sel.Type, Types())}
	}

	if sel.Override != "" {
		parsed, err := template.New("override").Parse(sel.Override)
		if err != nil {
			return nil, &provider.ValidationError{Msg: "parsing override template", Err: err}
		}
		tmpl = parsed
	} else if sel.Type == TypeCustom && strings.TrimSpace(sel.CustomInstructions) == "" {
		return nil, &provider.ValidationError{Msg: "custom prompt type requires instructions"}
	}

	var sb strings.Builder
	data := templateData{Payload: payload, Instructions: sel.CustomInstructions}
	if err := tmpl.Execute(&sb, data); err != nil {
		return nil, &provider.ValidationError{Msg: "rendering prompt template", Err: err}
	}

	return []provider.Message{
		provider.SystemMessage(system),
		provider.UserMessage(sb.String()),
	}, nil
}
