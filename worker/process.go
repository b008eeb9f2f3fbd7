package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/platenhq/platen/prompt"
	"github.com/platenhq/platen/provider"
)

// Process runs one payload through the configured provider. A string
// payload must already contain valid JSON and is re-indented; any
// other value is serialized as indented JSON.
//
// Payload, template, and backend problems are folded into a failed
// Result. The error return is reserved for provider resolution, which
// is a configuration problem rather than a property of the item.
func (w *Worker) Process(ctx context.Context, payload any, sel prompt.Selection) (Result, error) {
	serialized, err := serializePayload(payload)
	if err != nil {
		return failed(w.log, sel, payload, err), nil
	}

	msgs, err := prompt.Render(sel, serialized)
	if err != nil {
		return failed(w.log, sel, payload, err), nil
	}

	p, err := w.resolve()
	if err != nil {
		return Result{}, err
	}

	return w.dispatch(ctx, w.log, p, msgs, payload, sel), nil
}

// ProcessText is Process for plain text: no JSON validation, and the
// text-analysis system prompt. The result echoes the input as
// {"text": ...}.
func (w *Worker) ProcessText(ctx context.Context, text string, sel prompt.Selection) (Result, error) {
	input := map[string]any{"text": text}

	msgs, err := prompt.RenderText(sel, text)
	if err != nil {
		return failed(w.log, sel, input, err), nil
	}

	p, err := w.resolve()
	if err != nil {
		return Result{}, err
	}

	return w.dispatch(ctx, w.log, p, msgs, input, sel), nil
}

// Analyze processes payload with the data analysis template.
func (w *Worker) Analyze(ctx context.Context, payload any) (Result, error) {
	return w.Process(ctx, payload, prompt.Selection{Type: prompt.TypeAnalyze})
}

// Classify processes payload with the classification template.
func (w *Worker) Classify(ctx context.Context, payload any) (Result, error) {
	return w.Process(ctx, payload, prompt.Selection{Type: prompt.TypeClassify})
}

// Extract processes payload with the entity extraction template. The
// response follows the delimited tuple format that dataset.ParseGraph
// understands.
func (w *Worker) Extract(ctx context.Context, payload any) (Result, error) {
	return w.Process(ctx, payload, prompt.Selection{Type: prompt.TypeExtract})
}

// Summarize processes payload with the summarization template.
func (w *Worker) Summarize(ctx context.Context, payload any) (Result, error) {
	return w.Process(ctx, payload, prompt.Selection{Type: prompt.TypeSummarize})
}

// Custom processes payload with caller-supplied instructions.
// Instructions must be non-empty.
func (w *Worker) Custom(ctx context.Context, payload any, instructions string) (Result, error) {
	return w.Process(ctx, payload, prompt.Selection{
		Type:               prompt.TypeCustom,
		CustomInstructions: instructions,
	})
}

// processItem is the single-item pipeline for Batch, where the
// provider has already been resolved and log carries run attributes.
func (w *Worker) processItem(ctx context.Context, log *slog.Logger, p provider.Provider, payload any, sel prompt.Selection) Result {
	serialized, err := serializePayload(payload)
	if err != nil {
		return failed(log, sel, payload, err)
	}

	msgs, err := prompt.Render(sel, serialized)
	if err != nil {
		return failed(log, sel, payload, err)
	}

	return w.dispatch(ctx, log, p, msgs, payload, sel)
}

func (w *Worker) dispatch(ctx context.Context, log *slog.Logger, p provider.Provider, msgs []provider.Message, input any, sel prompt.Selection) Result {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	resp, err := p.Complete(ctx, &provider.Request{Messages: msgs, Config: w.cfg})
	if err != nil {
		return failed(log, sel, input, err)
	}

	res := Result{
		Success:    true,
		Output:     resp.Text,
		Input:      input,
		PromptType: sel.Type,
		Model:      resp.Model,
	}
	if resp.Usage != nil {
		tokens := resp.Usage.TotalTokens
		res.TokensUsed = &tokens
	}
	return res
}

// serializePayload renders the payload as indented JSON, the form the
// templates embed. String payloads are validated by decoding.
func serializePayload(payload any) (string, error) {
	if s, ok := payload.(string); ok {
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return "", &provider.ValidationError{Msg: "payload is not valid JSON", Err: err}
		}
		payload = decoded
	}

	pretty, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", &provider.ValidationError{Msg: "serializing payload", Err: err}
	}
	return string(pretty), nil
}
