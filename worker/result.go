package worker

import (
	"log/slog"

	"github.com/platenhq/platen/prompt"
)

// Result reports the outcome of processing one payload. Failures are
// carried in Error with Success false; a bad item never aborts the
// call that produced it.
type Result struct {
	Success    bool        `json:"success"`
	Output     string      `json:"result,omitempty"`
	Error      string      `json:"error,omitempty"`
	Input      any         `json:"input_data,omitempty"`
	PromptType prompt.Type `json:"prompt_type,omitempty"`
	Model      string      `json:"model_used,omitempty"`
	TokensUsed *int        `json:"tokens_used,omitempty"`
}

// failed logs through log, which in batch context carries the run ID
// and item index.
func failed(log *slog.Logger, sel prompt.Selection, input any, err error) Result {
	log.Warn("processing failed", "prompt_type", sel.Type, "error", err)
	return Result{
		Error:      err.Error(),
		Input:      input,
		PromptType: sel.Type,
	}
}
