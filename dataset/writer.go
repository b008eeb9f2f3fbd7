package dataset

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/platenhq/platen/worker"
)

// AggregateFile is the name of the JSON Lines file WriteAll appends
// every result to.
const AggregateFile = "results.jsonl"

// Writer persists worker results under one output directory: a
// pretty-printed JSON file per result plus an aggregate JSONL file.
type Writer struct {
	dir string
	log *slog.Logger
}

// WriterOption adjusts a Writer under construction.
type WriterOption func(*Writer)

// WithWriterLogger sets the logger used for written files.
func WithWriterLogger(log *slog.Logger) WriterOption {
	return func(w *Writer) {
		w.log = log
	}
}

// NewWriter creates a Writer targeting dir. The directory is created
// on first write.
func NewWriter(dir string, opts ...WriterOption) *Writer {
	w := &Writer{
		dir: filepath.Clean(dir),
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write saves one result as an indented JSON file named after the
// payload, with a random suffix against collisions. Returns the path
// of the written file.
func (w *Writer) Write(name string, res worker.Result) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding result: %w", err)
	}

	path := filepath.Join(w.dir, fmt.Sprintf("%s_%s.json", sanitizeName(name), uuid.NewString()[:8]))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing result: %w", err)
	}

	w.log.Debug("result written", "path", path, "success", res.Success)
	return path, nil
}

// WriteAll saves every result individually and appends each as one
// line to the aggregate JSONL file. Names index into results; missing
// names fall back to the position.
func (w *Writer) WriteAll(names []string, results []worker.Result) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	agg, err := os.OpenFile(filepath.Join(w.dir, AggregateFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", AggregateFile, err)
	}
	defer agg.Close()

	enc := json.NewEncoder(agg)
	for i, res := range results {
		name := fmt.Sprintf("item_%d", i)
		if i < len(names) && names[i] != "" {
			name = names[i]
		}

		if _, err := w.Write(name, res); err != nil {
			return err
		}
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("appending to %s: %w", AggregateFile, err)
		}
	}

	w.log.Info("results written", "dir", w.dir, "count", len(results))
	return nil
}

// sanitizeName makes a payload name safe to embed in a filename.
func sanitizeName(name string) string {
	name = strings.TrimSuffix(name, filepath.Ext(name))
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_")
	name = replacer.Replace(name)
	if name == "" {
		return "result"
	}
	return name
}
