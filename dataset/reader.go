// Package dataset moves payloads and results between the filesystem
// and the worker: glob-based discovery of JSON payload files, result
// persistence, and parsing of extraction responses into graphs.
package dataset

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultPattern matches every JSON file under the reader's root,
// recursively.
const DefaultPattern = "**/*.json"

// Payload is one decoded payload file with its provenance.
type Payload struct {
	Path string
	Name string
	Data any
}

// Reader discovers and decodes JSON payload files under a root
// directory.
type Reader struct {
	root    string
	pattern string
	limit   int
	log     *slog.Logger
}

// ReaderOption adjusts a Reader under construction.
type ReaderOption func(*Reader)

// WithPattern replaces the default **/*.json glob. Doublestar syntax.
func WithPattern(pattern string) ReaderOption {
	return func(r *Reader) {
		r.pattern = pattern
	}
}

// WithLimit caps how many files Read returns. Zero means no limit.
func WithLimit(n int) ReaderOption {
	return func(r *Reader) {
		r.limit = n
	}
}

// WithLogger sets the logger used for skipped files.
func WithLogger(log *slog.Logger) ReaderOption {
	return func(r *Reader) {
		r.log = log
	}
}

// NewReader creates a Reader rooted at root.
func NewReader(root string, opts ...ReaderOption) *Reader {
	r := &Reader{
		root:    filepath.Clean(root),
		pattern: DefaultPattern,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Read returns the decoded payloads in lexicographic path order.
// Files that fail to read or decode are logged and skipped.
func (r *Reader) Read() ([]Payload, error) {
	info, err := os.Stat(r.root)
	if err != nil {
		return nil, fmt.Errorf("data root %s: %w", r.root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data root %s: not a directory", r.root)
	}

	fsys := os.DirFS(r.root)
	matches, err := doublestar.Glob(fsys, r.pattern)
	if err != nil {
		return nil, fmt.Errorf("globbing %s: %w", r.pattern, err)
	}
	sort.Strings(matches)

	var payloads []Payload
	for _, m := range matches {
		if r.limit > 0 && len(payloads) >= r.limit {
			break
		}

		path := filepath.Join(r.root, m)
		data, err := os.ReadFile(path)
		if err != nil {
			r.log.Warn("skipping payload file", "path", path, "error", err)
			continue
		}

		var decoded any
		if err := json.Unmarshal(data, &decoded); err != nil {
			r.log.Warn("skipping payload file", "path", path, "error", err)
			continue
		}

		payloads = append(payloads, Payload{
			Path: path,
			Name: filepath.Base(m),
			Data: decoded,
		})
	}

	r.log.Debug("payloads read", "root", r.root, "pattern", r.pattern, "count", len(payloads))
	return payloads, nil
}
