package provider

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
)

// Entry describes one registrable provider: a constructor plus static
// capability metadata. New must not perform network I/O; it is called
// under the registry lock.
type Entry struct {
	New  func() (Provider, error)
	Info Info
}

// Info is static capability metadata for a registered provider, available
// without constructing it.
type Info struct {
	Name          string
	DefaultModel  string
	Models        []string
	CredentialEnv string

	// CredentialSet and Active are filled by Describe.
	CredentialSet bool
	Active        bool
}

// CredentialVar returns the conventional credential variable for a
// provider name: "<NAME>_API_KEY" upper-cased.
func CredentialVar(name string) string {
	return strings.ToUpper(name) + "_API_KEY"
}

// Registry owns provider lifecycle: registration, lazy construction,
// credential checks and instance caching. Construct one per process and
// pass it to whatever needs providers; there is no package-global
// instance.
type Registry struct {
	mu      sync.Mutex
	entries map[string]Entry
	active  map[string]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]Entry),
		active:  make(map[string]Provider),
	}
}

// Register adds or replaces an entry. Replacing a name drops its cached
// instance, so the next Get constructs from the new entry. An empty
// Info.CredentialEnv defaults to CredentialVar(name).
func (r *Registry) Register(name string, e Entry) {
	e.Info.Name = name
	if e.Info.CredentialEnv == "" {
		e.Info.CredentialEnv = CredentialVar(name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = e
	delete(r.active, name)
}

// Get returns the cached instance for name, constructing it on first use.
// Construction is serialized: concurrent first calls for the same name
// observe exactly one instance. A missing registration or credential
// fails with a ConfigError and caches nothing, so a later call retries
// once the caller fixes the environment.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.active[name]; ok {
		return p, nil
	}

	e, ok := r.entries[name]
	if !ok {
		return nil, &ConfigError{
			Msg: fmt.Sprintf("unknown provider: %q (registered: %v)", name, r.namesLocked()),
		}
	}

	if os.Getenv(e.Info.CredentialEnv) == "" {
		return nil, &ConfigError{
			Msg: fmt.Sprintf("provider %q credential missing: set %s", name, e.Info.CredentialEnv),
		}
	}

	p, err := e.New()
	if err != nil {
		return nil, &ConfigError{
			Msg: fmt.Sprintf("constructing provider %q", name),
			Err: err,
		}
	}

	r.active[name] = p
	slog.Debug("provider initialized", "provider", name)
	return p, nil
}

// Providers returns all registered names, sorted.
func (r *Registry) Providers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.namesLocked()
}

// Active returns the names of providers already constructed, sorted.
func (r *Registry) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.active))
	for name := range r.active {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateAll reports, for every registered name, whether its credential
// variable is present. No construction and no network probe.
func (r *Registry) ValidateAll() map[string]bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]bool, len(r.entries))
	for name, e := range r.entries {
		out[name] = os.Getenv(e.Info.CredentialEnv) != ""
	}
	return out
}

// Describe returns a provider's capability metadata without constructing
// it or requiring its credential.
func (r *Registry) Describe(name string) (Info, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return Info{}, &ConfigError{
			Msg: fmt.Sprintf("unknown provider: %q (registered: %v)", name, r.namesLocked()),
		}
	}

	info := e.Info
	info.Models = append([]string(nil), e.Info.Models...)
	info.CredentialSet = os.Getenv(e.Info.CredentialEnv) != ""
	_, info.Active = r.active[name]
	return info, nil
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
