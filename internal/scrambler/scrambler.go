// Package scrambler generates aliases and keeps the run-wide name registry,
// including its on-disk persistence.
package scrambler

import (
	"bytes"
	"crypto/rand"
	"encoding/gob"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/whit3rabbit/pymixer/internal/config"
)

const (
	firstCharsIdentifier = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	allCharsIdentifier   = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ_"

	maxIdentifierLen = 16
	minScrambleLen   = 2
	maxRegenAttempts = 50

	// Context serialization version
	contextVersion = "pymixer-registry-v1"
)

// Generator yields a, b, ..., z, aa, ab, ... without repeats. Digits are kept
// least significant first and reversed on output.
type Generator struct {
	digits []byte
}

// NewGenerator returns a generator positioned at "a".
func NewGenerator() *Generator {
	return &Generator{digits: []byte{'a'}}
}

// Next returns the next spelling in the sequence, skipping reserved words.
func (g *Generator) Next() string {
	for {
		name := g.advance()
		if !IsReserved(name) {
			return name
		}
	}
}

func (g *Generator) advance() string {
	out := make([]byte, len(g.digits))
	for i, d := range g.digits {
		out[len(out)-1-i] = d
	}

	g.digits[0]++
	for i := 0; g.digits[i] > 'z'; {
		g.digits[i] = 'a'
		if i == len(g.digits)-1 {
			g.digits = append(g.digits, 'a')
			break
		}
		i++
		g.digits[i]++
	}
	return string(out)
}

// State returns a copy of the digit buffer for persistence.
func (g *Generator) State() []byte {
	return append([]byte(nil), g.digits...)
}

func (g *Generator) restore(digits []byte) {
	if len(digits) == 0 {
		digits = []byte{'a'}
	}
	g.digits = append([]byte(nil), digits...)
}

// registryState holds the data that needs to be persisted.
// Use exported fields for gob encoding.
type registryState struct {
	Version    string
	Aliases    map[string]string // original -> alias
	Counter    []byte
	Mode       string
	CurrentLen int
}

// Registry maps original names to aliases. One registry serves a whole run so
// a name keeps its alias across every file processed.
type Registry struct {
	cfg           *config.Config
	mode          string
	targetLength  int
	currentLength int
	ignoreMap     map[string]bool
	ignorePrefix  []string

	gen       *Generator
	aliases   map[string]string // original -> alias
	originals map[string]string // alias -> original
	taken     map[string]bool   // spellings that occur in the input and may not become aliases

	mu sync.RWMutex
}

// NewRegistry creates an empty registry configured from cfg. A nil cfg uses defaults.
func NewRegistry(cfg *config.Config) *Registry {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	r := &Registry{
		cfg:       cfg,
		mode:      strings.ToLower(cfg.Obfuscation.Names.Mode),
		gen:       NewGenerator(),
		aliases:   make(map[string]string),
		originals: make(map[string]string),
		taken:     make(map[string]bool),
		ignoreMap: make(map[string]bool),
	}
	if r.mode != config.NamesModeRandom {
		r.mode = config.NamesModeSequential
	}
	r.targetLength = cfg.Obfuscation.Names.Length
	if r.targetLength < minScrambleLen {
		r.targetLength = minScrambleLen
	}
	if r.targetLength > maxIdentifierLen {
		r.targetLength = maxIdentifierLen
	}
	r.currentLength = r.targetLength

	for _, name := range cfg.Ignore.Names {
		r.ignoreMap[name] = true
	}
	r.ignorePrefix = append(r.ignorePrefix, cfg.Ignore.Prefixes...)
	return r
}

// ShouldIgnore reports whether name must keep its spelling: reserved words,
// the receiver names, and anything listed in the ignore configuration.
func (r *Registry) ShouldIgnore(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.shouldIgnoreNoLock(name)
}

func (r *Registry) shouldIgnoreNoLock(name string) bool {
	if IsReserved(name) || r.ignoreMap[name] {
		return true
	}
	for _, prefix := range r.ignorePrefix {
		if prefix != "" && strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// Keep adds names to the ignore set for the rest of the run. It returns the
// names that already carry an alias; files processed earlier keep using it.
func (r *Registry) Keep(names ...string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var conflicts []string
	for _, name := range names {
		if r.ignoreMap[name] {
			continue
		}
		r.ignoreMap[name] = true
		if _, ok := r.aliases[name]; ok {
			conflicts = append(conflicts, name)
		}
	}
	sort.Strings(conflicts)
	return conflicts
}

// Reserve marks spellings found in the input so they are never handed out as
// aliases. It returns the spellings that an earlier run already used as an
// alias for a different name; those cannot be fixed without breaking
// stability and are reported to the caller.
func (r *Registry) Reserve(names ...string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var conflicts []string
	for _, name := range names {
		if r.taken[name] {
			continue
		}
		r.taken[name] = true
		if orig, ok := r.originals[name]; ok && orig != name {
			conflicts = append(conflicts, name)
		}
	}
	sort.Strings(conflicts)
	return conflicts
}

// Alias returns the alias for name, assigning a fresh one on first use.
// Ignored names come back unchanged.
func (r *Registry) Alias(name string) string {
	r.mu.RLock()
	ignored := r.shouldIgnoreNoLock(name)
	alias, ok := r.aliases[name]
	r.mu.RUnlock()
	if ignored {
		return name
	}
	if ok {
		return alias
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.aliasNoLock(name)
}

// aliasNoLock is the internal implementation without mutex locking.
func (r *Registry) aliasNoLock(name string) string {
	if alias, ok := r.aliases[name]; ok {
		return alias
	}

	var alias string
	if r.mode == config.NamesModeRandom {
		alias = r.randomAlias()
	}
	if alias == "" {
		alias = r.sequentialAlias()
	}
	r.aliases[name] = alias
	r.originals[alias] = name
	return alias
}

func (r *Registry) usable(candidate string) bool {
	if IsReserved(candidate) || r.ignoreMap[candidate] || r.taken[candidate] {
		return false
	}
	_, used := r.originals[candidate]
	return !used
}

func (r *Registry) sequentialAlias() string {
	for {
		candidate := r.gen.Next()
		if r.usable(candidate) {
			return candidate
		}
	}
}

// randomAlias draws identifiers of the configured length, growing the length
// when collisions persist. It returns "" if no free spelling turned up.
func (r *Registry) randomAlias() string {
	for attempt := 0; attempt < maxRegenAttempts; attempt++ {
		candidate := generateScrambledName(r.currentLength)
		if r.usable(candidate) {
			return candidate
		}
		if attempt > 5 && r.currentLength < maxIdentifierLen {
			r.currentLength++
		}
	}
	fmt.Fprintf(os.Stderr, "Warning: no free random alias after %d attempts, falling back to sequential names.\n", maxRegenAttempts)
	return ""
}

// Lookup returns the alias already assigned to name, if any.
func (r *Registry) Lookup(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	alias, ok := r.aliases[name]
	return alias, ok
}

// Unscramble looks up the original name given an alias.
func (r *Registry) Unscramble(alias string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	original, ok := r.originals[alias]
	return original, ok
}

// Len returns the number of assigned aliases.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.aliases)
}

// Mappings returns a copy of the original -> alias table.
func (r *Registry) Mappings() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.aliases))
	for k, v := range r.aliases {
		out[k] = v
	}
	return out
}

// --- Context Persistence ---

// SaveState saves the registry's mapping and generator position to a file.
func (r *Registry) SaveState(filePath string) error {
	r.mu.RLock()
	state := registryState{
		Version:    contextVersion,
		Aliases:    r.aliases,
		Counter:    r.gen.State(),
		Mode:       r.mode,
		CurrentLen: r.currentLength,
	}
	var buffer bytes.Buffer
	err := gob.NewEncoder(&buffer).Encode(state)
	r.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to encode registry state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create context directory for %s: %w", filePath, err)
	}
	if err := os.WriteFile(filePath, buffer.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write registry state to file %s: %w", filePath, err)
	}
	return nil
}

// LoadState loads the registry's state from a file, replacing the current
// mapping. A missing file is not an error.
func (r *Registry) LoadState(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read registry state file %s: %w", filePath, err)
	}

	var state registryState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&state); err != nil {
		return fmt.Errorf("failed to decode registry state from file %s: %w", filePath, err)
	}
	if state.Version != contextVersion {
		return fmt.Errorf("incompatible context version: file has '%s', expected '%s'", state.Version, contextVersion)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.aliases = state.Aliases
	if r.aliases == nil {
		r.aliases = make(map[string]string)
	}
	r.originals = make(map[string]string, len(r.aliases))
	for orig, alias := range r.aliases {
		r.originals[alias] = orig
	}
	r.gen.restore(state.Counter)
	if state.CurrentLen >= minScrambleLen {
		r.currentLength = state.CurrentLen
	}
	return nil
}

// --- Utility Functions ---

// generateScrambledName draws a random identifier of the given length.
func generateScrambledName(length int) string {
	if length < minScrambleLen {
		length = minScrambleLen
	}
	if length > maxIdentifierLen {
		length = maxIdentifierLen
	}
	var sb strings.Builder
	sb.Grow(length)
	sb.WriteByte(firstCharsIdentifier[randInt(len(firstCharsIdentifier))])
	for i := 1; i < length; i++ {
		sb.WriteByte(allCharsIdentifier[randInt(len(allCharsIdentifier))])
	}
	return sb.String()
}

func randInt(max int) int {
	if max <= 0 {
		return 0
	}
	nBig, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return int(nBig.Int64())
}
