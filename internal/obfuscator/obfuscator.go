// Package obfuscator orchestrates the overall process and holds shared context.
package obfuscator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/whit3rabbit/pymixer/internal/config"
	"github.com/whit3rabbit/pymixer/internal/parser"
	"github.com/whit3rabbit/pymixer/internal/printer"
	"github.com/whit3rabbit/pymixer/internal/pyast"
	"github.com/whit3rabbit/pymixer/internal/scrambler"
)

const (
	// ContextDirName is the directory holding persisted state, relative to the run's base directory.
	ContextDirName  = ".pymixer"
	contextFileName = "registry.gob"
)

// ObfuscationContext holds the state shared by every file of a run: the
// configuration, the name registry and the member names declared anywhere in
// the run.
type ObfuscationContext struct {
	Config   *config.Config
	Registry *scrambler.Registry
	Silent   bool // Inherited from config for convenience

	mu      sync.RWMutex
	members map[string]bool
}

// NewObfuscationContext creates a new context with an empty registry. A nil
// cfg uses defaults.
func NewObfuscationContext(cfg *config.Config) (*ObfuscationContext, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Normalize(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &ObfuscationContext{
		Config:   cfg,
		Registry: scrambler.NewRegistry(cfg),
		Silent:   cfg.Silent,
		members:  make(map[string]bool),
	}, nil
}

// ContextFilePath returns the expected path of the registry file under baseDir.
func (octx *ObfuscationContext) ContextFilePath(baseDir string) string {
	return filepath.Join(baseDir, ContextDirName, contextFileName)
}

// Load restores the registry persisted under baseDir. A missing file leaves
// the registry empty.
func (octx *ObfuscationContext) Load(baseDir string) error {
	filePath := octx.ContextFilePath(baseDir)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		if !octx.Silent {
			fmt.Println("Info: No existing context found or loaded.")
		}
		return nil
	}
	if err := octx.Registry.LoadState(filePath); err != nil {
		return fmt.Errorf("failed to load context from %s: %w", filePath, err)
	}
	if !octx.Silent {
		fmt.Printf("Info: Loaded context with %d names from %s\n", octx.Registry.Len(), filePath)
	}
	return nil
}

// Save persists the registry under baseDir.
func (octx *ObfuscationContext) Save(baseDir string) error {
	filePath := octx.ContextFilePath(baseDir)
	if err := octx.Registry.SaveState(filePath); err != nil {
		return fmt.Errorf("failed to save context to %s: %w", filePath, err)
	}
	if !octx.Silent {
		fmt.Printf("Info: Saved context with %d names to %s\n", octx.Registry.Len(), filePath)
	}
	return nil
}

// GetConfig returns the configuration from the context.
func (octx *ObfuscationContext) GetConfig() *config.Config {
	return octx.Config
}

// Prepare registers what a pre-scan found before any file of the scan is
// rewritten: input spellings are withheld from alias generation, declared
// members become visible to every file and annotated class fields keep
// their names.
func (octx *ObfuscationContext) Prepare(scan *Scan) {
	if conflicts := octx.Registry.Reserve(scan.Sorted()...); len(conflicts) > 0 {
		fmt.Fprintf(os.Stderr, "Warning: identifiers %s already serve as aliases in the loaded context; output may be ambiguous.\n",
			strings.Join(conflicts, ", "))
	}
	if conflicts := octx.Registry.Keep(scan.SortedFields()...); len(conflicts) > 0 {
		fmt.Fprintf(os.Stderr, "Warning: class fields %s were renamed by an earlier run and now keep their names.\n",
			strings.Join(conflicts, ", "))
	}

	octx.mu.Lock()
	for name := range scan.Members {
		octx.members[name] = true
	}
	octx.mu.Unlock()
}

func (octx *ObfuscationContext) isMember(name string) bool {
	octx.mu.RLock()
	defer octx.mu.RUnlock()
	return octx.members[name]
}

// Result is the outcome of obfuscating one module.
type Result struct {
	Source     string
	Exports    []Export
	Unresolved []string // self attributes never declared in the run, left unrenamed
}

// ObfuscateModule rewrites an already parsed and prepared module and renders
// it. The tree is modified in place.
func ObfuscateModule(mod *pyast.Module, filename string, octx *ObfuscationContext) (*Result, error) {
	w := newWalker(octx, filename)
	exports, unresolved := w.run(mod)

	for _, name := range unresolved {
		if isPrivate(name) && !octx.Silent {
			fmt.Fprintf(os.Stderr, "Warning: %s: attribute %q is never assigned on self; left unrenamed.\n", filename, name)
		}
	}

	src, err := printer.Render(mod)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", filename, err)
	}
	return &Result{Source: src, Exports: exports, Unresolved: unresolved}, nil
}

// ProcessSource parses, obfuscates and renders a single module on its own.
// A leading #! line survives; every other comment is dropped.
func ProcessSource(src, filename string, octx *ObfuscationContext) (*Result, error) {
	mod, err := parser.Parse(src, filename)
	if err != nil {
		return nil, fmt.Errorf("parsing failed for %s: %w", filename, err)
	}
	scan := NewScan()
	scan.Add(mod)
	octx.Prepare(scan)

	res, err := ObfuscateModule(mod, filename, octx)
	if err != nil {
		return nil, err
	}
	res.Source = withShebang(src, res.Source)
	return res, nil
}

// ProcessFile reads, obfuscates and returns the content of a single Python file.
func ProcessFile(filePath string, octx *ObfuscationContext) (string, error) {
	src, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("error reading file %s: %w", filePath, err)
	}
	res, err := ProcessSource(string(src), filePath, octx)
	if err != nil {
		return "", err
	}
	return res.Source, nil
}

// withShebang carries the interpreter line of original over to rendered.
func withShebang(original, rendered string) string {
	if !strings.HasPrefix(original, "#!") {
		return rendered
	}
	line, _, _ := strings.Cut(original, "\n")
	return strings.TrimRight(line, "\r") + "\n" + rendered
}
