// Package api provides the public API for using the Python obfuscator as a library.
//
// This package allows users to obfuscate Python code programmatically using
// the same techniques available in the command-line interface. The API
// provides methods for obfuscating Python code strings, files, and
// directories. One Obfuscator keeps one name registry, so everything it
// processes shares the same aliases.
//
// Basic usage example:
//
//	obf, err := api.NewObfuscator(api.Options{ConfigPath: "pymixer.yaml"})
//	if err != nil {
//	    log.Fatalf("Failed to create obfuscator: %v", err)
//	}
//
//	result, err := obf.ObfuscateCode("print('Hello World')\n")
//	if err != nil {
//	    log.Fatalf("Failed to obfuscate code: %v", err)
//	}
//
//	fmt.Println(result) // Prints obfuscated Python code
package api

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/whit3rabbit/pymixer/internal/config"
	"github.com/whit3rabbit/pymixer/internal/obfuscator"
)

// DirOptions and DirReport describe a directory run.
type (
	DirOptions = obfuscator.DirOptions
	DirReport  = obfuscator.DirReport
)

// PrintInfo prints formatted information to stdout, respecting the Testing flag.
// If Testing mode is active, no output will be generated.
// This function forwards to the internal config.PrintInfo function.
func PrintInfo(format string, args ...interface{}) {
	config.PrintInfo(format, args...)
}

// Obfuscator represents the main obfuscation engine that can be used to obfuscate Python code.
// It encapsulates the configuration and context needed for obfuscation operations.
type Obfuscator struct {
	// Context holds the obfuscation context including the name registry
	Context *obfuscator.ObfuscationContext
	// Config holds the configuration settings for obfuscation
	Config *config.Config
}

// Options represents configuration options for creating a new Obfuscator instance.
type Options struct {
	// ConfigPath is the path to a YAML configuration file
	// If empty, pymixer.yaml in the working directory or the defaults are used
	ConfigPath string

	// Silent suppresses informational messages during obfuscation
	Silent bool

	// ConfigOverrides sets configuration keys by their dotted YAML path,
	// e.g. "obfuscation.strings.enabled": false. They win over the file
	// and the environment.
	ConfigOverrides map[string]interface{}
}

// NewObfuscator creates a new Obfuscator instance using the provided options.
//
// Returns an error if the configuration cannot be loaded or the context cannot be created.
func NewObfuscator(options Options) (*Obfuscator, error) {
	v := config.NewViper()
	for key, value := range options.ConfigOverrides {
		v.Set(key, value)
	}
	cfg, err := config.LoadConfigWith(v, options.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if options.Silent {
		cfg.Silent = true
	}

	ctx, err := obfuscator.NewObfuscationContext(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create obfuscation context: %w", err)
	}

	return &Obfuscator{
		Context: ctx,
		Config:  cfg,
	}, nil
}

// ObfuscateCode obfuscates a string of Python code and returns the obfuscated code.
func (o *Obfuscator) ObfuscateCode(code string) (string, error) {
	res, err := obfuscator.ProcessSource(code, "<string>", o.Context)
	if err != nil {
		return "", fmt.Errorf("failed to obfuscate code: %w", err)
	}
	return res.Source, nil
}

// ObfuscateFile obfuscates a Python file and returns the obfuscated code.
func (o *Obfuscator) ObfuscateFile(filePath string) (string, error) {
	result, err := obfuscator.ProcessFile(filePath, o.Context)
	if err != nil {
		return "", fmt.Errorf("failed to obfuscate file %s: %w", filePath, err)
	}
	return result, nil
}

// ObfuscateFileToFile obfuscates a Python file and writes the result to another file.
//
// Parameters:
//   - inputPath: The path to the Python file to obfuscate
//   - outputPath: The path where the obfuscated code will be written
//
// Returns an error if obfuscation or file operations fail.
func (o *Obfuscator) ObfuscateFileToFile(inputPath, outputPath string) error {
	result, err := obfuscator.ProcessFile(inputPath, o.Context)
	if err != nil {
		return fmt.Errorf("failed to obfuscate file %s: %w", inputPath, err)
	}

	outputDir := filepath.Dir(outputPath)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}
	if err := os.WriteFile(outputPath, []byte(result), 0644); err != nil {
		return fmt.Errorf("failed to write to output file %s: %w", outputPath, err)
	}
	return nil
}

// ObfuscateDirectory obfuscates all Python files under inputDir, recursively,
// and writes the results to outputDir. An empty outputDir rewrites the files
// in place.
//
// The function will:
// 1. Load any existing context from the output directory
// 2. Parse every Python file before rewriting any of them
// 3. Write obfuscated files and copy other files, preserving the structure
// 4. Skip paths that match the configuration's skip list
// 5. Save the obfuscation context to the output directory
//
// Returns an error if directory operations or obfuscation fail.
func (o *Obfuscator) ObfuscateDirectory(inputDir, outputDir string) error {
	_, err := o.ObfuscateDirectoryWith(context.Background(), DirOptions{
		InputDir:  inputDir,
		OutputDir: outputDir,
		Recursive: true,
	})
	return err
}

// ObfuscateDirectoryWith is ObfuscateDirectory with full control over the
// run. The report is returned even when some files failed.
func (o *Obfuscator) ObfuscateDirectoryWith(ctx context.Context, opts DirOptions) (*DirReport, error) {
	if err := o.Context.Load(opts.StateDir()); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to load existing context: %v\n", err)
		fmt.Fprintf(os.Stderr, "Starting with fresh context.\n")
	}

	report, err := obfuscator.ProcessDirectory(ctx, opts, o.Context)
	if report != nil && len(report.Processed) > 0 {
		if saveErr := o.Context.Save(opts.StateDir()); saveErr != nil && err == nil {
			err = fmt.Errorf("failed to save obfuscation context: %w", saveErr)
		}
	}
	return report, err
}

// LoadContext loads an existing obfuscation context from a directory.
//
// This is useful when you want to reuse the same name mappings across
// multiple runs.
func (o *Obfuscator) LoadContext(baseDir string) error {
	return o.Context.Load(baseDir)
}

// SaveContext saves the current obfuscation context to a directory.
func (o *Obfuscator) SaveContext(baseDir string) error {
	return o.Context.Save(baseDir)
}

// LookupObfuscatedName returns the alias assigned to an original name.
func (o *Obfuscator) LookupObfuscatedName(name string) (string, error) {
	alias, found := o.Context.Registry.Lookup(name)
	if !found {
		return "", fmt.Errorf("name not found in context: %s", name)
	}
	return alias, nil
}

// LookupOriginalName returns the original name behind an alias.
func (o *Obfuscator) LookupOriginalName(alias string) (string, error) {
	name, found := o.Context.Registry.Unscramble(alias)
	if !found {
		return "", fmt.Errorf("alias not found in context: %s", alias)
	}
	return name, nil
}
