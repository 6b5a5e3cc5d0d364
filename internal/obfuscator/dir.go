package obfuscator

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/whit3rabbit/pymixer/internal/parser"
	"github.com/whit3rabbit/pymixer/internal/pyast"
)

// DirOptions describes one directory run.
type DirOptions struct {
	InputDir string
	// OutputDir receives the obfuscated tree. Empty means rewrite in place.
	OutputDir string
	Recursive bool
	// Exclude lists files or directories to leave alone, absolute or relative to the working directory.
	Exclude []string
}

// StateDir is where the run's registry is persisted.
func (o DirOptions) StateDir() string {
	if o.OutputDir != "" {
		return o.OutputDir
	}
	return o.InputDir
}

// DirReport lists what a directory run did, by path relative to InputDir.
type DirReport struct {
	Processed []string
	Copied    []string
	Skipped   []string
	Backups   []string
	Errors    []error
}

// BackupPath returns the copy made before a file is overwritten in place:
// name.py becomes name.backup.py.
func BackupPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".backup" + ext
}

type sourceUnit struct {
	rel  string
	path string
	src  string
	mod  *pyast.Module
}

// ProcessDirectory obfuscates every Python file under opts.InputDir with one
// shared registry. All files are parsed and pre-scanned before the first one
// is rewritten, so names declared in one file are known when another file
// uses them. Per-file failures are collected in the report; with
// AbortOnError the first one stops the run.
func ProcessDirectory(ctx context.Context, opts DirOptions, octx *ObfuscationContext) (*DirReport, error) {
	cfg := octx.Config
	report := &DirReport{}
	fail := func(err error) error {
		report.Errors = append(report.Errors, err)
		if cfg.AbortOnError {
			return err
		}
		return nil
	}

	info, err := os.Stat(opts.InputDir)
	if err != nil {
		return report, fmt.Errorf("error checking source directory '%s': %w", opts.InputDir, err)
	}
	if !info.IsDir() {
		return report, fmt.Errorf("source path '%s' is not a directory", opts.InputDir)
	}

	sources, others, err := collect(opts, octx, report, fail)
	if err != nil {
		return report, err
	}

	// Parse and scan everything first.
	scan := NewScan()
	units := make([]*sourceUnit, 0, len(sources))
	for _, rel := range sources {
		path := filepath.Join(opts.InputDir, rel)
		data, err := os.ReadFile(path)
		if err != nil {
			if err := fail(fmt.Errorf("error reading file %s: %w", path, err)); err != nil {
				return report, err
			}
			continue
		}
		mod, err := parser.Parse(string(data), path)
		if err != nil {
			if err := fail(fmt.Errorf("parsing failed for %s: %w", path, err)); err != nil {
				return report, err
			}
			continue
		}
		scan.Add(mod)
		units = append(units, &sourceUnit{rel: rel, path: path, src: string(data), mod: mod})
	}
	octx.Prepare(scan)

	for _, u := range units {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := processUnit(ctx, u, opts, octx, report); err != nil {
			if err := fail(err); err != nil {
				return report, err
			}
		}
	}

	if opts.OutputDir != "" {
		for _, rel := range others {
			src := filepath.Join(opts.InputDir, rel)
			dst := filepath.Join(opts.OutputDir, rel)
			if !octx.Silent {
				fmt.Printf("Copying file: %s -> %s\n", src, dst)
			}
			if err := copyFile(src, dst); err != nil {
				if err := fail(fmt.Errorf("error copying file %s to %s: %w", src, dst, err)); err != nil {
					return report, err
				}
				continue
			}
			report.Copied = append(report.Copied, rel)
		}
	}

	// Output trees are validated once complete, so every sibling import
	// already resolves to its obfuscated module.
	if opts.OutputDir != "" && cfg.Validate.Enabled {
		for _, rel := range report.Processed {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			orig := filepath.Join(opts.InputDir, rel)
			if err := Validate(ctx, cfg.Validate, orig, filepath.Join(opts.OutputDir, rel)); err != nil {
				if err := fail(err); err != nil {
					return report, err
				}
				continue
			}
			if !octx.Silent {
				fmt.Printf("Validated: %s\n", orig)
			}
		}
	}

	if len(report.Errors) > 0 {
		return report, fmt.Errorf("directory processing finished with %d errors", len(report.Errors))
	}
	return report, nil
}

// collect walks the input tree and splits it into Python sources and other
// regular files. Paths are relative to opts.InputDir.
func collect(opts DirOptions, octx *ObfuscationContext, report *DirReport, fail func(error) error) (sources, others []string, err error) {
	cfg := octx.Config
	excluded := make(map[string]bool, len(opts.Exclude)+1)
	for _, p := range opts.Exclude {
		if abs, err := filepath.Abs(p); err == nil {
			excluded[abs] = true
		}
	}
	if opts.OutputDir != "" {
		if abs, err := filepath.Abs(opts.OutputDir); err == nil {
			excluded[abs] = true
		}
	}

	walkErr := filepath.WalkDir(opts.InputDir, func(entryPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return fail(fmt.Errorf("error accessing path %q: %w", entryPath, err))
		}
		relPath, err := filepath.Rel(opts.InputDir, entryPath)
		if err != nil {
			return fail(fmt.Errorf("error calculating relative path for %q: %w", entryPath, err))
		}
		if relPath == "." {
			return nil
		}

		skip := false
		if abs, err := filepath.Abs(entryPath); err == nil && excluded[abs] {
			skip = true
		}
		if !skip {
			isSkipped, err := cfg.IsSkipped(relPath)
			if err != nil {
				return fail(err)
			}
			skip = isSkipped
		}
		if skip {
			if !octx.Silent {
				fmt.Printf("Skipping: %s\n", entryPath)
			}
			report.Skipped = append(report.Skipped, relPath)
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if !opts.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			if !octx.Silent && cfg.DebugMode {
				fmt.Printf("Debug: Skipping non-regular file %q\n", entryPath)
			}
			return nil
		}
		if cfg.HasExtension(entryPath) {
			sources = append(sources, relPath)
		} else {
			others = append(others, relPath)
		}
		return nil
	})
	if walkErr != nil {
		return nil, nil, fmt.Errorf("error during directory walk of %s: %w", opts.InputDir, walkErr)
	}
	return sources, others, nil
}

// processUnit rewrites one parsed file and writes it to its destination.
func processUnit(ctx context.Context, u *sourceUnit, opts DirOptions, octx *ObfuscationContext, report *DirReport) error {
	cfg := octx.Config
	target := u.path
	if opts.OutputDir != "" {
		target = filepath.Join(opts.OutputDir, u.rel)
	}
	if !octx.Silent {
		fmt.Printf("Processing Python: %s -> %s\n", u.path, target)
	}

	res, err := ObfuscateModule(u.mod, u.path, octx)
	if err != nil {
		return fmt.Errorf("error processing file %s: %w", u.path, err)
	}
	out := withShebang(u.src, res.Source)

	if opts.OutputDir == "" {
		if cfg.Validate.Enabled {
			if err := ValidateSource(ctx, cfg.Validate, u.path, out); err != nil {
				return err
			}
		}
		if !cfg.Overwrite {
			backup := BackupPath(u.path)
			if err := copyFile(u.path, backup); err != nil {
				return fmt.Errorf("error writing backup %s: %w", backup, err)
			}
			report.Backups = append(report.Backups, backup)
		}
	}

	if err := writeFile(target, out, u.path); err != nil {
		return err
	}
	report.Processed = append(report.Processed, u.rel)
	return nil
}

// writeFile writes content to path with the permissions of like.
func writeFile(path, content, like string) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(like); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating directory for file %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		return fmt.Errorf("error writing output file %s: %w", path, err)
	}
	return nil
}

// copyFile copies a single file from src to dst, preserving permissions.
func copyFile(src, dst string) error {
	sourceFileStat, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat source file %s: %w", src, err)
	}
	if !sourceFileStat.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", src)
	}

	source, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", src, err)
	}
	defer source.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", dst, err)
	}
	destination, err := os.OpenFile(dst, os.O_RDWR|os.O_CREATE|os.O_TRUNC, sourceFileStat.Mode())
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", dst, err)
	}
	defer destination.Close()

	if _, err := io.Copy(destination, source); err != nil {
		return fmt.Errorf("failed to copy data from %s to %s: %w", src, dst, err)
	}
	return nil
}
