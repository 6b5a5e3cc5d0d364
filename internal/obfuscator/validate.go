package obfuscator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/whit3rabbit/pymixer/internal/config"
)

const defaultValidateTimeout = 30 * time.Second

// ValidationError reports an obfuscated module that behaves differently
// from its original.
type ValidationError struct {
	Path             string
	OriginalExit     int
	ObfuscatedExit   int
	OriginalStdout   []byte
	ObfuscatedStdout []byte
}

func (e *ValidationError) Error() string {
	if e.OriginalExit != e.ObfuscatedExit {
		return fmt.Sprintf("validation failed for %s: exit original=%d obfuscated=%d", e.Path, e.OriginalExit, e.ObfuscatedExit)
	}
	return fmt.Sprintf("validation failed for %s: stdout differs (orig %d bytes, obf %d bytes)",
		e.Path, len(e.OriginalStdout), len(e.ObfuscatedStdout))
}

// Validate runs originalPath and obfuscatedPath with the configured
// interpreter and compares stdout and exit code. Stderr is not compared
// because tracebacks name files and lines.
func Validate(ctx context.Context, cfg config.ValidateConfig, originalPath, obfuscatedPath string) error {
	python, err := exec.LookPath(cfg.Python)
	if err != nil {
		return fmt.Errorf("python interpreter %q not found: %w", cfg.Python, err)
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultValidateTimeout
	}

	origOut, origCode, err := runScript(ctx, python, originalPath, timeout)
	if err != nil {
		return fmt.Errorf("original script: %w", err)
	}
	obfOut, obfCode, err := runScript(ctx, python, obfuscatedPath, timeout)
	if err != nil {
		return fmt.Errorf("obfuscated script: %w", err)
	}

	if origCode != obfCode || !bytes.Equal(origOut, obfOut) {
		return &ValidationError{
			Path:             originalPath,
			OriginalExit:     origCode,
			ObfuscatedExit:   obfCode,
			OriginalStdout:   origOut,
			ObfuscatedStdout: obfOut,
		}
	}
	return nil
}

// ValidateSource checks source against the original file by writing it next
// to the original, so imports of sibling modules resolve the same way.
func ValidateSource(ctx context.Context, cfg config.ValidateConfig, originalPath, source string) error {
	tmp, err := os.CreateTemp(filepath.Dir(originalPath), ".pymixer-validate-*.py")
	if err != nil {
		return fmt.Errorf("failed to create validation file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(source); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write validation file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write validation file: %w", err)
	}
	return Validate(ctx, cfg, originalPath, tmp.Name())
}

func runScript(ctx context.Context, python, scriptPath string, timeout time.Duration) (stdout []byte, exitCode int, err error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	absPath, err := filepath.Abs(scriptPath)
	if err != nil {
		absPath = scriptPath
	}
	cmd := exec.CommandContext(ctx, python, absPath)
	cmd.Dir = filepath.Dir(absPath)
	cmd.Env = append(os.Environ(), "PYTHONDONTWRITEBYTECODE=1", "PYTHONHASHSEED=0", "PYTHONIOENCODING=utf-8")
	var outBuf bytes.Buffer
	cmd.Stdout = &outBuf

	runErr := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, -1, fmt.Errorf("timed out after %s", timeout)
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return outBuf.Bytes(), exitErr.ExitCode(), nil
		}
		return nil, -1, runErr
	}
	return outBuf.Bytes(), 0, nil
}
