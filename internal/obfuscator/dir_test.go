package obfuscator_test

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whit3rabbit/pymixer/internal/config"
	"github.com/whit3rabbit/pymixer/internal/obfuscator"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

const baseModule = `class Base:
    def __init__(self):
        self._secret = 41
`

const childModule = `from base import Base


class Child(Base):
    def peek(self):
        return self._secret + 1
`

func TestBackupPath(t *testing.T) {
	assert.Equal(t, filepath.Join("pkg", "mod.backup.py"), obfuscator.BackupPath(filepath.Join("pkg", "mod.py")))
	assert.Equal(t, "script.backup", obfuscator.BackupPath("script"))
}

func TestProcessDirectory_SharesPrivateMembersAcrossFiles(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	// a_child.py is walked before the file declaring _secret.
	writeTree(t, in, map[string]string{
		"a_child.py": childModule,
		"base.py":    baseModule,
		"README.md":  "docs\n",
	})

	octx := newTestContext(t, nil)
	report, err := obfuscator.ProcessDirectory(context.Background(), obfuscator.DirOptions{InputDir: in, OutputDir: out}, octx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a_child.py", "base.py"}, report.Processed)
	assert.Equal(t, []string{"README.md"}, report.Copied)
	assert.Empty(t, report.Backups)

	alias, ok := octx.Registry.Lookup("_secret")
	require.True(t, ok)
	assert.Contains(t, readFile(t, filepath.Join(out, "base.py")), "self."+alias+" = 41")
	assert.Contains(t, readFile(t, filepath.Join(out, "a_child.py")), "self."+alias+" + 1")
	assert.Equal(t, "docs\n", readFile(t, filepath.Join(out, "README.md")))

	// Inputs are untouched in output mode.
	assert.Equal(t, baseModule, readFile(t, filepath.Join(in, "base.py")))
}

func TestProcessDirectory_InPlaceWritesBackups(t *testing.T) {
	in := t.TempDir()
	writeTree(t, in, map[string]string{"mod.py": "VALUE = 1\n"})

	octx := newTestContext(t, nil)
	report, err := obfuscator.ProcessDirectory(context.Background(), obfuscator.DirOptions{InputDir: in}, octx)
	require.NoError(t, err)
	require.Len(t, report.Backups, 1)
	assert.Equal(t, "VALUE = 1\n", readFile(t, filepath.Join(in, "mod.backup.py")))
	assert.Regexp(t, regexp.MustCompile(`(?m)^VALUE = \w+$`), readFile(t, filepath.Join(in, "mod.py")))

	// A second pass skips the backup through the default skip patterns.
	report, err = obfuscator.ProcessDirectory(context.Background(), obfuscator.DirOptions{InputDir: in}, newTestContext(t, nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"mod.py"}, report.Processed)
	assert.Contains(t, report.Skipped, "mod.backup.py")
}

func TestProcessDirectory_OverwriteSkipsBackup(t *testing.T) {
	in := t.TempDir()
	writeTree(t, in, map[string]string{"mod.py": "VALUE = 1\n"})

	octx := newTestContext(t, func(cfg *config.Config) { cfg.Overwrite = true })
	report, err := obfuscator.ProcessDirectory(context.Background(), obfuscator.DirOptions{InputDir: in}, octx)
	require.NoError(t, err)
	assert.Empty(t, report.Backups)
	assert.NoFileExists(t, filepath.Join(in, "mod.backup.py"))
}

func TestProcessDirectory_RecursionAndExclusion(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writeTree(t, in, map[string]string{
		"top.py":             "x = 1\n",
		"pkg/inner.py":       "y = 2\n",
		"pkg/vendored/v.py":  "z = 3\n",
		"__pycache__/c.py":   "w = 4\n",
		"pkg/vendored/n.txt": "n\n",
	})

	report, err := obfuscator.ProcessDirectory(context.Background(), obfuscator.DirOptions{InputDir: in, OutputDir: out}, newTestContext(t, nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"top.py"}, report.Processed, "subdirectories are not entered without recursion")

	out2 := t.TempDir()
	opts := obfuscator.DirOptions{
		InputDir:  in,
		OutputDir: out2,
		Recursive: true,
		Exclude:   []string{filepath.Join(in, "pkg", "vendored")},
	}
	report, err = obfuscator.ProcessDirectory(context.Background(), opts, newTestContext(t, nil))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"top.py", filepath.Join("pkg", "inner.py")}, report.Processed)
	assert.Contains(t, report.Skipped, filepath.Join("pkg", "vendored"))
	assert.Contains(t, report.Skipped, "__pycache__")
	assert.NoFileExists(t, filepath.Join(out2, "pkg", "vendored", "v.py"))
}

func TestProcessDirectory_CollectsErrors(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writeTree(t, in, map[string]string{
		"bad.py":  "def (:\n",
		"good.py": "ok = 1\n",
	})

	report, err := obfuscator.ProcessDirectory(context.Background(), obfuscator.DirOptions{InputDir: in, OutputDir: out}, newTestContext(t, nil))
	require.Error(t, err)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0].Error(), "bad.py")
	assert.Equal(t, []string{"good.py"}, report.Processed)
	assert.NoFileExists(t, filepath.Join(out, "bad.py"))

	octx := newTestContext(t, func(cfg *config.Config) { cfg.AbortOnError = true })
	out2 := t.TempDir()
	report, err = obfuscator.ProcessDirectory(context.Background(), obfuscator.DirOptions{InputDir: in, OutputDir: out2}, octx)
	require.Error(t, err)
	assert.Empty(t, report.Processed)
}

func TestProcessDirectory_RejectsMissingInput(t *testing.T) {
	_, err := obfuscator.ProcessDirectory(context.Background(),
		obfuscator.DirOptions{InputDir: filepath.Join(t.TempDir(), "nope")}, newTestContext(t, nil))
	assert.Error(t, err)
}

func TestProcessDirectory_Validation(t *testing.T) {
	requirePython(t)
	in := t.TempDir()
	out := t.TempDir()
	writeTree(t, in, map[string]string{
		"base.py":    baseModule,
		"main.py":    "from a_child import Child\nprint(Child().peek())\n",
		"a_child.py": childModule,
	})

	octx := newTestContext(t, func(cfg *config.Config) { cfg.Validate.Enabled = true })
	report, err := obfuscator.ProcessDirectory(context.Background(),
		obfuscator.DirOptions{InputDir: in, OutputDir: out}, octx)
	require.NoError(t, err)
	assert.Len(t, report.Processed, 3)
}

func TestValidateDetectsDifferences(t *testing.T) {
	requirePython(t)
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"orig.py": "print(1)\n",
		"same.py": "print(0 + 1)\n",
		"diff.py": "print(2)\n",
		"fail.py": "raise SystemExit(3)\n",
	})
	cfg := config.DefaultConfig().Validate
	ctx := context.Background()

	assert.NoError(t, obfuscator.Validate(ctx, cfg, filepath.Join(dir, "orig.py"), filepath.Join(dir, "same.py")))

	err := obfuscator.Validate(ctx, cfg, filepath.Join(dir, "orig.py"), filepath.Join(dir, "diff.py"))
	var verr *obfuscator.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "1\n", string(verr.OriginalStdout))

	err = obfuscator.Validate(ctx, cfg, filepath.Join(dir, "orig.py"), filepath.Join(dir, "fail.py"))
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 3, verr.ObfuscatedExit)

	assert.NoError(t, obfuscator.ValidateSource(ctx, cfg, filepath.Join(dir, "orig.py"), "print(1)\n"))
}
