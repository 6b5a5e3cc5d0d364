package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whit3rabbit/pymixer/internal/config"
)

func init() {
	config.Testing = true
}

// resetFlags restores the package-level flag state between tests.
func resetFlags(t *testing.T) {
	t.Helper()
	cfg = config.DefaultConfig()
	cfg.Silent = true
	outputFile, inPlace, fileContext = "", false, ""
	outputDir, recursive, excludePaths = "", false, nil
	whatisTargetDir, whatisReverse = "", false
}

func TestApplyFlagOverrides(t *testing.T) {
	c := &cobra.Command{}
	c.Flags().AddFlagSet(rootCmd.PersistentFlags())
	require.NoError(t, c.Flags().Parse([]string{"--strings=false", "--names-mode", "random", "--ignore", "keepme"}))

	conf := config.DefaultConfig()
	applyFlagOverrides(conf, c)
	assert.False(t, conf.Obfuscation.Strings.Enabled)
	assert.Equal(t, config.NamesModeRandom, conf.Obfuscation.Names.Mode)
	assert.Contains(t, conf.Ignore.Names, "keepme")
	assert.True(t, conf.Obfuscation.Exports.Enabled, "untouched flags keep the config value")
}

func TestObfuscateFileToStdout(t *testing.T) {
	resetFlags(t)
	path := filepath.Join(t.TempDir(), "m.py")
	require.NoError(t, os.WriteFile(path, []byte("def greet(who):\n    return who\n"), 0644))

	var out bytes.Buffer
	require.NoError(t, obfuscateFile(context.Background(), path, &out))
	assert.Contains(t, out.String(), "def a(who):")
	assert.Contains(t, out.String(), "greet = a")
}

func TestObfuscateFileInPlace(t *testing.T) {
	resetFlags(t)
	inPlace = true
	path := filepath.Join(t.TempDir(), "m.py")
	require.NoError(t, os.WriteFile(path, []byte("value = 1\n"), 0644))

	require.NoError(t, obfuscateFile(context.Background(), path, &bytes.Buffer{}))
	backup, err := os.ReadFile(filepath.Join(filepath.Dir(path), "m.backup.py"))
	require.NoError(t, err)
	assert.Equal(t, "value = 1\n", string(backup))
	rewritten, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, "value = 1\n", string(rewritten))
}

func TestObfuscateDirAndWhatis(t *testing.T) {
	resetFlags(t)
	in := t.TempDir()
	out := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(in, "app.py"), []byte("def handler():\n    return 1\n"), 0644))
	outputDir = out

	var stdout, stderr bytes.Buffer
	require.NoError(t, obfuscateDir(context.Background(), in, &stdout, &stderr))
	assert.FileExists(t, filepath.Join(out, "app.py"))
	assert.FileExists(t, filepath.Join(out, ".pymixer", "registry.gob"))

	whatisTargetDir = out
	stdout.Reset()
	require.NoError(t, whatis("a", &stdout, &stderr))
	assert.Equal(t, "Found: 'handler'\n", stdout.String())

	whatisReverse = true
	stdout.Reset()
	require.NoError(t, whatis("handler", &stdout, &stderr))
	assert.Equal(t, "Found: 'a'\n", stdout.String())

	whatisReverse = false
	assert.EqualError(t, whatis("zz", &stdout, &stderr), "name not found")
}

func TestObfuscateDirReportsErrors(t *testing.T) {
	resetFlags(t)
	in := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(in, "bad.py"), []byte("def (:\n"), 0644))
	outputDir = t.TempDir()

	var stdout, stderr bytes.Buffer
	err := obfuscateDir(context.Background(), in, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, stderr.String(), "Errors Encountered (1)")
}
