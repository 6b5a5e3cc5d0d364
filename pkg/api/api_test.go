package api

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/whit3rabbit/pymixer/internal/config"
)

func init() {
	config.Testing = true
}

const sampleCode = `# greeting helpers
def greet(name):
    message = "Hello, " + name
    return message


print(greet("World"))
`

func TestNewObfuscator(t *testing.T) {
	// Test with default empty options - this should use default config
	obf, err := NewObfuscator(Options{Silent: true})
	if err != nil {
		t.Fatalf("Expected default config to be used, got error: %v", err)
	}
	if obf.Config == nil || obf.Context == nil {
		t.Fatalf("Expected non-nil Config and Context")
	}

	configContent := `
silent: true
obfuscation:
  names:
    mode: random
    length: 8
  strings:
    enabled: false
`
	configPath := filepath.Join(t.TempDir(), "test-config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	obf, err = NewObfuscator(Options{ConfigPath: configPath})
	if err != nil {
		t.Fatalf("NewObfuscator with valid config failed: %v", err)
	}
	if obf.Config.Obfuscation.Names.Mode != config.NamesModeRandom {
		t.Errorf("Expected names mode %q, got %q", config.NamesModeRandom, obf.Config.Obfuscation.Names.Mode)
	}
	if obf.Config.Obfuscation.Strings.Enabled {
		t.Errorf("Expected string encoding to be disabled by the config file")
	}

	if _, err := NewObfuscator(Options{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")}); err == nil {
		t.Errorf("Expected an error for a missing config file")
	}
}

func TestNewObfuscatorConfigOverrides(t *testing.T) {
	obf, err := NewObfuscator(Options{
		Silent: true,
		ConfigOverrides: map[string]interface{}{
			"obfuscation.exports.enabled": false,
			"ignore.names":                []string{"greet"},
		},
	})
	if err != nil {
		t.Fatalf("NewObfuscator failed: %v", err)
	}
	if obf.Config.Obfuscation.Exports.Enabled {
		t.Errorf("Expected exports to be disabled by override")
	}

	result, err := obf.ObfuscateCode(sampleCode)
	if err != nil {
		t.Fatalf("ObfuscateCode failed: %v", err)
	}
	if !strings.Contains(result, "def greet(name):") {
		t.Errorf("Expected ignored function name to be kept, got:\n%s", result)
	}

	if _, err := NewObfuscator(Options{ConfigOverrides: map[string]interface{}{"obfuscation.names.mode": "bogus"}}); err == nil {
		t.Errorf("Expected an error for an invalid names mode")
	}
}

func TestObfuscateCode(t *testing.T) {
	obf, err := NewObfuscator(Options{Silent: true})
	if err != nil {
		t.Fatalf("NewObfuscator failed: %v", err)
	}

	result, err := obf.ObfuscateCode(sampleCode)
	if err != nil {
		t.Fatalf("ObfuscateCode failed: %v", err)
	}
	if result == "" {
		t.Fatalf("ObfuscateCode returned empty string")
	}

	// Comments are dropped and literals are encoded
	if strings.Contains(result, "greeting helpers") {
		t.Errorf("Expected comments to be stripped, but found comment text")
	}
	if strings.Contains(result, "Hello") {
		t.Errorf("Expected string literal to be encoded, got:\n%s", result)
	}
	if !strings.Contains(result, "\ngreet = ") {
		t.Errorf("Expected public function to be re-bound under its name, got:\n%s", result)
	}

	if _, err := obf.ObfuscateCode("def broken(:\n"); err == nil {
		t.Errorf("Expected a parse error")
	}
}

func TestObfuscateFileToFile(t *testing.T) {
	obf, err := NewObfuscator(Options{Silent: true})
	if err != nil {
		t.Fatalf("NewObfuscator failed: %v", err)
	}

	tmpDir := t.TempDir()
	inputPath := filepath.Join(tmpDir, "input.py")
	if err := os.WriteFile(inputPath, []byte(sampleCode), 0644); err != nil {
		t.Fatalf("Failed to write test Python file: %v", err)
	}

	outputPath := filepath.Join(tmpDir, "out", "output.py")
	if err := obf.ObfuscateFileToFile(inputPath, outputPath); err != nil {
		t.Fatalf("ObfuscateFileToFile failed: %v", err)
	}

	obfuscatedCode, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("Failed to read output file: %v", err)
	}
	direct, err := obf.ObfuscateFile(inputPath)
	if err != nil {
		t.Fatalf("ObfuscateFile failed: %v", err)
	}
	// Same registry, same aliases.
	if string(obfuscatedCode) != direct {
		t.Errorf("Expected identical output from ObfuscateFile and ObfuscateFileToFile")
	}
}

// Helper function to create a test directory structure with Python files
func createTestDirStructure(t *testing.T, baseDir string) {
	files := map[string]string{
		"root.py":         "from subdir1.a import shout\nprint(shout('root'))\n",
		"subdir1/a.py":    "def shout(text):\n    # loud\n    return text.upper()\n",
		"subdir2/b.py":    "VALUE = 'b'\n",
		"subdir2/c.txt":   "This is a non-Python file that should be copied.",
		"skip_me.skip.py": "SKIPPED = True\n",
	}
	for rel, content := range files {
		path := filepath.Join(baseDir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create test directory for %s: %v", path, err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write test file %s: %v", path, err)
		}
	}
}

func TestObfuscateDirectory(t *testing.T) {
	obf, err := NewObfuscator(Options{
		Silent:          true,
		ConfigOverrides: map[string]interface{}{"skip": []string{"*.skip.py"}},
	})
	if err != nil {
		t.Fatalf("NewObfuscator failed: %v", err)
	}

	tmpDir := t.TempDir()
	inputDir := filepath.Join(tmpDir, "input")
	createTestDirStructure(t, inputDir)

	outputDir := filepath.Join(tmpDir, "output")
	if err := obf.ObfuscateDirectory(inputDir, outputDir); err != nil {
		t.Fatalf("ObfuscateDirectory failed: %v", err)
	}

	for _, rel := range []string{"root.py", "subdir1/a.py", "subdir2/b.py"} {
		content, err := os.ReadFile(filepath.Join(outputDir, rel))
		if err != nil {
			t.Errorf("Expected output file %s: %v", rel, err)
			continue
		}
		if strings.Contains(string(content), "#") {
			t.Errorf("Expected comments to be stripped in %s", rel)
		}
	}

	// The import in root.py still names shout, which a.py re-binds.
	alias, err := obf.LookupObfuscatedName("shout")
	if err != nil {
		t.Fatalf("LookupObfuscatedName failed: %v", err)
	}
	a, _ := os.ReadFile(filepath.Join(outputDir, "subdir1", "a.py"))
	if !strings.Contains(string(a), "shout = "+alias) {
		t.Errorf("Expected a.py to export shout, got:\n%s", a)
	}

	if _, err := os.Stat(filepath.Join(outputDir, "subdir2", "c.txt")); err != nil {
		t.Errorf("Expected non-Python file to be copied: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outputDir, "skip_me.skip.py")); !os.IsNotExist(err) {
		t.Errorf("Expected skipped file to be left out of the output")
	}
	if _, err := os.Stat(filepath.Join(outputDir, ".pymixer", "registry.gob")); err != nil {
		t.Errorf("Expected context to be saved in the output directory: %v", err)
	}
}

func TestContextRoundTrip(t *testing.T) {
	obf, err := NewObfuscator(Options{Silent: true})
	if err != nil {
		t.Fatalf("NewObfuscator failed: %v", err)
	}
	if _, err := obf.ObfuscateCode(sampleCode); err != nil {
		t.Fatalf("ObfuscateCode failed: %v", err)
	}
	alias, err := obf.LookupObfuscatedName("greet")
	if err != nil {
		t.Fatalf("LookupObfuscatedName failed: %v", err)
	}

	dir := t.TempDir()
	if err := obf.SaveContext(dir); err != nil {
		t.Fatalf("SaveContext failed: %v", err)
	}

	fresh, err := NewObfuscator(Options{Silent: true})
	if err != nil {
		t.Fatalf("NewObfuscator failed: %v", err)
	}
	if err := fresh.LoadContext(dir); err != nil {
		t.Fatalf("LoadContext failed: %v", err)
	}
	original, err := fresh.LookupOriginalName(alias)
	if err != nil {
		t.Fatalf("LookupOriginalName failed: %v", err)
	}
	if original != "greet" {
		t.Errorf("Expected greet, got %s", original)
	}
	if _, err := fresh.LookupObfuscatedName("never_seen"); err == nil {
		t.Errorf("Expected an error for an unknown name")
	}
}
