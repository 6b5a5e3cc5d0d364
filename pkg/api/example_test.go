package api_test

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/whit3rabbit/pymixer/internal/config"
	"github.com/whit3rabbit/pymixer/pkg/api"
)

// Example shows basic usage of the Python obfuscator library.
func Example() {
	// Suppress default informational messages for example
	config.Testing = true
	defer func() { config.Testing = false }()

	obf, err := api.NewObfuscator(api.Options{Silent: true})
	if err != nil {
		log.Fatalf("Failed to create obfuscator: %v", err)
	}

	result, err := obf.ObfuscateCode("def greet(name):\n    return 'hi ' + name\n")
	if err != nil {
		log.Fatalf("Failed to obfuscate code: %v", err)
	}
	fmt.Print(result)

	// Output:
	// def a(name):
	//     return bytes([104, 105, 32]).decode('utf-8') + name
	// greet = a
}

// ExampleObfuscator_ObfuscateDirectory demonstrates how to obfuscate an entire directory of Python files.
func ExampleObfuscator_ObfuscateDirectory() {
	config.Testing = true
	defer func() { config.Testing = false }()

	src, err := os.MkdirTemp("", "pymixer-example-*")
	if err != nil {
		log.Fatalf("Failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(src)
	if err := os.WriteFile(filepath.Join(src, "app.py"), []byte("LIMIT = 3\n"), 0644); err != nil {
		log.Fatalf("Failed to write source: %v", err)
	}
	dst := filepath.Join(src, "dist")

	obf, err := api.NewObfuscator(api.Options{Silent: true})
	if err != nil {
		log.Fatalf("Failed to create obfuscator: %v", err)
	}
	if err := obf.ObfuscateDirectory(src, dst); err != nil {
		log.Fatalf("Failed to obfuscate directory: %v", err)
	}

	out, _ := os.ReadFile(filepath.Join(dst, "app.py"))
	fmt.Print(string(out))
	// Output:
	// a = 3
	// LIMIT = a
}

// ExampleObfuscator_LookupObfuscatedName demonstrates how to look up an obfuscated name.
func ExampleObfuscator_LookupObfuscatedName() {
	config.Testing = true
	defer func() { config.Testing = false }()

	obf, err := api.NewObfuscator(api.Options{Silent: true})
	if err != nil {
		log.Fatalf("Failed to create obfuscator: %v", err)
	}
	if _, err := obf.ObfuscateCode("class Account:\n    pass\n"); err != nil {
		log.Fatalf("Failed to obfuscate code: %v", err)
	}

	alias, _ := obf.LookupObfuscatedName("Account")
	original, _ := obf.LookupOriginalName(alias)
	fmt.Printf("%s -> %s -> %s\n", original, alias, original)
	// Output: Account -> a -> Account
}

// ExampleNewObfuscator_withConfigOverrides demonstrates creating an obfuscator with custom options.
func ExampleNewObfuscator_withConfigOverrides() {
	config.Testing = true
	defer func() { config.Testing = false }()

	obf, err := api.NewObfuscator(api.Options{
		Silent: true,
		ConfigOverrides: map[string]interface{}{
			"obfuscation.strings.enabled": false,
			"obfuscation.exports.enabled": false,
		},
	})
	if err != nil {
		log.Fatalf("Failed to create obfuscator: %v", err)
	}

	result, err := obf.ObfuscateCode("GREETING = 'hello'\n")
	if err != nil {
		log.Fatalf("Failed to obfuscate code: %v", err)
	}
	fmt.Print(result)
	// Output: a = 'hello'
}

// Example_createCustomConfig demonstrates how to create a configuration file programmatically.
func Example_createCustomConfig() {
	config.Testing = true
	defer func() { config.Testing = false }()

	configContent := `# pymixer configuration
silent: true
obfuscation:
  names:
    mode: random
    length: 8
  slots:
    strip: false
ignore:
  names: [main]
`
	tempDir, err := os.MkdirTemp("", "obfuscator-example-*")
	if err != nil {
		log.Fatalf("Failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(tempDir) // Clean up

	configPath := filepath.Join(tempDir, "pymixer.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		log.Fatalf("Failed to write config file: %v", err)
	}

	obf, err := api.NewObfuscator(api.Options{ConfigPath: configPath})
	if err != nil {
		log.Fatalf("Failed to create obfuscator: %v", err)
	}

	fmt.Println("Created obfuscator with names mode:", obf.Config.Obfuscation.Names.Mode)
	// Output: Created obfuscator with names mode: random
}

// Example_printInfo demonstrates how to use the PrintInfo function
// which respects the config.Testing flag to control output.
func Example_printInfo() {
	config.Testing = false

	api.PrintInfo("Starting obfuscation process...\n")

	// Silent controls the obfuscator's own output; Testing silences
	// PrintInfo as well.
	config.Testing = true
	_, _ = api.NewObfuscator(api.Options{Silent: true})
	api.PrintInfo("This line is suppressed\n")
	config.Testing = false

	api.PrintInfo("Obfuscator created\n")

	// Output:
	// Starting obfuscation process...
	// Obfuscator created
}
