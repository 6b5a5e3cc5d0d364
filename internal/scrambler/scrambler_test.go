package scrambler

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whit3rabbit/pymixer/internal/config"
)

// Helper to create a default config for testing
func createTestConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Ignore.Names = []string{"keepMe"}
	cfg.Ignore.Prefixes = []string{"test_"}
	return cfg
}

func TestGeneratorSequence(t *testing.T) {
	g := NewGenerator()
	var got []string
	for i := 0; i < 30; i++ {
		got = append(got, g.advance())
	}
	assert.Equal(t, "a", got[0])
	assert.Equal(t, "z", got[25])
	assert.Equal(t, []string{"aa", "ab", "ac", "ad"}, got[26:30])

	// Skip ahead to the two-letter rollover: 26 + 26*26 names come before "aaa".
	g = NewGenerator()
	var last string
	for i := 0; i < 26+26*26; i++ {
		last = g.advance()
	}
	assert.Equal(t, "zz", last)
	assert.Equal(t, "aaa", g.advance())
}

func TestGeneratorSkipsReservedWords(t *testing.T) {
	g := NewGenerator()
	seen := make(map[string]bool)
	for i := 0; i < 26+26*26; i++ {
		name := g.Next()
		assert.False(t, IsReserved(name), "generated reserved word %q", name)
		assert.False(t, seen[name], "generated %q twice", name)
		seen[name] = true
	}
	// "as", "if", "in", "is", "or", "id" would all be drawn without the filter.
	for _, kw := range []string{"as", "if", "in", "is", "or", "id"} {
		assert.False(t, seen[kw], kw)
	}
}

func TestRegistryAliasIsStable(t *testing.T) {
	r := NewRegistry(createTestConfig())

	first := r.Alias("balance")
	assert.NotEqual(t, "balance", first)
	assert.Equal(t, first, r.Alias("balance"))

	other := r.Alias("deposit")
	assert.NotEqual(t, first, other)

	alias, ok := r.Lookup("balance")
	assert.True(t, ok)
	assert.Equal(t, first, alias)

	orig, ok := r.Unscramble(other)
	assert.True(t, ok)
	assert.Equal(t, "deposit", orig)

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, map[string]string{"balance": first, "deposit": other}, r.Mappings())
}

func TestRegistryIgnoredNames(t *testing.T) {
	r := NewRegistry(createTestConfig())

	for _, name := range []string{"self", "cls", "print", "len", "Exception", "keepMe", "test_thing", "match"} {
		assert.Equal(t, name, r.Alias(name), name)
		assert.True(t, r.ShouldIgnore(name), name)
	}
	assert.False(t, r.ShouldIgnore("keep"))
	assert.Equal(t, 0, r.Len())
}

func TestRegistryNeverReturnsReservedSpellings(t *testing.T) {
	r := NewRegistry(nil)
	conflicts := r.Reserve("a", "b", "x")
	assert.Empty(t, conflicts)

	assert.Equal(t, "c", r.Alias("first"))
	assert.Equal(t, "d", r.Alias("second"))

	for i := 0; i < 40; i++ {
		alias := r.Alias("name" + string(rune('A'+i)))
		assert.NotEqual(t, "x", alias)
	}
}

func TestRegistryReserveReportsPersistedConflicts(t *testing.T) {
	r := NewRegistry(nil)
	a := r.Alias("alpha")
	require.Equal(t, "a", a)

	conflicts := r.Reserve("a", "alpha", "zzz")
	assert.Equal(t, []string{"a"}, conflicts)
}

func TestRegistryRandomMode(t *testing.T) {
	cfg := createTestConfig()
	cfg.Obfuscation.Names.Mode = config.NamesModeRandom
	cfg.Obfuscation.Names.Length = 8
	r := NewRegistry(cfg)

	ident := regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		alias := r.Alias("name" + string(rune('a'+i%26)) + string(rune('a'+i/26)))
		assert.Regexp(t, ident, alias)
		assert.Len(t, alias, 8)
		assert.False(t, seen[alias], "duplicate alias %q", alias)
		seen[alias] = true
	}
}

func TestRegistryConcurrentAlias(t *testing.T) {
	r := NewRegistry(nil)
	done := make(chan string, 16)
	for i := 0; i < 16; i++ {
		go func() { done <- r.Alias("shared") }()
	}
	first := <-done
	for i := 1; i < 16; i++ {
		assert.Equal(t, first, <-done)
	}
	assert.Equal(t, 1, r.Len())
}

func TestRegistrySaveLoadState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".pymixer", "registry.gob")

	r := NewRegistry(nil)
	a := r.Alias("alpha")
	b := r.Alias("beta")
	require.NoError(t, r.SaveState(path))

	loaded := NewRegistry(nil)
	require.NoError(t, loaded.LoadState(path))
	assert.Equal(t, a, loaded.Alias("alpha"))
	assert.Equal(t, b, loaded.Alias("beta"))

	orig, ok := loaded.Unscramble(a)
	assert.True(t, ok)
	assert.Equal(t, "alpha", orig)

	// The generator resumes where the saved run stopped.
	assert.Equal(t, r.Alias("gamma"), loaded.Alias("gamma"))
}

func TestRegistryLoadStateMissingFile(t *testing.T) {
	r := NewRegistry(nil)
	assert.NoError(t, r.LoadState(filepath.Join(t.TempDir(), "missing.gob")))
	assert.Equal(t, 0, r.Len())
}

func TestRegistryLoadStateRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.gob")
	require.NoError(t, os.WriteFile(path, []byte("not a gob stream"), 0644))

	err := NewRegistry(nil).LoadState(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		kind ReservedKind
		ok   bool
	}{
		{"class", KindKeyword, true},
		{"None", KindKeyword, true},
		{"match", KindSoftKeyword, true},
		{"len", KindBuiltin, true},
		{"ValueError", KindBuiltin, true},
		{"self", KindSpecial, true},
		{"balance", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ok := Classify(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestRegistryKeep(t *testing.T) {
	r := NewRegistry(createTestConfig())
	early := r.Alias("qty")

	conflicts := r.Keep("name", "qty")
	assert.Equal(t, []string{"qty"}, conflicts)
	assert.True(t, r.ShouldIgnore("name"))
	assert.Equal(t, "name", r.Alias("name"))

	// Names kept after aliasing keep their spelling from now on; the old
	// alias stays reserved.
	assert.Equal(t, "qty", r.Alias("qty"))
	orig, ok := r.Unscramble(early)
	assert.True(t, ok)
	assert.Equal(t, "qty", orig)
	assert.NotEqual(t, early, r.Alias("other"))

	assert.Empty(t, r.Keep("name"))
}
