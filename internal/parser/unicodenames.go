package parser

import (
	"strconv"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/runenames"
)

var (
	runeNamesOnce sync.Once
	runesByName   map[string]rune
)

// lookupRuneName resolves the NAME of a \N{NAME} escape, ignoring case.
// Character name aliases and named sequences are not recognised.
func lookupRuneName(name string) (rune, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if hex, ok := strings.CutPrefix(name, "CJK UNIFIED IDEOGRAPH-"); ok {
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil || !utf8.ValidRune(rune(v)) {
			return 0, false
		}
		return rune(v), true
	}
	runeNamesOnce.Do(buildRuneNames)
	r, ok := runesByName[name]
	return r, ok
}

// buildRuneNames inverts the runenames table once. Range placeholders such
// as "<CJK Ideograph>" are skipped.
func buildRuneNames() {
	runesByName = make(map[string]rune, 1<<16)
	for r := rune(0); r <= unicode.MaxRune; r++ {
		if r >= 0xD800 && r <= 0xDFFF {
			continue
		}
		name := runenames.Name(r)
		if name == "" || name[0] == '<' {
			continue
		}
		if _, dup := runesByName[name]; !dup {
			runesByName[name] = r
		}
	}
}
