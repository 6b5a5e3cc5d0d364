/*
pymixer (Entry Point)

pymixer obfuscates Python 3 source: identifiers are renamed to short aliases
that stay stable across every file of a run, text and bytes literals are
rebuilt from their byte values at runtime, and public names are re-bound to
their aliases so importers keep working.
*/
package main

import (
	"github.com/whit3rabbit/pymixer/cmd/pymixer/cmd"
)

// main is the entry point of the application.
func main() {
	cmd.Execute()
}
