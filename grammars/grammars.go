// Package grammars holds grammar files shipped with the toolchain
package grammars

import _ "embed"

// Ritual is the grammar of grammar files, written in its own notation
//
//go:embed ritual.ritual
var Ritual string
