package config

import (
	"strings"
	"unicode"
)

const badFileName = "_bad_file_name_"

// CleanFileName makes in usable as a single output path segment: characters
// not allowed by the platform and control characters are dropped, leading
// dots are removed so result is never hidden or a reference to parent
// directory.
func CleanFileName(in string) string {
	out := strings.Map(func(sym rune) rune {
		if unicode.IsControl(sym) || strings.ContainsRune(forbiddenNameChars, sym) {
			return -1
		}
		return sym
	}, in)
	out = platformFileName(strings.TrimLeft(out, "."))
	if len(out) == 0 {
		return badFileName
	}
	return out
}
