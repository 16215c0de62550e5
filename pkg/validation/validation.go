package validation

import (
	"path"
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxFilenameLength = 255

// SanitizeNote removes null bytes and control characters other than line
// breaks and tabs. Everything else is kept as typed.
func SanitizeNote(input string) string {
	input = strings.ToValidUTF8(input, "")
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r == '\r':
			return -1
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, input)
}

// SanitizeFilename reduces a client supplied name to a plain base name
// without control characters. It returns "" when nothing usable is left.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.ToValidUTF8(name, ""))
	name = strings.TrimSpace(name)

	for len(name) > maxFilenameLength {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}
	return name
}
