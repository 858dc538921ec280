package compiler

import (
	"errors"
	"fmt"
	"strings"
)

// MaxExpandedLen bounds the text a macro or the whole program may expand to.
const MaxExpandedLen = 1 << 20

var ErrExpansionTooLong = errors.New("macro expansion too long")

// Preprocess prepares program text read from a file. It removes // comments
// and handles simple `#define NAME VALUE` lines, substituting each defined
// name wherever it appears as a whole word in later lines. The result is
// plain program text for Compile.
//
//	#define BEAT (t>>13)
//	t * (BEAT & 3) // melody
//
// Output longer than MaxExpandedLen is an error.
func Preprocess(src string) (string, error) {
	defines := make(map[string]string)
	var out []string
	size := 0

	for i, line := range strings.Split(src, "\n") {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "#define") {
			rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "#define"))
			name, value, _ := strings.Cut(rest, " ")
			if !isMacroName(name) {
				return "", fmt.Errorf("line %d: invalid macro name %q", i+1, name)
			}
			expanded, ok := applyDefines(strings.TrimSpace(value), defines)
			if !ok {
				return "", fmt.Errorf("line %d: %w", i+1, ErrExpansionTooLong)
			}
			defines[name] = expanded
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			return "", fmt.Errorf("line %d: unknown directive %q", i+1, trimmed)
		}
		if trimmed == "" {
			continue
		}
		expanded, ok := applyDefines(trimmed, defines)
		size += len(expanded) + 1
		if !ok || size > MaxExpandedLen {
			return "", fmt.Errorf("line %d: %w", i+1, ErrExpansionTooLong)
		}
		out = append(out, expanded)
	}
	return strings.Join(out, " "), nil
}

// Macro names are longer than one character so they never shadow a variable.
func isMacroName(name string) bool {
	if len(name) < 2 || !isLetter(name[0]) {
		return false
	}
	for i := 1; i < len(name); i++ {
		if !isLetter(name[i]) && !isDigit(name[i]) {
			return false
		}
	}
	return true
}

// applyDefines replaces whole-word occurrences of defined names. It stops
// and reports false once the result would exceed MaxExpandedLen.
func applyDefines(input string, defines map[string]string) (string, bool) {
	if len(defines) == 0 {
		return input, len(input) <= MaxExpandedLen
	}
	var b strings.Builder
	i := 0
	for i < len(input) {
		c := input[i]
		if !isLetter(c) {
			// Skip numeric literals whole so 0xdead is not mistaken for a word.
			if isDigit(c) {
				j := i
				for j < len(input) && (isLetter(input[j]) || isDigit(input[j])) {
					j++
				}
				b.WriteString(input[i:j])
				i = j
				continue
			}
			b.WriteByte(c)
			i++
			continue
		}
		j := i
		for j < len(input) && (isLetter(input[j]) || isDigit(input[j])) {
			j++
		}
		word := input[i:j]
		if val, ok := defines[word]; ok {
			word = val
		}
		if b.Len()+len(word) > MaxExpandedLen {
			return "", false
		}
		b.WriteString(word)
		i = j
	}
	return b.String(), b.Len() <= MaxExpandedLen
}
