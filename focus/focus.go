// Package focus implements the --focus flag's word-splitting and glob
// expansion: a shell-like tokenizer followed by tilde and glob expansion,
// mirroring the behavior of POSIX wordexp() that the original CLI wrapped
// for this purpose.
package focus

import (
	"os"
	"path/filepath"
	"strings"
)

// Expand tokenizes words (whitespace-separated, with single/double quoted
// spans kept together in one word and their quotes stripped), applies tilde
// expansion to each word, then glob-expands it. Quoting only groups
// characters into a word: a quoted word is tilde- and glob-expanded exactly
// like an unquoted one. A pattern that matches nothing
// is returned literally rather than dropped, matching GLOB_NOCHECK
// semantics. Expanded paths that don't exist on disk are silently skipped,
// since a focus list only makes sense for files the agent can actually
// read.
func Expand(words string) []string {
	var result []string
	for _, word := range tokenize(words) {
		for _, expanded := range expandWord(word) {
			if _, err := os.Stat(expanded); err != nil {
				continue
			}
			result = append(result, expanded)
		}
	}
	return result
}

// tokenize splits words on whitespace, treating single- and double-quoted
// spans as part of the current word with their quote characters removed.
// Backslash is not special outside quotes, matching simple shell-word
// splitting rather than full shell grammar.
func tokenize(words string) []string {
	var tokens []string
	var cur strings.Builder
	inWord := false
	var quote byte

	flush := func() {
		if inWord {
			tokens = append(tokens, cur.String())
			cur.Reset()
			inWord = false
		}
	}

	for i := 0; i < len(words); i++ {
		c := words[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			} else {
				cur.WriteByte(c)
			}
			continue
		}
		switch {
		case c == '\'' || c == '"':
			quote = c
			inWord = true
		case c == ' ' || c == '\t' || c == '\n':
			flush()
		default:
			cur.WriteByte(c)
			inWord = true
		}
	}
	flush()
	return tokens
}

// expandWord applies tilde expansion then glob expansion to a single word.
func expandWord(word string) []string {
	word = expandTilde(word)

	matches, err := filepath.Glob(word)
	if err != nil || len(matches) == 0 {
		return []string{word}
	}
	return matches
}

// expandTilde expands a leading "~" or "~/..." to the current user's home
// directory. "~otheruser" forms are left untouched, since resolving
// another user's home directory has no portable stdlib equivalent.
func expandTilde(word string) string {
	if word != "~" && !strings.HasPrefix(word, "~/") {
		return word
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return word
	}
	if word == "~" {
		return home
	}
	return filepath.Join(home, strings.TrimPrefix(word, "~/"))
}
