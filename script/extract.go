// Package script locates fenced "exec" code blocks inside model output and
// concatenates their bodies into a single shell script.
package script

import "strings"

// Extract returns the concatenation, joined by "\n", of every fenced code
// block preceded by a line whose content is exactly "exec". It returns
// ("", false) if no such block exists.
//
// Recognition walks left to right, non-overlapping:
//  1. find "exec" starting a line (start-of-text or preceded by '\n'),
//  2. the next byte must be '\n',
//  3. the following line must open with a run of >=3 identical fence
//     characters ('`' or '~'); anything else on that line (a language tag)
//     is ignored,
//  4. scan forward for a line starting with >= that many of the same fence
//     character, terminated by '\n' or end-of-text (the closing fence),
//  5. the block body is everything between the two fence lines,
//  6. scanning resumes after the closing fence's line.
func Extract(text string) (string, bool) {
	var blocks []string
	p := 0

	for {
		execPos := strings.Index(text[p:], "exec")
		if execPos < 0 {
			break
		}
		execPos += p

		atLineStart := execPos == 0 || text[execPos-1] == '\n'
		if !atLineStart {
			p = execPos + 1
			continue
		}

		afterExec := execPos + 4
		if afterExec >= len(text) || text[afterExec] != '\n' {
			p = execPos + 1
			continue
		}
		fenceStart := afterExec + 1

		if fenceStart >= len(text) {
			p = execPos + 1
			continue
		}
		delim := text[fenceStart]
		if delim != '`' && delim != '~' {
			p = execPos + 1
			continue
		}

		delimCount := 0
		for fenceStart+delimCount < len(text) && text[fenceStart+delimCount] == delim {
			delimCount++
		}
		if delimCount < 3 {
			p = execPos + 1
			continue
		}

		lineEnd := fenceStart + delimCount
		for lineEnd < len(text) && text[lineEnd] != '\n' {
			lineEnd++
		}
		if lineEnd >= len(text) {
			// no newline terminating the opening fence line
			p = execPos + 1
			continue
		}

		startContent := lineEnd + 1
		endContent := -1

		for searchPos := startContent; searchPos < len(text); searchPos++ {
			if text[searchPos] != '\n' {
				continue
			}
			nextLine := searchPos + 1
			closingCount := 0
			for nextLine+closingCount < len(text) && text[nextLine+closingCount] == delim {
				closingCount++
			}
			if closingCount >= delimCount &&
				(nextLine+closingCount == len(text) || text[nextLine+closingCount] == '\n') {
				endContent = searchPos
				break
			}
		}

		if endContent < 0 {
			p = execPos + 1
			continue
		}

		blocks = append(blocks, text[startContent:endContent])

		// Resume scanning after the closing fence line.
		p = endContent + 1
		for p < len(text) && text[p] != '\n' {
			p++
		}
	}

	if len(blocks) == 0 {
		return "", false
	}
	return strings.Join(blocks, "\n"), true
}
