package llm

import (
	"bufio"
	"io"
	"strings"
)

// lineReader accumulates bytes from an HTTP body into "\n"-terminated
// lines, surfacing the final unterminated fragment (if any) at EOF instead
// of discarding it.
type lineReader struct {
	r *bufio.Reader
}

func newLineReader(body io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReaderSize(body, 64*1024)}
}

// readLine returns the next line with its trailing "\r\n" or "\n"
// stripped. atEOF is true when the underlying reader is exhausted; in that
// case line holds whatever trailing bytes remained without a terminating
// newline (possibly empty).
func (l *lineReader) readLine() (line string, atEOF bool, err error) {
	raw, rerr := l.r.ReadString('\n')
	trimmed := strings.TrimSuffix(strings.TrimSuffix(raw, "\n"), "\r")
	if rerr == io.EOF {
		return trimmed, true, nil
	}
	if rerr != nil {
		return "", false, rerr
	}
	return trimmed, false, nil
}
