package singer

import (
	"bufio"
	"bytes"
	"io"
)

// maxLineBytes bounds a single input line. Taps can emit wide rows, so the
// cap is generous relative to the default request size limit.
const maxLineBytes = 64 << 20

// Reader yields newline-delimited input lines. Whitespace-only lines are
// skipped; everything else is handed to the caller verbatim.
type Reader struct {
	scanner *bufio.Scanner
}

// NewReader wraps r for line-at-a-time consumption.
func NewReader(r io.Reader) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), maxLineBytes)
	return &Reader{scanner: s}
}

// Next returns the next non-blank line, or io.EOF at end of input. The
// returned slice is only valid until the following call to Next.
func (r *Reader) Next() ([]byte, error) {
	for r.scanner.Scan() {
		line := r.scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		return line, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}
