package status

import (
	"bufio"
	"bytes"
	"io"
)

// maxDocumentSize bounds a single NDJSON line.
const maxDocumentSize = 1024 * 1024 // 1MB

// Reader yields envelopes from a newline-delimited JSON stream.
type Reader struct {
	scanner *bufio.Scanner
	// partial is set when the last token ended at EOF without a newline.
	partial bool
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	rd := &Reader{scanner: bufio.NewScanner(r)}
	rd.scanner.Buffer(make([]byte, 0, 64*1024), maxDocumentSize)
	rd.scanner.Split(rd.split)
	return rd
}

func (r *Reader) split(data []byte, atEOF bool) (int, []byte, error) {
	advance, token, err := bufio.ScanLines(data, atEOF)
	if atEOF && token != nil && bytes.IndexByte(data[:advance], '\n') < 0 {
		r.partial = true
	}
	return advance, token, err
}

// Next returns the next envelope in arrival order.
//
// A malformed document yields a *DecodeError and the Reader stays usable. A
// malformed document cut off by the end of the stream is reported as
// io.ErrUnexpectedEOF. io.EOF marks a clean end of the stream; any other error
// comes from the underlying transport.
func (r *Reader) Next() (Envelope, error) {
	for r.scanner.Scan() {
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		env, err := Decode(line)
		if err != nil && r.partial {
			return Envelope{}, io.ErrUnexpectedEOF
		}
		return env, err
	}
	if err := r.scanner.Err(); err != nil {
		return Envelope{}, err
	}
	return Envelope{}, io.EOF
}
