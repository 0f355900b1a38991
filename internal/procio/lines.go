package procio

import (
	"bytes"
	"errors"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

const readChunkSize = 4096

// Reassembler turns arbitrarily split output chunks into complete lines.
// The zero value is ready to use. A Reassembler is not safe for concurrent use.
type Reassembler struct {
	partial []byte
}

// Feed consumes one chunk and returns every line it completes, in order.
// A trailing fragment without a newline is held until the next Feed or Flush.
func (r *Reassembler) Feed(chunk []byte) []string {
	if len(chunk) == 0 {
		return nil
	}
	var lines []string
	for {
		idx := bytes.IndexByte(chunk, '\n')
		if idx < 0 {
			r.partial = append(r.partial, chunk...)
			return lines
		}
		var raw []byte
		if len(r.partial) > 0 {
			raw = append(r.partial, chunk[:idx]...)
			r.partial = nil
		} else {
			raw = chunk[:idx]
		}
		lines = append(lines, decodeLine(raw))
		chunk = chunk[idx+1:]
	}
}

// Flush returns the held fragment, if any, and resets the reassembler.
func (r *Reassembler) Flush() (string, bool) {
	if len(r.partial) == 0 {
		return "", false
	}
	line := decodeLine(r.partial)
	r.partial = nil
	return line, true
}

// Pending reports whether a partial line is being held.
func (r *Reassembler) Pending() bool {
	return len(r.partial) > 0
}

// ScanLines reads r until EOF and calls fn for every complete line, including
// a final unterminated one. Read errors other than EOF are returned after the
// held fragment has been delivered.
func ScanLines(r io.Reader, fn func(string)) error {
	var (
		reasm Reassembler
		buf   = make([]byte, readChunkSize)
	)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			for _, line := range reasm.Feed(buf[:n]) {
				fn(line)
			}
		}
		if err != nil {
			if line, ok := reasm.Flush(); ok {
				fn(line)
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// decodeLine strips a trailing carriage return and falls back to Latin-1 for
// byte sequences that are not valid UTF-8 (CD-Text and CDDB data often is).
func decodeLine(raw []byte) string {
	raw = bytes.TrimSuffix(raw, []byte{'\r'})
	if utf8.Valid(raw) {
		return string(raw)
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}
