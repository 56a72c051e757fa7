package irc

import (
	"bytes"
	"strings"
)

var crlf = []byte("\r\n")

// Framer turns a raw byte stream into CRLF-delimited protocol lines.
//
// Bytes are buffered until a full line is available, so a line (or a
// multi-byte character) split across reads is reassembled intact. Invalid
// UTF-8 is dropped from a line when it is returned, never reported.
type Framer struct {
	buf []byte
}

// Write appends newly read bytes to the buffer. It never fails.
func (f *Framer) Write(p []byte) (int, error) {
	f.buf = append(f.buf, p...)
	return len(p), nil
}

// Next returns the next complete line without its CRLF. The second result
// is false when only an incomplete line (or nothing) is buffered.
func (f *Framer) Next() (string, bool) {
	i := bytes.Index(f.buf, crlf)
	if i < 0 {
		return "", false
	}
	line := strings.ToValidUTF8(string(f.buf[:i]), "")
	f.buf = f.buf[i+len(crlf):]
	if len(f.buf) == 0 {
		f.buf = nil
	}
	return line, true
}

// Buffered returns the number of bytes held for an incomplete line.
func (f *Framer) Buffered() int {
	return len(f.buf)
}
