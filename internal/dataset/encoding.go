package dataset

import (
	"bufio"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const sniffSize = 64 << 10

// decodeReader returns a UTF-8 view of r. A byte order mark selects the
// UTF-8/UTF-16 decoder; input that is not valid UTF-8 in its first chunk is
// decoded as Windows-1252, the usual encoding of spreadsheet CSV exports.
func decodeReader(r io.Reader) (io.Reader, bool, error) {
	br := bufio.NewReaderSize(r, sniffSize)
	peek, err := br.Peek(sniffSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, false, err
	}
	if len(peek) == 0 {
		return br, false, nil
	}

	var fallback encoding.Encoding = encoding.Nop
	legacy := !hasBOM(peek) && !validUTF8Prefix(peek, len(peek) == sniffSize)
	if legacy {
		fallback = charmap.Windows1252
	}
	return transform.NewReader(br, unicode.BOMOverride(fallback.NewDecoder())), legacy, nil
}

func hasBOM(b []byte) bool {
	switch {
	case len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF:
		return true
	case len(b) >= 2 && ((b[0] == 0xFE && b[1] == 0xFF) || (b[0] == 0xFF && b[1] == 0xFE)):
		return true
	}
	return false
}

// validUTF8Prefix tolerates a rune cut off by a full sniff window.
func validUTF8Prefix(b []byte, truncated bool) bool {
	if !truncated {
		return utf8.Valid(b)
	}
	for trim := 0; trim < utf8.UTFMax && trim < len(b); trim++ {
		if utf8.Valid(b[:len(b)-trim]) {
			return true
		}
	}
	return false
}
