package encoding

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Charset names the source encoding detected for a text payload.
type Charset string

const (
	CharsetUTF8        Charset = "utf-8"
	CharsetUTF16LE     Charset = "utf-16le"
	CharsetUTF16BE     Charset = "utf-16be"
	CharsetWindows1252 Charset = "windows-1252"
	CharsetISO88599    Charset = "iso-8859-9"
	CharsetISO88592    Charset = "iso-8859-2"
)

const sniffSize = 4096

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// chardet result names mapped to the decoders we trust for OCR output.
var detected = map[string]struct {
	charset Charset
	decoder encoding.Encoding
}{
	"ISO-8859-1":   {CharsetWindows1252, charmap.Windows1252},
	"windows-1252": {CharsetWindows1252, charmap.Windows1252},
	"ISO-8859-9":   {CharsetISO88599, charmap.ISO8859_9},
	"ISO-8859-2":   {CharsetISO88592, charmap.ISO8859_2},
}

// ToUTF8 sniffs the start of r and returns a reader producing UTF-8 along with the
// charset it decoded from. BOMs are honoured first, valid UTF-8 passes through, then
// chardet is consulted and Windows-1252 is the fallback.
func ToUTF8(r io.Reader) (io.Reader, Charset, error) {
	br := bufio.NewReaderSize(r, sniffSize)

	head, err := br.Peek(sniffSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, "", fmt.Errorf("peeking input: %w", err)
	}

	switch {
	case bytes.HasPrefix(head, bomUTF8):
		_, _ = br.Discard(len(bomUTF8))
		return br, CharsetUTF8, nil
	case bytes.HasPrefix(head, bomUTF16LE):
		return decode(br, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)), CharsetUTF16LE, nil
	case bytes.HasPrefix(head, bomUTF16BE):
		return decode(br, unicode.UTF16(unicode.BigEndian, unicode.UseBOM)), CharsetUTF16BE, nil
	case validUTF8(head, len(head) == sniffSize):
		return br, CharsetUTF8, nil
	}

	if best, err := chardet.NewTextDetector().DetectBest(head); err == nil {
		if best.Charset == "UTF-8" {
			return br, CharsetUTF8, nil
		}

		if d, ok := detected[best.Charset]; ok {
			return decode(br, d.decoder), d.charset, nil
		}
	}

	return decode(br, charmap.Windows1252), CharsetWindows1252, nil
}

// ReadString drains r into a UTF-8 string.
func ReadString(r io.Reader) (string, Charset, error) {
	u, charset, err := ToUTF8(r)
	if err != nil {
		return "", "", err
	}

	b, err := io.ReadAll(u)
	if err != nil {
		return "", "", fmt.Errorf("decoding %s: %w", charset, err)
	}

	return string(b), charset, nil
}

// validUTF8 checks head, ignoring a rune cut off by the sniff window when truncated.
func validUTF8(head []byte, truncated bool) bool {
	if utf8.Valid(head) {
		return true
	}

	if !truncated {
		return false
	}

	for k := 1; k < utf8.UTFMax && k < len(head); k++ {
		if utf8.Valid(head[:len(head)-k]) {
			return true
		}
	}

	return false
}

func decode(r io.Reader, enc encoding.Encoding) io.Reader {
	return transform.NewReader(r, enc.NewDecoder())
}
