// Package textfile turns uploaded bytes into analyzable text.
package textfile

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"
	"github.com/gogs/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

var (
	ErrTooLarge        = errors.New("file too large")
	ErrBinary          = errors.New("file is not text")
	ErrUnknownEncoding = errors.New("cannot determine text encoding")
)

// minConfidence is the chardet confidence below which a guess is rejected.
const minConfidence = 20

// Decoder converts uploads to UTF-8 text. Plain text is decoded from UTF-8,
// UTF-16 (with BOM) or a detected legacy charset such as Shift_JIS, EUC-JP,
// GB18030 or Big5. HTML is reduced to its article text.
type Decoder struct {
	// MaxBytes rejects larger uploads when positive.
	MaxBytes int64
}

// Decode implements the analysis decoder contract.
func (d Decoder) Decode(data []byte, filename string) (string, error) {
	if d.MaxBytes > 0 && int64(len(data)) > d.MaxBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, len(data), d.MaxBytes)
	}
	if len(data) == 0 {
		return "", nil
	}

	text, err := decodeCharset(data)
	if err != nil {
		return "", err
	}

	if isHTML(filename, text) {
		text, err = extractArticle(text, filename)
		if err != nil {
			return "", err
		}
	}
	return strings.ReplaceAll(text, "\r\n", "\n"), nil
}

func decodeCharset(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		data = data[3:]
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}), bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		out, err := dec.Bytes(data)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnknownEncoding, err)
		}
		return string(out), nil
	}

	if ct := http.DetectContentType(data); !strings.HasPrefix(ct, "text/") {
		return "", fmt.Errorf("%w: detected %s", ErrBinary, ct)
	}
	if utf8.Valid(data) {
		return string(data), nil
	}

	res, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil || res.Confidence < minConfidence {
		return "", ErrUnknownEncoding
	}
	enc, err := lookupEncoding(res.Charset)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownEncoding, res.Charset)
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil || !utf8.Valid(out) {
		return "", fmt.Errorf("%w: %s", ErrUnknownEncoding, res.Charset)
	}
	return string(out), nil
}

// lookupEncoding resolves chardet charset names, which differ slightly from
// the WHATWG labels htmlindex knows.
func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToUpper(name) {
	case "GB-18030":
		name = "gb18030"
	case "ISO-2022-JP":
		name = "iso-2022-jp"
	}
	return htmlindex.Get(name)
}

func isHTML(filename, text string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".html", ".htm", ".xhtml":
		return true
	case ".txt", ".md":
		return false
	}
	head := strings.ToLower(strings.TrimSpace(text))
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html")
}

func extractArticle(html, filename string) (string, error) {
	cleaned := SanitizeRuby([]byte(html))
	pageURL := &url.URL{Scheme: "file", Path: "/" + filepath.Base(filename)}
	article, err := readability.FromReader(bytes.NewReader(cleaned), pageURL)
	if err != nil {
		return "", fmt.Errorf("extract article: %w", err)
	}
	return strings.TrimSpace(article.TextContent), nil
}
