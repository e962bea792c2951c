// Package sanitize removes XML-invalid numeric character references from
// decompressed UBL content before it is handed to the XSLT key extractor.
package sanitize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var entityRe = regexp.MustCompile(`&#(x[0-9A-Fa-f]+|[0-9]+);`)

// isXMLChar reports whether code is a valid XML 1.0 character per the
// production in https://www.w3.org/TR/xml/#charsets.
func isXMLChar(code uint32) bool {
	switch {
	case code == 0x9 || code == 0xA || code == 0xD:
		return true
	case code >= 0x20 && code <= 0xD7FF:
		return true
	case code >= 0xE000 && code <= 0xFFFD:
		return true
	case code >= 0x10000 && code <= 0x10FFFF:
		return true
	default:
		return false
	}
}

// Sanitize scans content for numeric character references (&#N; or &#xH;)
// and replaces any that decode to an XML-invalid code point with the literal
// text "-sanitized-<inner>--", where <inner> is the original decimal or hex
// digits. All other bytes, including valid entities, pass through unchanged.
// When no replacement is made the input slice is returned as-is (no copy).
func Sanitize(content []byte) ([]byte, error) {
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("sanitize: invalid utf-8 content")
	}

	s := string(content)

	replaced := false
	out := entityRe.ReplaceAllStringFunc(s, func(match string) string {
		inner := match[2 : len(match)-1] // strip "&#" and ";"

		var code uint64
		var err error
		if strings.HasPrefix(inner, "x") || strings.HasPrefix(inner, "X") {
			code, err = strconv.ParseUint(inner[1:], 16, 32)
		} else {
			code, err = strconv.ParseUint(inner, 10, 32)
		}
		if err != nil {
			return match
		}

		if isXMLChar(uint32(code)) {
			return match
		}

		replaced = true
		return fmt.Sprintf("-sanitized-%s--", inner)
	})

	if !replaced {
		return content, nil
	}
	return []byte(out), nil
}
