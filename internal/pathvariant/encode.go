package pathvariant

import "strings"

const upperhex = "0123456789ABCDEF"

// EncodeURIComponent percent-encodes s the way browsers' encodeURIComponent
// does: ASCII letters, digits and -_.!~*'() are kept, every other byte of
// the UTF-8 encoding becomes %XX with uppercase hex.
//
// Stored keys were produced by that routine, so the neighbouring net/url
// escapers cannot be substituted: QueryEscape turns spaces into "+" and
// escapes !'()*, PathEscape leaves $&+,/:;=@ alone.
func EncodeURIComponent(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if !unreserved(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
