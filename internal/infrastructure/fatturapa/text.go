package fatturapa

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// latin1 deja el texto dentro del juego de caracteres que acepta el SDI (ISO-8859-1):
// los caracteres fuera del rango se descomponen y se conserva la letra base; si no hay, "?".
func latin1(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		if r == '\r' || r == '\n' || r == '\t' {
			b.WriteByte(' ')
			continue
		}
		if r < 0x20 {
			continue
		}
		if r == '€' {
			b.WriteString("EUR")
			continue
		}
		if _, ok := charmap.ISO8859_1.EncodeRune(r); ok {
			b.WriteRune(r)
			continue
		}
		base, _ := utf8.DecodeRuneInString(norm.NFD.String(string(r)))
		if _, ok := charmap.ISO8859_1.EncodeRune(base); ok && base != r {
			b.WriteRune(base)
			continue
		}
		b.WriteByte('?')
	}
	return b.String()
}

// truncate corta a limit caracteres.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit])
}

// text latin1 + longitud máxima del campo.
func text(s string, limit int) string {
	return truncate(latin1(s), limit)
}
