package invoicing

import (
	"fmt"
	"strconv"
	"strings"
)

// NumberNamespace prefijo común de los números de un año: "FATT/2025/".
func NumberNamespace(prefix string, year int) string {
	return fmt.Sprintf("%s/%d/", prefix, year)
}

// FormatNumber construye PREFIX/YEAR/NNNN con relleno a 4 dígitos.
func FormatNumber(prefix string, year, seq int) string {
	return fmt.Sprintf("%s%04d", NumberNamespace(prefix, year), seq)
}

// ParseSequence extrae NNNN si number pertenece al espacio prefix/year.
func ParseSequence(number, prefix string, year int) (int, bool) {
	ns := NumberNamespace(prefix, year)
	if !strings.HasPrefix(number, ns) {
		return 0, false
	}
	rest := number[len(ns):]
	if rest == "" {
		return 0, false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}

// MaxSequence mayor secuencia del espacio prefix/year entre numbers (0 si no hay).
func MaxSequence(numbers []string, prefix string, year int) int {
	highest := 0
	for _, n := range numbers {
		if seq, ok := ParseSequence(n, prefix, year); ok && seq > highest {
			highest = seq
		}
	}
	return highest
}

// NextNumber siguiente número a partir del máximo persistido.
func NextNumber(prefix string, year, currentMax int) string {
	return FormatNumber(prefix, year, currentMax+1)
}

// ProgressiveID deriva el ProgressivoInvio FatturaPA (1-5 alfanuméricos) del número de factura.
func ProgressiveID(number string) string {
	var b strings.Builder
	for _, r := range number {
		if (r >= '0' && r <= '9') || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if len(s) > 5 {
		s = s[len(s)-5:]
	}
	if s == "" {
		s = "00001"
	}
	return s
}
