package parsers

import (
	"net"
	"strconv"
	"strings"

	"github.com/netauto/maintcheck/pkg/models"
)

// splitLines normalises CRLF and returns the non-empty trimmed-right lines.
func splitLines(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// floatPtr parses a numeric token, treating the usual CLI placeholders for
// "no reading" as absent.
func floatPtr(tok string) *float64 {
	tok = strings.TrimSpace(tok)
	switch tok {
	case "", "-", "--", "N/A", "n/a", "NA":
		return nil
	}
	// Some platforms mark alarm states with a trailing symbol, e.g. "-2.5!".
	tok = strings.TrimRight(tok, "!*+")
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return nil
	}
	return &v
}

func intTok(tok string) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(tok))
	if err != nil {
		return 0, false
	}
	return v, true
}

// looksLikeInterface reports whether a token plausibly names a switch port:
// it must start with letters and contain a digit, with only port punctuation
// after the alphabetic prefix.
func looksLikeInterface(tok string) bool {
	if tok == "" || !isAlpha(rune(tok[0])) {
		return false
	}
	hasDigit := false
	for _, r := range tok {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case isAlpha(r) || r == '/' || r == '-' || r == '.' || r == ':':
		default:
			return false
		}
	}
	return hasDigit
}

func isAlpha(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// looksLikeMac reports whether tok is a MAC in any common notation. Bare
// 12-hex tokens are excluded to avoid eating serial numbers.
func looksLikeMac(tok string) bool {
	if !strings.ContainsAny(tok, ":-.") {
		return false
	}
	_, err := models.NormalizeMac(tok)
	return err == nil
}

func looksLikeIPv4(tok string) bool {
	ip := net.ParseIP(tok)
	return ip != nil && ip.To4() != nil
}
