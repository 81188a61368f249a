package models

import (
	"fmt"
	"strings"
)

// NormalizeMac converts any common MAC notation (colon, dash, dot-grouped,
// bare hex) to the canonical upper-case colon form AA:BB:CC:DD:EE:FF.
func NormalizeMac(raw string) (string, error) {
	hex := make([]byte, 0, 12)
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			hex = append(hex, byte(r))
		case r >= 'a' && r <= 'f':
			hex = append(hex, byte(r-'a'+'A'))
		case r >= 'A' && r <= 'F':
			hex = append(hex, byte(r))
		case r == ':' || r == '-' || r == '.':
			// separator, skip
		default:
			return "", fmt.Errorf("invalid MAC address %q", raw)
		}
	}
	if len(hex) != 12 {
		return "", fmt.Errorf("invalid MAC address %q", raw)
	}
	var b strings.Builder
	b.Grow(17)
	for i := 0; i < 12; i += 2 {
		if i > 0 {
			b.WriteByte(':')
		}
		b.Write(hex[i : i+2])
	}
	return b.String(), nil
}
