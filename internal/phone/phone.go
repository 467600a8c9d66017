// Package phone normalizes Brazilian WhatsApp phone numbers. Meta delivers
// the sender as digits only (e.g. "554799998888"), but stored numbers may
// or may not carry the mobile ninth digit, so lookups and outbound sends
// must consider both forms.
package phone

import "strings"

// Digits strips every non-digit rune from raw.
func Digits(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Alternate returns the ninth-digit counterpart of a Brazilian number:
// the 8-digit local part gains a leading "9", the 9-digit one loses it.
// ok is false when the number is not a BR mobile shape we can transpose.
func Alternate(raw string) (string, bool) {
	clean := Digits(raw)
	if !strings.HasPrefix(clean, "55") || len(clean) < 12 {
		return "", false
	}
	ddd := clean[2:4]
	local := clean[4:]
	switch len(local) {
	case 8:
		return "55" + ddd + "9" + local, true
	case 9:
		return "55" + ddd + local[1:], true
	}
	return "", false
}

// Variants returns the ordered, deduplicated set of plausible stored forms
// of raw: the number as delivered first, then its ninth-digit counterpart.
func Variants(raw string) []string {
	clean := Digits(raw)
	if clean == "" {
		return nil
	}
	out := []string{clean}
	if alt, ok := Alternate(clean); ok && alt != clean {
		out = append(out, alt)
	}
	return out
}
