package flow

import "strings"

// normalizePhone keeps the digits of a shared contact and prefixes them with "+".
// Telegram clients send the number with or without the plus sign depending on platform.
func normalizePhone(raw string) string {
	var b strings.Builder
	b.Grow(len(raw) + 1)
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "+" + b.String()
}
