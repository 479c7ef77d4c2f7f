package profile

import "strings"

// LegacyTokens carries every token field shape the user documents have had:
// the current expoPushTokens array plus older single-value and generic fields.
type LegacyTokens struct {
	ExpoPushTokens []string
	ExpoPushToken  string
	PushTokens     []string
	PushToken      string
}

// NormalizeTokens flattens all token fields into one set. Blank entries are
// dropped and the first occurrence of a duplicate wins, so the order is stable.
func NormalizeTokens(l LegacyTokens) []string {
	all := make([]string, 0, len(l.ExpoPushTokens)+len(l.PushTokens)+2)
	all = append(all, l.ExpoPushTokens...)
	all = append(all, l.ExpoPushToken)
	all = append(all, l.PushTokens...)
	all = append(all, l.PushToken)
	return Dedupe(all)
}

// Dedupe removes blank and repeated tokens, keeping first-seen order.
func Dedupe(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if strings.TrimSpace(t) == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
