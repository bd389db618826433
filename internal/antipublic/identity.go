// Package antipublic keeps the ledger of account identities that were already
// delivered, so the same account is never sold twice.
package antipublic

import "strings"

const tokenMarker = " | accesstoken:"

// ExtractIdentity derives the account identity of a stock unit.
//
// Token records look like "a - b - c - d - [Name] | accesstoken:...". Plain
// records are colon separated: the last field is used for three or more fields
// and the first for two, as long as it does not look like an email or a host.
// ok is false when no reliable identity can be derived.
func ExtractIdentity(content string) (identity string, ok bool) {
	if strings.Contains(content, tokenMarker) {
		parts := strings.Split(content, " - ")
		if len(parts) >= 5 {
			seg := strings.TrimSpace(strings.Split(parts[4], " | ")[0])
			if len(seg) >= 2 && strings.HasPrefix(seg, "[") && strings.HasSuffix(seg, "]") {
				// an empty name in brackets is a malformed record, not a name
				name := strings.TrimSpace(seg[1 : len(seg)-1])
				return name, name != ""
			}
		}
	}

	parts := strings.Split(content, ":")
	if len(parts) >= 3 {
		if last := strings.TrimSpace(parts[len(parts)-1]); usableName(last) {
			return last, true
		}
	}
	if len(parts) >= 2 {
		if first := strings.TrimSpace(parts[0]); usableName(first) {
			return first, true
		}
	}
	return "", false
}

func usableName(s string) bool {
	return s != "" && !strings.ContainsAny(s, "@.")
}

// Key normalizes an identity for comparison.
func Key(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}
