// pkg/blti/identity.go
package blti

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// SiteID derives the local site identifier for an external context.
// Trusted consumers use their context id verbatim; everyone else gets
// a SHA1 of consumerKey:contextID so two consumers with the same
// context id can never collide. The same inputs always produce the
// same id, which is what makes re-launches idempotent.
func SiteID(trusted bool, consumerKey, contextID string) string {
	if trusted {
		return contextID
	}
	return sha1Hex(consumerKey + ":" + contextID)
}

// FallbackContextID substitutes for a missing context_id on untrusted
// launches: the resource link becomes its own one-resource context.
func FallbackContextID(resourceLinkID string) string {
	return "res:" + resourceLinkID
}

// EID namespaces an external user id by its consumer key.
func EID(consumerKey, userID string) string {
	return consumerKey + ":" + userID
}

// SplitName fills in first/last name when the consumer only sent
// lis_person_name_full: the last whitespace-delimited token becomes
// the family name. Explicit given/family values win.
func SplitName(given, family, full string) (string, string) {
	if given != "" || family != "" {
		return given, family
	}
	full = strings.TrimSpace(full)
	if full == "" {
		return "", ""
	}
	if i := strings.LastIndex(full, " "); i >= 0 {
		return full[:i], full[i+1:]
	}
	return full, ""
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
