// pkg/blti/secrets.go
package blti

import "strings"

// Datum selects which credential half Resolve returns.
type Datum string

const (
	DatumKey    Datum = "key"
	DatumSecret Datum = "secret"
)

// Credential is a key/secret pair registered for a hostname scope.
type Credential struct {
	Key    string
	Secret string
}

func (c Credential) pick(d Datum) string {
	if d == DatumKey {
		return c.Key
	}
	return c.Secret
}

// ConsumerEntry holds the credentials registered for one consumer key
// (or, for SecretResolver.Global, the organization-wide defaults).
// Hosts maps a hostname or hostname suffix to a scoped credential.
type ConsumerEntry struct {
	Key    string
	Secret string
	Hosts  map[string]Credential
}

// SecretResolver answers "which key/secret signs a launch for this
// consumer and this host". Resolution order: consumer+host exact,
// consumer host-suffixes (dropping the leftmost label one at a time),
// consumer default, then the same three tiers on the global entry.
// Returns "" when nothing matches; the caller decides whether that
// means "unknown consumer" or "fall back to placement-local secrets".
type SecretResolver struct {
	Consumers map[string]ConsumerEntry
	Global    ConsumerEntry
}

func (r *SecretResolver) Resolve(d Datum, consumerKey, launchHost string) string {
	if consumerKey != "" {
		if e, ok := r.Consumers[consumerKey]; ok {
			if v := e.resolve(d, launchHost); v != "" {
				return v
			}
		}
	}
	return r.Global.resolve(d, launchHost)
}

// Known reports whether the consumer key has any registered entry.
// Inbound validation uses this as the allow-list check: an unknown
// consumer key never yields a secret.
func (r *SecretResolver) Known(consumerKey string) bool {
	_, ok := r.Consumers[consumerKey]
	return ok
}

func (e ConsumerEntry) resolve(d Datum, host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if host != "" && len(e.Hosts) > 0 {
		if c, ok := e.Hosts[host]; ok {
			if v := c.pick(d); v != "" {
				return v
			}
		}
		// Progressively shorter suffixes: a.b.example.com tries
		// b.example.com, example.com, com.
		for i := 0; i < len(host); i++ {
			if host[i] != '.' || i > len(host)-2 {
				continue
			}
			if c, ok := e.Hosts[host[i+1:]]; ok {
				if v := c.pick(d); v != "" {
					return v
				}
			}
		}
	}
	return Credential{Key: e.Key, Secret: e.Secret}.pick(d)
}
