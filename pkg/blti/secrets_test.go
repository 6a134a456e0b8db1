package blti

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveHostSpecificity(t *testing.T) {
	r := &SecretResolver{
		Consumers: map[string]ConsumerEntry{
			"12345": {
				Secret: "default-secret",
				Hosts: map[string]Credential{
					"lms.example.com": {Secret: "host-secret"},
				},
			},
		},
	}

	// Exact host match wins.
	assert.Equal(t, "host-secret", r.Resolve(DatumSecret, "12345", "lms.example.com"))

	// A subdomain launch host matches the registered host as a
	// suffix: sub.lms.example.com drops its leftmost label and hits
	// lms.example.com.
	assert.Equal(t, "host-secret", r.Resolve(DatumSecret, "12345", "sub.lms.example.com"))

	// No host at all: consumer default.
	assert.Equal(t, "default-secret", r.Resolve(DatumSecret, "12345", ""))
}

func TestResolveSuffixMatch(t *testing.T) {
	r := &SecretResolver{
		Consumers: map[string]ConsumerEntry{
			"12345": {
				Hosts: map[string]Credential{
					"apps.example.com": {Secret: "apps-wide"},
					"example.com":      {Secret: "org-wide"},
				},
			},
		},
	}

	// Most specific suffix first.
	assert.Equal(t, "apps-wide", r.Resolve(DatumSecret, "12345", "tool.apps.example.com"))
	assert.Equal(t, "org-wide", r.Resolve(DatumSecret, "12345", "other.example.com"))
	assert.Equal(t, "", r.Resolve(DatumSecret, "12345", "tool.elsewhere.org"))
}

func TestResolveGlobalFallback(t *testing.T) {
	r := &SecretResolver{
		Consumers: map[string]ConsumerEntry{
			"known": {Secret: "known-secret"},
		},
		Global: ConsumerEntry{
			Key:    "org-guid",
			Secret: "org-secret",
			Hosts: map[string]Credential{
				"partner.edu": {Key: "partner-key", Secret: "partner-secret"},
			},
		},
	}

	// Consumer entry wins over global.
	assert.Equal(t, "known-secret", r.Resolve(DatumSecret, "known", ""))

	// Unknown consumer falls through to the global tiers.
	assert.Equal(t, "org-secret", r.Resolve(DatumSecret, "stranger", ""))
	assert.Equal(t, "partner-secret", r.Resolve(DatumSecret, "", "tools.partner.edu"))
	assert.Equal(t, "partner-key", r.Resolve(DatumKey, "", "partner.edu"))
	assert.Equal(t, "org-guid", r.Resolve(DatumKey, "", "elsewhere.org"))

	assert.True(t, r.Known("known"))
	assert.False(t, r.Known("stranger"))
}

func TestResolveHostCaseInsensitive(t *testing.T) {
	r := &SecretResolver{
		Global: ConsumerEntry{Hosts: map[string]Credential{"lms.example.com": {Secret: "s"}}},
	}
	assert.Equal(t, "s", r.Resolve(DatumSecret, "", "LMS.Example.Com"))
}
