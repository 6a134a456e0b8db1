// Package config loads gateway configuration from a YAML file with
// environment and command-line overrides. Precedence, highest first:
// flags, LTIGATE_* environment variables, file, built-in defaults.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/mind-engage/lti-gateway/pkg/blti"
)

// Credential is a key/secret pair, optionally scoped to a hostname.
type Credential struct {
	Key    string `koanf:"key"`
	Secret string `koanf:"secret"`
}

// Consumer is one registered inbound tool consumer.
type Consumer struct {
	Secret string `koanf:"secret"`
	// Hosts scopes secrets by launch-URL hostname (exact or suffix).
	Hosts map[string]Credential `koanf:"hosts"`
}

type Config struct {
	HTTPAddr    string   `koanf:"http_addr"`
	PublicURL   string   `koanf:"public_url"`
	CORSOrigins []string `koanf:"cors_origins"`

	DB struct {
		Driver string `koanf:"driver"` // sqlite | postgres
		DSN    string `koanf:"dsn"`
	} `koanf:"db"`

	Session struct {
		HMACSecret string `koanf:"hmac_secret"`
		TTLMinutes int    `koanf:"ttl_minutes"`
	} `koanf:"session"`

	// Provider is the inbound (tool provider) side.
	Provider struct {
		Enabled          bool                `koanf:"enabled"`
		AllowedTools     []string            `koanf:"allowed_tools"`
		TrustedConsumers []string            `koanf:"trusted_consumers"`
		Consumers        map[string]Consumer `koanf:"consumers"`
		// Tools is the deployed tool catalog: id -> display title.
		// AllowedTools narrows which of these may be launched into.
		Tools map[string]string `koanf:"tools"`
	} `koanf:"provider"`

	// Consumer is the outbound (tool consumer) side: the identity this
	// deployment presents to external tools, and the org-wide signing
	// credentials looked up by launch-URL host.
	Consumer struct {
		InstanceGUID  string                `koanf:"instance_guid"`
		InstanceName  string                `koanf:"instance_name"`
		InstanceURL   string                `koanf:"instance_url"`
		CSSURL        string                `koanf:"css_url"`
		ReturnURL     string                `koanf:"return_url"`
		OAuthCallback string                `koanf:"oauth_callback"`
		Key           string                `koanf:"key"`
		Secret        string                `koanf:"secret"`
		Hosts         map[string]Credential `koanf:"hosts"`
	} `koanf:"consumer"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"http_addr":               ":8080",
		"db.driver":               "sqlite",
		"session.ttl_minutes":     480,
		"provider.enabled":        false,
		"consumer.oauth_callback": "about:blank",
	}
}

// Load reads configuration. path may be empty (env/flags/defaults
// only); flags may be nil.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	// LTIGATE_DB__DRIVER -> db.driver; single underscores stay part of
	// the field name (LTIGATE_HTTP_ADDR -> http_addr).
	if err := k.Load(env.Provider("LTIGATE_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "LTIGATE_"))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}
	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// ProviderSecrets builds the inbound secret resolver: only registered
// consumer keys resolve, so an unknown key is rejected upstream.
func (c Config) ProviderSecrets() *blti.SecretResolver {
	r := &blti.SecretResolver{Consumers: map[string]blti.ConsumerEntry{}}
	for key, con := range c.Provider.Consumers {
		r.Consumers[key] = blti.ConsumerEntry{
			Secret: con.Secret,
			Hosts:  hostCreds(con.Hosts),
		}
	}
	return r
}

// ConsumerSecrets builds the outbound resolver: the org-wide signing
// credentials, host-scoped. The key defaults to the instance guid.
func (c Config) ConsumerSecrets() *blti.SecretResolver {
	key := c.Consumer.Key
	if key == "" {
		key = c.Consumer.InstanceGUID
	}
	return &blti.SecretResolver{
		Global: blti.ConsumerEntry{
			Key:    key,
			Secret: c.Consumer.Secret,
			Hosts:  hostCreds(c.Consumer.Hosts),
		},
	}
}

// Org exposes the consumer-instance fields in the launch builder's
// shape.
func (c Config) Org() blti.OrgInfo {
	return blti.OrgInfo{
		GUID:      c.Consumer.InstanceGUID,
		Name:      c.Consumer.InstanceName,
		URL:       c.Consumer.InstanceURL,
		CSSURL:    c.Consumer.CSSURL,
		ReturnURL: c.Consumer.ReturnURL,
	}
}

func hostCreds(in map[string]Credential) map[string]blti.Credential {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]blti.Credential, len(in))
	for h, cr := range in {
		out[strings.ToLower(h)] = blti.Credential{Key: cr.Key, Secret: cr.Secret}
	}
	return out
}
