// pkg/blti/sign.go
package blti

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OAuth 1.0a parameter names (one-legged signing only).
const (
	OAuthConsumerKey     = "oauth_consumer_key"
	OAuthSignatureMethod = "oauth_signature_method"
	OAuthTimestamp       = "oauth_timestamp"
	OAuthNonce           = "oauth_nonce"
	OAuthVersion         = "oauth_version"
	OAuthSignature       = "oauth_signature"
	OAuthCallback        = "oauth_callback"

	SignatureMethodHMACSHA1 = "HMAC-SHA1"
)

var (
	ErrNoSecret     = errors.New("blti: cannot sign without a secret")
	ErrNoKey        = errors.New("blti: cannot sign without a consumer key")
	ErrNoSignature  = errors.New("blti: request carries no oauth_signature")
	ErrBadSigMethod = errors.New("blti: unsupported oauth_signature_method")
)

// Sign returns a copy of p extended with fresh OAuth 1.0a parameters
// and an HMAC-SHA1 signature over the full parameter set. A missing
// secret is an error: the caller must treat it as "cannot launch",
// never as "launch unsigned".
func Sign(p *Payload, launchURL, method, key, secret string) (*Payload, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrNoSecret
	}
	if strings.TrimSpace(key) == "" {
		return nil, ErrNoKey
	}

	signed := p.Clone()
	signed.put(OAuthConsumerKey, key)
	signed.put(OAuthSignatureMethod, SignatureMethodHMACSHA1)
	signed.put(OAuthVersion, "1.0")
	signed.put(OAuthTimestamp, strconv.FormatInt(time.Now().Unix(), 10))
	signed.put(OAuthNonce, uuid.NewString())

	base, err := baseString(method, launchURL, signed.pairs())
	if err != nil {
		return nil, err
	}
	signed.put(OAuthSignature, computeSignature(base, secret))
	return signed, nil
}

// Verify reconstructs the signature base string from the inbound
// request parameters (minus oauth_signature itself) and compares
// signatures in constant time. Any mismatch, missing OAuth parameter,
// or unknown signature method fails verification.
func Verify(params url.Values, launchURL, method, secret string) error {
	if strings.TrimSpace(secret) == "" {
		return ErrNoSecret
	}
	got := params.Get(OAuthSignature)
	if got == "" {
		return ErrNoSignature
	}
	if !strings.EqualFold(params.Get(OAuthSignatureMethod), SignatureMethodHMACSHA1) {
		return ErrBadSigMethod
	}
	for _, required := range []string{OAuthConsumerKey, OAuthTimestamp, OAuthNonce} {
		if params.Get(required) == "" {
			return fmt.Errorf("blti: missing %s", required)
		}
	}

	var pairs []pair
	for k, vs := range params {
		if k == OAuthSignature {
			continue
		}
		for _, v := range vs {
			pairs = append(pairs, pair{k, v})
		}
	}
	base, err := baseString(method, launchURL, pairs)
	if err != nil {
		return err
	}

	want, err := base64.StdEncoding.DecodeString(computeSignature(base, secret))
	if err != nil {
		return err
	}
	have, err := base64.StdEncoding.DecodeString(got)
	if err != nil {
		return fmt.Errorf("blti: malformed signature: %w", err)
	}
	if !hmac.Equal(want, have) {
		return errors.New("blti: signature mismatch")
	}
	return nil
}

type pair struct{ k, v string }

func (p *Payload) pairs() []pair {
	out := make([]pair, 0, len(p.keys))
	for _, k := range p.keys {
		out = append(out, pair{k, p.values[k]})
	}
	return out
}

// baseString builds the OAuth 1.0a signature base string: the
// uppercase method, the normalized URL (scheme://host/path, default
// ports stripped, no query), and the byte-lexically sorted,
// percent-encoded parameter pairs. Query parameters carried by the
// launch URL itself join the signed set.
func baseString(method, rawurl string, params []pair) (string, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return "", fmt.Errorf("blti: bad launch url %q: %w", rawurl, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("blti: launch url %q is not absolute", rawurl)
	}

	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	switch {
	case scheme == "http" && strings.HasSuffix(host, ":80"):
		host = strings.TrimSuffix(host, ":80")
	case scheme == "https" && strings.HasSuffix(host, ":443"):
		host = strings.TrimSuffix(host, ":443")
	}
	path := u.EscapedPath()
	normURL := scheme + "://" + host + path

	all := make([]pair, 0, len(params)+4)
	all = append(all, params...)
	for k, vs := range u.Query() {
		for _, v := range vs {
			all = append(all, pair{k, v})
		}
	}

	enc := make([]pair, len(all))
	for i, pr := range all {
		enc[i] = pair{percentEncode(pr.k), percentEncode(pr.v)}
	}
	sort.Slice(enc, func(i, j int) bool {
		if enc[i].k != enc[j].k {
			return enc[i].k < enc[j].k
		}
		return enc[i].v < enc[j].v
	})

	var b strings.Builder
	for i, pr := range enc {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(pr.k)
		b.WriteByte('=')
		b.WriteString(pr.v)
	}

	return strings.ToUpper(method) + "&" + percentEncode(normURL) + "&" + percentEncode(b.String()), nil
}

func computeSignature(base, secret string) string {
	mac := hmac.New(sha1.New, []byte(percentEncode(secret)+"&"))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// percentEncode implements RFC 5849 section 3.6: only unreserved
// characters pass, everything else becomes uppercase %XX.
func percentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '-', c == '.', c == '_', c == '~':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}
