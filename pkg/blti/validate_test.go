package blti

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog map[string]bool

func (c fakeCatalog) HasTool(id string) bool { return c[id] }

const provURL = "https://provider.example.com/provider/sakai.chat"

func testValidator() *Validator {
	return &Validator{
		Config: ValidatorConfig{
			Enabled:          true,
			AllowedTools:     []string{"sakai.chat", "sakai.forums"},
			TrustedConsumers: []string{"trusted.edu"},
		},
		Secrets: &SecretResolver{
			Consumers: map[string]ConsumerEntry{
				"12345":       {Secret: "sekrit"},
				"trusted.edu": {Secret: "trusted-secret"},
			},
		},
		Tools: fakeCatalog{"sakai.chat": true, "sakai.forums": true},
	}
}

// signedLaunch builds a correctly signed inbound request the way a
// consumer would.
func signedLaunch(t *testing.T, key, secret string, mutate func(url.Values)) Request {
	t.Helper()
	p := NewPayload()
	p.Set(ParamMessageType, MessageTypeLaunch)
	p.Set(ParamVersion, VersionLTI1)
	p.Set(ParamResourceLinkID, "rl-120")
	p.Set(ParamUserID, "u-7")
	p.Set(ParamContextID, "course-100")
	p.Set(ParamContextTitle, "Intro Course")
	p.Set(ParamRoles, "Instructor")

	signed, err := Sign(p, provURL, "POST", key, secret)
	require.NoError(t, err)

	vals := signed.Values()
	if mutate != nil {
		mutate(vals)
	}
	return Request{Method: "POST", URL: provURL, ToolID: "sakai.chat", Params: vals}
}

func TestValidateSuccessUntrusted(t *testing.T) {
	v := testValidator()
	lr, lerr := v.Validate(signedLaunch(t, "12345", "sekrit", nil))
	require.Nil(t, lerr)

	assert.False(t, lr.Trusted)
	assert.Equal(t, "12345", lr.ConsumerKey)
	assert.Equal(t, "sakai.chat", lr.ToolID)
	assert.Equal(t, "course-100", lr.ContextID)
	assert.Equal(t, SiteID(false, "12345", "course-100"), lr.SiteID)
	assert.Equal(t, "12345:u-7", lr.EID)
	assert.Equal(t, "Intro Course", lr.Payload.Get(ParamContextTitle))
}

func TestValidateSuccessTrusted(t *testing.T) {
	v := testValidator()
	lr, lerr := v.Validate(signedLaunch(t, "trusted.edu", "trusted-secret", nil))
	require.Nil(t, lerr)

	assert.True(t, lr.Trusted)
	// Trusted identifiers pass through verbatim, no hashing.
	assert.Equal(t, "course-100", lr.SiteID)
	assert.Empty(t, lr.EID)
}

func TestValidateDisabledShortCircuits(t *testing.T) {
	v := testValidator()
	v.Config.Enabled = false

	// Even a garbage request gets DISABLED: nothing else runs first.
	_, lerr := v.Validate(Request{})
	require.NotNil(t, lerr)
	assert.Equal(t, ReasonDisabled, lerr.Code)
}

func TestValidateShapeChecks(t *testing.T) {
	v := testValidator()

	for _, drop := range []string{ParamMessageType, ParamVersion, OAuthConsumerKey, ParamResourceLinkID, ParamUserID} {
		req := signedLaunch(t, "12345", "sekrit", func(vals url.Values) { vals.Del(drop) })
		_, lerr := v.Validate(req)
		require.NotNil(t, lerr, "dropped %s", drop)
		assert.Equal(t, ReasonMissingField, lerr.Code, "dropped %s", drop)
	}
}

func TestValidateToolChecks(t *testing.T) {
	v := testValidator()

	req := signedLaunch(t, "12345", "sekrit", nil)
	req.ToolID = ""
	_, lerr := v.Validate(req)
	require.NotNil(t, lerr)
	assert.Equal(t, ReasonMissingField, lerr.Code)

	req.ToolID = "sakai.dropbox"
	_, lerr = v.Validate(req)
	require.NotNil(t, lerr)
	assert.Equal(t, ReasonToolNotAllowed, lerr.Code)

	// Allow-listed but not in the catalog.
	req.ToolID = "sakai.forums"
	v.Tools = fakeCatalog{"sakai.chat": true}
	_, lerr = v.Validate(req)
	require.NotNil(t, lerr)
	assert.Equal(t, ReasonToolNotFound, lerr.Code)
}

func TestValidateTrustedRequiresContext(t *testing.T) {
	v := testValidator()
	req := signedLaunch(t, "trusted.edu", "trusted-secret", func(vals url.Values) {
		vals.Del(ParamContextID)
	})
	_, lerr := v.Validate(req)
	require.NotNil(t, lerr)
	assert.Equal(t, ReasonContextRequired, lerr.Code)
}

func TestValidateUntrustedContextFallback(t *testing.T) {
	v := testValidator()

	// Sign without a context_id at all so the signature still holds.
	p := NewPayload()
	p.Set(ParamMessageType, MessageTypeLaunch)
	p.Set(ParamVersion, VersionLTI1)
	p.Set(ParamResourceLinkID, "rl-120")
	p.Set(ParamUserID, "u-7")
	signed, err := Sign(p, provURL, "POST", "12345", "sekrit")
	require.NoError(t, err)

	lr, lerr := v.Validate(Request{Method: "POST", URL: provURL, ToolID: "sakai.chat", Params: signed.Values()})
	require.Nil(t, lerr)
	assert.Equal(t, "res:rl-120", lr.ContextID)
	assert.Equal(t, SiteID(false, "12345", "res:rl-120"), lr.SiteID)
}

func TestValidateUnknownConsumer(t *testing.T) {
	v := testValidator()
	req := signedLaunch(t, "nobody", "whatever", nil)
	_, lerr := v.Validate(req)
	require.NotNil(t, lerr)
	assert.Equal(t, ReasonUnknownConsumer, lerr.Code)
}

func TestValidateBadSignature(t *testing.T) {
	v := testValidator()

	// Signed with the wrong secret for a known consumer.
	req := signedLaunch(t, "12345", "not-the-secret", nil)
	_, lerr := v.Validate(req)
	require.NotNil(t, lerr)
	assert.Equal(t, ReasonSignatureInvalid, lerr.Code)

	// Tampered after signing.
	req = signedLaunch(t, "12345", "sekrit", func(vals url.Values) {
		vals.Set(ParamRoles, "Learner")
	})
	_, lerr = v.Validate(req)
	require.NotNil(t, lerr)
	assert.Equal(t, ReasonSignatureInvalid, lerr.Code)
}
