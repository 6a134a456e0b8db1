// pkg/blti/validate.go
package blti

import (
	"net/url"
	"strings"
)

// Request is one inbound launch attempt, already parsed out of the
// transport: the exact URL the consumer signed, the HTTP method, the
// tool id taken from the request path, and every form/query parameter.
type Request struct {
	Method string
	URL    string
	ToolID string
	Params url.Values
}

// ValidatorConfig is read-only per request; the owner swaps the whole
// Validator on config reload.
type ValidatorConfig struct {
	// Enabled gates the whole inbound endpoint. Checked before any
	// other work so a disabled endpoint never does crypto.
	Enabled bool
	// AllowedTools is the administrative allow-list of launchable
	// tool ids.
	AllowedTools []string
	// TrustedConsumers lists consumer keys whose identifiers are used
	// verbatim. Leave empty for the legacy behavior where no consumer
	// is trusted.
	TrustedConsumers []string
}

// ToolCatalog answers whether a tool id resolves to a known tool.
type ToolCatalog interface {
	HasTool(id string) bool
}

// Validator authenticates inbound launches. Terminal outcomes are a
// *LaunchRequest (success) or a *LaunchError (reject); there is no
// partial state.
type Validator struct {
	Config  ValidatorConfig
	Secrets *SecretResolver
	Tools   ToolCatalog
}

// LaunchRequest is the normalized outcome of a successful validation,
// ready for identity mapping and provisioning.
type LaunchRequest struct {
	Payload     *Payload
	ToolID      string
	ConsumerKey string
	Trusted     bool

	// ContextID is the effective external context id, after the
	// "res:"+resource_link_id fallback for untrusted launches.
	ContextID string
	// SiteID is the derived local site id (verbatim or SHA1-derived).
	SiteID string
	// UserID is the consumer's user id, verbatim.
	UserID string
	// EID is the namespaced local user eid for untrusted launches;
	// empty when trusted (the directory resolves it from UserID).
	EID string
}

// Validate runs the inbound state machine in a fixed order: feature
// gate, shape checks, tool allow-list and catalog, trust
// classification, then — only for well-formed allow-listed requests —
// secret lookup and signature verification.
func (v *Validator) Validate(req Request) (*LaunchRequest, *LaunchError) {
	if !v.Config.Enabled {
		return nil, Reject(ReasonDisabled, "inbound launches are disabled")
	}

	get := func(name string) string { return strings.TrimSpace(req.Params.Get(name)) }

	if mt := get(ParamMessageType); mt != MessageTypeLaunch {
		return nil, Reject(ReasonMissingField, ParamMessageType+"="+mt)
	}
	if ver := get(ParamVersion); ver != VersionLTI1 {
		return nil, Reject(ReasonMissingField, ParamVersion+"="+ver)
	}
	consumerKey := get(OAuthConsumerKey)
	if consumerKey == "" {
		return nil, Reject(ReasonMissingField, OAuthConsumerKey)
	}
	resourceLinkID := get(ParamResourceLinkID)
	if resourceLinkID == "" {
		return nil, Reject(ReasonMissingField, ParamResourceLinkID)
	}
	userID := get(ParamUserID)
	if userID == "" {
		return nil, Reject(ReasonMissingField, ParamUserID)
	}

	toolID := strings.TrimSpace(req.ToolID)
	if toolID == "" {
		return nil, Reject(ReasonMissingField, "tool id")
	}
	if !contains(v.Config.AllowedTools, toolID) {
		return nil, Reject(ReasonToolNotAllowed, "tool="+toolID)
	}
	if v.Tools == nil || !v.Tools.HasTool(toolID) {
		return nil, Reject(ReasonToolNotFound, "tool="+toolID)
	}

	trusted := contains(v.Config.TrustedConsumers, consumerKey)

	contextID := get(ParamContextID)
	if contextID == "" {
		if trusted {
			// No namespacing fallback exists for a trusted consumer.
			return nil, Reject(ReasonContextRequired, "consumer="+consumerKey)
		}
		contextID = FallbackContextID(resourceLinkID)
	}

	secret := v.Secrets.Resolve(DatumSecret, consumerKey, hostOf(req.URL))
	if secret == "" || !v.Secrets.Known(consumerKey) {
		return nil, Reject(ReasonUnknownConsumer, "consumer="+consumerKey)
	}
	if err := Verify(req.Params, req.URL, req.Method, secret); err != nil {
		return nil, RejectErr(ReasonSignatureInvalid, "consumer="+consumerKey, err)
	}

	lr := &LaunchRequest{
		Payload:     FromValues(req.Params),
		ToolID:      toolID,
		ConsumerKey: consumerKey,
		Trusted:     trusted,
		ContextID:   contextID,
		SiteID:      SiteID(trusted, consumerKey, contextID),
		UserID:      userID,
	}
	if !trusted {
		lr.EID = EID(consumerKey, userID)
	}
	return lr, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func hostOf(rawurl string) string {
	u, err := url.Parse(rawurl)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
