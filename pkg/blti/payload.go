// pkg/blti/payload.go
//
// Basic LTI (IMS LTI 1.0/1.1) launch protocol primitives: payload
// assembly, OAuth 1.0a signing/verification, secret resolution,
// identity derivation and role mapping. This package owns no storage
// and no transport; callers inject both.
package blti

import (
	"html"
	"net/url"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Well-known Basic LTI parameter names.
const (
	ParamMessageType    = "lti_message_type"
	ParamVersion        = "lti_version"
	ParamResourceLinkID = "resource_link_id"
	ParamUserID         = "user_id"
	ParamContextID      = "context_id"
	ParamContextType    = "context_type"
	ParamContextTitle   = "context_title"
	ParamContextLabel   = "context_label"
	ParamRoles          = "roles"

	ParamResourceLinkTitle = "resource_link_title"
	ParamResourceLinkDesc  = "resource_link_description"

	ParamPersonNameGiven  = "lis_person_name_given"
	ParamPersonNameFamily = "lis_person_name_family"
	ParamPersonNameFull   = "lis_person_name_full"
	ParamPersonEmail      = "lis_person_contact_email_primary"
	ParamPersonSourcedID  = "lis_person_sourcedid"
	ParamCourseSourcedID  = "lis_course_offering_sourcedid"

	ParamLocale    = "launch_presentation_locale"
	ParamReturnURL = "launch_presentation_return_url"

	ParamInstanceGUID = "tool_consumer_instance_guid"
	ParamInstanceName = "tool_consumer_instance_name"
	ParamInstanceURL  = "tool_consumer_instance_url"
	ParamInstanceCSS  = "tool_consumer_instance_css_url"

	ParamSubmitText = "basiclti_submit"

	// Required literal values for a launch request.
	MessageTypeLaunch = "basic-lti-launch-request"
	VersionLTI1       = "LTI-1p0"

	// Context type emitted when the source context is course-like.
	ContextTypeCourseOffering = "CourseOffering"
)

var stripPolicy = bluemonday.StrictPolicy()

// CleanValue strips any markup from a parameter value. Values come from
// external systems and end up inside signed forms and redirects, so
// every value stored in a Payload goes through this.
func CleanValue(s string) string {
	return strings.TrimSpace(html.UnescapeString(stripPolicy.Sanitize(s)))
}

// Payload is an insertion-ordered set of launch parameters. Absent
// fields are omitted, never present-but-empty.
type Payload struct {
	keys   []string
	values map[string]string
}

func NewPayload() *Payload {
	return &Payload{values: map[string]string{}}
}

// Set sanitizes value and stores it under key. Values that sanitize to
// empty are dropped instead of being stored as empty strings. Setting
// an existing key replaces its value in place.
func (p *Payload) Set(key, value string) {
	p.put(key, CleanValue(value))
}

// put stores a machine-generated value verbatim (OAuth parameters,
// signatures). Empty values are still dropped.
func (p *Payload) put(key, value string) {
	if key == "" || value == "" {
		return
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

func (p *Payload) Get(key string) string { return p.values[key] }

func (p *Payload) Has(key string) bool {
	_, ok := p.values[key]
	return ok
}

func (p *Payload) Len() int { return len(p.keys) }

// Keys returns the parameter names in insertion order.
func (p *Payload) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

func (p *Payload) Clone() *Payload {
	c := NewPayload()
	for _, k := range p.keys {
		c.put(k, p.values[k])
	}
	return c
}

// Values converts the payload to url.Values, e.g. for posting.
func (p *Payload) Values() url.Values {
	v := url.Values{}
	for _, k := range p.keys {
		v.Set(k, p.values[k])
	}
	return v
}

// FromValues builds a normalized payload from raw request parameters.
// Multi-valued parameters keep their first value only.
func FromValues(v url.Values) *Payload {
	p := NewPayload()
	for k := range v {
		p.Set(k, v.Get(k))
	}
	// url.Values iteration order is random; keep the payload stable.
	sort.Strings(p.keys)
	return p
}
