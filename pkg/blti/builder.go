// pkg/blti/builder.go
package blti

import (
	"errors"
	"strings"
)

// ErrNotConfigured means a placement has neither a launch URL nor a
// secure launch URL and therefore cannot launch at all.
var ErrNotConfigured = errors.New("blti: placement has no launch url")

// UserInfo carries the launching user, supplied by the host system.
type UserInfo struct {
	ID          string
	GivenName   string
	FamilyName  string
	DisplayName string
	Email       string
	SourcedID   string
	Locale      string
}

// ContextInfo carries the course/site the launch occurs within.
type ContextInfo struct {
	ID              string
	Type            string
	Title           string
	Label           string
	CourseSourcedID string
}

// OrgInfo carries organization-wide consumer-instance fields. Every
// field is optional and simply omitted when empty.
type OrgInfo struct {
	GUID      string
	Name      string
	URL       string
	CSSURL    string
	ReturnURL string
}

// PlacementConfig is the per-placement launch configuration (the tool
// placement's stored properties).
type PlacementConfig struct {
	LaunchURL       string
	SecureLaunchURL string
	Key             string
	Secret          string
	PageTitle       string
	ToolTitle       string
	ReleaseName     bool
	ReleaseEmail    bool
	Custom          string
	Debug           bool
}

// BuildLaunch assembles the full outbound parameter set for one launch
// attempt and picks the launch URL (secure wins over plain). The
// payload is unsigned; callers resolve credentials and call Sign.
func BuildLaunch(resourceLinkID string, pc PlacementConfig, user UserInfo, ctx ContextInfo, role string, org OrgInfo) (*Payload, string, error) {
	launchURL := strings.TrimSpace(pc.SecureLaunchURL)
	if launchURL == "" {
		launchURL = strings.TrimSpace(pc.LaunchURL)
	}
	if launchURL == "" {
		return nil, "", ErrNotConfigured
	}

	p := NewPayload()
	p.Set(ParamMessageType, MessageTypeLaunch)
	p.Set(ParamVersion, VersionLTI1)

	p.Set(ParamResourceLinkID, resourceLinkID)
	p.Set(ParamResourceLinkTitle, pc.PageTitle)
	p.Set(ParamResourceLinkDesc, pc.ToolTitle)

	if user.ID != "" {
		p.Set(ParamUserID, user.ID)
		p.Set(ParamLocale, user.Locale)
		if pc.ReleaseName {
			p.Set(ParamPersonNameGiven, user.GivenName)
			p.Set(ParamPersonNameFamily, user.FamilyName)
			p.Set(ParamPersonNameFull, user.DisplayName)
		}
		if pc.ReleaseEmail {
			p.Set(ParamPersonEmail, user.Email)
			p.Set(ParamPersonSourcedID, user.SourcedID)
		}
	}

	p.Set(ParamRoles, role)

	if ctx.ID != "" {
		if strings.Contains(strings.ToLower(ctx.Type), "course") {
			p.Set(ParamContextType, ContextTypeCourseOffering)
		}
		p.Set(ParamContextID, ctx.ID)
		p.Set(ParamContextLabel, ctx.Label)
		p.Set(ParamContextTitle, ctx.Title)
		p.Set(ParamCourseSourcedID, ctx.CourseSourcedID)
	}

	p.Set(ParamInstanceGUID, org.GUID)
	p.Set(ParamInstanceName, org.Name)
	p.Set(ParamInstanceURL, org.URL)
	p.Set(ParamInstanceCSS, org.CSSURL)
	p.Set(ParamReturnURL, org.ReturnURL)

	for _, kv := range ParseCustomParameters(pc.Custom) {
		p.Set("custom_"+kv[0], kv[1])
	}

	return p, launchURL, nil
}

// ParseCustomParameters splits a semicolon-or-newline delimited string
// of key=value pairs. Keys are case-folded; a key containing anything
// but [a-z0-9_] causes the whole pair to be skipped, as does a missing
// '=' or a value that trims to empty. Malformed input is never an
// error, the bad pairs just vanish.
func ParseCustomParameters(raw string) [][2]string {
	var out [][2]string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ';' || r == '\n' }) {
		eq := strings.Index(part, "=")
		if eq < 1 {
			continue
		}
		key := mapCustomKey(part[:eq])
		if key == "" {
			continue
		}
		value := strings.TrimSpace(part[eq+1:])
		if value == "" {
			continue
		}
		out = append(out, [2]string{key, value})
	}
	return out
}

func mapCustomKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		ok := (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_'
		if !ok {
			return ""
		}
	}
	return s
}
