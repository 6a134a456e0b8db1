// Package launcher implements the outbound (tool consumer) side: it
// turns a stored tool placement plus the session user into a signed
// Basic LTI launch the browser can POST to the external tool.
package launcher

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/mind-engage/lti-gateway/internal/provider"
	"github.com/mind-engage/lti-gateway/internal/rbac"
	"github.com/mind-engage/lti-gateway/pkg/blti"
)

// Placement config property names for externally configured tools.
const (
	PropLaunch       = "launch"
	PropSecureLaunch = "secure_launch"
	PropKey          = "key"
	PropSecret       = "secret"
	PropReleaseName  = "releasename"
	PropReleaseEmail = "releaseemail"
	PropCustom       = "custom"
	PropDebug        = "debug"
	PropPageTitle    = "pagetitle"
	PropToolTitle    = "tooltitle"
)

var ErrNoCredentials = errors.New("launcher: no signing key/secret for placement")

// Launch is a ready-to-render outbound launch.
type Launch struct {
	PostData  string `json:"post_data"`
	LaunchURL string `json:"launch_url"`
}

// Service assembles and signs outbound launches.
type Service struct {
	Sites provider.SiteStore
	Users provider.UserDirectory
	Perms *rbac.Checker

	Org     blti.OrgInfo
	Secrets *blti.SecretResolver
	// OAuthCallback is sent verbatim; one-legged launches have no
	// callback so this is normally "about:blank".
	OAuthCallback string
}

// Launch builds, signs and renders the launch for one placement on
// behalf of the session user identified by userID/role.
func (s *Service) Launch(ctx context.Context, placementID, userID, role string) (*Launch, error) {
	placement, err := s.Sites.GetPlacement(ctx, placementID)
	if err != nil {
		return nil, err
	}
	site, err := s.Sites.GetSite(ctx, placement.SiteID)
	if err != nil {
		return nil, err
	}
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	pc := placementConfig(placement)
	resourceLinkID := placement.Config[provider.PropResourceLink]
	if resourceLinkID == "" {
		resourceLinkID = placement.ID
	}

	payload, launchURL, err := blti.BuildLaunch(resourceLinkID, pc,
		userInfo(user), contextInfo(site), ltiRole(s.Perms, role), s.Org)
	if err != nil {
		return nil, err
	}
	payload.Set(blti.OAuthCallback, s.OAuthCallback)
	payload.Set(blti.ParamSubmitText, "Press to Launch External Tool")

	key, secret, err := s.credentials(pc, launchURL)
	if err != nil {
		return nil, err
	}
	signed, err := blti.Sign(payload, launchURL, "POST", key, secret)
	if err != nil {
		return nil, err
	}
	post, err := blti.PostData(signed, launchURL, pc.Debug)
	if err != nil {
		return nil, err
	}
	return &Launch{PostData: post, LaunchURL: launchURL}, nil
}

// credentials picks the signing pair: host-scoped organization
// credentials win, the placement's own key/secret is the fallback.
// Half a pair is as useless as none.
func (s *Service) credentials(pc blti.PlacementConfig, launchURL string) (string, string, error) {
	host := ""
	if u, err := url.Parse(launchURL); err == nil {
		host = u.Hostname()
	}
	if s.Secrets != nil {
		key := s.Secrets.Resolve(blti.DatumKey, "", host)
		secret := s.Secrets.Resolve(blti.DatumSecret, "", host)
		if key != "" && secret != "" {
			return key, secret, nil
		}
	}
	if pc.Key != "" && pc.Secret != "" {
		return pc.Key, pc.Secret, nil
	}
	return "", "", ErrNoCredentials
}

// ltiRole collapses the local role onto the two conventional launch
// roles the LTI 1.x consumer side sends.
func ltiRole(perms *rbac.Checker, role string) string {
	if perms != nil && perms.Has(role, "site:update") {
		return "Instructor"
	}
	return "Learner"
}

func placementConfig(p provider.Placement) blti.PlacementConfig {
	get := func(name string) string { return strings.TrimSpace(p.Config[name]) }
	pc := blti.PlacementConfig{
		LaunchURL:       get(PropLaunch),
		SecureLaunchURL: get(PropSecureLaunch),
		Key:             get(PropKey),
		Secret:          get(PropSecret),
		PageTitle:       get(PropPageTitle),
		ToolTitle:       get(PropToolTitle),
		ReleaseName:     confBool(get(PropReleaseName)),
		ReleaseEmail:    confBool(get(PropReleaseEmail)),
		Custom:          p.Config[PropCustom],
		Debug:           confBool(get(PropDebug)),
	}
	if pc.PageTitle == "" {
		pc.PageTitle = p.Title
	}
	if pc.ToolTitle == "" {
		pc.ToolTitle = pc.PageTitle
	}
	return pc
}

// confBool reads the checkbox-style values placement properties use.
func confBool(v string) bool {
	switch strings.ToLower(v) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

func userInfo(u provider.User) blti.UserInfo {
	display := strings.TrimSpace(u.FirstName + " " + u.LastName)
	return blti.UserInfo{
		ID:          u.ID,
		GivenName:   u.FirstName,
		FamilyName:  u.LastName,
		DisplayName: display,
		Email:       u.Email,
		SourcedID:   u.EID,
	}
}

func contextInfo(s provider.Site) blti.ContextInfo {
	return blti.ContextInfo{
		ID:    s.ID,
		Type:  s.Type,
		Title: s.Title,
		Label: s.ShortDesc,
	}
}
