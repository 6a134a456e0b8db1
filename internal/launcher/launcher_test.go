package launcher_test

import (
	"context"
	"strings"
	"testing"

	"github.com/mind-engage/lti-gateway/internal/launcher"
	"github.com/mind-engage/lti-gateway/internal/provider"
	"github.com/mind-engage/lti-gateway/internal/rbac"
	"github.com/mind-engage/lti-gateway/pkg/blti"
)

/* ---------------- minimal read-only fakes ---------------- */

type fixedUsers map[string]provider.User

func (f fixedUsers) GetByID(_ context.Context, id string) (provider.User, error) {
	u, ok := f[id]
	if !ok {
		return provider.User{}, provider.ErrNotFound
	}
	return u, nil
}
func (f fixedUsers) GetByEID(context.Context, string) (provider.User, error) {
	return provider.User{}, provider.ErrNotFound
}
func (f fixedUsers) Create(_ context.Context, u provider.User, _ string) (provider.User, error) {
	return u, nil
}

type fixedSites struct {
	sites      map[string]provider.Site
	placements map[string]provider.Placement
}

func (f *fixedSites) GetSite(_ context.Context, id string) (provider.Site, error) {
	s, ok := f.sites[id]
	if !ok {
		return provider.Site{}, provider.ErrNotFound
	}
	return s, nil
}
func (f *fixedSites) CreateSite(context.Context, provider.Site, []string) error { return nil }
func (f *fixedSites) SiteRoles(context.Context, string) ([]string, error)       { return nil, nil }
func (f *fixedSites) GetMember(context.Context, string, string) (provider.Membership, error) {
	return provider.Membership{}, provider.ErrNotFound
}
func (f *fixedSites) PutMember(context.Context, provider.Membership) error { return nil }
func (f *fixedSites) FindPlacement(context.Context, string, string) (provider.Placement, error) {
	return provider.Placement{}, provider.ErrNotFound
}
func (f *fixedSites) GetPlacement(_ context.Context, id string) (provider.Placement, error) {
	p, ok := f.placements[id]
	if !ok {
		return provider.Placement{}, provider.ErrNotFound
	}
	return p, nil
}
func (f *fixedSites) AddPlacement(context.Context, provider.Page, provider.Placement) error {
	return nil
}

func testService(p provider.Placement, secrets *blti.SecretResolver) *launcher.Service {
	return &launcher.Service{
		Sites: &fixedSites{
			sites:      map[string]provider.Site{"site-1": {ID: "site-1", Type: "course", Title: "Intro Biology", ShortDesc: "BIO 101"}},
			placements: map[string]provider.Placement{p.ID: p},
		},
		Users: fixedUsers{"u-1": {ID: "u-1", EID: "jdoe", FirstName: "Jane", LastName: "Doe", Email: "jane@example.edu"}},
		Perms: rbac.NewChecker(nil),
		Org: blti.OrgInfo{
			GUID: "lms.example.edu",
			Name: "Example LMS",
		},
		Secrets:       secrets,
		OAuthCallback: "about:blank",
	}
}

func basePlacement() provider.Placement {
	return provider.Placement{
		ID:     "p-1",
		SiteID: "site-1",
		ToolID: "external.tool",
		Title:  "Chat",
		Config: map[string]string{
			launcher.PropLaunch:       "http://tool.example.com/launch",
			launcher.PropSecureLaunch: "https://tool.example.com/launch",
			launcher.PropReleaseName:  "on",
			launcher.PropCustom:       "chapter=1;section=intro",
		},
	}
}

func TestLaunchRendersSignedForm(t *testing.T) {
	secrets := &blti.SecretResolver{Global: blti.ConsumerEntry{
		Hosts: map[string]blti.Credential{
			"example.com": {Key: "org-key", Secret: "org-secret"},
		},
	}}
	svc := testService(basePlacement(), secrets)

	launch, err := svc.Launch(context.Background(), "p-1", "u-1", "Instructor")
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if launch.LaunchURL != "https://tool.example.com/launch" {
		t.Errorf("launch url = %q, want the secure url", launch.LaunchURL)
	}
	for _, want := range []string{
		`action="https://tool.example.com/launch"`,
		`name="oauth_signature"`,
		`name="oauth_consumer_key" value="org-key"`,
		`name="roles" value="Instructor"`,
		`name="lis_person_name_given" value="Jane"`,
		`name="custom_chapter" value="1"`,
		`name="custom_section" value="intro"`,
		`name="oauth_callback" value="about:blank"`,
		`onload="document.forms[0].submit()"`,
	} {
		if !strings.Contains(launch.PostData, want) {
			t.Errorf("post data missing %s", want)
		}
	}
	// Email was not released.
	if strings.Contains(launch.PostData, "jane@example.edu") {
		t.Error("post data leaks unreleased email")
	}
}

func TestLaunchPlacementCredentialFallback(t *testing.T) {
	p := basePlacement()
	p.Config[launcher.PropKey] = "local-key"
	p.Config[launcher.PropSecret] = "local-secret"
	svc := testService(p, &blti.SecretResolver{})

	launch, err := svc.Launch(context.Background(), "p-1", "u-1", "Student")
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if !strings.Contains(launch.PostData, `value="local-key"`) {
		t.Error("expected placement-local key")
	}
	if !strings.Contains(launch.PostData, `name="roles" value="Learner"`) {
		t.Error("student role should launch as Learner")
	}
}

func TestLaunchNoCredentials(t *testing.T) {
	svc := testService(basePlacement(), &blti.SecretResolver{})
	if _, err := svc.Launch(context.Background(), "p-1", "u-1", "Student"); err != launcher.ErrNoCredentials {
		t.Fatalf("err = %v, want ErrNoCredentials", err)
	}
}

func TestLaunchNoURLConfigured(t *testing.T) {
	p := basePlacement()
	delete(p.Config, launcher.PropLaunch)
	delete(p.Config, launcher.PropSecureLaunch)
	svc := testService(p, &blti.SecretResolver{})

	if _, err := svc.Launch(context.Background(), "p-1", "u-1", "Student"); err != blti.ErrNotConfigured {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestLaunchDebugForm(t *testing.T) {
	p := basePlacement()
	p.Config[launcher.PropDebug] = "true"
	secrets := &blti.SecretResolver{Global: blti.ConsumerEntry{Key: "k", Secret: "s"}}
	svc := testService(p, secrets)

	launch, err := svc.Launch(context.Background(), "p-1", "u-1", "Student")
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if strings.Contains(launch.PostData, "onload=") {
		t.Error("debug form must not auto-submit")
	}
	if !strings.Contains(launch.PostData, "Press to Launch External Tool") {
		t.Error("debug form missing submit button text")
	}
}
