package provider

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/lti-gateway/internal/rbac"
	"github.com/mind-engage/lti-gateway/pkg/blti"
)

// Placement config property naming, shared with the launcher side.
const (
	PropResourceLink     = "blti:resource_link_id"
	PropFunctionsRequire = "functions.require"
)

// Catalog is the deployed tool registry (id -> display title). It
// satisfies blti.ToolCatalog.
type Catalog map[string]string

func (c Catalog) HasTool(id string) bool {
	_, ok := c[id]
	return ok
}

func (c Catalog) Title(id string) string {
	if t := c[id]; t != "" {
		return t
	}
	return id
}

// Outcome reports each provisioning step separately so a caller can
// tell a fresh launch from an idempotent re-launch.
type Outcome struct {
	User        User
	Site        Site
	Role        string
	PlacementID string

	CreatedUser       bool
	CreatedSite       bool
	UpdatedMembership bool
	CreatedPlacement  bool
}

// Service turns a validated launch into local state. No step is
// retried internally; each failure maps to a terminal reject.
type Service struct {
	Users UserDirectory
	Sites SiteStore
	Tools Catalog
	Perms *rbac.Checker
}

// Launch provisions (or re-finds) the user, site, membership and tool
// placement for one validated launch. Trusted launches never create
// anything: every referenced record must already exist.
func (s *Service) Launch(ctx context.Context, lr *blti.LaunchRequest) (*Outcome, *blti.LaunchError) {
	out := &Outcome{}

	user, lerr := s.ensureUser(ctx, lr, out)
	if lerr != nil {
		return nil, lerr
	}
	out.User = user

	site, lerr := s.ensureSite(ctx, lr, out)
	if lerr != nil {
		return nil, lerr
	}
	out.Site = site

	role, lerr := s.ensureMembership(ctx, lr, site, user, out)
	if lerr != nil {
		return nil, lerr
	}
	out.Role = role

	placement, lerr := s.ensurePlacement(ctx, lr, site, out)
	if lerr != nil {
		return nil, lerr
	}
	out.PlacementID = placement.ID

	if expr := placement.Config[PropFunctionsRequire]; expr != "" {
		checker := s.Perms
		if checker == nil {
			checker = rbac.NewChecker(nil)
		}
		if !rbac.VisibleTo(expr, func(perm string) bool { return checker.Has(role, perm) }) {
			return nil, blti.Reject(blti.ReasonToolNotAllowed,
				"user="+user.ID+" site="+site.ID+" tool="+lr.ToolID)
		}
	}

	return out, nil
}

func (s *Service) ensureUser(ctx context.Context, lr *blti.LaunchRequest, out *Outcome) (User, *blti.LaunchError) {
	if lr.Trusted {
		// Trust implies the account already exists; no implicit creation.
		u, err := s.Users.GetByID(ctx, lr.UserID)
		if err != nil {
			return User{}, blti.RejectErr(blti.ReasonUserInvalid, "user_id="+lr.UserID, err)
		}
		return u, nil
	}

	u, err := s.Users.GetByEID(ctx, lr.EID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, blti.RejectErr(blti.ReasonProvisioningFailed, "lookup eid="+lr.EID, err)
	}

	first, last := blti.SplitName(
		lr.Payload.Get(blti.ParamPersonNameGiven),
		lr.Payload.Get(blti.ParamPersonNameFamily),
		lr.Payload.Get(blti.ParamPersonNameFull),
	)
	// The account is only ever entered through launches; the password
	// is an unguessable placeholder.
	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return User{}, blti.RejectErr(blti.ReasonProvisioningFailed, "password hash", err)
	}
	u, err = s.Users.Create(ctx, User{
		ID:        uuid.NewString(),
		EID:       lr.EID,
		FirstName: first,
		LastName:  last,
		Email:     lr.Payload.Get(blti.ParamPersonEmail),
	}, string(hash))
	if err != nil {
		return User{}, blti.RejectErr(blti.ReasonProvisioningFailed, "create user eid="+lr.EID, err)
	}
	out.CreatedUser = true
	return u, nil
}

func (s *Service) ensureSite(ctx context.Context, lr *blti.LaunchRequest, out *Outcome) (Site, *blti.LaunchError) {
	site, err := s.Sites.GetSite(ctx, lr.SiteID)
	if err == nil {
		return site, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Site{}, blti.RejectErr(blti.ReasonProvisioningFailed, "lookup site="+lr.SiteID, err)
	}
	if lr.Trusted {
		return Site{}, blti.Reject(blti.ReasonSiteInvalid, "site="+lr.SiteID)
	}

	siteType := "project"
	if strings.EqualFold(lr.Payload.Get(blti.ParamContextType), "course") {
		siteType = "course"
	}
	roles := defaultRoles(siteType)
	site = Site{
		ID:           lr.SiteID,
		Type:         siteType,
		Title:        lr.Payload.Get(blti.ParamContextTitle),
		ShortDesc:    lr.Payload.Get(blti.ParamContextLabel),
		Joinable:     false,
		Published:    true,
		MaintainRole: roles[0],
		JoinerRole:   roles[1],
		LTIContextID: lr.ContextID,
	}
	if err := s.Sites.CreateSite(ctx, site, roles); err != nil {
		return Site{}, blti.RejectErr(blti.ReasonProvisioningFailed, "create site="+lr.SiteID, err)
	}
	out.CreatedSite = true

	// Re-read: a concurrent launch may have won the insert, which is
	// fine — same derived id means the same external context.
	site, err = s.Sites.GetSite(ctx, lr.SiteID)
	if err != nil {
		return Site{}, blti.RejectErr(blti.ReasonProvisioningFailed, "reread site="+lr.SiteID, err)
	}
	return site, nil
}

func defaultRoles(siteType string) []string {
	if siteType == "course" {
		return []string{"Instructor", "Student"}
	}
	return []string{"maintain", "access"}
}

func (s *Service) ensureMembership(ctx context.Context, lr *blti.LaunchRequest, site Site, user User, out *Outcome) (string, *blti.LaunchError) {
	member, err := s.Sites.GetMember(ctx, site.ID, user.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", blti.RejectErr(blti.ReasonProvisioningFailed, "lookup member site="+site.ID, err)
	}
	exists := err == nil

	if lr.Trusted {
		// Trusted launches never run role mapping; the consumer has
		// already placed the user.
		if !exists {
			return "", blti.Reject(blti.ReasonUserMissing, "user="+user.ID+" site="+site.ID)
		}
		return member.Role, nil
	}

	roles, err := s.Sites.SiteRoles(ctx, site.ID)
	if err != nil {
		return "", blti.RejectErr(blti.ReasonProvisioningFailed, "roles site="+site.ID, err)
	}
	role, lerr := blti.MapRole(lr.Payload.Get(blti.ParamRoles), blti.RoleSet{
		Roles:        roles,
		MaintainRole: site.MaintainRole,
		JoinerRole:   site.JoinerRole,
	})
	if lerr != nil {
		return "", lerr
	}
	// A matching membership stays untouched; a changed external role
	// (promotion or demotion) is written through.
	if exists && member.Role == role {
		return role, nil
	}
	if err := s.Sites.PutMember(ctx, Membership{SiteID: site.ID, UserID: user.ID, Role: role}); err != nil {
		return "", blti.RejectErr(blti.ReasonProvisioningFailed, "add member site="+site.ID, err)
	}
	out.UpdatedMembership = true
	return role, nil
}

func (s *Service) ensurePlacement(ctx context.Context, lr *blti.LaunchRequest, site Site, out *Outcome) (Placement, *blti.LaunchError) {
	placement, err := s.Sites.FindPlacement(ctx, site.ID, lr.ToolID)
	if err == nil {
		return placement, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Placement{}, blti.RejectErr(blti.ReasonProvisioningFailed, "lookup placement tool="+lr.ToolID, err)
	}
	if lr.Trusted {
		return Placement{}, blti.Reject(blti.ReasonToolNotFound, "tool="+lr.ToolID+" site="+site.ID)
	}

	page := Page{ID: uuid.NewString(), SiteID: site.ID, Title: s.Tools.Title(lr.ToolID)}
	placement = Placement{
		ID:     uuid.NewString(),
		PageID: page.ID,
		SiteID: site.ID,
		ToolID: lr.ToolID,
		Title:  s.Tools.Title(lr.ToolID),
		Config: map[string]string{
			PropResourceLink: lr.Payload.Get(blti.ParamResourceLinkID),
		},
	}
	if err := s.Sites.AddPlacement(ctx, page, placement); err != nil {
		return Placement{}, blti.RejectErr(blti.ReasonProvisioningFailed, "add placement tool="+lr.ToolID, err)
	}
	out.CreatedPlacement = true
	return placement, nil
}
