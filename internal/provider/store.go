// Package provider implements the inbound (tool provider) side of the
// gateway: validating a signed launch, then provisioning the local
// user, site, membership and tool placement the launch lands in.
package provider

import (
	"context"
	"errors"
)

// ErrNotFound is returned by lookups for absent rows.
var ErrNotFound = errors.New("not found")

type User struct {
	ID        string
	EID       string
	FirstName string
	LastName  string
	Email     string
	Type      string
}

type Site struct {
	ID           string
	Type         string // course | project
	Title        string
	ShortDesc    string
	Joinable     bool
	Published    bool
	MaintainRole string
	JoinerRole   string
	// LTIContextID keeps the original external context_id for
	// traceability; the row id is the derived local id.
	LTIContextID string
}

type Membership struct {
	SiteID string
	UserID string
	Role   string
}

type Page struct {
	ID     string
	SiteID string
	Title  string
}

type Placement struct {
	ID     string
	PageID string
	SiteID string
	ToolID string
	Title  string
	Config map[string]string
}

// UserDirectory resolves and provisions local accounts. The launch
// flow calls it through a trusted internal entry point: these writes
// bypass the ordinary authorization layer by construction.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (User, error)
	GetByEID(ctx context.Context, eid string) (User, error)
	Create(ctx context.Context, u User, passwordHash string) (User, error)
}

// SiteStore owns sites, their roles, memberships and tool placements.
// CreateSite and AddPlacement must treat duplicate keys as idempotent
// success: concurrent launches for the same triple race on creation
// and the loser must not fail the launch.
type SiteStore interface {
	GetSite(ctx context.Context, id string) (Site, error)
	CreateSite(ctx context.Context, s Site, roles []string) error
	SiteRoles(ctx context.Context, siteID string) ([]string, error)

	GetMember(ctx context.Context, siteID, userID string) (Membership, error)
	PutMember(ctx context.Context, m Membership) error

	FindPlacement(ctx context.Context, siteID, toolID string) (Placement, error)
	GetPlacement(ctx context.Context, id string) (Placement, error)
	AddPlacement(ctx context.Context, page Page, p Placement) error
}
