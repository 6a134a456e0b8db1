package provider

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// SQLStore implements UserDirectory and SiteStore over database/sql
// (pgx or modernc sqlite; both accept $N placeholders).
type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

// ---- UserDirectory ----

func (s *SQLStore) GetByID(ctx context.Context, id string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id,eid,first_name,last_name,email,user_type FROM users WHERE id=$1`, id))
}

func (s *SQLStore) GetByEID(ctx context.Context, eid string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id,eid,first_name,last_name,email,user_type FROM users WHERE eid=$1`, eid))
}

func (s *SQLStore) scanUser(row *sql.Row) (User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.EID, &u.FirstName, &u.LastName, &u.Email, &u.Type); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func (s *SQLStore) Create(ctx context.Context, u User, passwordHash string) (User, error) {
	if u.Type == "" {
		u.Type = "registered"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id,eid,first_name,last_name,email,password_hash,user_type,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 ON CONFLICT (eid) DO NOTHING`,
		u.ID, u.EID, u.FirstName, u.LastName, u.Email, passwordHash, u.Type, time.Now().Unix())
	if err != nil {
		return User{}, err
	}
	// Re-read so a lost creation race still returns the winner's row.
	return s.GetByEID(ctx, u.EID)
}

// ---- SiteStore ----

func (s *SQLStore) GetSite(ctx context.Context, id string) (Site, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,site_type,title,short_desc,joinable,published,maintain_role,joiner_role,lti_context_id
		 FROM sites WHERE id=$1`, id)
	var st Site
	if err := row.Scan(&st.ID, &st.Type, &st.Title, &st.ShortDesc, &st.Joinable, &st.Published,
		&st.MaintainRole, &st.JoinerRole, &st.LTIContextID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Site{}, ErrNotFound
		}
		return Site{}, err
	}
	return st, nil
}

func (s *SQLStore) CreateSite(ctx context.Context, st Site, roles []string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sites (id,site_type,title,short_desc,joinable,published,maintain_role,joiner_role,lti_context_id,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 ON CONFLICT (id) DO NOTHING`,
		st.ID, st.Type, st.Title, st.ShortDesc, st.Joinable, st.Published,
		st.MaintainRole, st.JoinerRole, st.LTIContextID, time.Now().Unix())
	if err != nil {
		return err
	}
	for _, role := range roles {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO site_roles (site_id,role_id) VALUES ($1,$2)
			 ON CONFLICT (site_id,role_id) DO NOTHING`, st.ID, role); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) SiteRoles(ctx context.Context, siteID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role_id FROM site_roles WHERE site_id=$1 ORDER BY role_id`, siteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetMember(ctx context.Context, siteID, userID string) (Membership, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT site_id,user_id,role_id FROM site_members WHERE site_id=$1 AND user_id=$2`,
		siteID, userID)
	var m Membership
	if err := row.Scan(&m.SiteID, &m.UserID, &m.Role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Membership{}, ErrNotFound
		}
		return Membership{}, err
	}
	return m, nil
}

func (s *SQLStore) PutMember(ctx context.Context, m Membership) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO site_members (site_id,user_id,role_id,active,provided)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (site_id,user_id) DO UPDATE SET role_id=EXCLUDED.role_id`,
		m.SiteID, m.UserID, m.Role, true, false)
	return err
}

func (s *SQLStore) FindPlacement(ctx context.Context, siteID, toolID string) (Placement, error) {
	return s.scanPlacement(s.db.QueryRowContext(ctx,
		`SELECT id,page_id,site_id,tool_id,title,config_json
		 FROM placements WHERE site_id=$1 AND tool_id=$2`, siteID, toolID))
}

func (s *SQLStore) GetPlacement(ctx context.Context, id string) (Placement, error) {
	return s.scanPlacement(s.db.QueryRowContext(ctx,
		`SELECT id,page_id,site_id,tool_id,title,config_json FROM placements WHERE id=$1`, id))
}

func (s *SQLStore) scanPlacement(row *sql.Row) (Placement, error) {
	var p Placement
	var cfg string
	if err := row.Scan(&p.ID, &p.PageID, &p.SiteID, &p.ToolID, &p.Title, &cfg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Placement{}, ErrNotFound
		}
		return Placement{}, err
	}
	if cfg != "" {
		if err := json.Unmarshal([]byte(cfg), &p.Config); err != nil {
			return Placement{}, err
		}
	}
	return p, nil
}

func (s *SQLStore) AddPlacement(ctx context.Context, page Page, p Placement) error {
	cfg, err := json.Marshal(p.Config)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO site_pages (id,site_id,title) VALUES ($1,$2,$3)
		 ON CONFLICT (id) DO NOTHING`, page.ID, page.SiteID, page.Title); err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO placements (id,page_id,site_id,tool_id,title,config_json,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		p.ID, p.PageID, p.SiteID, p.ToolID, p.Title, string(cfg), time.Now().Unix())
	return err
}
