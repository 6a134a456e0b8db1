// pkg/blti/roles.go
package blti

import "strings"

// RoleSet describes the roles available in a target site. MaintainRole
// and JoinerRole may be empty, in which case MapRole resolves them by
// convention against the role list.
type RoleSet struct {
	Roles        []string
	MaintainRole string
	JoinerRole   string
}

// MapRole maps an external role string onto one of the site's roles.
//
// A case-insensitive direct match against the site's role list wins
// outright, so a site defining an exotic role that lines up with the
// consumer's naming gets it verbatim. Otherwise the maintain/joiner
// fallback applies: unset distinguished roles resolve against
// conventional names ("maintain"/"instructor", "access"/"student"),
// and any external role containing "instructor" maps to the maintain
// role when one exists, everything else to the joiner role. When
// neither distinguished role resolves the mapping fails rather than
// silently assigning no role.
func MapRole(externalRole string, set RoleSet) (string, *LaunchError) {
	ltiRole := strings.ToLower(strings.TrimSpace(externalRole))

	for _, r := range set.Roles {
		if strings.EqualFold(r, ltiRole) {
			return r, nil
		}
	}

	maintain := set.MaintainRole
	joiner := set.JoinerRole
	for _, r := range set.Roles {
		if maintain == "" && (strings.EqualFold(r, "maintain") || strings.EqualFold(r, "instructor")) {
			maintain = r
		}
		if joiner == "" && (strings.EqualFold(r, "access") || strings.EqualFold(r, "student")) {
			joiner = r
		}
	}

	newRole := joiner
	if strings.Contains(ltiRole, "instructor") && maintain != "" {
		newRole = maintain
	}
	if newRole == "" {
		return "", Reject(ReasonRoleUnresolved, "role="+externalRole)
	}
	return newRole, nil
}
