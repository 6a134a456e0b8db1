package rbac

import "strings"

// VisibleTo evaluates a placement's "functions.require" expression:
// permission sets are separated by "|", permissions within a set by
// ",". A user sees the tool when every permission in at least one set
// holds. An empty expression means no restriction.
func VisibleTo(expr string, has func(perm string) bool) bool {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return true
	}
	for _, set := range strings.Split(expr, "|") {
		allowed := true
		for _, perm := range strings.Split(set, ",") {
			perm = strings.TrimSpace(perm)
			if perm == "" {
				continue
			}
			if !has(perm) {
				allowed = false
				break
			}
		}
		if allowed {
			return true
		}
	}
	return false
}
