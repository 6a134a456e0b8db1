package rbac

import "testing"

func TestCheckerHas(t *testing.T) {
	c := NewChecker(nil)

	if !c.Has("access", "tool:launch") {
		t.Error("access should launch tools")
	}
	if c.Has("access", "site:update") {
		t.Error("access must not update sites")
	}
	if !c.Has("maintain", "tool:launch") {
		t.Error("maintain should match tool:* wildcard")
	}
	if !c.Has("admin", "anything:at-all") {
		t.Error("admin has everything")
	}
	if c.Has("nobody", "site:visit") {
		t.Error("unknown role has nothing")
	}
}

func TestVisibleTo(t *testing.T) {
	has := func(perms ...string) func(string) bool {
		set := map[string]bool{}
		for _, p := range perms {
			set[p] = true
		}
		return func(p string) bool { return set[p] }
	}

	// No restriction.
	if !VisibleTo("", has()) {
		t.Error("empty expression must allow")
	}

	// Single set, all required.
	if !VisibleTo("site:visit,tool:launch", has("site:visit", "tool:launch")) {
		t.Error("full set should allow")
	}
	if VisibleTo("site:visit,tool:launch", has("site:visit")) {
		t.Error("partial set must deny")
	}

	// Alternative sets: any one complete set allows.
	if !VisibleTo("site:update|site:visit,tool:launch", has("site:visit", "tool:launch")) {
		t.Error("second set satisfied, should allow")
	}
	if VisibleTo("site:update|tool:grade", has("site:visit")) {
		t.Error("no set satisfied, must deny")
	}
}
