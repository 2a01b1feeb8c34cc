package hooks

import "testing"

func TestFilter_EmptyPassesEverything(t *testing.T) {
	var f Filter
	if !f.Passes(MessageEvent{AuthorID: "anyone"}) {
		t.Fatal("zero filter should pass")
	}
}

func TestFilter_UserAllowlist(t *testing.T) {
	f := Filter{Users: []string{"u1", "u2"}}

	if !f.Passes(MessageEvent{AuthorID: "u2"}) {
		t.Fatal("listed user should pass")
	}
	if f.Passes(MessageEvent{AuthorID: "u3"}) {
		t.Fatal("unlisted user should be rejected")
	}
}

func TestFilter_RoleIntersection(t *testing.T) {
	f := Filter{Roles: []string{"mod", "admin"}}

	if !f.Passes(MessageEvent{AuthorID: "u1", AuthorRoles: []string{"member", "mod"}}) {
		t.Fatal("intersecting role should pass")
	}
	if f.Passes(MessageEvent{AuthorID: "u1", AuthorRoles: []string{"member"}}) {
		t.Fatal("disjoint roles should be rejected")
	}
	if f.Passes(MessageEvent{AuthorID: "u1"}) {
		t.Fatal("no roles should be rejected")
	}
}

func TestFilter_UserOrRole(t *testing.T) {
	f := Filter{Users: []string{"u1"}, Roles: []string{"mod"}}

	// Either clause is sufficient.
	if !f.Passes(MessageEvent{AuthorID: "u1"}) {
		t.Fatal("listed user should pass without roles")
	}
	if !f.Passes(MessageEvent{AuthorID: "u9", AuthorRoles: []string{"mod"}}) {
		t.Fatal("listed role should pass for unlisted user")
	}
	if f.Passes(MessageEvent{AuthorID: "u9", AuthorRoles: []string{"member"}}) {
		t.Fatal("neither clause matched, should be rejected")
	}
}
