package hooks

// Filter restricts a hook to specific users or roles. A zero Filter is
// unrestricted and passes every message.
type Filter struct {
	Users []string
	Roles []string
}

// Passes reports whether the event's author clears the filter: unrestricted,
// or author ID listed in Users, or any author role listed in Roles.
func (f Filter) Passes(event MessageEvent) bool {
	if len(f.Users) == 0 && len(f.Roles) == 0 {
		return true
	}
	for _, id := range f.Users {
		if id == event.AuthorID {
			return true
		}
	}
	for _, want := range f.Roles {
		for _, have := range event.AuthorRoles {
			if want == have {
				return true
			}
		}
	}
	return false
}
