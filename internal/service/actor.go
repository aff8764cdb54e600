package service

import "github.com/iliyamo/rentable/internal/model"

// requireUser rejects anonymous and banned callers.
func requireUser(actor *model.User) error {
	if actor == nil || actor.ID == 0 {
		return ErrUnauthenticated
	}
	if actor.IsBanned {
		return forbidden("account is banned")
	}
	return nil
}

// requireAdmin rejects callers without the admin role.
func requireAdmin(actor *model.User) error {
	if err := requireUser(actor); err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return forbidden("admin role required")
	}
	return nil
}
