package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/iliyamo/rentable/internal/model"
	"github.com/iliyamo/rentable/internal/repository"
)

// ProfileService reads and edits user profiles.
type ProfileService struct {
	store repository.Store
}

// NewProfileService returns a ProfileService.
func NewProfileService(store repository.Store) *ProfileService {
	return &ProfileService{store: store}
}

// Me returns the caller's full user record.
func (s *ProfileService) Me(ctx context.Context, actor *model.User) (model.User, error) {
	if actor == nil || actor.ID == 0 {
		return model.User{}, ErrUnauthenticated
	}
	u, err := s.store.Users().GetByID(ctx, actor.ID)
	return u, fromRepo(err, "user")
}

func checkLen(field string, v *string, limit int) error {
	if v == nil {
		return nil
	}
	*v = strings.TrimSpace(*v)
	if utf8.RuneCountInString(*v) > limit {
		return invalid("%s must be at most %d characters", field, limit)
	}
	return nil
}

// Update edits the caller's profile.
func (s *ProfileService) Update(ctx context.Context, actor *model.User, p model.ProfileUpdate) (model.User, error) {
	if err := requireUser(actor); err != nil {
		return model.User{}, err
	}
	for _, f := range []struct {
		name  string
		v     *string
		limit int
	}{
		{"display name", p.DisplayName, 100},
		{"bio", p.Bio, 1000},
		{"location", p.Location, 255},
		{"zip code", p.ZipCode, 20},
		{"phone", p.Phone, 32},
	} {
		if err := checkLen(f.name, f.v, f.limit); err != nil {
			return model.User{}, err
		}
	}
	if p.AccessibilityMode != nil && !p.AccessibilityMode.Valid() {
		return model.User{}, invalid("unknown accessibility mode %q", *p.AccessibilityMode)
	}
	if err := s.store.Users().UpdateProfile(ctx, actor.ID, p); err != nil {
		return model.User{}, fromRepo(err, "user")
	}
	u, err := s.store.Users().GetByID(ctx, actor.ID)
	return u, fromRepo(err, "user")
}

// Public returns the profile other users may see.
func (s *ProfileService) Public(ctx context.Context, id uint64) (model.PublicProfile, error) {
	u, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return model.PublicProfile{}, fromRepo(err, "user")
	}
	return model.PublicProfile{
		ID: u.ID, DisplayName: u.DisplayName, Bio: u.Bio, Location: u.Location,
		AvatarURL: u.AvatarURL, Role: u.Role, CreatedAt: u.CreatedAt,
	}, nil
}
