package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/rentable/internal/model"
	"github.com/iliyamo/rentable/internal/repository"
)

// AdminService holds moderation and back-office operations.  Every
// method requires the admin role.
type AdminService struct {
	store repository.Store
	log   zerolog.Logger
	now   func() time.Time
}

// NewAdminService returns an AdminService.
func NewAdminService(store repository.Store, log zerolog.Logger) *AdminService {
	return &AdminService{store: store, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Stats returns dashboard counts.
func (s *AdminService) Stats(ctx context.Context, actor *model.User) (model.DashboardStats, error) {
	if err := requireAdmin(actor); err != nil {
		return model.DashboardStats{}, err
	}
	var (
		st  model.DashboardStats
		err error
	)
	if st.Users, err = s.store.Users().Count(ctx); err != nil {
		return st, err
	}
	if st.Listings, err = s.store.Listings().Count(ctx); err != nil {
		return st, err
	}
	if st.Rentals, err = s.store.Rentals().Count(ctx); err != nil {
		return st, err
	}
	st.OpenTickets, err = s.store.Tickets().CountByStatus(ctx, model.TicketOpen)
	return st, err
}

// Users pages through all users.
func (s *AdminService) Users(ctx context.Context, actor *model.User, limit, offset int) ([]model.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.store.Users().List(ctx, limit, offset)
}

// SetRole promotes or demotes a user.  Admins cannot demote themselves.
func (s *AdminService) SetRole(ctx context.Context, actor *model.User, userID uint64, role model.Role) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if role != model.RoleUser && role != model.RoleAdmin {
		return invalid("unknown role %q", role)
	}
	if userID == actor.ID && role != model.RoleAdmin {
		return invalid("you cannot demote yourself")
	}
	if err := s.store.Users().SetRole(ctx, userID, role); err != nil {
		return fromRepo(err, "user")
	}
	s.log.Info().Uint64("admin_id", actor.ID).Uint64("user_id", userID).Str("role", string(role)).Msg("role changed")
	return nil
}

// Ban blocks a user.  A reason is required.
func (s *AdminService) Ban(ctx context.Context, actor *model.User, userID uint64, reason string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return invalid("ban reason is required")
	}
	if userID == actor.ID {
		return invalid("you cannot ban yourself")
	}
	err := s.store.InTx(ctx, func(st repository.Store) error {
		if err := st.Users().SetBan(ctx, userID, true, &reason); err != nil {
			return fromRepo(err, "user")
		}
		return st.RefreshTokens().RevokeAllForUser(ctx, userID)
	})
	if err != nil {
		return err
	}
	s.log.Warn().Uint64("admin_id", actor.ID).Uint64("user_id", userID).Str("reason", reason).Msg("user banned")
	return nil
}

// Unban lifts a ban and clears its reason.
func (s *AdminService) Unban(ctx context.Context, actor *model.User, userID uint64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return fromRepo(s.store.Users().SetBan(ctx, userID, false, nil), "user")
}

// Listings pages through every listing regardless of availability.
func (s *AdminService) Listings(ctx context.Context, actor *model.User, limit, offset int) ([]model.Listing, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.store.Listings().List(ctx, limit, offset)
}

// FlaggedListings returns the moderation queue.
func (s *AdminService) FlaggedListings(ctx context.Context, actor *model.User) ([]model.Listing, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.store.Listings().ListFlagged(ctx)
}

// ApproveListing verifies a listing and clears any flag.
func (s *AdminService) ApproveListing(ctx context.Context, actor *model.User, id uint64) (model.Listing, error) {
	if err := requireAdmin(actor); err != nil {
		return model.Listing{}, err
	}
	yes, no := true, false
	return s.patchListing(ctx, id, model.ListingPatch{IsVerified: &yes, IsFlagged: &no, ClearFlagReason: true})
}

// RemoveListing hides a listing and records why.  A rented listing is
// removed too; its active rental runs out without releasing it.
func (s *AdminService) RemoveListing(ctx context.Context, actor *model.User, id uint64, reason string) (model.Listing, error) {
	if err := requireAdmin(actor); err != nil {
		return model.Listing{}, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return model.Listing{}, invalid("removal reason is required")
	}
	var out model.Listing
	err := s.store.InTx(ctx, func(st repository.Store) error {
		_, err := st.Listings().GetByID(ctx, id)
		if err != nil {
			return fromRepo(err, "listing")
		}
		off, yes := model.AvailabilityUnavailable, true
		if err := st.Listings().Update(ctx, id, model.ListingPatch{Availability: &off, IsFlagged: &yes, FlagReason: &reason}); err != nil {
			return fromRepo(err, "listing")
		}
		out, err = st.Listings().GetByID(ctx, id)
		return fromRepo(err, "listing")
	})
	if err == nil {
		s.log.Warn().Uint64("admin_id", actor.ID).Uint64("listing_id", id).Str("reason", reason).Msg("listing removed")
	}
	return out, err
}

func (s *AdminService) patchListing(ctx context.Context, id uint64, p model.ListingPatch) (model.Listing, error) {
	if err := s.store.Listings().Update(ctx, id, p); err != nil {
		return model.Listing{}, fromRepo(err, "listing")
	}
	l, err := s.store.Listings().GetByID(ctx, id)
	return l, fromRepo(err, "listing")
}

// Rentals pages through all rentals.
func (s *AdminService) Rentals(ctx context.Context, actor *model.User, limit, offset int) ([]model.Rental, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.store.Rentals().List(ctx, limit, offset)
}

// Tickets lists support tickets, optionally by status.
func (s *AdminService) Tickets(ctx context.Context, actor *model.User, status *model.TicketStatus) ([]model.SupportTicket, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if status != nil && !status.Valid() {
		return nil, invalid("unknown ticket status %q", *status)
	}
	return s.store.Tickets().List(ctx, status)
}

// UpdateTicket triages a ticket.  Moving it to resolved stamps
// ResolvedAt.
func (s *AdminService) UpdateTicket(ctx context.Context, actor *model.User, id uint64, p model.TicketPatch) (model.SupportTicket, error) {
	if err := requireAdmin(actor); err != nil {
		return model.SupportTicket{}, err
	}
	if p.Status != nil && !p.Status.Valid() {
		return model.SupportTicket{}, invalid("unknown ticket status %q", *p.Status)
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return model.SupportTicket{}, invalid("unknown priority %q", *p.Priority)
	}
	p.AdminNotes = trimmed(p.AdminNotes)
	p.ResolvedAt = nil
	if p.Status != nil && *p.Status == model.TicketResolved {
		at := s.now()
		p.ResolvedAt = &at
	}
	if err := s.store.Tickets().Update(ctx, id, p); err != nil {
		return model.SupportTicket{}, fromRepo(err, "ticket")
	}
	t, err := s.store.Tickets().GetByID(ctx, id)
	return t, fromRepo(err, "ticket")
}

// Settings lists all admin settings.
func (s *AdminService) Settings(ctx context.Context, actor *model.User) ([]model.AdminSetting, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.store.Settings().List(ctx)
}

// Setting returns one setting.
func (s *AdminService) Setting(ctx context.Context, actor *model.User, key string) (model.AdminSetting, error) {
	if err := requireAdmin(actor); err != nil {
		return model.AdminSetting{}, err
	}
	st, err := s.store.Settings().Get(ctx, key)
	return st, fromRepo(err, "setting")
}

// SetSetting upserts a setting.  A nil value stores NULL.
func (s *AdminService) SetSetting(ctx context.Context, actor *model.User, key string, value *string) (model.AdminSetting, error) {
	if err := requireAdmin(actor); err != nil {
		return model.AdminSetting{}, err
	}
	key = strings.TrimSpace(key)
	if key == "" || len(key) > 100 {
		return model.AdminSetting{}, invalid("key must be 1 to 100 characters")
	}
	if err := s.store.Settings().Set(ctx, key, value); err != nil {
		return model.AdminSetting{}, err
	}
	st, err := s.store.Settings().Get(ctx, key)
	return st, fromRepo(err, "setting")
}
