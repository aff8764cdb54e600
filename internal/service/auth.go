package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/rentable/internal/model"
	"github.com/iliyamo/rentable/internal/repository"
	"github.com/iliyamo/rentable/internal/utils"
)

// AuthConfig holds the secrets and lifetimes used by AuthService.
type AuthConfig struct {
	JWTSecret      string
	SessionSecret  string
	AccessTTLMin   int
	RefreshTTLDays int
	AdminOpenID    string
}

// AuthService exchanges provider sessions for API tokens.
type AuthService struct {
	store repository.Store
	cfg   AuthConfig
	log   zerolog.Logger
	now   func() time.Time
}

// NewAuthService returns an AuthService.
func NewAuthService(store repository.Store, cfg AuthConfig, log zerolog.Logger) *AuthService {
	return &AuthService{store: store, cfg: cfg, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Session is the token pair handed to a client.
type Session struct {
	User    model.User
	Access  utils.AccessToken
	Refresh utils.RefreshToken
}

// Exchange verifies a provider session token, creates or refreshes the
// user and issues a token pair.  A first login grants the signup bonus
// in the same transaction as the insert.
func (s *AuthService) Exchange(ctx context.Context, sessionToken string) (Session, error) {
	claims, err := utils.ParseSessionToken(s.cfg.SessionSecret, strings.TrimSpace(sessionToken))
	if err != nil {
		return Session{}, ErrUnauthenticated
	}
	var (
		u       model.User
		created bool
	)
	err = s.store.InTx(ctx, func(st repository.Store) error {
		now := s.now()
		email, name := optional(claims.Email), optional(claims.Name)
		existing, err := st.Users().GetByOpenID(ctx, claims.OpenID)
		switch {
		case err == nil:
			if err := st.Users().UpdateLogin(ctx, existing.ID, email, name, now); err != nil {
				return err
			}
			u, err = st.Users().GetByID(ctx, existing.ID)
			return err
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}
		u = model.User{
			OpenID: claims.OpenID, Email: email, Name: name, DisplayName: name,
			Role: model.RoleUser, SubscriptionTier: model.TierFree, SubscriptionStatus: model.SubscriptionNone,
			AccessibilityMode: model.AccessibilityDefault, LastSignedIn: now,
		}
		if s.cfg.AdminOpenID != "" && claims.OpenID == s.cfg.AdminOpenID {
			u.Role = model.RoleAdmin
		}
		if err := st.Users().Create(ctx, &u); err != nil {
			return fromRepo(err, "user")
		}
		tx, err := applyTokens(ctx, st, u.ID, SignupBonusTokens, model.TokenBonus, "Welcome bonus", nil)
		if err != nil {
			return err
		}
		u.TokenBalance = tx.Amount
		created = true
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	if u.IsBanned {
		return Session{}, forbidden("account is banned")
	}
	if created {
		s.log.Info().Uint64("user_id", u.ID).Str("role", string(u.Role)).Msg("user created")
	}
	return s.issue(ctx, u)
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func (s *AuthService) issue(ctx context.Context, u model.User) (Session, error) {
	access, err := utils.NewAccessToken(s.cfg.JWTSecret, u.ID, string(u.Role), s.cfg.AccessTTLMin)
	if err != nil {
		return Session{}, err
	}
	refresh, err := utils.NewRefreshToken(s.cfg.RefreshTTLDays)
	if err != nil {
		return Session{}, err
	}
	if err := s.store.RefreshTokens().StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return Session{}, err
	}
	return Session{User: u, Access: access, Refresh: refresh}, nil
}

// Refresh validates a refresh token, revokes it and issues a new pair.
func (s *AuthService) Refresh(ctx context.Context, raw string) (Session, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Session{}, invalid("refresh_token required")
	}
	hash := utils.HashRefreshRaw(raw)
	var u model.User
	err := s.store.InTx(ctx, func(st repository.Store) error {
		userID, err := st.RefreshTokens().ValidateRefresh(ctx, hash)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrUnauthenticated
			}
			return err
		}
		err = st.RefreshTokens().RevokeByHash(ctx, hash)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUnauthenticated
		}
		if err != nil {
			return err
		}
		u, err = st.Users().GetByID(ctx, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUnauthenticated
		}
		return err
	})
	if err != nil {
		return Session{}, err
	}
	if u.IsBanned {
		return Session{}, forbidden("account is banned")
	}
	return s.issue(ctx, u)
}

// Logout revokes one refresh token when raw is set, otherwise every
// refresh token of the caller.  An authenticated caller may only revoke
// its own refresh token; without an access token, holding the raw
// refresh token is the proof of ownership.
func (s *AuthService) Logout(ctx context.Context, actor *model.User, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw != "" {
		hash := utils.HashRefreshRaw(raw)
		userID, err := s.store.RefreshTokens().ValidateRefresh(ctx, hash)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUnauthenticated
		}
		if err != nil {
			return err
		}
		if actor != nil && actor.ID != 0 && actor.ID != userID {
			return forbidden("refresh token belongs to another user")
		}
		err = s.store.RefreshTokens().RevokeByHash(ctx, hash)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUnauthenticated
		}
		return err
	}
	if actor == nil || actor.ID == 0 {
		return ErrUnauthenticated
	}
	return s.store.RefreshTokens().RevokeAllForUser(ctx, actor.ID)
}
