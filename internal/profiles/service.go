package profiles

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-crm/meridian-crm/internal/authz"
)

// RepositoryPort defines data access methods for profiles.
type RepositoryPort interface {
	ListProfiles(ctx context.Context) ([]Profile, error)
	GetProfile(ctx context.Context, id int64) (*Profile, error)
	InsertProfile(ctx context.Context, p Profile, passwordHash string) (int64, error)
	UpdateProfile(ctx context.Context, p Profile, passwordHash *string) error
	SetRole(ctx context.Context, id int64, role authz.Role) error
	DeleteProfile(ctx context.Context, id int64) error
}

// Service handles profile business logic behind the authorization guard.
type Service struct {
	repo   RepositoryPort
	guard  *authz.Guard
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, guard *authz.Guard, logger *slog.Logger) *Service {
	return &Service{repo: repo, guard: guard, logger: logger}
}

// CreateProfile provisions a new account. The insert image carries no self
// reference, so the policy table admits only administrators.
func (s *Service) CreateProfile(ctx context.Context, principalID int64, req CreateProfileRequest) (*Profile, error) {
	actx := s.guard.NewContext(principalID)
	if err := s.guard.Require(ctx, actx, authz.OpInsert, authz.EntityUser, authz.Record{}, authz.Record{}); err != nil {
		return nil, err
	}
	role, err := authz.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	profile := Profile{Email: req.Email, Name: req.Name, Role: role, IsActive: true}
	id, err := s.repo.InsertProfile(ctx, profile, string(hash))
	if err != nil {
		return nil, err
	}
	profile.ID = id
	s.logger.Info("profile created", slog.Int64("profile_id", id), slog.String("role", role.String()))
	return &profile, nil
}

func (s *Service) GetProfile(ctx context.Context, principalID, id int64) (*Profile, error) {
	actx := s.guard.NewContext(principalID)
	if err := s.guard.Require(ctx, actx, authz.OpSelect, authz.EntityUser, authz.Record{}, authz.Record{}); err != nil {
		return nil, err
	}
	return s.repo.GetProfile(ctx, id)
}

func (s *Service) ListProfiles(ctx context.Context, principalID int64) ([]Profile, error) {
	actx := s.guard.NewContext(principalID)
	if err := s.guard.Require(ctx, actx, authz.OpSelect, authz.EntityUser, authz.Record{}, authz.Record{}); err != nil {
		return nil, err
	}
	return s.repo.ListProfiles(ctx)
}

// UpdateProfile edits email, name, or password. Only the profile's owner (or
// an administrator) passes the gate. The patched columns land in a single
// statement so a failure never leaves the row half-written.
func (s *Service) UpdateProfile(ctx context.Context, principalID, id int64, req UpdateProfileRequest) (*Profile, error) {
	actx := s.guard.NewContext(principalID)
	pre, err := s.repo.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	// Phase one: gate on the stored image before applying the patch.
	if err := s.guard.Require(ctx, actx, authz.OpUpdate, authz.EntityUser, pre.authzRecord(), pre.authzRecord()); err != nil {
		return nil, err
	}
	post := *pre
	if req.Email != nil {
		post.Email = *req.Email
	}
	if req.Name != nil {
		post.Name = *req.Name
	}
	// Phase two: re-validate the proposed state before commit.
	if err := s.guard.Require(ctx, actx, authz.OpUpdate, authz.EntityUser, pre.authzRecord(), post.authzRecord()); err != nil {
		return nil, err
	}
	var hash *string
	if req.Password != nil {
		raw, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		h := string(raw)
		hash = &h
	}
	if err := s.repo.UpdateProfile(ctx, post, hash); err != nil {
		return nil, err
	}
	return &post, nil
}

// SetRole changes an account's role. The gate sees an image with no self
// reference so self-service escalation is impossible: only the Admin bypass
// passes.
func (s *Service) SetRole(ctx context.Context, principalID, id int64, role authz.Role) error {
	actx := s.guard.NewContext(principalID)
	if err := s.guard.Require(ctx, actx, authz.OpUpdate, authz.EntityUser, authz.Record{}, authz.Record{}); err != nil {
		return err
	}
	if err := s.repo.SetRole(ctx, id, role); err != nil {
		return err
	}
	s.logger.Info("role changed", slog.Int64("profile_id", id), slog.String("role", role.String()))
	return nil
}

// DeleteProfile deactivates an account.
func (s *Service) DeleteProfile(ctx context.Context, principalID, id int64) error {
	actx := s.guard.NewContext(principalID)
	pre, err := s.repo.GetProfile(ctx, id)
	if err != nil {
		return err
	}
	if err := s.guard.Require(ctx, actx, authz.OpDelete, authz.EntityUser, pre.authzRecord(), authz.Record{}); err != nil {
		return err
	}
	return s.repo.DeleteProfile(ctx, id)
}
