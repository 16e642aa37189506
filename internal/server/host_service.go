package server

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/resume-live/internal/config"
	"github.com/jonathan/resume-live/internal/db"
	"github.com/jonathan/resume-live/internal/types"
)

// HostStore is the subset of the row store used for host accounts.
type HostStore interface {
	CreateHost(ctx context.Context, name, email, passwordHash string) (*db.HostUser, error)
	GetHostByEmail(ctx context.Context, email string) (*db.HostUser, error)
	GetHost(ctx context.Context, id uuid.UUID) (*db.HostUser, error)
	CountHosts(ctx context.Context) (int, error)
}

// HostService registers and authenticates host accounts.
type HostService struct {
	db             HostStore
	passwordConfig *config.PasswordConfig
}

// NewHostService creates a HostService.
func NewHostService(store HostStore, passwordConfig *config.PasswordConfig) *HostService {
	return &HostService{db: store, passwordConfig: passwordConfig}
}

func toHost(h *db.HostUser) *types.Host {
	if h == nil {
		return nil
	}
	return &types.Host{
		ID:        h.ID,
		Name:      h.Name,
		Email:     h.Email,
		CreatedAt: h.CreatedAt,
	}
}

// NeedsBootstrap reports whether no host account exists yet. The first host
// may register without a token.
func (s *HostService) NeedsBootstrap(ctx context.Context) (bool, error) {
	n, err := s.db.CountHosts(ctx)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// Register creates a host account. A taken email fails with *db.DuplicateError.
func (s *HostService) Register(ctx context.Context, req *types.RegisterHostRequest) (*types.Host, error) {
	hash, err := s.passwordConfig.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	host, err := s.db.CreateHost(ctx, req.Name, req.Email, hash)
	if err != nil {
		return nil, err
	}
	return toHost(host), nil
}

// Login checks credentials. Unknown emails and wrong passwords both fail
// with ErrInvalidCredentials.
func (s *HostService) Login(ctx context.Context, req *types.LoginRequest) (*types.Host, error) {
	host, err := s.db.GetHostByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to get host by email: %w", err)
	}
	if host == nil || !s.passwordConfig.VerifyPassword(req.Password, host.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return toHost(host), nil
}

// Get returns the host with id.
func (s *HostService) Get(ctx context.Context, id uuid.UUID) (*types.Host, error) {
	host, err := s.db.GetHost(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get host: %w", err)
	}
	if host == nil {
		return nil, db.ErrNotFound
	}
	return toHost(host), nil
}
