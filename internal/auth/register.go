package auth

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/fieldops-io/assettrack-backend/internal/users"
	"github.com/fieldops-io/assettrack-backend/pkg/config"
	"github.com/fieldops-io/assettrack-backend/pkg/db"
	"github.com/fieldops-io/assettrack-backend/pkg/enums"
	pkgerrors "github.com/fieldops-io/assettrack-backend/pkg/errors"
	"github.com/fieldops-io/assettrack-backend/pkg/security"
)

// RegisterRequest contains the payload for provisioning an account. Role
// defaults to technician when omitted.
type RegisterRequest struct {
	DisplayName string `json:"display_name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	Role        string `json:"role,omitempty"`
}

// RegisterService handles account provisioning.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	DB             *db.Client
	PasswordConfig config.PasswordConfig
}

type registerService struct {
	db          *db.Client
	passwordCfg config.PasswordConfig
}

func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	return &registerService{db: params.DB, passwordCfg: params.PasswordConfig}, nil
}

func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	account, err := normalizeRegistration(req)
	if err != nil {
		return nil, err
	}

	account.PasswordHash, err = security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	// The uniqueness check and insert share one transaction so two
	// concurrent registrations for the same email cannot both land.
	var created *users.UserDTO
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := users.NewRepository(tx)
		if err := ensureEmailUnclaimed(ctx, repo, account.Email); err != nil {
			return err
		}
		user, err := repo.Create(ctx, account)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}
		created = users.FromModel(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// normalizeRegistration trims and lowercases the identity fields and resolves
// the requested role, defaulting to technician.
func normalizeRegistration(req RegisterRequest) (users.CreateUserDTO, error) {
	account := users.CreateUserDTO{
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		DisplayName: strings.TrimSpace(req.DisplayName),
		Role:        enums.UserRoleTechnician,
	}
	switch {
	case account.Email == "":
		return account, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	case account.DisplayName == "":
		return account, pkgerrors.New(pkgerrors.CodeValidation, "display name is required")
	}

	if raw := strings.TrimSpace(req.Role); raw != "" {
		role, err := enums.ParseUserRole(raw)
		if err != nil {
			return account, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
		}
		account.Role = role
	}
	return account, nil
}

func ensureEmailUnclaimed(ctx context.Context, repo *users.Repository, email string) error {
	_, err := repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
	}
}
