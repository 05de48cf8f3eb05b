package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/frahmantamala/permission-management/internal"
	userDatamodel "github.com/frahmantamala/permission-management/internal/core/datamodel/user"
	"golang.org/x/crypto/bcrypt"
)

type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*userDatamodel.User, error)
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	Create(ctx context.Context, u *userDatamodel.User) error
	EmailExists(ctx context.Context, email string, excludeID int64) (bool, error)
	StudentCodeExists(ctx context.Context, code string, excludeID int64) (bool, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type BcryptHasher struct {
	Cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{Cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (h *BcryptHasher) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// ServiceAPI is what the HTTP handler needs from the auth service.
type ServiceAPI interface {
	Login(ctx context.Context, dto LoginDTO) (*LoginResult, error)
	Register(ctx context.Context, dto RegisterDTO) (*UserProfile, error)
	Refresh(ctx context.Context, dto RefreshTokenDTO) (*TokenPair, error)
	Profile(ctx context.Context, p *Principal) (*UserProfile, error)
	ChangePassword(ctx context.Context, p *Principal, dto ChangePasswordDTO) error
	Authenticate(token string) (*Principal, error)
}

// Service is the main auth service with dependencies
type Service struct {
	repo        UserRepository
	tokens      *TokenService
	hasher      PasswordHasher
	passwordMin int
	logger      *slog.Logger
}

func NewService(repo UserRepository, tokens *TokenService, hasher PasswordHasher, passwordMin int, logger *slog.Logger) *Service {
	if passwordMin <= 0 {
		passwordMin = internal.DefaultWorkflowConfig().PasswordMinLength
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		tokens:      tokens,
		hasher:      hasher,
		passwordMin: passwordMin,
		logger:      logger,
	}
}

// Login validates credentials and returns the user with a token pair.
func (s *Service) Login(ctx context.Context, dto LoginDTO) (*LoginResult, error) {
	dto.Normalize()
	if err := dto.Validate(s.passwordMin); err != nil {
		return nil, err
	}

	u, err := s.repo.GetByEmail(ctx, dto.Email)
	if err != nil {
		if errors.Is(err, internal.ErrUserNotFound) {
			s.logger.WarnContext(ctx, "login failed: unknown email", "email", dto.Email)
			return nil, internal.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.hasher.Compare(u.PasswordHash, dto.Password); err != nil {
		s.logger.WarnContext(ctx, "login failed: wrong password", "user_id", u.ID)
		return nil, internal.ErrInvalidCredentials
	}

	if !u.Active {
		s.logger.WarnContext(ctx, "login failed: inactive user", "user_id", u.ID)
		return nil, internal.ErrUserInactive
	}

	principal, err := principalOf(u)
	if err != nil {
		return nil, err
	}

	pair, err := s.tokens.IssuePair(*principal)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user logged in", "user_id", u.ID, "role", u.Role)
	return &LoginResult{User: ToProfile(u), TokenPair: pair}, nil
}

// Register creates a student account.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*UserProfile, error) {
	dto.Normalize()
	if err := dto.Validate(s.passwordMin); err != nil {
		return nil, err
	}

	taken, err := s.repo.EmailExists(ctx, dto.Email, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, internal.ErrEmailTaken
	}

	if dto.StudentCode != nil {
		taken, err := s.repo.StudentCodeExists(ctx, *dto.StudentCode, 0)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, internal.ErrStudentCodeTaken
		}
	}

	hash, err := s.hasher.Hash(dto.Password)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	u := &userDatamodel.User{
		Name:         dto.Name,
		Surname:      dto.Surname,
		Email:        dto.Email,
		StudentCode:  dto.StudentCode,
		PasswordHash: hash,
		Role:         string(RoleStudent),
		Active:       true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", u.ID, "email", u.Email)
	return ToProfile(u), nil
}

// Refresh exchanges a refresh token for a new access token and a rotated refresh token.
func (s *Service) Refresh(ctx context.Context, dto RefreshTokenDTO) (*TokenPair, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	claims, err := s.tokens.VerifyType(dto.RefreshToken, TokenTypeRefresh)
	if err != nil {
		s.logger.WarnContext(ctx, "refresh rejected", "error", err)
		return nil, err
	}

	u, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, internal.ErrUserNotFound) {
			return nil, internal.NewUnauthorizedError("User no longer exists", internal.ErrCodeUserNotFound)
		}
		return nil, err
	}
	if !u.Active {
		return nil, internal.ErrUserInactive
	}

	principal, err := principalOf(u)
	if err != nil {
		return nil, err
	}

	pair, err := s.tokens.IssuePair(*principal)
	if err != nil {
		return nil, err
	}
	return &pair, nil
}

func (s *Service) Profile(ctx context.Context, p *Principal) (*UserProfile, error) {
	if err := RequireAuthenticated(p); err != nil {
		return nil, err
	}
	u, err := s.repo.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	return ToProfile(u), nil
}

func (s *Service) ChangePassword(ctx context.Context, p *Principal, dto ChangePasswordDTO) error {
	if err := RequireAuthenticated(p); err != nil {
		return err
	}
	if err := dto.Validate(s.passwordMin); err != nil {
		return err
	}

	u, err := s.repo.GetByID(ctx, p.UserID)
	if err != nil {
		return err
	}
	if err := s.hasher.Compare(u.PasswordHash, dto.CurrentPassword); err != nil {
		return internal.NewUnauthorizedError("Current password is incorrect", internal.ErrCodeInvalidCredentials)
	}

	hash, err := s.hasher.Hash(dto.NewPassword)
	if err != nil {
		return internal.NewInternalError("failed to hash password", err)
	}
	if err := s.repo.UpdatePassword(ctx, u.ID, hash); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "password changed", "user_id", u.ID)
	return nil
}

// Authenticate verifies an access token and returns its principal.
func (s *Service) Authenticate(token string) (*Principal, error) {
	claims, err := s.tokens.VerifyType(token, TokenTypeAccess)
	if err != nil {
		return nil, err
	}
	return claims.Principal(), nil
}

func (s *Service) HashPassword(password string) (string, error) {
	return s.hasher.Hash(password)
}

func principalOf(u *userDatamodel.User) (*Principal, error) {
	role, err := ParseRole(u.Role)
	if err != nil {
		return nil, internal.NewInternalError("stored user has an unknown role", err)
	}
	return &Principal{UserID: u.ID, Email: u.Email, Role: role}, nil
}

func ToProfile(u *userDatamodel.User) *UserProfile {
	return &UserProfile{
		ID:          u.ID,
		Name:        u.Name,
		Surname:     u.Surname,
		Email:       u.Email,
		StudentCode: u.StudentCode,
		Role:        Role(u.Role),
		Active:      u.Active,
		CreatedAt:   u.CreatedAt,
	}
}
