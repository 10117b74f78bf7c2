package businessflow

import (
	"context"
	"strings"

	"github.com/amirphl/ipn-settlement/app/dto"
	"github.com/amirphl/ipn-settlement/app/services"
	"github.com/amirphl/ipn-settlement/models"
	"github.com/amirphl/ipn-settlement/repository"
	"github.com/amirphl/ipn-settlement/utils"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AdminAuthFlow represents the operator authentication flow used by handlers
type AdminAuthFlow interface {
	Login(ctx context.Context, req *dto.AdminLoginRequest, metadata *ClientMetadata) (*dto.AdminLoginResponse, error)
	// EnsureBootstrapAdmin creates the configured operator when it does not exist yet
	EnsureBootstrapAdmin(ctx context.Context, username, password string) error
}

// AdminAuthFlowImpl verifies operator credentials and issues tokens
type AdminAuthFlowImpl struct {
	adminRepo    repository.AdminRepository
	tokenService services.TokenService
	logger       *zap.Logger
}

func NewAdminAuthFlow(adminRepo repository.AdminRepository, tokenService services.TokenService, logger *zap.Logger) AdminAuthFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminAuthFlowImpl{
		adminRepo:    adminRepo,
		tokenService: tokenService,
		logger:       logger,
	}
}

func (af *AdminAuthFlowImpl) Login(ctx context.Context, req *dto.AdminLoginRequest, metadata *ClientMetadata) (*dto.AdminLoginResponse, error) {
	if req == nil || len(req.Username) == 0 || len(req.Password) == 0 {
		return nil, NewBusinessError("ADMIN_LOGIN_VALIDATION_FAILED", "Admin login validation failed", ErrIncorrectPassword)
	}

	admin, err := af.adminRepo.ByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		return nil, NewBusinessError("ADMIN_LOOKUP_FAILED", "Failed to lookup admin", err)
	}
	if admin == nil {
		return nil, NewBusinessError("ADMIN_NOT_FOUND", "Admin not found", ErrAdminNotFound)
	}
	if !utils.IsTrue(admin.IsActive) {
		return nil, NewBusinessError("ADMIN_INACTIVE", "Admin account is inactive", ErrAdminInactive)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		af.logger.Warn("admin login rejected",
			zap.String("username", admin.Username),
			zap.String("request_id", requestIDOf(metadata)),
		)
		return nil, NewBusinessError("ADMIN_INCORRECT_PASSWORD", "Incorrect password", ErrIncorrectPassword)
	}

	accessToken, refreshToken, err := af.tokenService.GenerateAdminTokens(admin.ID)
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to generate tokens", err)
	}

	now := utils.UTCNow()
	if err := af.adminRepo.UpdateLastLogin(ctx, admin.ID, now); err != nil {
		af.logger.Warn("failed to stamp admin login", zap.Uint("admin_id", admin.ID), zap.Error(err))
	} else {
		admin.LastLoginAt = &now
	}

	af.logger.Info("admin logged in",
		zap.String("username", admin.Username),
		zap.String("request_id", requestIDOf(metadata)),
	)

	return &dto.AdminLoginResponse{
		Admin:   ToAdminDTOModel(*admin),
		Session: ToAdminSessionDTO(accessToken, refreshToken),
	}, nil
}

func (af *AdminAuthFlowImpl) EnsureBootstrapAdmin(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil
	}

	existing, err := af.adminRepo.ByUsername(ctx, username)
	if err != nil {
		return NewBusinessError("ADMIN_LOOKUP_FAILED", "Failed to lookup admin", err)
	}
	if existing != nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return NewBusinessError("ADMIN_BOOTSTRAP_FAILED", "Failed to hash bootstrap password", err)
	}
	admin := &models.Admin{
		Username:     username,
		PasswordHash: string(hash),
		IsActive:     utils.ToPtr(true),
	}
	if err := af.adminRepo.Save(ctx, admin); err != nil {
		return NewBusinessError("ADMIN_BOOTSTRAP_FAILED", "Failed to create bootstrap admin", err)
	}

	af.logger.Info("bootstrap admin created", zap.String("username", username))
	return nil
}
