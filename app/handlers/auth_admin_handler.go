package handlers

import (
	"github.com/amirphl/ipn-settlement/app/dto"
	businessflow "github.com/amirphl/ipn-settlement/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// AdminHandlerInterface defines the contract for operator auth handlers
type AdminHandlerInterface interface {
	Login(c fiber.Ctx) error
}

// AdminHandler implements AdminHandlerInterface
type AdminHandler struct {
	flow      businessflow.AdminAuthFlow
	validator *validator.Validate
	logger    *zap.Logger
}

func NewAdminHandler(flow businessflow.AdminAuthFlow, logger *zap.Logger) AdminHandlerInterface {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{
		flow:      flow,
		validator: validator.New(),
		logger:    logger,
	}
}

// Login authenticates an operator with username and password
// @Summary Admin login
// @Description Authenticate an operator and issue an access token for the review endpoints
// @Tags Admin Authentication
// @Accept json
// @Produce json
// @Param request body dto.AdminLoginRequest true "Admin login data"
// @Success 200 {object} dto.APIResponse{data=dto.AdminLoginResponse} "Login successful"
// @Failure 400 {object} dto.APIResponse "Invalid request"
// @Failure 401 {object} dto.APIResponse "Incorrect credentials or admin not found"
// @Failure 403 {object} dto.APIResponse "Admin inactive"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/auth/login [post]
func (h *AdminHandler) Login(c fiber.Ctx) error {
	var req dto.AdminLoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrorMessages(err))
	}

	ctx, cancel := createRequestContext(c, "/api/v1/admin/auth/login")
	defer cancel()

	result, err := h.flow.Login(ctx, &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsAdminNotFound(err) {
			return ErrorResponse(c, fiber.StatusUnauthorized, "Admin not found", "ADMIN_NOT_FOUND", nil)
		}
		if businessflow.IsAdminInactive(err) {
			return ErrorResponse(c, fiber.StatusForbidden, "Admin inactive", "ADMIN_INACTIVE", nil)
		}
		if businessflow.IsIncorrectPassword(err) {
			return ErrorResponse(c, fiber.StatusUnauthorized, "Incorrect password", "INCORRECT_PASSWORD", nil)
		}
		h.logger.Error("admin login failed", zap.String("request_id", requestID(c)), zap.Error(err))
		return ErrorResponse(c, fiber.StatusInternalServerError, "Login failed", "LOGIN_FAILED", nil)
	}

	return SuccessResponse(c, fiber.StatusOK, "Login successful", result)
}
