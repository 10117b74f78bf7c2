package handlers

import (
	"github.com/amirphl/ipn-settlement/app/dto"
	businessflow "github.com/amirphl/ipn-settlement/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// PendingDepositHandlerInterface defines the internal pending-deposit endpoints
type PendingDepositHandlerInterface interface {
	Register(c fiber.Ctx) error
	Get(c fiber.Ctx) error
}

// PendingDepositHandler implements PendingDepositHandlerInterface
type PendingDepositHandler struct {
	flow      businessflow.PendingDepositFlow
	validator *validator.Validate
	logger    *zap.Logger
}

func NewPendingDepositHandler(flow businessflow.PendingDepositFlow, logger *zap.Logger) PendingDepositHandlerInterface {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PendingDepositHandler{
		flow:      flow,
		validator: validator.New(),
		logger:    logger,
	}
}

// Register stores a payment intent created by checkout
// @Summary Register pending deposit
// @Tags Internal
// @Accept json
// @Produce json
// @Param X-API-Key header string true "Internal API key"
// @Param request body dto.CreatePendingDepositRequest true "Payment intent"
// @Success 201 {object} dto.APIResponse{data=dto.PendingDepositDTO} "Pending deposit stored"
// @Failure 400 {object} dto.APIResponse "Invalid request"
// @Failure 401 {object} dto.APIResponse "Missing or invalid API key"
// @Failure 409 {object} dto.APIResponse "Pending deposit already exists"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/internal/pending-deposits [post]
func (h *PendingDepositHandler) Register(c fiber.Ctx) error {
	var req dto.CreatePendingDepositRequest
	if err := c.Bind().JSON(&req); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrorMessages(err))
	}

	ctx, cancel := createRequestContext(c, "/api/v1/internal/pending-deposits")
	defer cancel()

	out, err := h.flow.Register(ctx, &req, clientMetadata(c))
	if err != nil {
		code := businessflow.BusinessErrorCode(err)
		switch code {
		case "PENDING_DEPOSIT_EXISTS":
			return ErrorResponse(c, fiber.StatusConflict, "Pending deposit already exists", code, nil)
		case "PENDING_DEPOSIT_VALIDATION_FAILED":
			return ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", code, err.Error())
		}
		h.logger.Error("register pending deposit failed",
			zap.String("request_id", requestID(c)),
			zap.String("payment_id", req.PaymentID.String()),
			zap.Error(err),
		)
		return ErrorResponse(c, fiber.StatusInternalServerError, "Failed to store pending deposit", "PENDING_DEPOSIT_SAVE_FAILED", nil)
	}

	return SuccessResponse(c, fiber.StatusCreated, "Pending deposit stored", out)
}

// Get returns a pending deposit by payment id
// @Summary Get pending deposit
// @Tags Internal
// @Produce json
// @Param X-API-Key header string true "Internal API key"
// @Param payment_id path string true "Payment ID"
// @Success 200 {object} dto.APIResponse{data=dto.PendingDepositDTO} "Pending deposit"
// @Failure 404 {object} dto.APIResponse "Pending deposit not found"
// @Router /api/v1/internal/pending-deposits/{payment_id} [get]
func (h *PendingDepositHandler) Get(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/internal/pending-deposits/get")
	defer cancel()

	out, err := h.flow.Get(ctx, c.Params("payment_id"))
	if err != nil {
		if businessflow.BusinessErrorCode(err) == "PENDING_DEPOSIT_NOT_FOUND" {
			return ErrorResponse(c, fiber.StatusNotFound, "Pending deposit not found", "PENDING_DEPOSIT_NOT_FOUND", nil)
		}
		h.logger.Error("get pending deposit failed", zap.String("request_id", requestID(c)), zap.Error(err))
		return ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load pending deposit", "PENDING_DEPOSIT_LOOKUP_FAILED", nil)
	}
	return SuccessResponse(c, fiber.StatusOK, "Pending deposit retrieved", out)
}
