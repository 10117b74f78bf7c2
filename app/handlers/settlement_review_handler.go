package handlers

import (
	"fmt"

	"github.com/amirphl/ipn-settlement/app/dto"
	"github.com/amirphl/ipn-settlement/app/middleware"
	businessflow "github.com/amirphl/ipn-settlement/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// SettlementReviewHandlerInterface defines the operator endpoints over the manual-review queue
type SettlementReviewHandlerInterface interface {
	List(c fiber.Ctx) error
	Export(c fiber.Ctx) error
	Resolve(c fiber.Ctx) error
}

// SettlementReviewHandler implements SettlementReviewHandlerInterface
type SettlementReviewHandler struct {
	flow      businessflow.SettlementReviewFlow
	validator *validator.Validate
	logger    *zap.Logger
}

func NewSettlementReviewHandler(flow businessflow.SettlementReviewFlow, logger *zap.Logger) SettlementReviewHandlerInterface {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettlementReviewHandler{
		flow:      flow,
		validator: validator.New(),
		logger:    logger,
	}
}

func (h *SettlementReviewHandler) bindListRequest(c fiber.Ctx) (*dto.ListSettlementReviewsRequest, error) {
	var req dto.ListSettlementReviewsRequest
	if err := c.Bind().Query(&req); err != nil {
		return nil, ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return nil, ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrorMessages(err))
	}
	return &req, nil
}

// List returns settlement reviews newest first
// @Summary List settlement reviews
// @Tags Admin Settlement Reviews
// @Produce json
// @Security BearerAuth
// @Param status query string false "open or resolved"
// @Param stage query string false "Settlement stage"
// @Param payment_id query string false "Payment ID"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.ListSettlementReviewsResponse} "Reviews retrieved"
// @Failure 400 {object} dto.APIResponse "Invalid query"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/settlement-reviews [get]
func (h *SettlementReviewHandler) List(c fiber.Ctx) error {
	req, respErr := h.bindListRequest(c)
	if req == nil {
		return respErr
	}

	ctx, cancel := createRequestContext(c, "/api/v1/admin/settlement-reviews")
	defer cancel()

	resp, err := h.flow.List(ctx, req)
	if err != nil {
		switch businessflow.BusinessErrorCode(err) {
		case "INVALID_PAGE", "INVALID_PAGE_SIZE":
			return ErrorResponse(c, fiber.StatusBadRequest, err.Error(), businessflow.BusinessErrorCode(err), nil)
		}
		h.logger.Error("list settlement reviews failed", zap.String("request_id", requestID(c)), zap.Error(err))
		return ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list settlement reviews", "LIST_REVIEWS_FAILED", nil)
	}

	return SuccessResponse(c, fiber.StatusOK, "Settlement reviews retrieved", resp)
}

// Export returns the filtered reviews as an Excel workbook
// @Summary Export settlement reviews
// @Tags Admin Settlement Reviews
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param status query string false "open or resolved"
// @Param stage query string false "Settlement stage"
// @Param payment_id query string false "Payment ID"
// @Success 200 {file} file "Excel workbook"
// @Failure 400 {object} dto.APIResponse
// @Failure 500 {object} dto.APIResponse
// @Router /api/v1/admin/settlement-reviews/export [get]
func (h *SettlementReviewHandler) Export(c fiber.Ctx) error {
	req, respErr := h.bindListRequest(c)
	if req == nil {
		return respErr
	}

	ctx, cancel := createRequestContext(c, "/api/v1/admin/settlement-reviews/export")
	defer cancel()

	filename, data, err := h.flow.Export(ctx, req)
	if err != nil {
		h.logger.Error("export settlement reviews failed", zap.String("request_id", requestID(c)), zap.Error(err))
		return ErrorResponse(c, fiber.StatusInternalServerError, "Failed to export settlement reviews", "EXPORT_FAILED", nil)
	}
	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", "attachment; filename="+filename)
	return c.Send(data)
}

// Resolve closes an open review by dismissing it, removing the pending deposit or replaying the settlement
// @Summary Resolve settlement review
// @Tags Admin Settlement Reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Review UUID"
// @Param request body dto.ResolveSettlementReviewRequest true "Resolution"
// @Success 200 {object} dto.APIResponse{data=dto.ResolveSettlementReviewResponse} "Review resolved"
// @Failure 400 {object} dto.APIResponse "Invalid request or stage not retryable"
// @Failure 404 {object} dto.APIResponse "Review not found"
// @Failure 409 {object} dto.APIResponse "Review already resolved"
// @Failure 502 {object} dto.APIResponse "Replay failed"
// @Router /api/v1/admin/settlement-reviews/{uuid}/resolve [post]
func (h *SettlementReviewHandler) Resolve(c fiber.Ctx) error {
	adminID, ok := middleware.GetAdminIDFromContext(c)
	if !ok || adminID == 0 {
		return ErrorResponse(c, fiber.StatusUnauthorized, "Admin authentication required", "ADMIN_AUTHENTICATION_REQUIRED", nil)
	}

	var req dto.ResolveSettlementReviewRequest
	if err := c.Bind().JSON(&req); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrorMessages(err))
	}

	ctx, cancel := createRequestContext(c, "/api/v1/admin/settlement-reviews/resolve")
	defer cancel()

	operator := fmt.Sprintf("admin:%d", adminID)
	resp, err := h.flow.Resolve(ctx, c.Params("uuid"), &req, operator, clientMetadata(c))
	if err != nil {
		code := businessflow.BusinessErrorCode(err)
		switch code {
		case "REVIEW_NOT_FOUND":
			return ErrorResponse(c, fiber.StatusNotFound, "Settlement review not found", code, nil)
		case "REVIEW_ALREADY_RESOLVED":
			return ErrorResponse(c, fiber.StatusConflict, "Settlement review already resolved", code, nil)
		case "REVIEW_NOT_RETRYABLE", "REVIEW_NO_NOTIFICATION", "INVALID_REVIEW_ACTION", "PENDING_DEPOSIT_NOT_FOUND":
			return ErrorResponse(c, fiber.StatusBadRequest, err.Error(), code, nil)
		case "REVIEW_RETRY_FAILED":
			return ErrorResponse(c, fiber.StatusBadGateway, "Settlement replay failed", code, err.Error())
		}
		h.logger.Error("resolve settlement review failed",
			zap.String("request_id", requestID(c)),
			zap.String("review_uuid", c.Params("uuid")),
			zap.Error(err),
		)
		return ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve settlement review", "RESOLVE_REVIEW_FAILED", nil)
	}

	return SuccessResponse(c, fiber.StatusOK, "Settlement review resolved", resp)
}
