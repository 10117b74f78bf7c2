package handlers

import (
	"github.com/amirphl/ipn-settlement/app/dto"
	businessflow "github.com/amirphl/ipn-settlement/business_flow"
	"github.com/amirphl/ipn-settlement/utils"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// IPNHandlerInterface defines the contract for the gateway webhook
type IPNHandlerInterface interface {
	Notify(c fiber.Ctx) error
}

// IPNHandler receives NOWPayments instant payment notifications
type IPNHandler struct {
	flow   businessflow.IPNFlow
	logger *zap.Logger
}

func NewIPNHandler(flow businessflow.IPNFlow, logger *zap.Logger) IPNHandlerInterface {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IPNHandler{
		flow:   flow,
		logger: logger,
	}
}

// Notify accepts an IPN callback and settles the payment it reports
// @Summary NOWPayments IPN webhook
// @Description Verifies the x-nowpayments-sig header and settles the reported payment. A non-2xx answer asks the gateway to redeliver.
// @Tags Settlement
// @Accept json
// @Produce json
// @Param x-nowpayments-sig header string false "HMAC-SHA512 of the sorted JSON body"
// @Param request body dto.NOWPaymentsIPNRequest true "IPN payload"
// @Success 200 {object} dto.APIResponse{data=dto.IPNAckResponse} "Notification accepted"
// @Failure 400 {object} dto.APIResponse "Malformed or incomplete payload"
// @Failure 401 {object} dto.APIResponse "Invalid signature"
// @Failure 503 {object} dto.APIResponse "Settlement temporarily unavailable"
// @Router /api/v1/nowpayments/ipn [post]
func (h *IPNHandler) Notify(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/nowpayments/ipn")
	defer cancel()

	ack, err := h.flow.HandleNotification(ctx, c.Body(), c.Get(utils.NOWPaymentsSignatureHeader), clientMetadata(c))
	if err != nil {
		code := businessflow.BusinessErrorCode(err)
		switch {
		case businessflow.IsInvalidSignature(err) || code == "IPN_SIGNATURE_INVALID":
			return ErrorResponse(c, fiber.StatusUnauthorized, "Invalid signature", "IPN_SIGNATURE_INVALID", nil)
		case code == "IPN_INVALID_PAYLOAD":
			return ErrorResponse(c, fiber.StatusBadRequest, "Invalid payload", code, nil)
		case code == "IPN_VALIDATION_FAILED":
			return ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", code, validationErrorMessages(err))
		}
		h.logger.Error("IPN not settled",
			zap.String("request_id", requestID(c)),
			zap.String("code", code),
			zap.Error(err),
		)
		return ErrorResponse(c, fiber.StatusServiceUnavailable, "Settlement temporarily unavailable", "IPN_UNAVAILABLE", nil)
	}

	message := "Notification processed"
	switch ack.Status {
	case dto.IPNAckAccepted:
		message = "Notification accepted"
	case dto.IPNAckChildIgnored:
		message = "Child payment ignored"
	case dto.IPNAckFailed:
		message = "Notification accepted, settlement failed"
	}
	return SuccessResponse(c, fiber.StatusOK, message, ack)
}
