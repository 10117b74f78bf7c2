package businessflow

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/amirphl/ipn-settlement/app/dto"
	"github.com/amirphl/ipn-settlement/utils"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// IPNFlow turns a raw gateway callback into a settlement task
type IPNFlow interface {
	HandleNotification(ctx context.Context, raw []byte, signature string, metadata *ClientMetadata) (*dto.IPNAckResponse, error)
}

// SettlementSubmitter hands work to the settlement executor
type SettlementSubmitter interface {
	Submit(ctx context.Context, name string, task SettlementTask) (*Future, error)
}

// IPNOptions configures the webhook ingress
type IPNOptions struct {
	Secret          string
	VerifySignature bool
	// AckWait bounds how long the webhook waits for the settlement result
	AckWait time.Duration
}

// IPNFlowImpl implements IPNFlow
type IPNFlowImpl struct {
	engine    SettlementEngine
	submitter SettlementSubmitter
	opts      IPNOptions
	validate  *validator.Validate
	logger    *zap.Logger
}

func NewIPNFlow(engine SettlementEngine, submitter SettlementSubmitter, opts IPNOptions, logger *zap.Logger) IPNFlow {
	if opts.AckWait <= 0 {
		opts.AckWait = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IPNFlowImpl{
		engine:    engine,
		submitter: submitter,
		opts:      opts,
		validate:  validator.New(),
		logger:    logger,
	}
}

// IPN notification results, used as the metric label
const (
	ipnResultInvalidSignature = "invalid_signature"
	ipnResultInvalidPayload   = "invalid_payload"
	ipnResultValidationFailed = "validation_failed"
	ipnResultChildIgnored     = "child_ignored"
	ipnResultUnavailable      = "unavailable"
	ipnResultProcessed        = "processed"
	ipnResultAccepted         = "accepted"
	ipnResultFailed           = "failed"
)

func (f *IPNFlowImpl) HandleNotification(ctx context.Context, raw []byte, signature string, metadata *ClientMetadata) (*dto.IPNAckResponse, error) {
	requestID := requestIDOf(metadata)

	if len(bytes.TrimSpace(raw)) == 0 {
		ipnNotificationsTotal.WithLabelValues(ipnResultInvalidPayload).Inc()
		return nil, NewBusinessError("IPN_INVALID_PAYLOAD", "Empty request body", ErrInvalidPayload)
	}

	if f.opts.VerifySignature {
		if err := f.verifySignature(raw, signature); err != nil {
			ipnNotificationsTotal.WithLabelValues(ipnResultInvalidSignature).Inc()
			f.logger.Warn("rejected IPN with invalid signature",
				zap.String("request_id", requestID),
				zap.Bool("signature_present", signature != ""),
				zap.Error(err),
			)
			return nil, NewBusinessError("IPN_SIGNATURE_INVALID", "Invalid IPN signature", err)
		}
	}

	var req dto.NOWPaymentsIPNRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		ipnNotificationsTotal.WithLabelValues(ipnResultInvalidPayload).Inc()
		return nil, NewBusinessError("IPN_INVALID_PAYLOAD", "Invalid JSON payload", errors.Join(ErrInvalidPayload, err))
	}
	if err := f.validate.Struct(&req); err != nil {
		ipnNotificationsTotal.WithLabelValues(ipnResultValidationFailed).Inc()
		return nil, NewBusinessError("IPN_VALIDATION_FAILED", "IPN validation failed", err)
	}

	paymentID := strings.TrimSpace(req.PaymentID.String())
	status := strings.ToLower(strings.TrimSpace(req.PaymentStatus))
	paid, err := utils.ParseAmount(req.ActuallyPaid.String())
	if err != nil || paymentID == "" || status == "" || strings.TrimSpace(req.PayCurrency) == "" {
		if err == nil {
			err = ErrInvalidPayload
		}
		ipnNotificationsTotal.WithLabelValues(ipnResultValidationFailed).Inc()
		return nil, NewBusinessError("IPN_VALIDATION_FAILED", "IPN validation failed", errors.Join(ErrInvalidAmount, err))
	}

	log := f.logger.With(
		zap.String("payment_id", paymentID),
		zap.String("status", status),
		zap.String("pay_currency", req.PayCurrency),
		zap.String("actually_paid", paid.String()),
		zap.String("request_id", requestID),
	)

	if req.IsChildPayment() {
		ipnNotificationsTotal.WithLabelValues(ipnResultChildIgnored).Inc()
		log.Info("ignoring child payment notification", zap.String("parent_payment_id", req.ParentPaymentID.String()))
		return &dto.IPNAckResponse{PaymentID: paymentID, Status: dto.IPNAckChildIgnored}, nil
	}

	n := &PaymentNotification{
		PaymentID:     paymentID,
		PaymentStatus: status,
		PayCurrency:   strings.TrimSpace(req.PayCurrency),
		ActuallyPaid:  paid,
		Raw:           append(json.RawMessage(nil), raw...),
		RequestID:     requestID,
	}

	ackCtx, cancel := context.WithTimeout(ctx, f.opts.AckWait)
	defer cancel()

	future, err := f.submitter.Submit(ackCtx, "settle:"+paymentID, func(taskCtx context.Context) (*SettlementResult, error) {
		return f.engine.Settle(taskCtx, n)
	})
	if err != nil {
		ipnNotificationsTotal.WithLabelValues(ipnResultUnavailable).Inc()
		log.Error("settlement executor refused IPN", zap.Error(err))
		return nil, NewBusinessError("IPN_UNAVAILABLE", "Settlement is temporarily unavailable", err)
	}

	result, err := future.Wait(ackCtx)
	if err != nil {
		select {
		case <-future.Done():
			// the task ran and failed
			ipnNotificationsTotal.WithLabelValues(ipnResultFailed).Inc()
			log.Error("IPN accepted, settlement failed", zap.Error(err))
			return &dto.IPNAckResponse{PaymentID: paymentID, Status: dto.IPNAckFailed}, nil
		default:
		}
		ipnNotificationsTotal.WithLabelValues(ipnResultAccepted).Inc()
		log.Info("IPN accepted, settlement still running")
		return &dto.IPNAckResponse{PaymentID: paymentID, Status: dto.IPNAckAccepted}, nil
	}

	ipnNotificationsTotal.WithLabelValues(ipnResultProcessed).Inc()
	ack := &dto.IPNAckResponse{PaymentID: paymentID, Status: dto.IPNAckProcessed}
	if result != nil {
		ack.State = string(result.State)
		ack.Outcome = string(result.Outcome)
	}
	return ack, nil
}

func (f *IPNFlowImpl) verifySignature(raw []byte, signature string) error {
	if f.opts.Secret == "" {
		return ErrSignatureSecretUnset
	}
	signature = strings.ToLower(strings.TrimSpace(signature))
	if signature == "" {
		return ErrInvalidSignature
	}
	expected, err := SignIPNBody(raw, f.opts.Secret)
	if err != nil {
		return errors.Join(ErrInvalidSignature, err)
	}
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// SignIPNBody returns the hex HMAC-SHA512 the gateway sends in
// x-nowpayments-sig: the body is re-encoded with object keys sorted at every
// level and no insignificant whitespace before hashing.
func SignIPNBody(raw []byte, secret string) (string, error) {
	canonical, err := canonicalJSON(raw)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(canonical)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

func canonicalJSON(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// maps are encoded with sorted keys
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
