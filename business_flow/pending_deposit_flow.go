package businessflow

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/amirphl/ipn-settlement/app/dto"
	"github.com/amirphl/ipn-settlement/models"
	"github.com/amirphl/ipn-settlement/repository"
	"github.com/amirphl/ipn-settlement/utils"
	"go.uber.org/zap"
)

// PendingDepositFlow registers payment intents issued by checkout
type PendingDepositFlow interface {
	Register(ctx context.Context, req *dto.CreatePendingDepositRequest, metadata *ClientMetadata) (*dto.PendingDepositDTO, error)
	Get(ctx context.Context, paymentID string) (*dto.PendingDepositDTO, error)
}

// PendingDepositFlowImpl implements PendingDepositFlow
type PendingDepositFlowImpl struct {
	repo   repository.PendingDepositRepository
	logger *zap.Logger
}

func NewPendingDepositFlow(repo repository.PendingDepositRepository, logger *zap.Logger) PendingDepositFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PendingDepositFlowImpl{repo: repo, logger: logger}
}

func (f *PendingDepositFlowImpl) Register(ctx context.Context, req *dto.CreatePendingDepositRequest, metadata *ClientMetadata) (*dto.PendingDepositDTO, error) {
	if req == nil {
		return nil, NewBusinessError("PENDING_DEPOSIT_VALIDATION_FAILED", "Request body is required", ErrInvalidPayload)
	}
	deposit, err := f.buildDeposit(req)
	if err != nil {
		return nil, err
	}

	existing, err := f.repo.ByPaymentID(ctx, deposit.PaymentID)
	if err != nil {
		return nil, NewBusinessError("PENDING_DEPOSIT_LOOKUP_FAILED", "Failed to look up pending deposit", err)
	}
	if existing != nil {
		return nil, NewBusinessErrorf("PENDING_DEPOSIT_EXISTS", "Pending deposit %s already exists", ErrPendingDepositExists, deposit.PaymentID)
	}

	if err := f.repo.Save(ctx, deposit); err != nil {
		// a concurrent registration may have won the primary key
		if again, lerr := f.repo.ByPaymentID(ctx, deposit.PaymentID); lerr == nil && again != nil {
			return nil, NewBusinessErrorf("PENDING_DEPOSIT_EXISTS", "Pending deposit %s already exists", ErrPendingDepositExists, deposit.PaymentID)
		}
		return nil, NewBusinessError("PENDING_DEPOSIT_SAVE_FAILED", "Failed to save pending deposit", err)
	}

	f.logger.Info("pending deposit registered",
		zap.String("payment_id", deposit.PaymentID),
		zap.Int64("user_id", deposit.UserID),
		zap.String("kind", deposit.Kind()),
		zap.String("currency", deposit.Currency),
		zap.String("target_fiat", utils.FormatFiat(deposit.TargetFiatAmount)),
		zap.String("request_id", requestIDOf(metadata)),
	)

	out := ToPendingDepositDTO(*deposit)
	return &out, nil
}

func (f *PendingDepositFlowImpl) buildDeposit(req *dto.CreatePendingDepositRequest) (*models.PendingDeposit, error) {
	paymentID := strings.TrimSpace(req.PaymentID.String())
	if paymentID == "" {
		return nil, NewBusinessError("PENDING_DEPOSIT_VALIDATION_FAILED", "payment_id is required", ErrInvalidPayload)
	}

	target, err := utils.ParseAmount(req.TargetFiatAmount)
	if err != nil || !target.IsPositive() {
		return nil, NewBusinessError("PENDING_DEPOSIT_VALIDATION_FAILED", "target_fiat_amount must be a positive decimal", ErrInvalidAmount)
	}
	expected, err := utils.ParseAmount(req.ExpectedCryptoAmount)
	if err != nil || !expected.IsPositive() {
		return nil, NewBusinessError("PENDING_DEPOSIT_VALIDATION_FAILED", "expected_crypto_amount must be a positive decimal", ErrInvalidAmount)
	}

	basket := req.BasketSnapshot
	if isEmptyJSON(basket) {
		basket = nil
	}
	if req.IsPurchase && basket == nil {
		return nil, NewBusinessError("PENDING_DEPOSIT_VALIDATION_FAILED", "A purchase requires a basket snapshot", ErrBasketMissing)
	}
	if basket != nil && !json.Valid(basket) {
		return nil, NewBusinessError("PENDING_DEPOSIT_VALIDATION_FAILED", "basket_snapshot is not valid JSON", ErrInvalidPayload)
	}

	var discount *string
	if req.DiscountCodeUsed != nil && strings.TrimSpace(*req.DiscountCodeUsed) != "" {
		discount = utils.ToPtr(strings.TrimSpace(*req.DiscountCodeUsed))
	}

	return &models.PendingDeposit{
		PaymentID:            paymentID,
		UserID:               req.UserID,
		Currency:             strings.ToLower(strings.TrimSpace(req.Currency)),
		TargetFiatAmount:     utils.RoundDown2(target),
		ExpectedCryptoAmount: expected,
		IsPurchase:           req.IsPurchase,
		BasketSnapshot:       basket,
		DiscountCodeUsed:     discount,
		CreatedAt:            utils.UTCNow(),
	}, nil
}

func (f *PendingDepositFlowImpl) Get(ctx context.Context, paymentID string) (*dto.PendingDepositDTO, error) {
	deposit, err := f.repo.ByPaymentID(ctx, strings.TrimSpace(paymentID))
	if err != nil {
		return nil, NewBusinessError("PENDING_DEPOSIT_LOOKUP_FAILED", "Failed to look up pending deposit", err)
	}
	if deposit == nil {
		return nil, NewBusinessError("PENDING_DEPOSIT_NOT_FOUND", "Pending deposit not found", ErrPendingDepositNotFound)
	}
	out := ToPendingDepositDTO(*deposit)
	return &out, nil
}

func isEmptyJSON(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}
