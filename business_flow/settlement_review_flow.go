package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/amirphl/ipn-settlement/app/dto"
	"github.com/amirphl/ipn-settlement/app/services"
	"github.com/amirphl/ipn-settlement/models"
	"github.com/amirphl/ipn-settlement/repository"
	"github.com/amirphl/ipn-settlement/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultReviewPageSize = 20
	maxReviewPageSize     = 100
	maxReviewExportRows   = 10000
)

// SettlementReviewFlow is the operator surface over the manual-review queue
type SettlementReviewFlow interface {
	List(ctx context.Context, req *dto.ListSettlementReviewsRequest) (*dto.ListSettlementReviewsResponse, error)
	Resolve(ctx context.Context, reviewUUID string, req *dto.ResolveSettlementReviewRequest, operator string, metadata *ClientMetadata) (*dto.ResolveSettlementReviewResponse, error)
	Export(ctx context.Context, req *dto.ListSettlementReviewsRequest) (filename string, data []byte, err error)
}

// SettlementReviewFlowImpl implements SettlementReviewFlow
type SettlementReviewFlowImpl struct {
	db      *gorm.DB
	reviews repository.SettlementReviewRepository
	store   PendingDepositStore
	engine  SettlementEngine
	logger  *zap.Logger
}

func NewSettlementReviewFlow(
	db *gorm.DB,
	reviews repository.SettlementReviewRepository,
	store PendingDepositStore,
	engine SettlementEngine,
	logger *zap.Logger,
) SettlementReviewFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettlementReviewFlowImpl{
		db:      db,
		reviews: reviews,
		store:   store,
		engine:  engine,
		logger:  logger,
	}
}

func reviewFilterFrom(req *dto.ListSettlementReviewsRequest) models.SettlementReviewFilter {
	var filter models.SettlementReviewFilter
	if req == nil {
		return filter
	}
	if req.Status != "" {
		filter.Status = utils.ToPtr(models.SettlementReviewStatus(req.Status))
	}
	if req.Stage != "" {
		filter.Stage = utils.ToPtr(models.SettlementStage(req.Stage))
	}
	if p := strings.TrimSpace(req.PaymentID); p != "" {
		filter.PaymentID = &p
	}
	return filter
}

func (f *SettlementReviewFlowImpl) List(ctx context.Context, req *dto.ListSettlementReviewsRequest) (*dto.ListSettlementReviewsResponse, error) {
	if req == nil {
		req = &dto.ListSettlementReviewsRequest{}
	}
	page := req.Page
	if page == 0 {
		page = 1
	}
	if page < 1 {
		return nil, NewBusinessError("INVALID_PAGE", "Invalid page", ErrInvalidPage)
	}
	pageSize := req.PageSize
	if pageSize == 0 {
		pageSize = defaultReviewPageSize
	}
	if pageSize < 1 || pageSize > maxReviewPageSize {
		return nil, NewBusinessError("INVALID_PAGE_SIZE", "Invalid page size", ErrInvalidPageSize)
	}

	filter := reviewFilterFrom(req)
	total, err := f.reviews.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("LIST_REVIEWS_FAILED", "Failed to count settlement reviews", err)
	}
	rows, err := f.reviews.ByFilter(ctx, filter, "created_at DESC, id DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("LIST_REVIEWS_FAILED", "Failed to list settlement reviews", err)
	}

	items := make([]dto.SettlementReviewDTO, 0, len(rows))
	for _, r := range rows {
		items = append(items, ToSettlementReviewDTO(*r))
	}

	return &dto.ListSettlementReviewsResponse{
		Items:      items,
		Pagination: dto.NewPaginationInfo(total, page, pageSize),
	}, nil
}

func (f *SettlementReviewFlowImpl) Resolve(ctx context.Context, reviewUUID string, req *dto.ResolveSettlementReviewRequest, operator string, metadata *ClientMetadata) (*dto.ResolveSettlementReviewResponse, error) {
	if req == nil {
		return nil, NewBusinessError("INVALID_REVIEW_ACTION", "Action is required", ErrInvalidReviewAction)
	}
	if _, err := utils.ParseUUID(reviewUUID); err != nil {
		return nil, NewBusinessError("REVIEW_NOT_FOUND", "Settlement review not found", ErrReviewNotFound)
	}

	review, err := f.reviews.ByUUID(ctx, reviewUUID)
	if err != nil {
		return nil, NewBusinessError("REVIEW_LOOKUP_FAILED", "Failed to look up settlement review", err)
	}
	if review == nil {
		return nil, NewBusinessError("REVIEW_NOT_FOUND", "Settlement review not found", ErrReviewNotFound)
	}
	if !review.IsOpen() {
		return nil, NewBusinessError("REVIEW_ALREADY_RESOLVED", "Settlement review is already resolved", ErrReviewAlreadyResolved)
	}

	log := f.logger.With(
		zap.String("review_uuid", review.UUID.String()),
		zap.String("payment_id", review.PaymentID),
		zap.String("stage", string(review.Stage)),
		zap.String("action", req.Action),
		zap.String("operator", operator),
		zap.String("request_id", requestIDOf(metadata)),
	)

	resp := &dto.ResolveSettlementReviewResponse{}
	switch req.Action {
	case dto.ReviewActionDismiss:
		if err := f.markResolved(ctx, review, models.SettlementResolutionDismissed, operator, req.Note); err != nil {
			return nil, err
		}

	case dto.ReviewActionRemovePending:
		err := f.withTransaction(ctx, func(txCtx context.Context) error {
			if err := f.store.Remove(txCtx, review.PaymentID, RemovalManualResolution); err != nil {
				return NewBusinessError("REMOVE_PENDING_FAILED", "Failed to remove pending deposit", err)
			}
			return f.markResolved(txCtx, review, models.SettlementResolutionRemoved, operator, req.Note)
		})
		if err != nil {
			return nil, err
		}

	case dto.ReviewActionRetry:
		result, err := f.retry(ctx, review, operator, req.Note, requestIDOf(metadata))
		if err != nil {
			return nil, err
		}
		resp.State = string(result.State)
		resp.Outcome = string(result.Outcome)

	default:
		return nil, NewBusinessErrorf("INVALID_REVIEW_ACTION", "Unknown action %q", ErrInvalidReviewAction, req.Action)
	}

	log.Info("settlement review resolved", zap.String("state", resp.State))
	resp.Review = ToSettlementReviewDTO(*review)
	return resp, nil
}

// retry closes the review first so the open-review guard lets the replayed
// notification through. The review is reopened when the engine fails.
func (f *SettlementReviewFlowImpl) retry(ctx context.Context, review *models.SettlementReview, operator, note, requestID string) (*SettlementResult, error) {
	if !review.Stage.Retryable() {
		return nil, NewBusinessErrorf("REVIEW_NOT_RETRYABLE", "Stage %s cannot be retried", ErrReviewNotRetryable, review.Stage)
	}
	n, err := notificationFromReview(review, requestID)
	if err != nil {
		return nil, NewBusinessError("REVIEW_NO_NOTIFICATION", "Settlement review has no replayable notification", err)
	}

	deposit, err := f.store.Lookup(ctx, review.PaymentID)
	if err != nil {
		return nil, NewBusinessError("PENDING_DEPOSIT_LOOKUP_FAILED", "Failed to look up pending deposit", err)
	}
	if deposit == nil {
		return nil, NewBusinessError("PENDING_DEPOSIT_NOT_FOUND", "Pending deposit no longer exists", ErrPendingDepositNotFound)
	}

	if err := f.markResolved(ctx, review, models.SettlementResolutionRetried, operator, note); err != nil {
		return nil, err
	}

	result, err := f.engine.Settle(ctx, n)
	if err != nil {
		review.Status = models.SettlementReviewStatusOpen
		review.Resolution = nil
		review.ResolvedBy = nil
		review.ResolvedAt = nil
		if uerr := f.reviews.Update(ctx, review); uerr != nil {
			f.logger.Error("failed to reopen settlement review after failed retry",
				zap.String("review_uuid", review.UUID.String()),
				zap.Error(uerr),
			)
		}
		return nil, NewBusinessError("REVIEW_RETRY_FAILED", "Retrying the settlement failed", err)
	}
	return result, nil
}

// withTransaction runs fn in one database transaction. Without a database fn runs as is.
func (f *SettlementReviewFlowImpl) withTransaction(ctx context.Context, fn func(context.Context) error) error {
	if f.db == nil {
		return fn(ctx)
	}
	return repository.WithTransaction(ctx, f.db, fn)
}

func (f *SettlementReviewFlowImpl) markResolved(ctx context.Context, review *models.SettlementReview, resolution models.SettlementResolution, operator, note string) error {
	review.Status = models.SettlementReviewStatusResolved
	review.Resolution = &resolution
	review.ResolvedAt = utils.UTCNowPtr()
	if operator != "" {
		review.ResolvedBy = utils.ToPtr(operator)
	}
	if strings.TrimSpace(note) != "" {
		review.Note = utils.ToPtr(strings.TrimSpace(note))
	}
	if err := f.reviews.Update(ctx, review); err != nil {
		return NewBusinessError("REVIEW_UPDATE_FAILED", "Failed to update settlement review", err)
	}
	return nil
}

func notificationFromReview(review *models.SettlementReview, requestID string) (*PaymentNotification, error) {
	if isEmptyJSON(review.Notification) {
		return nil, ErrReviewNoNotification
	}
	var req dto.NOWPaymentsIPNRequest
	if err := json.Unmarshal(review.Notification, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReviewNoNotification, err)
	}
	paid, err := utils.ParseAmount(req.ActuallyPaid.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReviewNoNotification, err)
	}
	return &PaymentNotification{
		PaymentID:     review.PaymentID,
		PaymentStatus: strings.ToLower(strings.TrimSpace(req.PaymentStatus)),
		PayCurrency:   strings.TrimSpace(req.PayCurrency),
		ActuallyPaid:  paid,
		Raw:           review.Notification,
		RequestID:     requestID,
	}, nil
}

func (f *SettlementReviewFlowImpl) Export(ctx context.Context, req *dto.ListSettlementReviewsRequest) (string, []byte, error) {
	rows, err := f.reviews.ByFilter(ctx, reviewFilterFrom(req), "created_at DESC, id DESC", maxReviewExportRows, 0)
	if err != nil {
		return "", nil, NewBusinessError("LIST_REVIEWS_FAILED", "Failed to list settlement reviews", err)
	}
	data, err := services.ExportSettlementReviews(rows)
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}
	filename := fmt.Sprintf("settlement_reviews_%s.xlsx", utils.UTCNow().Format("20060102_150405"))
	return filename, data, nil
}
