package testing

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/amirphl/ipn-settlement/models"
	"github.com/amirphl/ipn-settlement/utils"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// TestAdminPassword is the password of admins created by CreateTestAdmin
const TestAdminPassword = "TestPass123!"

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// RandomPaymentID returns a gateway-style numeric payment id
func RandomPaymentID() string {
	return fmt.Sprintf("%010d", rand.Int63n(9000000000)+1000000000)
}

// CreateTestAdmin creates an active admin with TestAdminPassword
func (tf *TestFixtures) CreateTestAdmin(username string) (*models.Admin, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(TestAdminPassword), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &models.Admin{
		Username:     username,
		PasswordHash: string(hash),
		IsActive:     utils.ToPtr(true),
	}
	if err := tf.DB.DB.Create(admin).Error; err != nil {
		return nil, fmt.Errorf("failed to create test admin: %w", err)
	}
	return admin, nil
}

// CreateRefillDeposit creates a balance top-up intent
func (tf *TestFixtures) CreateRefillDeposit(userID int64, target string, createdAt time.Time) (*models.PendingDeposit, error) {
	deposit := &models.PendingDeposit{
		PaymentID:            RandomPaymentID(),
		UserID:               userID,
		Currency:             "btc",
		TargetFiatAmount:     decimal.RequireFromString(target),
		ExpectedCryptoAmount: decimal.RequireFromString("0.0015"),
		CreatedAt:            createdAt,
	}
	if err := tf.DB.DB.Create(deposit).Error; err != nil {
		return nil, fmt.Errorf("failed to create refill deposit: %w", err)
	}
	return deposit, nil
}

// CreatePurchaseDeposit creates a basket purchase intent
func (tf *TestFixtures) CreatePurchaseDeposit(userID int64, target string, createdAt time.Time) (*models.PendingDeposit, error) {
	basket, err := json.Marshal(map[string]any{
		"items": []map[string]any{{"sku": "KEY-001", "quantity": 1}},
	})
	if err != nil {
		return nil, err
	}

	deposit := &models.PendingDeposit{
		PaymentID:            RandomPaymentID(),
		UserID:               userID,
		Currency:             "ltc",
		TargetFiatAmount:     decimal.RequireFromString(target),
		ExpectedCryptoAmount: decimal.RequireFromString("0.5"),
		IsPurchase:           true,
		BasketSnapshot:       basket,
		CreatedAt:            createdAt,
	}
	if err := tf.DB.DB.Create(deposit).Error; err != nil {
		return nil, fmt.Errorf("failed to create purchase deposit: %w", err)
	}
	return deposit, nil
}

// CreateOpenReview opens a manual-review entry for a deposit
func (tf *TestFixtures) CreateOpenReview(deposit *models.PendingDeposit, stage models.SettlementStage) (*models.SettlementReview, error) {
	snapshot, err := json.Marshal(deposit)
	if err != nil {
		return nil, err
	}

	review := &models.SettlementReview{
		PaymentID:       deposit.PaymentID,
		UserID:          deposit.UserID,
		Stage:           stage,
		Amount:          deposit.TargetFiatAmount,
		ErrorMessage:    "collaborator call timed out",
		Status:          models.SettlementReviewStatusOpen,
		DepositSnapshot: snapshot,
		Notification:    json.RawMessage(fmt.Sprintf(`{"payment_id":%q,"payment_status":"finished","actually_paid":"0.0015"}`, deposit.PaymentID)),
	}
	if err := tf.DB.DB.Create(review).Error; err != nil {
		return nil, fmt.Errorf("failed to create settlement review: %w", err)
	}
	return review, nil
}
