package businessflow

import (
	"github.com/amirphl/ipn-settlement/app/dto"
	"github.com/amirphl/ipn-settlement/models"
	"github.com/amirphl/ipn-settlement/utils"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds client information attached to log lines and audit rows
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

func requestIDOf(metadata *ClientMetadata) string {
	if metadata == nil {
		return ""
	}
	return metadata.RequestID
}

// ToAdminDTOModel converts an admin model to its API representation
func ToAdminDTOModel(admin models.Admin) dto.AdminDTO {
	out := dto.AdminDTO{
		ID:        admin.ID,
		UUID:      admin.UUID.String(),
		Username:  admin.Username,
		IsActive:  admin.IsActive,
		CreatedAt: utils.FormatRFC3339(admin.CreatedAt),
	}
	if admin.LastLoginAt != nil {
		out.LastLoginAt = utils.ToPtr(utils.FormatRFC3339(*admin.LastLoginAt))
	}
	return out
}

// ToAdminSessionDTO wraps an issued token pair
func ToAdminSessionDTO(accessToken, refreshToken string) dto.AdminSessionDTO {
	return dto.AdminSessionDTO{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    utils.AccessTokenTTLSeconds,
		TokenType:    "Bearer",
		CreatedAt:    utils.FormatRFC3339(utils.UTCNow()),
	}
}

// ToSettlementReviewDTO converts a review entry to its API representation
func ToSettlementReviewDTO(r models.SettlementReview) dto.SettlementReviewDTO {
	out := dto.SettlementReviewDTO{
		UUID:            r.UUID.String(),
		PaymentID:       r.PaymentID,
		UserID:          r.UserID,
		Stage:           string(r.Stage),
		Amount:          utils.FormatFiat(r.Amount),
		ErrorMessage:    r.ErrorMessage,
		Status:          string(r.Status),
		ResolvedBy:      r.ResolvedBy,
		Note:            r.Note,
		DepositSnapshot: r.DepositSnapshot,
		CreatedAt:       utils.FormatRFC3339(r.CreatedAt),
	}
	if r.Resolution != nil {
		out.Resolution = utils.ToPtr(string(*r.Resolution))
	}
	if r.ResolvedAt != nil {
		out.ResolvedAt = utils.ToPtr(utils.FormatRFC3339(*r.ResolvedAt))
	}
	return out
}

// ToPendingDepositDTO converts a pending deposit to its API representation
func ToPendingDepositDTO(d models.PendingDeposit) dto.PendingDepositDTO {
	return dto.PendingDepositDTO{
		PaymentID:            d.PaymentID,
		UserID:               d.UserID,
		Currency:             d.Currency,
		TargetFiatAmount:     utils.FormatFiat(d.TargetFiatAmount),
		ExpectedCryptoAmount: d.ExpectedCryptoAmount.String(),
		IsPurchase:           d.IsPurchase,
		BasketSnapshot:       d.BasketSnapshot,
		DiscountCodeUsed:     d.DiscountCodeUsed,
		CreatedAt:            utils.FormatRFC3339(d.CreatedAt),
	}
}
