package businessflow

import (
	"strings"

	"github.com/amirphl/ipn-settlement/models"
	"github.com/amirphl/ipn-settlement/utils"
	"github.com/shopspring/decimal"
)

// NOWPayments payment_status values
const (
	GatewayStatusWaiting       = "waiting"
	GatewayStatusConfirming    = "confirming"
	GatewayStatusConfirmed     = "confirmed"
	GatewayStatusSending       = "sending"
	GatewayStatusPartiallyPaid = "partially_paid"
	GatewayStatusFinished      = "finished"
	GatewayStatusFailed        = "failed"
	GatewayStatusRefunded      = "refunded"
	GatewayStatusExpired       = "expired"
)

var terminalGatewayStatuses = map[string]bool{
	GatewayStatusFinished:      true,
	GatewayStatusConfirmed:     true,
	GatewayStatusPartiallyPaid: true,
	GatewayStatusFailed:        true,
	GatewayStatusExpired:       true,
	GatewayStatusRefunded:      true,
}

var failureGatewayStatuses = map[string]bool{
	GatewayStatusFailed:   true,
	GatewayStatusExpired:  true,
	GatewayStatusRefunded: true,
}

// OutcomeKind tags a SettlementOutcome
type OutcomeKind string

const (
	OutcomeIgnore            OutcomeKind = "ignore"
	OutcomeFinalizePurchase  OutcomeKind = "finalize_purchase"
	OutcomeCreditSalvage     OutcomeKind = "credit_underpayment_salvage"
	OutcomeCreditRefill      OutcomeKind = "credit_refill"
	OutcomeCancel            OutcomeKind = "cancel"
	OutcomeCreditOverpayment OutcomeKind = "credit_overpayment"
)

// Cancel reasons that are not gateway statuses
const (
	CancelReasonCurrencyMismatch = "currency_mismatch"
	CancelReasonZeroPaid         = "zero_paid"
	CancelReasonZeroExpected     = "zero_expected"
)

// SettlementOutcome is the decision for one notification against one pending deposit
type SettlementOutcome struct {
	Kind OutcomeKind
	// PaidFiat is the fiat value of actually_paid at the quote recorded on the deposit
	PaidFiat decimal.Decimal
	// Overpayment is set for FinalizePurchase; credited only when positive
	Overpayment decimal.Decimal
	// Amount is the credit for CreditRefill and CreditSalvage
	Amount decimal.Decimal
	Reason string
}

// IsDataIntegrityCancel reports whether the cancel was caused by inconsistent
// records rather than by the payer.
func (o SettlementOutcome) IsDataIntegrityCancel() bool {
	return o.Kind == OutcomeCancel &&
		(o.Reason == CancelReasonCurrencyMismatch || o.Reason == CancelReasonZeroExpected)
}

func ignoreOutcome(reason string) SettlementOutcome {
	return SettlementOutcome{Kind: OutcomeIgnore, Reason: reason}
}

func cancelOutcome(reason string) SettlementOutcome {
	return SettlementOutcome{Kind: OutcomeCancel, Reason: reason}
}

// IsTerminalGatewayStatus reports whether the status ends the payment lifecycle
func IsTerminalGatewayStatus(status string) bool {
	return terminalGatewayStatuses[normalizeStatus(status)]
}

func normalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

// Classify maps a notification onto exactly one outcome. It performs no I/O.
func Classify(status string, payCurrency string, actuallyPaid decimal.Decimal, deposit *models.PendingDeposit) SettlementOutcome {
	status = normalizeStatus(status)

	if !terminalGatewayStatuses[status] {
		return ignoreOutcome(status)
	}

	if !utils.SameCurrency(deposit.Currency, payCurrency) {
		return cancelOutcome(CancelReasonCurrencyMismatch)
	}

	if failureGatewayStatuses[status] {
		return cancelOutcome(status)
	}

	if !actuallyPaid.IsPositive() {
		// confirmed with nothing received yet keeps the intent open
		if status == GatewayStatusConfirmed {
			return ignoreOutcome(status)
		}
		return cancelOutcome(CancelReasonZeroPaid)
	}

	expected := deposit.ExpectedCryptoAmount
	if !expected.IsPositive() {
		return cancelOutcome(CancelReasonZeroExpected)
	}

	paidFiat, err := utils.ProportionalFiat(actuallyPaid, expected, deposit.TargetFiatAmount)
	if err != nil {
		return cancelOutcome(CancelReasonZeroExpected)
	}

	if !deposit.IsPurchase {
		return SettlementOutcome{Kind: OutcomeCreditRefill, PaidFiat: paidFiat, Amount: paidFiat}
	}

	if actuallyPaid.GreaterThanOrEqual(expected) {
		return SettlementOutcome{
			Kind:        OutcomeFinalizePurchase,
			PaidFiat:    paidFiat,
			Overpayment: utils.RoundDown2(paidFiat.Sub(deposit.TargetFiatAmount)),
		}
	}

	return SettlementOutcome{Kind: OutcomeCreditSalvage, PaidFiat: paidFiat, Amount: paidFiat}
}
