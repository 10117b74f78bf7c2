package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FlexString accepts a JSON string or a JSON number and keeps the literal text.
// NOWPayments sends ids and amounts either way depending on the API version.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(data))
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

// NOWPaymentsIPNRequest is the IPN callback body
type NOWPaymentsIPNRequest struct {
	PaymentID        FlexString `json:"payment_id" validate:"required"`
	ParentPaymentID  FlexString `json:"parent_payment_id,omitempty"`
	InvoiceID        FlexString `json:"invoice_id,omitempty"`
	PaymentStatus    string     `json:"payment_status" validate:"required,max=32"`
	PayAddress       string     `json:"pay_address,omitempty"`
	PriceAmount      FlexString `json:"price_amount,omitempty"`
	PriceCurrency    string     `json:"price_currency,omitempty"`
	PayAmount        FlexString `json:"pay_amount,omitempty"`
	ActuallyPaid     FlexString `json:"actually_paid" validate:"required"`
	PayCurrency      string     `json:"pay_currency" validate:"required,max=32"`
	OrderID          string     `json:"order_id,omitempty"`
	OrderDescription string     `json:"order_description,omitempty"`
	PurchaseID       FlexString `json:"purchase_id,omitempty"`
	OutcomeAmount    FlexString `json:"outcome_amount,omitempty"`
	OutcomeCurrency  string     `json:"outcome_currency,omitempty"`
	CreatedAt        string     `json:"created_at,omitempty"`
	UpdatedAt        string     `json:"updated_at,omitempty"`
}

// IsChildPayment reports whether the notification is for a repeated deposit
// attached to a parent payment
func (r *NOWPaymentsIPNRequest) IsChildPayment() bool {
	p := string(r.ParentPaymentID)
	return p != "" && p != "0"
}

// IPNAckResponse is returned to the gateway once a notification was accepted
type IPNAckResponse struct {
	PaymentID string `json:"payment_id" example:"5077125051"`
	Status    string `json:"status" example:"processed"`
	State     string `json:"state,omitempty" example:"settled"`
	Outcome   string `json:"outcome,omitempty" example:"finalize_purchase"`
}

// IPN ack statuses
const (
	IPNAckProcessed    = "processed"
	IPNAckAccepted     = "accepted"
	IPNAckChildIgnored = "child_ignored"
	IPNAckFailed       = "failed"
)
