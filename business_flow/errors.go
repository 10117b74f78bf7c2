// Package businessflow contains the settlement business logic and the use cases behind the HTTP handlers
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Webhook ingress errors
	ErrInvalidSignature     = errors.New("invalid IPN signature")
	ErrSignatureSecretUnset = errors.New("IPN secret is not configured")
	ErrInvalidPayload       = errors.New("invalid IPN payload")
	ErrInvalidAmount        = errors.New("actually_paid is not a valid amount")

	// Settlement errors
	ErrLockTimeout         = errors.New("timed out waiting for payment lock")
	ErrCollaboratorTimeout = errors.New("collaborator call timed out")
	ErrExecutorClosed      = errors.New("settlement executor is shut down")
	ErrExecutorBusy        = errors.New("settlement executor queue is full")
	ErrBasketMissing       = errors.New("purchase has no basket snapshot")

	// Manual review errors
	ErrReviewNotFound        = errors.New("settlement review not found")
	ErrReviewAlreadyResolved = errors.New("settlement review already resolved")
	ErrReviewNotRetryable    = errors.New("settlement review stage cannot be retried")
	ErrReviewNoNotification  = errors.New("settlement review has no stored notification")
	ErrInvalidReviewAction   = errors.New("invalid review action")

	// Pending deposit errors
	ErrPendingDepositExists   = errors.New("pending deposit already exists")
	ErrPendingDepositNotFound = errors.New("pending deposit not found")

	// Admin errors
	ErrAdminNotFound     = errors.New("admin not found")
	ErrAdminInactive     = errors.New("admin is inactive")
	ErrIncorrectPassword = errors.New("incorrect password")

	// Filter errors
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsInvalidSignature(err error) bool {
	return errors.Is(err, ErrInvalidSignature)
}

func IsCollaboratorTimeout(err error) bool {
	return errors.Is(err, ErrCollaboratorTimeout)
}

func IsExecutorUnavailable(err error) bool {
	return errors.Is(err, ErrExecutorClosed) || errors.Is(err, ErrExecutorBusy)
}

func IsReviewNotFound(err error) bool {
	return errors.Is(err, ErrReviewNotFound)
}

func IsPendingDepositExists(err error) bool {
	return errors.Is(err, ErrPendingDepositExists)
}

func IsAdminNotFound(err error) bool {
	return errors.Is(err, ErrAdminNotFound)
}

func IsAdminInactive(err error) bool {
	return errors.Is(err, ErrAdminInactive)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

// BusinessErrorCode extracts the code of a wrapped BusinessError, or ""
func BusinessErrorCode(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}
