// internal/errors/errors.go
package appErrors

import "fmt"

// ErrSMTPProfileNotFound is returned when a profile does not exist or belongs to another user.
type ErrSMTPProfileNotFound struct {
	ProfileID int64
}

func (e *ErrSMTPProfileNotFound) Error() string {
	return fmt.Sprintf("smtp configuration with ID %d not found", e.ProfileID)
}

// Helper constructor
func NewSMTPProfileNotFound(id int64) error {
	return &ErrSMTPProfileNotFound{ProfileID: id}
}

type ErrDeliveryNotFound struct {
	DeliveryID int64
}

func (e *ErrDeliveryNotFound) Error() string {
	return fmt.Sprintf("delivery record with ID %d not found", e.DeliveryID)
}

func NewDeliveryNotFound(id int64) error {
	return &ErrDeliveryNotFound{DeliveryID: id}
}

type ErrTemplateNotFound struct {
	TemplateID int64
}

func (e *ErrTemplateNotFound) Error() string {
	return fmt.Sprintf("template with ID %d not found", e.TemplateID)
}

func NewTemplateNotFound(id int64) error {
	return &ErrTemplateNotFound{TemplateID: id}
}

type ErrUserNotFound struct {
	UserID int64
}

func (e *ErrUserNotFound) Error() string {
	return fmt.Sprintf("user with ID %d not found", e.UserID)
}

func NewUserNotFound(id int64) error {
	return &ErrUserNotFound{UserID: id}
}

// RequestError rejects a whole request before any side effect happens.
type RequestError struct {
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

func NewRequestError(format string, args ...any) error {
	return &RequestError{Message: fmt.Sprintf(format, args...)}
}

// QuotaExceededError is a RequestError raised by the monthly usage gate.
type QuotaExceededError struct {
	Limit     int
	Used      int
	Requested int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("monthly email limit reached: %d of %d used, %d requested", e.Used, e.Limit, e.Requested)
}

// TierRestrictedError rejects a feature the user's subscription tier does not include.
type TierRestrictedError struct {
	Tier    string
	Feature string
}

func (e *TierRestrictedError) Error() string {
	return fmt.Sprintf("%s requires a professional or enterprise subscription (current tier: %s)", e.Feature, e.Tier)
}
