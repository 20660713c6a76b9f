package domain

import "fmt"

// Kind classifies a business-rule rejection.
type Kind string

const (
	KindInsufficientCredit Kind = "InsufficientCredit"
	KindInvalidTransition  Kind = "InvalidTransition"
	KindNotAuthorized      Kind = "NotAuthorized"
	KindNotFound           Kind = "NotFound"
	KindDuplicateRequest   Kind = "DuplicateRequest"
	KindConsistencyAnomaly Kind = "ConsistencyAnomaly"
	KindValidation         Kind = "Validation"
)

// Error is a rejected operation. Code is stable and machine-checkable; Message is for humans.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches on Kind and Code so sentinels compare equal to re-worded copies.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// WithMessage returns a copy of e carrying a more specific message.
func (e *Error) WithMessage(format string, args ...interface{}) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrInsufficientCredit = &Error{Kind: KindInsufficientCredit, Code: "INSUFFICIENT_CREDIT", Message: "insufficient time credit"}

	ErrInvalidTransition = &Error{Kind: KindInvalidTransition, Code: "INVALID_TRANSITION", Message: "action not allowed in the current state"}
	ErrAlreadyConfirmed  = &Error{Kind: KindInvalidTransition, Code: "ALREADY_CONFIRMED", Message: "you have already confirmed completion"}
	ErrListingLocked     = &Error{Kind: KindInvalidTransition, Code: "LISTING_HAS_EXCHANGES", Message: "listing has active or completed exchanges; only listings whose exchanges are all cancelled can be changed"}
	ErrListingFull       = &Error{Kind: KindInvalidTransition, Code: "LISTING_FULL", Message: "listing has no free slots"}
	ErrListingClosed     = &Error{Kind: KindInvalidTransition, Code: "LISTING_NOT_AVAILABLE", Message: "listing is not available"}

	ErrNotAuthorized = &Error{Kind: KindNotAuthorized, Code: "NOT_AUTHORIZED", Message: "you are not allowed to perform this action"}
	ErrUserBanned    = &Error{Kind: KindNotAuthorized, Code: "USER_BANNED", Message: "your account is banned"}
	ErrNotVerified   = &Error{Kind: KindNotAuthorized, Code: "EMAIL_NOT_VERIFIED", Message: "please verify your email first"}

	ErrNotFound = &Error{Kind: KindNotFound, Code: "NOT_FOUND", Message: "not found"}

	ErrDuplicateExchange = &Error{Kind: KindDuplicateRequest, Code: "DUPLICATE_EXCHANGE", Message: "you already have an active exchange for this listing"}
	ErrDuplicateReport   = &Error{Kind: KindDuplicateRequest, Code: "DUPLICATE_REPORT", Message: "you have already reported this"}
	ErrDuplicateRating   = &Error{Kind: KindDuplicateRequest, Code: "DUPLICATE_RATING", Message: "you have already rated this exchange"}

	ErrValidation = &Error{Kind: KindValidation, Code: "VALIDATION_ERROR", Message: "invalid request"}
	ErrPastDate   = &Error{Kind: KindValidation, Code: "PAST_DATE", Message: "date cannot be in the past"}
	ErrSelfAction = &Error{Kind: KindValidation, Code: "SELF_ACTION", Message: "you cannot do this on your own listing"}

	ErrUnblockClamped = &Error{Kind: KindConsistencyAnomaly, Code: "UNBLOCK_CLAMPED", Message: "unblock exceeded blocked amount"}
)

// NotFoundf builds a NotFound error naming the missing thing.
func NotFoundf(what string) *Error {
	return ErrNotFound.WithMessage("%s not found", what)
}
