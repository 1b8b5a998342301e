package services

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by services. Handlers map them to HTTP status
// codes with errors.Is.
var (
	ErrUserNotFound       = errors.New("there is no user with that id or email")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrUserNameTaken      = errors.New("user name is already taken")
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrIncorrectPassword  = errors.New("your current password is wrong")
	ErrAccountDisabled    = errors.New("this account has been deactivated")

	ErrInvalidToken = errors.New("invalid or expired token")
	ErrTokenRevoked = errors.New("token has been revoked, please log in again")
	ErrTokenStale   = errors.New("user recently changed password, please log in again")
	ErrTokenOrphan  = errors.New("the user belonging to this token no longer exists")

	ErrInvalidResetCode = errors.New("verification code is invalid or has expired")
	ErrResetUnavailable = errors.New("password reset is temporarily unavailable")

	ErrCourseNotFound     = errors.New("course not found")
	ErrModuleNotFound     = errors.New("module not found")
	ErrLessonNotFound     = errors.New("lesson not found")
	ErrDiscussionNotFound = errors.New("discussion not found")
	ErrQuizNotFound       = errors.New("quiz not found")
	ErrPaymentNotFound    = errors.New("payment not found")

	ErrAlreadyEnrolled      = errors.New("you are already enrolled in this course")
	ErrNothingToPay         = errors.New("course is free, there is nothing to pay")
	ErrPaymentsDisabled     = errors.New("payments are not configured")
	ErrPaymentNotRefundable = errors.New("only completed payments can be refunded")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrAnswerCount          = errors.New("number of answers must match number of questions")

	ErrForbidden = errors.New("you do not have permission to perform this action")
)

// InputError reports a malformed request value that the validator cannot catch,
// such as an unparsable identifier in a query string.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalidInput(field, message string) error {
	return &InputError{Field: field, Message: message}
}
