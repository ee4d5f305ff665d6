package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError represents a domain-specific error with a code and message
type DomainError struct {
	Code    string
	Message string
	Err     error // underlying error for wrapping
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is and errors.As
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match two domain errors by code, so a wrapped instance
// still compares equal to its predefined value.
func (e *DomainError) Is(target error) bool {
	var domainErr *DomainError
	if errors.As(target, &domainErr) {
		return e.Code == domainErr.Code
	}
	return false
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with domain error context
func WrapError(domainErr *DomainError, err error) *DomainError {
	return &DomainError{
		Code:    domainErr.Code,
		Message: domainErr.Message,
		Err:     err,
	}
}

// Predefined domain errors
var (
	// User / account errors
	ErrUserNotFound            = NewDomainError("USER_NOT_FOUND", "user not found")
	ErrEmailExists             = NewDomainError("EMAIL_EXISTS", "email already registered, please log in")
	ErrEmailExistsGoogle       = NewDomainError("EMAIL_EXISTS_GOOGLE", "email already registered with Google, please use Google Sign In")
	ErrCredentialAccountExists = NewDomainError("CREDENTIAL_ACCOUNT_EXISTS", "email already registered with a password, please log in with email and password")
	ErrWrongLoginMethod        = NewDomainError("WRONG_LOGIN_METHOD", "email registered with Google, please use Google Sign In")
	ErrGoogleAccountOnly       = NewDomainError("GOOGLE_ACCOUNT_ONLY", "account registered with Google, password reset is not available")
	ErrPasswordNotSet          = NewDomainError("PASSWORD_NOT_SET", "no password set for this account, please reset your password")
	ErrAccountDisabled         = NewDomainError("ACCOUNT_DISABLED", "account is disabled")

	// Authentication errors
	ErrInvalidCredentials  = NewDomainError("INVALID_CREDENTIALS", "invalid email or password")
	ErrInvalidOTP          = NewDomainError("INVALID_OTP", "OTP code is invalid or has expired")
	ErrOTPRateLimited      = NewDomainError("OTP_RATE_LIMITED", "too many OTP requests, try again later")
	ErrInvalidToken        = NewDomainError("INVALID_TOKEN", "invalid or expired token")
	ErrInvalidRefreshToken = NewDomainError("INVALID_REFRESH_TOKEN", "invalid refresh token")
	ErrSessionExpired      = NewDomainError("SESSION_EXPIRED", "session has expired, please log in again")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "unauthorized")

	// Delivery errors (the OTP row is already stored when these surface)
	ErrMailRateLimited = NewDomainError("EMAIL_LIMIT_EXCEEDED", "email sending limit exceeded, try again later")
	ErrMailConfig      = NewDomainError("EMAIL_CONFIG_ERROR", "email transport is misconfigured")
	ErrMailSend        = NewDomainError("EMAIL_SEND_ERROR", "failed to send email")

	// System errors
	ErrInternal           = NewDomainError("INTERNAL_ERROR", "internal server error")
	ErrServiceUnavailable = NewDomainError("SERVICE_UNAVAILABLE", "service unavailable")
)

// IsDomainError checks if an error is a domain error
func IsDomainError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr)
}

// GetDomainError extracts the domain error from an error
func GetDomainError(err error) *DomainError {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// ToHTTPStatus maps domain errors to HTTP status codes
// This should only be used in the handler/presentation layer
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErrorToHTTPStatus(domainErr)
	}

	return http.StatusInternalServerError
}

func domainErrorToHTTPStatus(err *DomainError) int {
	switch err.Code {
	// 400 Bad Request
	case "INVALID_OTP":
		return http.StatusBadRequest

	// 401 Unauthorized
	case "UNAUTHORIZED", "INVALID_CREDENTIALS", "PASSWORD_NOT_SET",
		"INVALID_TOKEN", "INVALID_REFRESH_TOKEN", "SESSION_EXPIRED":
		return http.StatusUnauthorized

	// 403 Forbidden
	case "ACCOUNT_DISABLED":
		return http.StatusForbidden

	// 404 Not Found
	case "USER_NOT_FOUND":
		return http.StatusNotFound

	// 409 Conflict
	case "EMAIL_EXISTS", "EMAIL_EXISTS_GOOGLE", "CREDENTIAL_ACCOUNT_EXISTS",
		"WRONG_LOGIN_METHOD", "GOOGLE_ACCOUNT_ONLY":
		return http.StatusConflict

	// 429 Too Many Requests
	case "OTP_RATE_LIMITED", "EMAIL_LIMIT_EXCEEDED":
		return http.StatusTooManyRequests

	// 502 Bad Gateway
	case "EMAIL_SEND_ERROR":
		return http.StatusBadGateway

	// 503 Service Unavailable
	case "SERVICE_UNAVAILABLE":
		return http.StatusServiceUnavailable

	// 500 Internal Server Error (default, EMAIL_CONFIG_ERROR included)
	default:
		return http.StatusInternalServerError
	}
}

// GetErrorMessage safely extracts error message
func GetErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}

	return err.Error()
}
