// Package model holds the gateway's shared error taxonomy, money helpers and
// the storefront-facing request/response schemas.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Sentinels matched with errors.Is.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrPaymentFailed  = errors.New("payment failed")
	ErrUpstreamError  = errors.New("upstream error")
	ErrRateLimited    = errors.New("rate limited")
)

// APIError is the error half of the response envelope. Details carries the
// WooCommerce payload when the failure came from the store.
type APIError struct {
	Code       string          `json:"code"`
	Message    string          `json:"message"`
	Details    json.RawMessage `json:"details,omitempty"`
	StatusCode int             `json:"-"`
	Err        error           `json:"-"`
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Error codes as they appear in the envelope's error.code.
const (
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodePayment      = "PAYMENT_ERROR"
	CodeUpstream     = "UPSTREAM_ERROR"
	CodeRateLimited  = "RATE_LIMITED"
	CodeInternal     = "INTERNAL_ERROR"
)

func newError(code string, status int, cause error, msg string) *APIError {
	return &APIError{Code: code, Message: msg, StatusCode: status, Err: cause}
}

// NewNotFoundError reports a missing order, product, attribute or session.
func NewNotFoundError(resource string) *APIError {
	return newError(CodeNotFound, http.StatusNotFound, ErrNotFound, resource+" not found")
}

// NewValidationError reports a bad field in the storefront's request.
func NewValidationError(field, reason string) *APIError {
	return newError(CodeValidation, http.StatusBadRequest, ErrInvalidRequest,
		fmt.Sprintf("invalid %s: %s", field, reason))
}

// NewBadRequestError reports a request that is well-formed but cannot be
// served in the cart's current state, e.g. checking out an empty cart.
func NewBadRequestError(reason string) *APIError {
	return newError(CodeValidation, http.StatusBadRequest, ErrInvalidRequest, reason)
}

func NewUnauthorizedError(reason string) *APIError {
	return newError(CodeUnauthorized, http.StatusUnauthorized, ErrUnauthorized, reason)
}

// NewForbiddenError is returned for orders owned by another customer.
func NewForbiddenError(reason string) *APIError {
	return newError(CodeForbidden, http.StatusForbidden, ErrForbidden, reason)
}

// NewPaymentError is a declined or rejected payment (402).
func NewPaymentError(reason string) *APIError {
	return newError(CodePayment, http.StatusPaymentRequired, ErrPaymentFailed, reason)
}

// NewUpstreamError wraps a transport or decoding failure talking to the store.
func NewUpstreamError(service string, err error) *APIError {
	return newError(CodeUpstream, http.StatusBadGateway,
		fmt.Errorf("%w: %v", ErrUpstreamError, err), service+" request failed")
}

// NewUpstreamStatusError keeps the store's status code and JSON payload.
// 4xx statuses pass through so the storefront sees e.g. a stock conflict as
// 409; anything else becomes 502. The store's own message replaces the
// generic one when present, and non-JSON payloads are dropped from Details.
func NewUpstreamStatusError(service string, status int, payload []byte) *APIError {
	code := status
	if code < 400 || code >= 500 {
		code = http.StatusBadGateway
	}

	e := newError(CodeUpstream, code,
		fmt.Errorf("%w: %s returned status %d", ErrUpstreamError, service, status),
		service+" request failed")

	if json.Valid(payload) {
		e.Details = json.RawMessage(payload)
		var upstream struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(payload, &upstream) == nil && upstream.Message != "" {
			e.Message = upstream.Message
		}
	}
	return e
}

func NewInternalError(err error) *APIError {
	return newError(CodeInternal, http.StatusInternalServerError, err, "an internal error occurred")
}

// NewRateLimitError is returned when the store answers 429.
func NewRateLimitError(service string) *APIError {
	return newError(CodeRateLimited, http.StatusTooManyRequests, ErrRateLimited,
		service+" rate limit exceeded, please retry later")
}
