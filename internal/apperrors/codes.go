// Package apperrors provides coded launchpad errors and their HTTP mapping.
package apperrors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	CodeUnknown                 Code = "UNKNOWN"
	CodeUnauthorized            Code = "UNAUTHORIZED"
	CodeNotFound                Code = "NOT_FOUND"
	CodeInvalidState            Code = "INVALID_STATE"
	CodeInvalidInput            Code = "INVALID_INPUT"
	CodeLimitExceeded           Code = "LIMIT_EXCEEDED"
	CodeWhitelistRequired       Code = "WHITELIST_REQUIRED"
	CodeWhitelistLocked         Code = "WHITELIST_LOCKED"
	CodeAlreadyClaimed          Code = "ALREADY_CLAIMED"
	CodeNothingToClaim          Code = "NOTHING_TO_CLAIM"
	CodeNothingToRefund         Code = "NOTHING_TO_REFUND"
	CodeAlreadyWithdrawn        Code = "ALREADY_WITHDRAWN"
	CodeReentrancyGuard         Code = "REENTRANCY_GUARD"
	CodeCrossContractCallFailed Code = "CROSS_CONTRACT_CALL_FAILED"
)

// HTTPStatus maps a code to the status the API host replies with.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeUnauthorized:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeInvalidState, CodeWhitelistLocked, CodeAlreadyClaimed,
		CodeAlreadyWithdrawn, CodeReentrancyGuard:
		return http.StatusConflict
	case CodeLimitExceeded, CodeWhitelistRequired, CodeNothingToClaim, CodeNothingToRefund:
		return http.StatusUnprocessableEntity
	case CodeCrossContractCallFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
