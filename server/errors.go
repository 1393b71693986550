package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"okinoko-button_game/contract"
)

// APIError is the standard error response.
type APIError struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeError(c *gin.Context, status int, errMsg string, code contract.Code) {
	c.AbortWithStatusJSON(status, APIError{
		Error:   http.StatusText(status),
		Code:    string(code),
		Message: errMsg,
	})
}

// statusFor maps a rejected call to an HTTP status. State conflicts are 409
// so a client knows to re-read the game and decide again.
func statusFor(code contract.Code) int {
	switch code {
	case contract.CodeTimerExpired, contract.CodeTimerNotExpired,
		contract.CodeNothingToClaim, contract.CodeGameInactive,
		contract.CodeAlreadyDeployed:
		return http.StatusConflict
	case contract.CodeInvalidPayment, contract.CodeInsufficientFunds:
		return http.StatusPaymentRequired
	case contract.CodeUnauthorized:
		return http.StatusForbidden
	case contract.CodeInvalidArgs, contract.CodeOverflow:
		return http.StatusBadRequest
	case contract.CodeUnknownMethod, contract.CodeNotDeployed:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeCallError(c *gin.Context, err error) {
	var cerr *contract.Error
	if !errors.As(err, &cerr) {
		writeError(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	writeError(c, statusFor(cerr.Code), err.Error(), cerr.Code)
}
