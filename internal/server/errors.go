package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	auditdomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/audit/domain"
	catalogdomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/catalog/domain"
	ledgerdomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/ledger/domain"
	settingsdomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/settings/domain"
	thresholddomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/threshold/domain"
)

// apiError is the structured error envelope returned to callers.
type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *apiError) Error() string { return e.Code }

var (
	ErrNotFound        = &apiError{Status: http.StatusNotFound, Code: "not_found", Message: "resource not found"}
	ErrTooManyRequests = &apiError{Status: http.StatusTooManyRequests, Code: "rate_limited", Message: "too many requests"}
)

func invalidRequestError() *apiError {
	return &apiError{Status: http.StatusBadRequest, Code: "invalid_request", Message: "malformed request body"}
}

func newValidationError(field, code, message string) *apiError {
	return &apiError{Status: http.StatusBadRequest, Code: code, Message: message, Field: field}
}

// AbortWithError maps domain sentinels onto HTTP statuses and writes the
// structured envelope.
func AbortWithError(c *gin.Context, err error) {
	var api *apiError
	if errors.As(err, &api) {
		c.AbortWithStatusJSON(api.Status, gin.H{"error": api})
		return
	}

	status := http.StatusInternalServerError
	code := "internal_error"

	switch {
	case errors.Is(err, ledgerdomain.ErrUnknownItem),
		errors.Is(err, ledgerdomain.ErrStockNotFound),
		errors.Is(err, catalogdomain.ErrItemNotFound),
		errors.Is(err, settingsdomain.ErrSettingNotFound),
		errors.Is(err, thresholddomain.ErrOverrideNotFound):
		status = http.StatusNotFound
		code = err.Error()

	case errors.Is(err, ledgerdomain.ErrInvalidQuantity),
		errors.Is(err, ledgerdomain.ErrInvalidKind),
		errors.Is(err, ledgerdomain.ErrInvalidEventKey),
		errors.Is(err, ledgerdomain.ErrInvalidActor),
		errors.Is(err, ledgerdomain.ErrInvalidOccurredAt),
		errors.Is(err, ledgerdomain.ErrInvalidReservation),
		errors.Is(err, settingsdomain.ErrInvalidSetting),
		errors.Is(err, thresholddomain.ErrInvalidOverride),
		errors.Is(err, catalogdomain.ErrInvalidItem):
		status = http.StatusBadRequest
		code = err.Error()

	case errors.Is(err, settingsdomain.ErrSettingOutOfBounds):
		status = http.StatusUnprocessableEntity
		code = err.Error()

	case errors.Is(err, ledgerdomain.ErrInsufficientStock),
		errors.Is(err, ledgerdomain.ErrConcurrencyConflict),
		errors.Is(err, ledgerdomain.ErrIntegrityFault),
		errors.Is(err, settingsdomain.ErrSettingConflict):
		status = http.StatusConflict
		code = err.Error()

	case errors.Is(err, ledgerdomain.ErrStoreUnavailable),
		errors.Is(err, settingsdomain.ErrStoreUnavailable),
		errors.Is(err, thresholddomain.ErrStoreUnavailable),
		errors.Is(err, auditdomain.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
		code = err.Error()
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": &apiError{
		Status:  status,
		Code:    code,
		Message: message,
	}})
}
