package server

import (
	"errors"
	"net/http"
	"strings"

	auditdomain "github.com/clinicore/ledger/internal/audit/domain"
	catalogdomain "github.com/clinicore/ledger/internal/catalog/domain"
	claimdomain "github.com/clinicore/ledger/internal/claim/domain"
	invoicedomain "github.com/clinicore/ledger/internal/invoice/domain"
	orderdomain "github.com/clinicore/ledger/internal/order/domain"
	paymentdomain "github.com/clinicore/ledger/internal/payment/domain"
	sequencedomain "github.com/clinicore/ledger/internal/sequence/domain"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidRequest = errors.New("invalid_request")
)

// ErrorHandlingMiddleware turns domain errors collected on the context into
// the uniform JSON error envelope. Handlers never write error bodies directly.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{Field: field, Code: code, Message: message},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{Field: validationErrorField(code), Code: code, Message: "invalid value"},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case errors.Is(err, sequencedomain.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, invoicedomain.ErrInvalidPatient),
		errors.Is(err, invoicedomain.ErrNoItems),
		errors.Is(err, invoicedomain.ErrInvalidQuantity),
		errors.Is(err, invoicedomain.ErrInvalidUnitPrice),
		errors.Is(err, invoicedomain.ErrInvalidDiscount),
		errors.Is(err, invoicedomain.ErrInvalidTaxRate),
		errors.Is(err, invoicedomain.ErrInvalidStatus),
		errors.Is(err, invoicedomain.ErrInvalidAmount),
		errors.Is(err, invoicedomain.ErrOverpaymentDenied),
		errors.Is(err, paymentdomain.ErrInvalidMethod),
		errors.Is(err, claimdomain.ErrInvalidPatient),
		errors.Is(err, claimdomain.ErrMissingPayer),
		errors.Is(err, claimdomain.ErrMissingPolicy),
		errors.Is(err, claimdomain.ErrMissingServiceDate),
		errors.Is(err, claimdomain.ErrInvalidCharge),
		errors.Is(err, claimdomain.ErrInvalidClaimStatus),
		errors.Is(err, claimdomain.ErrMissingDenial),
		errors.Is(err, orderdomain.ErrInvalidPatient),
		errors.Is(err, orderdomain.ErrMissingTestName),
		errors.Is(err, orderdomain.ErrMissingModality),
		errors.Is(err, orderdomain.ErrMissingBodyPart),
		errors.Is(err, orderdomain.ErrInvalidStatus),
		errors.Is(err, auditdomain.ErrInvalidAction),
		errors.Is(err, auditdomain.ErrInvalidPageToken),
		errors.Is(err, auditdomain.ErrInvalidTimeRange),
		errors.Is(err, sequencedomain.ErrUnknownKind):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, invoicedomain.ErrInvoiceNotFound),
		errors.Is(err, paymentdomain.ErrPaymentNotFound),
		errors.Is(err, claimdomain.ErrClaimNotFound),
		errors.Is(err, orderdomain.ErrOrderNotFound),
		errors.Is(err, catalogdomain.ErrCodeNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, invoicedomain.ErrConcurrencyConflict),
		errors.Is(err, claimdomain.ErrInvalidTransition),
		errors.Is(err, orderdomain.ErrInvalidTransition):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	if strings.HasPrefix(code, "missing_") {
		return strings.TrimPrefix(code, "missing_")
	}
	return ""
}

// classifyErrorForLog tags request log lines with a coarse error type plus
// the sentinel code, without leaking internals into the log schema.
func classifyErrorForLog(err error) (string, string) {
	switch {
	case err == nil:
		return "", ""
	case asValidationErrors(err) != nil, isValidationError(err):
		return "validation_error", err.Error()
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized", err.Error()
	case isNotFoundError(err):
		return "not_found", err.Error()
	case isConflictError(err):
		return "conflict", err.Error()
	case errors.Is(err, sequencedomain.ErrStorageUnavailable):
		return "service_unavailable", err.Error()
	default:
		return "internal_error", err.Error()
	}
}
