package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	alertdomain "github.com/megahub-io/megahub/internal/alert/domain"
	"github.com/megahub-io/megahub/internal/authz"
	branddomain "github.com/megahub-io/megahub/internal/brand/domain"
	companydomain "github.com/megahub-io/megahub/internal/company/domain"
	contentdomain "github.com/megahub-io/megahub/internal/content/domain"
	featuredomain "github.com/megahub-io/megahub/internal/feature/domain"
	identitydomain "github.com/megahub-io/megahub/internal/identity/domain"
	onboardingdomain "github.com/megahub-io/megahub/internal/onboarding/domain"
	"github.com/megahub-io/megahub/internal/scope"
	slotsdomain "github.com/megahub-io/megahub/internal/slots/domain"
	"github.com/megahub-io/megahub/internal/tenant"
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
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

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
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

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
				{
					Field:   "request",
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authz.ErrUnauthenticated),
		errors.Is(err, identitydomain.ErrInvalidCredential):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}

	// Failed brand resolution is an explicit refusal: the caller named a
	// scope it may not use.
	case errors.Is(err, tenant.ErrScopeForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "scope_forbidden",
			Message: "brand scope forbidden",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authz.ErrForbidden),
		errors.Is(err, scope.ErrNoScope):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}

	case errors.Is(err, slotsdomain.ErrCapacityExceeded):
		return http.StatusBadRequest, errorPayload{
			Type:    "slots_limit_reached",
			Message: "slot capacity exhausted",
		}
	case errors.Is(err, featuredomain.ErrUsageLimitReached):
		return http.StatusBadRequest, errorPayload{
			Type:    "feature_limit_reached",
			Message: "feature usage limit reached",
		}
	case errors.Is(err, onboardingdomain.ErrNotEligible):
		return http.StatusBadRequest, errorPayload{
			Type:    "not_eligible",
			Message: "user is not eligible for onboarding",
		}
	case errors.Is(err, featuredomain.ErrFeatureDisabled):
		return http.StatusForbidden, errorPayload{
			Type:    "feature_disabled",
			Message: "feature disabled",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, branddomain.ErrNameTaken),
		errors.Is(err, identitydomain.ErrUserExists),
		errors.Is(err, onboardingdomain.ErrBusy):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}

	// Out-of-scope rows answer exactly like missing rows.
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}

	case errors.Is(err, ErrInternal):
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
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
		errors.Is(err, branddomain.ErrInvalidName),
		errors.Is(err, branddomain.ErrInvalidUser),
		errors.Is(err, branddomain.ErrNotCompanyUser),
		errors.Is(err, branddomain.ErrNotMember),
		errors.Is(err, companydomain.ErrInvalidName),
		errors.Is(err, slotsdomain.ErrInvalidKind),
		errors.Is(err, slotsdomain.ErrInvalidQuantity),
		errors.Is(err, slotsdomain.ErrInvalidLimit),
		errors.Is(err, featuredomain.ErrInvalidKey),
		errors.Is(err, featuredomain.ErrInvalidQuantity),
		errors.Is(err, identitydomain.ErrInvalidRequest),
		errors.Is(err, onboardingdomain.ErrInvalidRequest),
		errors.Is(err, contentdomain.ErrInvalidInput):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, scope.ErrNotVisible),
		errors.Is(err, branddomain.ErrNotFound),
		errors.Is(err, companydomain.ErrNotFound),
		errors.Is(err, slotsdomain.ErrNotFound),
		errors.Is(err, featuredomain.ErrNotFound),
		errors.Is(err, alertdomain.ErrNotFound),
		errors.Is(err, identitydomain.ErrNotFound),
		errors.Is(err, contentdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}
