package server

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/megahub-io/megahub/internal/authz"
	featuredomain "github.com/megahub-io/megahub/internal/feature/domain"
	onboardingdomain "github.com/megahub-io/megahub/internal/onboarding/domain"
	"github.com/megahub-io/megahub/internal/scope"
	slotsdomain "github.com/megahub-io/megahub/internal/slots/domain"
	"github.com/megahub-io/megahub/internal/tenant"
)

func TestMapErrorStatuses(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		typ    string
	}{
		{"slot capacity exhausted", slotsdomain.ErrCapacityExceeded, http.StatusBadRequest, "slots_limit_reached"},
		{"feature usage limit reached", featuredomain.ErrUsageLimitReached, http.StatusBadRequest, "feature_limit_reached"},
		{"onboarding not eligible", onboardingdomain.ErrNotEligible, http.StatusBadRequest, "not_eligible"},
		{"scope forbidden", tenant.ErrScopeForbidden, http.StatusForbidden, "scope_forbidden"},
		{"insufficient role", authz.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"feature disabled", featuredomain.ErrFeatureDisabled, http.StatusForbidden, "feature_disabled"},
		{"out-of-scope row reads as missing", scope.ErrNotVisible, http.StatusNotFound, "not_found"},
		{"missing row", gorm.ErrRecordNotFound, http.StatusNotFound, "not_found"},
		{"onboarding busy", onboardingdomain.ErrBusy, http.StatusConflict, "conflict"},
		{"unknown error", fmt.Errorf("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(fmt.Errorf("handler: %w", tc.err))
			require.Equal(t, tc.status, status)
			require.Equal(t, tc.typ, payload.Type)
		})
	}
}
