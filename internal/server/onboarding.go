package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/megahub-io/megahub/internal/authz"
	onboardingdomain "github.com/megahub-io/megahub/internal/onboarding/domain"
)

type createSoloBusinessRequest struct {
	CompanyName  string `json:"company_name"`
	BrandName    string `json:"brand_name"`
	BillingEmail string `json:"billing_email"`
}

func (s *Server) CreateSoloBusiness(c *gin.Context) {
	user := s.currentUser(c)
	if user == nil {
		AbortWithError(c, authz.ErrUnauthenticated)
		return
	}

	var req createSoloBusinessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.onboardingSvc.CreateSoloBusiness(c.Request.Context(), user.ID, onboardingdomain.Request{
		CompanyName:  strings.TrimSpace(req.CompanyName),
		BrandName:    strings.TrimSpace(req.BrandName),
		BillingEmail: strings.TrimSpace(req.BillingEmail),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"data": result})
}

func (s *Server) OnboardingStatus(c *gin.Context) {
	user := s.currentUser(c)
	if user == nil {
		AbortWithError(c, authz.ErrUnauthenticated)
		return
	}

	status, err := s.onboardingSvc.Status(c.Request.Context(), user.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": status})
}

func (s *Server) OnboardingFallback(c *gin.Context) {
	user := s.currentUser(c)
	if user == nil {
		AbortWithError(c, authz.ErrUnauthenticated)
		return
	}

	result, err := s.onboardingSvc.TriggerFallback(c.Request.Context(), user.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// StaffTriggerOnboarding reruns provisioning for another user, for support
// flows where the user's own fallback never fired.
func (s *Server) StaffTriggerOnboarding(c *gin.Context) {
	userID, err := parseIDParam(c, "userId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.onboardingSvc.TriggerFallback(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
