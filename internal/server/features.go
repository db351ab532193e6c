package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/megahub-io/megahub/internal/authz"
	featuredomain "github.com/megahub-io/megahub/internal/feature/domain"
)

func (s *Server) ListActiveFeatures(c *gin.Context) {
	companyID, ok := s.scopedCompanyID(c)
	if !ok {
		AbortWithError(c, authz.ErrForbidden)
		return
	}

	features, err := s.featureSvc.Active(c.Request.Context(), companyID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": features})
}

func (s *Server) FeatureUsage(c *gin.Context) {
	companyID, ok := s.scopedCompanyID(c)
	if !ok {
		AbortWithError(c, authz.ErrForbidden)
		return
	}

	key := strings.TrimSpace(c.Param("key"))
	pct, err := s.featureSvc.UsagePercentage(c.Request.Context(), companyID, key)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"key": key, "usage_pct": pct}})
}

type consumeFeatureRequest struct {
	Quantity *int           `json:"quantity"`
	Metadata map[string]any `json:"metadata"`
}

func (s *Server) ConsumeFeature(c *gin.Context) {
	companyID, ok := s.scopedCompanyID(c)
	if !ok {
		AbortWithError(c, authz.ErrForbidden)
		return
	}

	var req consumeFeatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	key := strings.TrimSpace(c.Param("key"))
	result, err := s.featureSvc.CheckAndIncrement(c.Request.Context(), companyID, key, quantity, req.Metadata)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) StaffListFeatureCatalog(c *gin.Context) {
	features, err := s.featureSvc.ListCatalog(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": features})
}

type grantFeatureRequest struct {
	Key        string     `json:"key"`
	UsageLimit *int       `json:"usage_limit"`
	ExpiresAt  *time.Time `json:"expires_at"`
}

func (s *Server) StaffGrantFeature(c *gin.Context) {
	companyID, err := parseIDParam(c, "companyId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req grantFeatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	grant, err := s.featureSvc.Grant(c.Request.Context(), companyID, featuredomain.GrantRequest{
		Key:        strings.TrimSpace(req.Key),
		UsageLimit: req.UsageLimit,
		ExpiresAt:  req.ExpiresAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": grant})
}

func (s *Server) StaffRevokeFeature(c *gin.Context) {
	companyID, err := parseIDParam(c, "companyId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	key := strings.TrimSpace(c.Param("key"))
	if err := s.featureSvc.Revoke(c.Request.Context(), companyID, key); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"revoked": true}})
}
