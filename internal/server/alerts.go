package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/megahub-io/megahub/internal/authz"
)

func (s *Server) ListAlerts(c *gin.Context) {
	companyID, ok := s.scopedCompanyID(c)
	if !ok {
		AbortWithError(c, authz.ErrForbidden)
		return
	}

	alerts, err := s.alertSvc.ListActive(c.Request.Context(), companyID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": alerts})
}

func (s *Server) DismissAlert(c *gin.Context) {
	companyID, ok := s.scopedCompanyID(c)
	if !ok {
		AbortWithError(c, authz.ErrForbidden)
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.alertSvc.Dismiss(c.Request.Context(), companyID, id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"dismissed": true}})
}
