package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	identitydomain "github.com/megahub-io/megahub/internal/identity/domain"
)

type registerUserRequest struct {
	IdentityKey string `json:"identity_key"`
	DisplayName string `json:"display_name"`
}

func (s *Server) RegisterUser(c *gin.Context) {
	var req registerUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	user, err := s.identitySvc.Register(c.Request.Context(), identitydomain.RegisterRequest{
		IdentityKey: strings.TrimSpace(req.IdentityKey),
		DisplayName: strings.TrimSpace(req.DisplayName),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": user})
}

func (s *Server) Me(c *gin.Context) {
	rc := s.requestContext(c)
	if rc == nil || rc.User == nil {
		AbortWithError(c, identitydomain.ErrInvalidCredential)
		return
	}

	payload := gin.H{
		"user":         rc.User,
		"scope_source": rc.Source,
	}
	if rc.CompanyID != nil {
		payload["company_id"] = rc.CompanyID.String()
	}
	if rc.Brand != nil {
		payload["brand_id"] = rc.Brand.ID.String()
	}

	c.JSON(http.StatusOK, gin.H{"data": payload})
}
