package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/megahub-io/megahub/internal/authz"
	branddomain "github.com/megahub-io/megahub/internal/brand/domain"
	identitydomain "github.com/megahub-io/megahub/internal/identity/domain"
)

type createBrandRequest struct {
	Name        string `json:"name"`
	AdminUserID string `json:"admin_user_id"`
}

func (s *Server) CreateBrand(c *gin.Context) {
	companyID, ok := s.scopedCompanyID(c)
	if !ok {
		AbortWithError(c, authz.ErrForbidden)
		return
	}

	var req createBrandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.brandSvc.Create(c.Request.Context(), companyID, branddomain.CreateRequest{
		Name:        strings.TrimSpace(req.Name),
		AdminUserID: strings.TrimSpace(req.AdminUserID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListBrands(c *gin.Context) {
	var query struct {
		IncludeDeleted string `form:"include_deleted"`
		PageToken      string `form:"page_token"`
		PageSize       int    `form:"page_size"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	rc := s.requestContext(c)
	if rc == nil {
		AbortWithError(c, authz.ErrUnauthenticated)
		return
	}

	includeDeleted, err := parseOptionalBool(query.IncludeDeleted)
	if err != nil {
		AbortWithError(c, newValidationError("include_deleted", "invalid_include_deleted", "invalid include_deleted"))
		return
	}
	// Deleted rows stay hidden from everyone but platform staff.
	withDeleted := includeDeleted != nil && *includeDeleted && rc.User.IsPlatform()

	req := branddomain.ListRequest{
		IncludeDeleted: withDeleted,
		PageToken:      query.PageToken,
		PageSize:       query.PageSize,
	}
	// Non-admin members list only brands they belong to.
	if !rc.User.IsPlatform() && rc.User.Kind != identitydomain.KindCompanyAdmin {
		userID := rc.User.ID
		req.MemberUserID = &userID
	}

	resp, err := s.brandSvc.List(c.Request.Context(), rc.CompanyID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetBrand(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	rc := s.requestContext(c)
	if rc == nil {
		AbortWithError(c, authz.ErrUnauthenticated)
		return
	}

	resp, err := s.brandSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// Out-of-company rows read as missing, same as a true miss.
	if !rc.User.IsPlatform() {
		if rc.CompanyID == nil || resp.CompanyID != rc.CompanyID.String() {
			AbortWithError(c, branddomain.ErrNotFound)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteBrand(c *gin.Context) {
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

	if err := s.brandSvc.Delete(c.Request.Context(), companyID, id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

type brandMemberRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) AddBrandMember(c *gin.Context) {
	companyID, ok := s.scopedCompanyID(c)
	if !ok {
		AbortWithError(c, authz.ErrForbidden)
		return
	}

	brandID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req brandMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	userID, err := snowflakeFromString(req.UserID, "user_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.brandSvc.AddMember(c.Request.Context(), companyID, brandID, userID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"added": true}})
}

func (s *Server) RemoveBrandMember(c *gin.Context) {
	companyID, ok := s.scopedCompanyID(c)
	if !ok {
		AbortWithError(c, authz.ErrForbidden)
		return
	}

	brandID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	userID, err := parseIDParam(c, "userId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.brandSvc.RemoveMember(c.Request.Context(), companyID, brandID, userID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"removed": true}})
}

func (s *Server) SetBrandAdmin(c *gin.Context) {
	companyID, ok := s.scopedCompanyID(c)
	if !ok {
		AbortWithError(c, authz.ErrForbidden)
		return
	}

	brandID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req brandMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	userID, err := snowflakeFromString(req.UserID, "user_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.brandSvc.SetAdmin(c.Request.Context(), companyID, brandID, userID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"admin_user_id": req.UserID}})
}
