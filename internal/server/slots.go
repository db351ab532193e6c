package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/megahub-io/megahub/internal/authz"
	slotsdomain "github.com/megahub-io/megahub/internal/slots/domain"
)

func (s *Server) GetSlotsUsage(c *gin.Context) {
	companyID, ok := s.scopedCompanyID(c)
	if !ok {
		AbortWithError(c, authz.ErrForbidden)
		return
	}

	usage, err := s.slotsSvc.Usage(c.Request.Context(), companyID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": usage})
}

// AssertSlotCapacity is the racy pre-flight probe for UIs. A 200 here never
// guarantees the later reservation succeeds.
func (s *Server) AssertSlotCapacity(c *gin.Context) {
	companyID, ok := s.scopedCompanyID(c)
	if !ok {
		AbortWithError(c, authz.ErrForbidden)
		return
	}

	kind := slotsdomain.ResourceKind(strings.TrimSpace(c.Param("kind")))
	if err := s.slotsSvc.AssertCapacity(c.Request.Context(), companyID, kind); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"available": true}})
}

func (s *Server) StaffGetSlots(c *gin.Context) {
	companyID, err := parseIDParam(c, "companyId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	usage, err := s.slotsSvc.Usage(c.Request.Context(), companyID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": usage})
}

type setSlotLimitsRequest struct {
	BrandsSlots *int `json:"brands_slots"`
	UsersSlots  *int `json:"users_slots"`
}

func (s *Server) StaffSetSlotLimits(c *gin.Context) {
	companyID, err := parseIDParam(c, "companyId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req setSlotLimitsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	usage, err := s.slotsSvc.SetLimits(c.Request.Context(), companyID, slotsdomain.SetLimitsRequest{
		BrandsSlots: req.BrandsSlots,
		UsersSlots:  req.UsersSlots,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": usage})
}

func (s *Server) StaffReconcileSlots(c *gin.Context) {
	companyID, err := parseIDParam(c, "companyId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	usage, err := s.slotsSvc.Reconcile(c.Request.Context(), companyID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": usage})
}
