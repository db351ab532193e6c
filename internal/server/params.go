package server

import (
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	identitydomain "github.com/megahub-io/megahub/internal/identity/domain"
	"github.com/megahub-io/megahub/internal/tenant"
)

func (s *Server) currentUser(c *gin.Context) *identitydomain.User {
	value, ok := c.Get(userContextKey)
	if !ok {
		return nil
	}
	user, ok := value.(*identitydomain.User)
	if !ok {
		return nil
	}
	return user
}

func (s *Server) requestContext(c *gin.Context) *tenant.RequestContext {
	rc, ok := tenant.FromContext(c.Request.Context())
	if !ok {
		return nil
	}
	return rc
}

// scopedCompanyID returns the company the request operates on. Platform
// actors without a company scope get zero and false.
func (s *Server) scopedCompanyID(c *gin.Context) (snowflake.ID, bool) {
	rc := s.requestContext(c)
	if rc == nil || rc.CompanyID == nil {
		return 0, false
	}
	return *rc.CompanyID, true
}

func parseIDParam(c *gin.Context, name string) (snowflake.ID, error) {
	raw := c.Param(name)
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, newValidationError(name, "invalid_id", "invalid id")
	}
	return id, nil
}

func snowflakeFromString(value, field string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(value)
	if err != nil {
		return 0, newValidationError(field, "invalid_id", "invalid id")
	}
	return id, nil
}

func parseOptionalBool(value string) (*bool, error) {
	switch value {
	case "":
		return nil, nil
	case "true", "1":
		v := true
		return &v, nil
	case "false", "0":
		v := false
		return &v, nil
	default:
		return nil, newValidationError("value", "invalid_bool", "invalid boolean")
	}
}
