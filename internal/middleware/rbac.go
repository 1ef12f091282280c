package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/word-sanctuary/appraisal-api/internal/models"
	appErrors "github.com/word-sanctuary/appraisal-api/pkg/errors"
	"github.com/word-sanctuary/appraisal-api/pkg/response"
)

// RequireRoles enforces role-based access control for routes. A claim role
// outside the allowed set, including one the service has never heard of,
// is rejected with 403.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// formAudiences maps each form type to the roles allowed to work with it.
var formAudiences = map[models.FormType]map[models.Role]struct{}{
	models.FormMentor: {
		models.RoleLeadership: {}, models.RoleAdmin: {}, models.RoleSuperAdmin: {},
	},
	models.FormDepartment: {
		models.RoleLeadership: {}, models.RoleAdmin: {}, models.RoleSuperAdmin: {},
	},
	models.FormHOI: {
		models.RoleAdmin: {}, models.RoleSuperAdmin: {},
	},
	models.FormCentral: {
		models.RoleSuperAdmin: {},
	},
}

// RequireFormAccess gates appraisal routes on the :formType path parameter.
// Unknown form types fall through to the handler's own validation.
func RequireFormAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		formType := models.FormType(c.Param("formType"))
		audience, known := formAudiences[formType]
		if !known {
			c.Next()
			return
		}
		if _, ok := audience[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
