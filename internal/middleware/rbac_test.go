package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/word-sanctuary/appraisal-api/internal/models"
)

func rbacTestContext(t *testing.T, claims *models.JWTClaims, formType string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, err)
	c.Request = req
	if claims != nil {
		c.Set(ContextUserKey, claims)
	}
	if formType != "" {
		c.Params = gin.Params{{Key: "formType", Value: formType}}
	}
	return c, w
}

func TestRequireRolesAllowsListedRole(t *testing.T) {
	c, w := rbacTestContext(t, &models.JWTClaims{Role: models.RoleAdmin}, "")

	RequireRoles(models.RoleAdmin, models.RoleSuperAdmin)(c)

	assert.False(t, c.IsAborted())
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRolesRejectsOtherRole(t *testing.T) {
	c, w := rbacTestContext(t, &models.JWTClaims{Role: models.RoleLeadership}, "")

	RequireRoles(models.RoleSuperAdmin)(c)

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRolesRejectsUnknownRole(t *testing.T) {
	c, w := rbacTestContext(t, &models.JWTClaims{Role: models.Role("owner")}, "")

	RequireRoles(models.RoleLeadership, models.RoleAdmin, models.RoleSuperAdmin)(c)

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRolesRejectsMissingClaims(t *testing.T) {
	c, w := rbacTestContext(t, nil, "")

	RequireRoles(models.RoleLeadership)(c)

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireFormAccessPerAudience(t *testing.T) {
	cases := []struct {
		role     models.Role
		formType string
		allowed  bool
	}{
		{models.RoleLeadership, "mentor", true},
		{models.RoleLeadership, "department", true},
		{models.RoleLeadership, "hoi", false},
		{models.RoleLeadership, "central", false},
		{models.RoleAdmin, "hoi", true},
		{models.RoleAdmin, "central", false},
		{models.RoleSuperAdmin, "central", true},
		{models.RoleSuperAdmin, "mentor", true},
	}

	for _, tc := range cases {
		c, w := rbacTestContext(t, &models.JWTClaims{Role: tc.role}, tc.formType)
		RequireFormAccess()(c)
		if tc.allowed {
			assert.False(t, c.IsAborted(), "%s on %s", tc.role, tc.formType)
		} else {
			assert.True(t, c.IsAborted(), "%s on %s", tc.role, tc.formType)
			assert.Equal(t, http.StatusForbidden, w.Code)
		}
	}
}

func TestRequireFormAccessUnknownFormTypeFallsThrough(t *testing.T) {
	// Handlers validate the form type themselves and answer 400.
	c, _ := rbacTestContext(t, &models.JWTClaims{Role: models.RoleLeadership}, "bogus")

	RequireFormAccess()(c)

	assert.False(t, c.IsAborted())
}
