package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"lastseat/server/internal/api/middleware"
	"lastseat/server/internal/auth"
	"lastseat/server/internal/models"
	"lastseat/server/internal/services"
	"lastseat/server/internal/utils"
)

const testJwtSecret = "middleware-test-secret"

func adminToken(t *testing.T, id utils.UID, email string, role models.AdminRole) string {
	t.Helper()
	token, err := auth.GenerateJWT(id, email, role, testJwtSecret, time.Hour)
	assert.NoError(t, err)
	return token
}

func protectedRouter(extra ...gin.HandlerFunc) (*gin.Engine, *services.Actor) {
	gin.SetMode(gin.TestMode)
	var captured services.Actor

	r := gin.New()
	chain := append([]gin.HandlerFunc{middleware.AuthMiddleware(testJwtSecret)}, extra...)
	chain = append(chain, func(c *gin.Context) {
		captured = middleware.ActorFromContext(c)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/protected", chain...)
	return r, &captured
}

func doGet(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	id := utils.NewUID()
	r, actor := protectedRouter()
	w := doGet(r, "Bearer "+adminToken(t, id, "agent@lastseat.example", models.RoleAdmin))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, actor.ID)
	assert.Equal(t, "agent@lastseat.example", actor.Email)
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	r, _ := protectedRouter()
	w := doGet(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_MalformedHeader(t *testing.T) {
	r, _ := protectedRouter()
	w := doGet(r, "Token abc123")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_GarbageToken(t *testing.T) {
	r, _ := protectedRouter()
	w := doGet(r, "Bearer not.a.jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_WrongSigningKey(t *testing.T) {
	token, err := auth.GenerateJWT(utils.NewUID(), "agent@lastseat.example", models.RoleAdmin, "some-other-secret", time.Hour)
	assert.NoError(t, err)

	r, _ := protectedRouter()
	w := doGet(r, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	token, err := auth.GenerateJWT(utils.NewUID(), "agent@lastseat.example", models.RoleAdmin, testJwtSecret, -time.Minute)
	assert.NoError(t, err)

	r, _ := protectedRouter()
	w := doGet(r, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminMiddleware_AllowsBothRoles(t *testing.T) {
	for _, role := range []models.AdminRole{models.RoleAdmin, models.RoleMainAdmin} {
		r, _ := protectedRouter(middleware.AdminMiddleware())
		w := doGet(r, "Bearer "+adminToken(t, utils.NewUID(), "agent@lastseat.example", role))
		assert.Equal(t, http.StatusOK, w.Code, "role %s", role)
	}
}

func TestMainAdminMiddleware_RejectsPlainAdmin(t *testing.T) {
	r, _ := protectedRouter(middleware.MainAdminMiddleware())
	w := doGet(r, "Bearer "+adminToken(t, utils.NewUID(), "agent@lastseat.example", models.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMainAdminMiddleware_WrongTypedRoleIsForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// A misbehaving upstream handler storing the wrong type must yield a 403,
	// not a panic.
	r.GET("/protected", func(c *gin.Context) {
		c.Set(middleware.ContextKeyAdminRole, "main_admin")
	}, middleware.MainAdminMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMainAdminMiddleware_AllowsMainAdmin(t *testing.T) {
	r, _ := protectedRouter(middleware.MainAdminMiddleware())
	w := doGet(r, "Bearer "+adminToken(t, utils.NewUID(), "boss@lastseat.example", models.RoleMainAdmin))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestActorFromContext_Unauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	actor := middleware.ActorFromContext(c)
	assert.True(t, actor.ID.IsZero())
	assert.Empty(t, actor.Email)
}
