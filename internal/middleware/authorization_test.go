package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"UD_contest_bot/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter(a *Authorization, user *auth.TelegramUserData) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if user != nil {
			auth.SetUser(c, user)
		}
		c.Next()
	})
	router.GET("/admin", a.AdminOnly(), func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/users/:telegram_id", a.SelfOrAdmin("telegram_id"), func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func TestAuthorization(t *testing.T) {
	a := NewAuthorization([]int64{1})

	tests := []struct {
		name           string
		user           *auth.TelegramUserData
		path           string
		expectedStatus int
	}{
		{name: "Admin reaches admin route", user: &auth.TelegramUserData{ID: 1}, path: "/admin", expectedStatus: http.StatusOK},
		{name: "User is refused admin route", user: &auth.TelegramUserData{ID: 2}, path: "/admin", expectedStatus: http.StatusForbidden},
		{name: "Anonymous is refused admin route", path: "/admin", expectedStatus: http.StatusUnauthorized},
		{name: "User reads own data", user: &auth.TelegramUserData{ID: 2}, path: "/users/2", expectedStatus: http.StatusOK},
		{name: "User is refused other data", user: &auth.TelegramUserData{ID: 2}, path: "/users/3", expectedStatus: http.StatusForbidden},
		{name: "Admin reads other data", user: &auth.TelegramUserData{ID: 1}, path: "/users/3", expectedStatus: http.StatusOK},
		{name: "Malformed id", user: &auth.TelegramUserData{ID: 2}, path: "/users/abc", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(a, tt.user)
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}
