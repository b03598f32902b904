package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func holderRequest(t *testing.T, authHeader string) (*httptest.ResponseRecorder, string, bool) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var token string
	var ok bool
	engine := gin.New()
	engine.GET("/protected", HolderToken(), func(c *gin.Context) {
		token, ok = Holder(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec, token, ok
}

func TestHolderTokenExtractsBearerToken(t *testing.T) {
	rec, token, ok := holderRequest(t, "Bearer opaque-holder-token")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, ok)
	assert.Equal(t, "opaque-holder-token", token)
}

func TestHolderTokenRejectsMissingHeader(t *testing.T) {
	rec, _, ok := holderRequest(t, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, ok)
}

func TestHolderTokenRejectsBadFormat(t *testing.T) {
	for _, header := range []string{"opaque-holder-token", "Basic abc123", "Bearer ", "Bearer"} {
		rec, _, _ := holderRequest(t, header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}
}

func TestHolderAbsentWithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, ok := Holder(c)
	assert.False(t, ok)
}
