package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type fakeParser struct {
	userID string
	err    error
}

func (f *fakeParser) Parse(token string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.userID, nil
}

func newTestRouter(parser sessionParser) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", SessionRequired(parser, "francaverso_session"), func(c *gin.Context) {
		userID, err := SessionUserID(c)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": userID})
	})
	return r
}

func TestSessionRequiredNoCookie(t *testing.T) {
	r := newTestRouter(&fakeParser{userID: "u1"})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "not authenticated")
}

func TestSessionRequiredInvalidToken(t *testing.T) {
	r := newTestRouter(&fakeParser{err: fmt.Errorf("bad signature")})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "francaverso_session", Value: "tampered"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid session")
}

func TestSessionRequiredValid(t *testing.T) {
	r := newTestRouter(&fakeParser{userID: "user-42"})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "francaverso_session", Value: "signed-token"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-42")
}
