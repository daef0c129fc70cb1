package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(handlers...)
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ownerId": OwnerID(c)})
	})
	return r
}

func TestSharedSecret_EmptySecretIsNoop(t *testing.T) {
	r := newTestRouter(SharedSecret(""))
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSharedSecret_MissingHeaderIsForbidden(t *testing.T) {
	r := newTestRouter(SharedSecret("topsecret"))
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSharedSecret_MatchingHeaderPasses(t *testing.T) {
	r := newTestRouter(SharedSecret("topsecret"))
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(SharedSecretHeader, "topsecret")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOwnerHeader_MissingIsParamInvalid(t *testing.T) {
	r := newTestRouter(OwnerHeader())
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOwnerHeader_SetsContextValue(t *testing.T) {
	r := newTestRouter(OwnerHeader())
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(OwnerHeaderName, "owner-42")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "owner-42")
}
