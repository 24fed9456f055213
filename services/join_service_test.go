// file: services/join_service_test.go
package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"shareform/middleware"
	"shareform/models"
)

func formServer(t *testing.T, schemaBody string) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	// plain http: the default Secure cookie would never come back from the jar
	store := cookie.NewStore([]byte("secret"))
	store.Options(sessions.Options{Path: "/", HttpOnly: true})
	router.Use(sessions.Sessions("testsession", store))

	router.GET("/", func(c *gin.Context) {
		session := sessions.Default(c)
		session.Set(middleware.VisitorKey, "visitor-1")
		_ = session.Save()
		c.String(http.StatusOK, "form")
	})
	router.GET("/schema", middleware.SessionRequired, func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte(schemaBody))
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestJoinForm(t *testing.T) {
	srv := formServer(t, `{"viewModels":[{"name":"band","properties":[{"name":"bandVal","initial":""}]}]}`)

	header, schema, err := JoinForm(context.Background(), nil, srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSchema(), schema)
	assert.Contains(t, header.Get("Cookie"), "testsession=")
}

func TestJoinForm_BadSchema(t *testing.T) {
	srv := formServer(t, `{"viewModels":[]}`)

	_, _, err := JoinForm(context.Background(), nil, srv.URL)
	assert.ErrorIs(t, err, models.ErrInvalidSchema)
}

func TestJoinForm_Unreachable(t *testing.T) {
	srv := formServer(t, "{}")
	srv.Close()

	_, _, err := JoinForm(context.Background(), nil, srv.URL)
	assert.Error(t, err)
}
