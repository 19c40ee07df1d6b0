package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	identityDomain "github.com/allisson/resourcegateway/internal/identity/domain"
	identityUseCase "github.com/allisson/resourcegateway/internal/identity/usecase"
	usecaseMocks "github.com/allisson/resourcegateway/internal/identity/usecase/mocks"
	"github.com/allisson/resourcegateway/internal/testutil"
)

func newProtectedRouter(mw gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.GET("/protected", mw, func(c *gin.Context) {
		principal, ok := GetPrincipal(c.Request.Context())
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.JSON(http.StatusOK, gin.H{"login": principal.Login, "group": principal.GroupID})
	})
	return router
}

func TestAuthenticationMiddleware(t *testing.T) {
	logger := testutil.DiscardLogger()
	principal := &identityDomain.Principal{UserID: "1", Login: "admin", GroupID: "1"}

	t.Run("Success_ForwardsAllCredentials", func(t *testing.T) {
		resolver := &usecaseMocks.MockResolverUseCase{}
		router := newProtectedRouter(AuthenticationMiddleware(resolver, identityDomain.APIPurposes, logger))

		resolver.On("Resolve", mock.Anything, identityUseCase.Credentials{
			SystemToken: "sys",
			AuthToken:   "tok",
			Login:       "admin",
			Password:    "smartvm",
			HasBasic:    true,
			Group:       "EvmGroup-user",
		}, identityDomain.APIPurposes).Return(principal, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set(HeaderSystemToken, "sys")
		req.Header.Set(HeaderAuthToken, "tok")
		req.Header.Set(HeaderGroup, "EvmGroup-user")
		req.SetBasicAuth("admin", "smartvm")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"login":"admin","group":"1"}`, w.Body.String())
		resolver.AssertExpectations(t)
	})

	t.Run("Error_MissingCredentials", func(t *testing.T) {
		resolver := &usecaseMocks.MockResolverUseCase{}
		router := newProtectedRouter(AuthenticationMiddleware(resolver, identityDomain.APIPurposes, logger))

		resolver.On("Resolve", mock.Anything, identityUseCase.Credentials{}, identityDomain.APIPurposes).
			Return(nil, identityDomain.ErrMissingCredentials).Once()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, `Basic realm="Application"`, w.Header().Get("WWW-Authenticate"))
		detail := decodeError(t, w)
		assert.Equal(t, "unauthorized", detail.Kind)
		assert.Equal(t, "Authentication failed", detail.Message)
	})

	t.Run("Error_InvalidGroup", func(t *testing.T) {
		resolver := &usecaseMocks.MockResolverUseCase{}
		router := newProtectedRouter(AuthenticationMiddleware(resolver, identityDomain.APIPurposes, logger))

		resolver.On("Resolve", mock.Anything, mock.Anything, identityDomain.APIPurposes).
			Return(nil, identityDomain.ErrInvalidGroup("bogus")).Once()

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.SetBasicAuth("admin", "smartvm")
		req.Header.Set(HeaderGroup, "bogus")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid Authorization Group bogus specified", decodeError(t, w).Message)
	})
}

func TestWebSocketAuthenticationMiddleware(t *testing.T) {
	logger := testutil.DiscardLogger()
	resolver := &usecaseMocks.MockResolverUseCase{}
	router := newProtectedRouter(WebSocketAuthenticationMiddleware(resolver, logger))

	resolver.On("Resolve", mock.Anything, identityUseCase.Credentials{AuthToken: "wstoken"}, identityDomain.WSPurposes).
		Return(&identityDomain.Principal{UserID: "4", Login: "jdoe"}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/protected?auth_token=wstoken", nil)
	req.SetBasicAuth("ignored", "ignored")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	resolver.AssertExpectations(t)
}
