package httptransport

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	claimhandler "placeclaim/internal/claim/handler"
	"placeclaim/internal/claim/handler/mocks"
	"placeclaim/internal/claim/models"
	"placeclaim/internal/platform/health"
	"placeclaim/internal/platform/jwttoken"
	id "placeclaim/pkg/domain"
	"placeclaim/pkg/requestcontext"
	"placeclaim/pkg/testutil"
)

const adminToken = "admin-secret"

type RouterSuite struct {
	suite.Suite
	service *mocks.MockService
	tokens  *jwttoken.Validator
	router  http.Handler
	userID  id.UserID
	claim   *models.Claim
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.tokens = jwttoken.NewValidator("test-signing-key", "placeclaim-test", "placeclaim")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	checks := health.New()
	checks.RegisterCheck("database", func(context.Context) error { return nil })

	s.router = NewRouter(Deps{
		Claims:         claimhandler.New(s.service, logger),
		Health:         checks,
		Tokens:         s.tokens,
		AdminToken:     adminToken,
		AllowedOrigins: []string{"https://app.example.com"},
		Logger:         logger,
	})

	s.userID = id.UserID(uuid.New())
	s.claim = models.NewClaim(s.userID, id.PlaceID(uuid.New()), time.Now())
}

func (s *RouterSuite) bearer() string {
	token, err := s.tokens.GenerateAccessToken(uuid.UUID(s.userID), "owner@example.com", time.Hour)
	s.Require().NoError(err)
	return "Bearer " + token
}

func (s *RouterSuite) TestHealth() {
	rr := testutil.DoRequest(s.router, httptest.NewRequest(http.MethodGet, "/health", nil))
	s.Equal(http.StatusOK, rr.Code)

	rr = testutil.DoRequest(s.router, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	s.Equal(http.StatusOK, rr.Code)
	var body health.ReadinessResponse
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &body))
	s.Equal("up", body.Checks["database"])
}

func (s *RouterSuite) TestMetrics() {
	rr := testutil.DoRequest(s.router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	s.Equal(http.StatusOK, rr.Code)
}

func (s *RouterSuite) TestClaimRoutesRequireBearerToken() {
	s.Run("missing token", func() {
		req := httptest.NewRequest(http.MethodGet, "/claims/"+s.claim.ID.String(), nil)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})

	s.Run("forged token", func() {
		other := jwttoken.NewValidator("another-key", "placeclaim-test", "placeclaim")
		token, err := other.GenerateAccessToken(uuid.UUID(s.userID), "", time.Hour)
		s.Require().NoError(err)

		req := httptest.NewRequest(http.MethodGet, "/claims/"+s.claim.ID.String(), nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})
}

func (s *RouterSuite) TestAuthenticatedRequestCarriesCallerContext() {
	s.service.EXPECT().GetClaim(gomock.Any(), s.claim.ID).
		DoAndReturn(func(ctx context.Context, _ id.ClaimID) (*models.Claim, error) {
			s.Equal(s.userID, requestcontext.UserID(ctx))
			s.Equal("192.0.2.1", requestcontext.ClientIP(ctx))
			s.NotEmpty(requestcontext.RequestID(ctx))
			s.False(requestcontext.Now(ctx).IsZero())
			return s.claim, nil
		})

	req := httptest.NewRequest(http.MethodGet, "/claims/"+s.claim.ID.String(), nil)
	req.Header.Set("Authorization", s.bearer())
	rr := testutil.DoRequest(s.router, req)

	s.Equal(http.StatusOK, rr.Code)
	s.NotEmpty(rr.Header().Get("X-Request-ID"))
	env := testutil.UnmarshalEnvelope[models.ClaimResponse](s.T(), rr)
	s.Require().NotNil(env.Data)
	s.Equal(s.claim.ID.String(), env.Data.ID)
}

func (s *RouterSuite) TestRejectsNonJSONBodies() {
	req := httptest.NewRequest(http.MethodPost, "/claims", nil)
	req.Header.Set("Authorization", s.bearer())
	req.Header.Set("Content-Type", "text/plain")
	rr := testutil.DoRequest(s.router, req)

	s.Equal(http.StatusUnsupportedMediaType, rr.Code)
}

func (s *RouterSuite) TestAdminRoutes() {
	s.Run("user token is not enough", func() {
		req := httptest.NewRequest(http.MethodGet, "/admin/claims/"+s.claim.ID.String(), nil)
		req.Header.Set("Authorization", s.bearer())
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})

	s.Run("actor id is required", func() {
		req := httptest.NewRequest(http.MethodGet, "/admin/claims/"+s.claim.ID.String(), nil)
		req.Header.Set("X-Admin-Token", adminToken)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})

	s.Run("token and actor reach the service", func() {
		s.service.EXPECT().AdminGetClaim(gomock.Any(), s.claim.ID, "admin-7").Return(s.claim, nil)

		req := httptest.NewRequest(http.MethodGet, "/admin/claims/"+s.claim.ID.String(), nil)
		req.Header.Set("X-Admin-Token", adminToken)
		req.Header.Set("X-Admin-Actor-ID", "admin-7")
		rr := testutil.DoRequest(s.router, req)

		s.Equal(http.StatusOK, rr.Code)
	})
}

func (s *RouterSuite) TestCORSPreflight() {
	req := httptest.NewRequest(http.MethodOptions, "/claims", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := testutil.DoRequest(s.router, req)

	s.Equal("https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
}
