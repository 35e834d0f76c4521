package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/auth"
	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/ratelimit"
	"github.com/jcornell3/tamshai-enterprise-ai-sub013/pkg/models"
)

func TestRateLimitedQueryBucket(t *testing.T) {
	s, _ := newTestGateway(t, &scriptedProvider{})
	s.limiter = ratelimit.NewGatewayLimiter(ratelimit.GatewayLimits{GeneralPerMinute: 600, QueryPerMinute: 1})

	calls := 0
	handler := s.rateLimited(true, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/query", nil)
		req = req.WithContext(auth.WithCaller(req.Context(), models.CallerContext{UserID: "user-1"}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := do()
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, 1, calls)

	second := do()
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.Equal(t, 1, calls, "limited requests never reach the handler")
}

func TestListToolsFiltersByCaller(t *testing.T) {
	s, _ := newTestGateway(t, &scriptedProvider{})
	registerTool(s, models.ToolDescriptor{
		Name:          "list_employees",
		Server:        "hr",
		RequiredRoles: models.RoleSet{models.RoleHRRead},
	}, "http://hr.invalid")
	registerTool(s, models.ToolDescriptor{
		Name:          "list_invoices",
		Server:        "finance",
		RequiredRoles: models.RoleSet{models.RoleFinanceRead},
	}, "http://finance.invalid")

	req := httptest.NewRequest("GET", "/tools", nil)
	req = req.WithContext(auth.WithCaller(req.Context(), models.CallerContext{
		UserID: "user-1",
		Roles:  models.RoleSet{models.RoleHRRead},
	}))
	rec := httptest.NewRecorder()
	s.handleListTools(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "list_employees")
	assert.NotContains(t, rec.Body.String(), "list_invoices")
}
