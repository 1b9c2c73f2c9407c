package v1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go-freelance-backend/config"
	"go-freelance-backend/internal/app"
	v1 "go-freelance-backend/internal/delivery/http/v1"
	"go-freelance-backend/internal/domain"
	"go-freelance-backend/internal/repository/memory"
	"go-freelance-backend/internal/usecase"
	"go-freelance-backend/pkg/auth"
	"go-freelance-backend/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "router-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	repos  app.Repositories
	uc     app.Usecases
	events *security.MemoryEventLog
}

func newServer(t *testing.T) *testServer {
	t.Helper()

	ts := memory.NewTreeStore()
	local := memory.NewLocalStore()
	events := security.NewMemoryEventLog(50)
	stores := &app.Stores{
		Tree:           ts,
		Sessions:       local,
		Wallets:        local,
		SecurityEvents: events,
		Checks:         map[string]usecase.Pinger{"store": ts},
	}
	repos := app.NewRepositories(ts)
	uc := app.NewUsecases(&config.Config{MaxMilestones: 3, WorkflowStepAttempts: 1}, stores, repos)

	router := v1.NewRouter(v1.RouterDeps{
		JobUC:         uc.Jobs,
		ApplicationUC: uc.Applications,
		MilestoneUC:   uc.Milestones,
		ReportUC:      uc.Reports,
		ProfileUC:     uc.Profiles,
		SessionUC:     uc.Sessions,
		HealthUC:      uc.Health,
		SecurityUC:    uc.Security,
		Profiles:      repos.Profiles,
		Auth:          v1.AuthSettings{JWTSecret: testSecret, JWTExpiresMin: 5},
	})
	return &testServer{router: router, repos: repos, uc: uc, events: events}
}

// user creates a profile with role and returns a bearer token for it.
func (s *testServer) user(t *testing.T, uid string, role domain.Role) string {
	t.Helper()
	if role != "" {
		require.NoError(t, s.repos.Profiles.Create(context.Background(), &domain.UserProfile{
			UID:   uid,
			Name:  "User " + uid,
			Email: uid + "@example.com",
			Role:  role,
		}))
	}
	token, err := auth.SignToken(testSecret, uid, uid+"@example.com", "User "+uid, 5)
	require.NoError(t, err)
	return token
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w.Code, env
}

func jobBody(amounts ...float64) map[string]any {
	var budget float64
	var milestones []map[string]any
	for _, a := range amounts {
		budget += a
		milestones = append(milestones, map[string]any{"description": "Draft", "amount": a, "duedate": "2026-11-01"})
	}
	return map[string]any{
		"title":       "Logo design",
		"description": "A logo for a bakery",
		"category":    "Design",
		"budget":      budget,
		"deadline":    "2026-12-01",
		"milestones":  milestones,
	}
}

var applicationBody = map[string]any{
	"name":       "Ann",
	"surname":    "Lee",
	"motivation": "I love logos",
	"skills":     "Illustrator",
}

func TestHealth(t *testing.T) {
	s := newServer(t)

	code, env := s.do(t, http.MethodGet, "/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"status":"ok","store":"up"}`, string(env.Data))
}

func TestAccess(t *testing.T) {
	s := newServer(t)
	clientToken := s.user(t, "client-1", domain.RoleClient)
	freeToken := s.user(t, "free-1", domain.RoleFreelancer)
	newcomer := s.user(t, "new-1", "")

	t.Run("Should require a token on protected routes", func(t *testing.T) {
		code, env := s.do(t, http.MethodGet, "/v1/jobs", "", nil)
		assert.Equal(t, http.StatusUnauthorized, code)
		assert.False(t, env.Success)
	})

	t.Run("Should only let clients post jobs", func(t *testing.T) {
		code, _ := s.do(t, http.MethodPost, "/v1/jobs", freeToken, jobBody(100))
		assert.Equal(t, http.StatusForbidden, code)

		code, _ = s.do(t, http.MethodPost, "/v1/jobs", newcomer, jobBody(100))
		assert.Equal(t, http.StatusForbidden, code)

		code, _ = s.do(t, http.MethodPost, "/v1/jobs", clientToken, jobBody(100))
		assert.Equal(t, http.StatusCreated, code)
	})

	t.Run("Should keep admin routes to admins", func(t *testing.T) {
		code, _ := s.do(t, http.MethodGet, "/v1/admin/users", clientToken, nil)
		assert.Equal(t, http.StatusForbidden, code)
		code, _ = s.do(t, http.MethodGet, "/v1/reports/admin", freeToken, nil)
		assert.Equal(t, http.StatusForbidden, code)
	})

	t.Run("Should refuse an amount that is not a finite number", func(t *testing.T) {
		body := jobBody(100)
		body["budget"] = "Inf"
		code, env := s.do(t, http.MethodPost, "/v1/jobs", clientToken, body)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.False(t, env.Success)

		body = jobBody(100)
		body["milestones"].([]map[string]any)[0]["amount"] = "NaN"
		code, _ = s.do(t, http.MethodPost, "/v1/jobs", clientToken, body)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("Should report a malformed body as 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/jobs", strings.NewReader("{"))
		req.Header.Set("Authorization", "Bearer "+clientToken)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRegister(t *testing.T) {
	s := newServer(t)
	token := s.user(t, "new-1", "")

	code, env := s.do(t, http.MethodGet, "/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, code)
	var me struct {
		Profile *domain.UserProfile `json:"profile"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Nil(t, me.Profile)

	code, _ = s.do(t, http.MethodPost, "/v1/auth/register", token, map[string]any{"role": "Freelancer"})
	assert.Equal(t, http.StatusCreated, code)

	code, _ = s.do(t, http.MethodPost, "/v1/auth/register", token, map[string]any{"role": "Client"})
	assert.Equal(t, http.StatusConflict, code)

	// The role now comes from the stored profile
	code, _ = s.do(t, http.MethodGet, "/v1/freelancers/me/applications", token, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodGet, "/v1/auth/google", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestGrantedAdmin(t *testing.T) {
	s := newServer(t)
	token := s.user(t, "boss", "")

	code, _ := s.do(t, http.MethodGet, "/v1/reports/admin", token, nil)
	require.Equal(t, http.StatusForbidden, code)

	_, err := s.uc.Profiles.GrantAdmin(context.Background(), "boss")
	require.NoError(t, err)

	code, env := s.do(t, http.MethodGet, "/v1/reports/admin", token, nil)
	require.Equal(t, http.StatusOK, code)
	var stats domain.AdminStats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, int64(0), stats.TotalJobs)

	code, _ = s.do(t, http.MethodGet, "/v1/admin/users", token, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestContractLifecycle(t *testing.T) {
	s := newServer(t)
	clientToken := s.user(t, "client-1", domain.RoleClient)
	freeToken := s.user(t, "free-1", domain.RoleFreelancer)
	rivalToken := s.user(t, "free-2", domain.RoleFreelancer)

	code, env := s.do(t, http.MethodPost, "/v1/jobs", clientToken, jobBody(100, 50))
	require.Equal(t, http.StatusCreated, code)
	var job domain.Job
	require.NoError(t, json.Unmarshal(env.Data, &job))
	require.NotEmpty(t, job.ID)

	applications := "/v1/jobs/" + job.ID + "/applications"
	code, _ = s.do(t, http.MethodPost, applications, freeToken, applicationBody)
	require.Equal(t, http.StatusCreated, code)
	code, _ = s.do(t, http.MethodPost, applications, rivalToken, applicationBody)
	require.Equal(t, http.StatusCreated, code)

	code, _ = s.do(t, http.MethodPost, applications, freeToken, applicationBody)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPost, applications+"/free-1/accept", clientToken, nil)
	require.Equal(t, http.StatusOK, code)

	t.Run("Should show the contract to the winner only", func(t *testing.T) {
		code, env := s.do(t, http.MethodGet, "/v1/freelancers/me/contracts", freeToken, nil)
		require.Equal(t, http.StatusOK, code)
		var contracts []domain.Application
		require.NoError(t, json.Unmarshal(env.Data, &contracts))
		require.Len(t, contracts, 1)
		assert.Equal(t, job.ID, contracts[0].JobID)

		code, env = s.do(t, http.MethodGet, "/v1/freelancers/me/applications", rivalToken, nil)
		require.Equal(t, http.StatusOK, code)
		var mine []domain.Application
		require.NoError(t, json.Unmarshal(env.Data, &mine))
		require.Len(t, mine, 1)
		assert.Equal(t, domain.ApplicationStatusRejected, mine[0].Status)
	})

	milestone := fmt.Sprintf("/v1/contracts/%s/free-1/milestones/0", job.ID)

	t.Run("Should refuse paying before the work is done", func(t *testing.T) {
		code, _ := s.do(t, http.MethodPost, milestone+"/pay", clientToken, map[string]any{"amount": 100})
		assert.Equal(t, http.StatusConflict, code)
	})

	t.Run("Should move the milestone forward one step at a time", func(t *testing.T) {
		code, _ := s.do(t, http.MethodPatch, milestone, freeToken, map[string]any{"status": "Done"})
		assert.Equal(t, http.StatusConflict, code)

		code, _ = s.do(t, http.MethodPatch, milestone, rivalToken, map[string]any{"status": "In Progress"})
		assert.Equal(t, http.StatusForbidden, code)

		for _, status := range []string{"In Progress", "Done"} {
			code, _ = s.do(t, http.MethodPatch, milestone, freeToken, map[string]any{"status": status})
			require.Equal(t, http.StatusOK, code, status)
		}

		code, _ = s.do(t, http.MethodPatch, "/v1/contracts/"+job.ID+"/free-1/milestones/x", freeToken, map[string]any{"status": "Done"})
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("Should pay from the client wallet to the freelancer", func(t *testing.T) {
		code, _ := s.do(t, http.MethodPost, "/v1/wallet/deposit", clientToken, map[string]any{"amount": 150})
		require.Equal(t, http.StatusOK, code)

		code, env := s.do(t, http.MethodPost, milestone+"/pay", clientToken, map[string]any{"amount": 100})
		require.Equal(t, http.StatusOK, code)
		var receipt domain.PaymentReceipt
		require.NoError(t, json.Unmarshal(env.Data, &receipt))
		assert.Equal(t, 100.0, receipt.FreelancerBalance)

		code, env = s.do(t, http.MethodGet, "/v1/wallet", freeToken, nil)
		require.Equal(t, http.StatusOK, code)
		var wallet domain.Wallet
		require.NoError(t, json.Unmarshal(env.Data, &wallet))
		assert.Equal(t, 100.0, wallet.Balance)

		code, _ = s.do(t, http.MethodPost, milestone+"/pay", clientToken, map[string]any{"amount": 100})
		assert.Equal(t, http.StatusConflict, code)
	})

	t.Run("Should count the payment in the client report", func(t *testing.T) {
		code, env := s.do(t, http.MethodGet, "/v1/reports/client", clientToken, nil)
		require.Equal(t, http.StatusOK, code)
		var stats domain.ClientStats
		require.NoError(t, json.Unmarshal(env.Data, &stats))
		assert.Equal(t, int64(1), stats.JobsPosted)
		assert.Equal(t, 100.0, stats.TotalSpent)
	})

	t.Run("Should delete the job with its contracts", func(t *testing.T) {
		code, _ := s.do(t, http.MethodDelete, "/v1/jobs/"+job.ID, clientToken, nil)
		require.Equal(t, http.StatusOK, code)

		code, _ = s.do(t, http.MethodGet, "/v1/jobs/"+job.ID, clientToken, nil)
		assert.Equal(t, http.StatusNotFound, code)

		code, env := s.do(t, http.MethodGet, "/v1/freelancers/me/contracts", freeToken, nil)
		require.Equal(t, http.StatusOK, code)
		var contracts []domain.Application
		require.NoError(t, json.Unmarshal(env.Data, &contracts))
		assert.Empty(t, contracts)
	})
}

func TestLedgerExport(t *testing.T) {
	s := newServer(t)
	adminToken := s.user(t, "admin-1", domain.RoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/v1/reports/admin/export?format=csv", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".csv")
	assert.True(t, strings.HasPrefix(w.Body.String(), "JOB ID,"))
}

func TestSessionNavigation(t *testing.T) {
	s := newServer(t)
	token := s.user(t, "free-1", domain.RoleFreelancer)

	for _, path := range []string{"/jobs", "/wallet"} {
		code, _ := s.do(t, http.MethodPost, "/v1/session/navigation", token, map[string]any{"path": path})
		require.Equal(t, http.StatusOK, code)
	}

	code, env := s.do(t, http.MethodGet, "/v1/session/navigation", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `["/wallet","/jobs"]`, string(env.Data))
}

func TestSecurityDashboard(t *testing.T) {
	s := newServer(t)
	adminToken := s.user(t, "admin-1", domain.RoleAdmin)
	clientToken := s.user(t, "client-1", domain.RoleClient)

	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, s.events.Record(ctx, security.SecurityEvent{Event: security.EventLoginFailed, Severity: security.SeverityMEDIUM, IP: "10.0.0.1", Timestamp: now}))
	require.NoError(t, s.events.Record(ctx, security.SecurityEvent{Event: security.EventLogout, Severity: security.SeverityINFO, IP: "10.0.0.2", Timestamp: now}))

	t.Run("Should filter events by type", func(t *testing.T) {
		code, env := s.do(t, http.MethodGet, "/v1/admin/security/events?event_types=login_failed", adminToken, nil)
		require.Equal(t, http.StatusOK, code)
		var page struct {
			Total int `json:"total"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &page))
		assert.Equal(t, 1, page.Total)
	})

	t.Run("Should reject a non-numeric window", func(t *testing.T) {
		code, _ := s.do(t, http.MethodGet, "/v1/admin/security/heatmap?hours=abc", adminToken, nil)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("Should keep other roles out", func(t *testing.T) {
		code, _ := s.do(t, http.MethodGet, "/v1/admin/security/stats", clientToken, nil)
		assert.Equal(t, http.StatusForbidden, code)
	})
}

// streamRecorder lets gin's Stream run against a recorder.
type streamRecorder struct {
	*httptest.ResponseRecorder
}

func (streamRecorder) CloseNotify() <-chan bool {
	return make(chan bool)
}

func TestClientJobStream(t *testing.T) {
	s := newServer(t)
	token := s.user(t, "client-1", domain.RoleClient)
	code, _ := s.do(t, http.MethodPost, "/v1/jobs", token, jobBody(100))
	require.Equal(t, http.StatusCreated, code)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/v1/clients/me/jobs/stream", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+token)

	w := streamRecorder{httptest.NewRecorder()}
	s.router.ServeHTTP(w, req)

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "event:snapshot")
	assert.Contains(t, w.Body.String(), "Logo design")
}
