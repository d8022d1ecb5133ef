package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/carehub/internal/bookings"
	"github.com/wolfman30/carehub/internal/flow"
	"github.com/wolfman30/carehub/internal/identity"
	"github.com/wolfman30/carehub/internal/matching"
	"github.com/wolfman30/carehub/internal/notify"
	"github.com/wolfman30/carehub/internal/sessions"
	"github.com/wolfman30/carehub/internal/verticals"
	"github.com/wolfman30/carehub/pkg/logging"
)

type testApp struct {
	router   http.Handler
	sessions *sessions.Registry
	notes    *notify.MemoryStore
	repo     *bookings.InMemoryRepository
	service  *bookings.Service
}

func withTestUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := r.Header.Get("X-User-Id"); user != "" {
			r = r.WithContext(identity.WithUserID(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	logger := logging.Discard()
	repo := bookings.NewInMemoryRepository()
	service := bookings.NewService(repo, nil, logger)
	notes := notify.NewMemoryStore()
	catalog := verticals.NewRegistry(verticals.Options{AssignmentDelay: time.Millisecond})

	reg := sessions.NewRegistry(catalog, func(def *flow.Definition, userID string) *flow.Flow {
		return flow.New(def, userID, service,
			flow.WithLogger(logger),
			flow.WithNotifier(notes),
			flow.WithMatcher(matching.NewSimulated(matching.WithSeed(7), matching.WithLogger(logger))),
		)
	}, sessions.Config{Logger: logger})
	t.Cleanup(reg.Close)

	r := chi.NewRouter()
	r.Use(withTestUser)
	r.Route("/v1", func(v1 chi.Router) {
		NewFlowsHandler(reg, catalog, notes, logger).Routes(v1)
		NewBookingsHandler(service, logger).Routes(v1)
	})
	return &testApp{router: r, sessions: reg, notes: notes, repo: repo, service: service}
}

func (a *testApp) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != "" {
		req.Header.Set("X-User-Id", user)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
