package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/descartecerto/internal/api"
	"github.com/rshade/descartecerto/internal/config"
	"github.com/rshade/descartecerto/internal/impact"
	"github.com/rshade/descartecerto/internal/observability"
	"github.com/rshade/descartecerto/internal/store"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *api.ErrorBody  `json:"error"`
}

func call(t *testing.T, h http.Handler, method, path, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func TestAPI_DisposalLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	st, err := store.Open(ctx, config.DatabaseConfig{
		Driver: config.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "api.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(ctx))

	for _, u := range []impact.User{
		{ID: "ana", Name: "Ana", School: "EE Norte", CreatedAt: time.Now()},
		{ID: "bia", Name: "Bia", School: "EE Sul", CreatedAt: time.Now()},
	} {
		require.NoError(t, st.CreateUser(ctx, u))
	}

	metrics := observability.NewMetrics()
	agg := impact.New(st, impact.WithRecorder(metrics))
	router := api.NewRouter(api.Deps{Impact: agg, DB: st, Metrics: metrics, Logger: zerolog.Nop(), Version: "test"})

	// No aggregate row yet: recording must refuse and store nothing.
	code, env := call(t, router, http.MethodPost, "/api/disposals", `{"userId":"ana","material":"PLASTIC","weightKg":2.5}`)
	require.Equal(t, http.StatusConflict, code)
	assert.Equal(t, api.CodeNotInitialized, env.Error.Code)

	code, _ = call(t, router, http.MethodGet, "/api/impact", "")
	require.Equal(t, http.StatusOK, code)

	code, _ = call(t, router, http.MethodPost, "/api/disposals", `{"userId":"ana","material":"plastico","weightKg":2.5}`)
	require.Equal(t, http.StatusCreated, code)
	code, _ = call(t, router, http.MethodPost, "/api/disposals", `{"userId":"bia","material":"PAPER","weightKg":1}`)
	require.Equal(t, http.StatusCreated, code)

	code, env = call(t, router, http.MethodPost, "/api/disposals", `{"userId":"ghost","material":"PAPER","weightKg":1}`)
	require.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, api.CodeUserNotFound, env.Error.Code)

	code, env = call(t, router, http.MethodPost, "/api/disposals", `{"userId":"ana","material":"WOOD","weightKg":1}`)
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, api.CodeValidation, env.Error.Code)

	code, env = call(t, router, http.MethodGet, "/api/impact", "")
	require.Equal(t, http.StatusOK, code)
	var global api.GlobalImpactResponse
	require.NoError(t, json.Unmarshal(env.Data, &global))
	assert.InDelta(t, 7.05, global.Impact.CO2Reduction, 1e-9)
	assert.InDelta(t, 450.0, global.Impact.WaterSaved, 1e-9)
	assert.Equal(t, int64(2), global.Impact.ActiveUsers)
	assert.Equal(t, int64(35), global.Impact.TotalPoints)

	code, env = call(t, router, http.MethodPost, "/api/impact/recalculate", "")
	require.Equal(t, http.StatusOK, code)
	var recomputed api.GlobalImpactResponse
	require.NoError(t, json.Unmarshal(env.Data, &recomputed))
	assert.InDelta(t, global.Impact.CO2Reduction, recomputed.Impact.CO2Reduction, 1e-9)
	assert.Equal(t, global.Impact.TotalPoints, recomputed.Impact.TotalPoints)

	code, env = call(t, router, http.MethodGet, "/api/impact/users/ana", "")
	require.Equal(t, http.StatusOK, code)
	var report impact.UserImpactReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, "Ana", report.User.Name)
	assert.Equal(t, 1, report.Summary.TotalDisposals)
	assert.InDelta(t, 2.5, report.Summary.TotalWeight, 1e-9)

	code, env = call(t, router, http.MethodGet, "/api/impact/ranking?limit=2", "")
	require.Equal(t, http.StatusOK, code)
	var ranking []impact.UserRankEntry
	require.NoError(t, json.Unmarshal(env.Data, &ranking))
	require.Len(t, ranking, 2)
	assert.Equal(t, "ana", ranking[0].UserID)
	assert.Equal(t, int64(25), ranking[0].Points)
	assert.Equal(t, 2, ranking[1].Rank)

	code, _ = call(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, code)
}
