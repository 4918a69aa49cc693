package restaurant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vovarama1992/tabletalk-host/internal/db/dbtest"
)

func newTestRouter(t *testing.T) (http.Handler, Service) {
	t.Helper()
	svc := NewService(NewRepo(dbtest.Open(t)), zerolog.Nop())
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(svc, zerolog.Nop()))
	return r, svc
}

func TestSeedDemoOnce(t *testing.T) {
	_, svc := newTestRouter(t)
	ctx := context.Background()

	require.NoError(t, svc.SeedDemo(ctx))
	require.NoError(t, svc.SeedDemo(ctx))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestHandlerGetAndPublish(t *testing.T) {
	router, svc := newTestRouter(t)
	require.NoError(t, svc.SeedDemo(context.Background()))
	list, err := svc.List(context.Background())
	require.NoError(t, err)
	id := list[0].ID

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/restaurants/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var rc Context
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rc))
	assert.Equal(t, "TableTalk Bistro", rc.Name)
	assert.Len(t, rc.Menu, 3)

	rec = httptest.NewRecorder()
	body := strings.NewReader(`{"rules":["  ","Seat walk-ins at the bar."]}`)
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/restaurants/"+id+"/policies", body))
	require.Equal(t, http.StatusCreated, rec.Code)

	var pv PolicyVersion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pv))
	assert.Equal(t, 2, pv.Version)
	assert.Equal(t, []string{"Seat walk-ins at the bar."}, pv.Rules)
}

func TestHandlerErrors(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/restaurants/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/restaurants/missing/policies", strings.NewReader(`{"rules":[]}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/restaurants/missing/policies", strings.NewReader(`{"rules":["x"]}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/restaurants", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
