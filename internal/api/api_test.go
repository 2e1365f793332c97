package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aidfinder-backend/internal/analytics"
	"aidfinder-backend/internal/catalog"
	"aidfinder-backend/internal/dbtest"
	"aidfinder-backend/internal/model"
	"aidfinder-backend/internal/reservation"
	"aidfinder-backend/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	router  *gin.Engine
	store   store.Store
	catalog *catalog.Catalog
}

func setupRouter(t *testing.T, opts *webpush.Options) *fixture {
	t.Helper()
	s := store.NewGormStore(dbtest.NewSQLite(t), time.Second)
	log := zap.NewNop()
	cat := catalog.New(s, log)
	deps := Deps{
		Store:       s,
		Catalog:     cat,
		Coordinator: reservation.New(s, 3, nil, log),
		Analytics:   analytics.New(s),
		WebPush:     opts,
		Log:         log,
	}
	router := NewRouter(deps, RouterConfig{RateLimitPerSec: 1000, RateLimitBurst: 1000, CacheTTL: time.Minute})
	return &fixture{router: router, store: s, catalog: cat}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) resource(t *testing.T, r model.Resource) model.Resource {
	t.Helper()
	require.NoError(t, f.catalog.CreateResource(context.Background(), &r))
	return r
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func floatPtr(v float64) *float64 { return &v }

func TestSearchResources(t *testing.T) {
	f := setupRouter(t, nil)
	f.resource(t, model.Resource{Name: "Pantry Near", Category: model.CategoryFood, Lat: floatPtr(39.2950), Lng: floatPtr(-76.6100)})
	f.resource(t, model.Resource{Name: "Pantry Far", Category: model.CategoryFood, Lat: floatPtr(38.9072), Lng: floatPtr(-77.0369)})
	f.resource(t, model.Resource{Name: "Shelter", Category: model.CategoryHousing})

	w := f.do(t, http.MethodGet, "/api/resources?category=food&q=pantry&lat=39.2904&lng=-76.6122&max_distance=10", nil)
	require.Equal(t, http.StatusOK, w.Code)

	results := decode[[]map[string]any](t, w)
	require.Len(t, results, 1)
	assert.Equal(t, "Pantry Near", results[0]["name"])
	assert.Contains(t, results[0], "distance_miles")

	w = f.do(t, http.MethodGet, "/api/resources?category=housing", nil)
	require.Equal(t, http.StatusOK, w.Code)
	results = decode[[]map[string]any](t, w)
	require.Len(t, results, 1)
	assert.NotContains(t, results[0], "distance_miles")

	w = f.do(t, http.MethodGet, "/api/resources?q=nothing-matches", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = f.do(t, http.MethodGet, "/api/resources?category=furniture", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestSearchResources_City(t *testing.T) {
	f := setupRouter(t, nil)
	f.resource(t, model.Resource{Name: "Pantry", Category: model.CategoryFood, City: "East Baltimore"})
	f.resource(t, model.Resource{Name: "Closet", Category: model.CategoryClothing, City: "West Baltimore"})

	w := f.do(t, http.MethodGet, "/api/resources?city=east+baltimore", nil)
	require.Equal(t, http.StatusOK, w.Code)
	results := decode[[]map[string]any](t, w)
	require.Len(t, results, 1)
	assert.Equal(t, "Pantry", results[0]["name"])

	w = f.do(t, http.MethodGet, "/api/analytics/cities", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"East Baltimore":1,"West Baltimore":1}`, w.Body.String())
}

func TestSearchResources_InvalidFilter(t *testing.T) {
	f := setupRouter(t, nil)

	testCases := []struct {
		name  string
		query string
	}{
		{name: "Distance without origin", query: "max_distance=5"},
		{name: "Lat without lng", query: "lat=39.2&max_distance=5"},
		{name: "Non-numeric lat", query: "lat=abc&lng=-76&max_distance=5"},
		{name: "Negative distance", query: "lat=39.2&lng=-76.6&max_distance=-1"},
		{name: "Bad org id", query: "org_id=not-a-uuid"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := f.do(t, http.MethodGet, "/api/resources?"+tc.query, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "InvalidFilter", decode[map[string]string](t, w)["error"])
		})
	}
}

func TestSearchResources_OrganizationIDs(t *testing.T) {
	f := setupRouter(t, nil)
	ctx := context.Background()
	a := model.Organization{Name: "Org A"}
	b := model.Organization{Name: "Org B"}
	require.NoError(t, f.catalog.CreateOrganization(ctx, &a))
	require.NoError(t, f.catalog.CreateOrganization(ctx, &b))
	f.resource(t, model.Resource{Name: "From A", OrgID: &a.ID})
	f.resource(t, model.Resource{Name: "From B", OrgID: &b.ID})
	f.resource(t, model.Resource{Name: "Nobody"})

	for _, q := range []string{
		"org_id=" + a.ID.String() + "," + b.ID.String(),
		"org_id=" + a.ID.String() + "&org_id=" + b.ID.String(),
	} {
		w := f.do(t, http.MethodGet, "/api/resources?"+q, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode[[]map[string]any](t, w), 2, q)
	}
}

func TestCreateAndGetResource(t *testing.T) {
	f := setupRouter(t, nil)

	w := f.do(t, http.MethodPost, "/api/resources", map[string]any{
		"name": "Winter Shelter", "category": "Housing", "capacity_total": 5,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[model.Resource](t, w)
	assert.Equal(t, model.CategoryHousing, created.Category)
	require.NotNil(t, created.CapacityAvailable)
	assert.Equal(t, 5, *created.CapacityAvailable)

	w = f.do(t, http.MethodGet, "/api/resources/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Winter Shelter", decode[model.Resource](t, w).Name)

	w = f.do(t, http.MethodGet, "/api/resources/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ResourceNotFound", decode[map[string]string](t, w)["error"])

	w = f.do(t, http.MethodGet, "/api/resources/123", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/api/resources", map[string]any{"name": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "InvalidInput", decode[map[string]string](t, w)["error"])
}

func TestRequestLifecycle(t *testing.T) {
	f := setupRouter(t, nil)
	avail := 1
	res := f.resource(t, model.Resource{Name: "Bed", Category: model.CategoryHousing, CapacityTotal: 1, CapacityAvailable: &avail})
	base := "/api/resources/" + res.ID.String()

	w := f.do(t, http.MethodPost, base+"/requests", map[string]any{"name": "Ada", "phone": "555-0100"})
	require.Equal(t, http.StatusCreated, w.Code)
	first := decode[model.Request](t, w)
	assert.Equal(t, model.StatusPending, first.Status)
	assert.True(t, first.Reserved)

	// Exhausted: still recorded, no slot.
	w = f.do(t, http.MethodPost, base+"/requests", map[string]any{"name": "Grace"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.False(t, decode[model.Request](t, w).Reserved)

	w = f.do(t, http.MethodPost, base+"/requests", map[string]any{"name": " "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, base+"/requests", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Request](t, w), 2)

	reqPath := "/api/requests/" + first.ID.String()
	w = f.do(t, http.MethodPatch, reqPath, map[string]string{"status": "fulfilled"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "InvalidTransition", decode[map[string]string](t, w)["error"])

	w = f.do(t, http.MethodPatch, reqPath, map[string]string{"status": "teleported"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, reqPath+"/release", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodPatch, reqPath, map[string]string{"status": "denied"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.StatusDenied, decode[model.Request](t, w).Status)

	w = f.do(t, http.MethodPost, reqPath+"/release", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[model.Request](t, w).Reserved)

	w = f.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, *decode[model.Resource](t, w).CapacityAvailable)

	w = f.do(t, http.MethodPatch, "/api/requests/"+uuid.NewString(), map[string]string{"status": "approved"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "RequestNotFound", decode[map[string]string](t, w)["error"])
}

func TestRestockResource(t *testing.T) {
	f := setupRouter(t, nil)
	zero := 0
	res := f.resource(t, model.Resource{Name: "Coats", Category: model.CategoryClothing, CapacityTotal: 3, CapacityAvailable: &zero})
	path := "/api/resources/" + res.ID.String() + "/restock"

	w := f.do(t, http.MethodPost, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, *decode[model.Resource](t, w).CapacityAvailable)

	w = f.do(t, http.MethodPost, path, map[string]int{"count": 10})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, *decode[model.Resource](t, w).CapacityAvailable, "capped at total")

	w = f.do(t, http.MethodPost, path, map[string]int{"count": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrganizations(t *testing.T) {
	f := setupRouter(t, nil)

	w := f.do(t, http.MethodPost, "/api/organizations", map[string]string{"name": "Beans & Bread"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(t, http.MethodGet, "/api/organizations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	orgs := decode[[]model.Organization](t, w)
	require.Len(t, orgs, 1)
	assert.Equal(t, "Beans & Bread", orgs[0].Name)

	// The write flushes the cached listing.
	w = f.do(t, http.MethodPost, "/api/organizations", map[string]string{"name": "Paul's Place"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = f.do(t, http.MethodGet, "/api/organizations", nil)
	assert.Len(t, decode[[]model.Organization](t, w), 2)

	w = f.do(t, http.MethodPost, "/api/organizations", map[string]string{"name": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalytics(t *testing.T) {
	f := setupRouter(t, nil)
	res := f.resource(t, model.Resource{Name: "Pantry", Category: model.CategoryFood})
	f.resource(t, model.Resource{Name: "Closet", Category: model.CategoryClothing})

	w := f.do(t, http.MethodPost, "/api/resources/"+res.ID.String()+"/requests", map[string]string{"name": "Ada"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(t, http.MethodGet, "/api/analytics/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"housing":0,"food":1,"clothing":1,"other":0}`, w.Body.String())

	w = f.do(t, http.MethodGet, "/api/analytics/requests", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"pending":1,"approved":0,"denied":0,"fulfilled":0,"cancelled":0,"total":1}`, w.Body.String())
}

func TestSubscriptions(t *testing.T) {
	f := setupRouter(t, nil)
	res := f.resource(t, model.Resource{Name: "Pantry", Category: model.CategoryFood})
	endpoint := "https://push.example.com/send/abc%3D"

	w := f.do(t, http.MethodPut, "/api/subscriptions", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPut, "/api/subscriptions", map[string]any{
		"endpoint": endpoint, "p256dh": "key", "auth": "secret",
		"subscribed_resources": []string{res.ID.String()},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	getPath := "/api/subscriptions?endpoint=" + url.QueryEscape(endpoint)
	w = f.do(t, http.MethodGet, "/api/subscriptions?endpoint="+endpoint, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"subscribed_resources":["`+res.ID.String()+`"]}`, w.Body.String())

	w = f.do(t, http.MethodPut, "/api/subscriptions", map[string]any{
		"endpoint": endpoint, "p256dh": "key", "auth": "secret",
		"subscribed_resources": []string{uuid.NewString()},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodDelete, "/api/subscriptions", map[string]string{"endpoint": endpoint})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodGet, "/api/subscriptions?endpoint="+endpoint, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// The escaped form names a different endpoint.
	w = f.do(t, http.MethodGet, getPath, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, "/api/subscriptions", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetVAPIDPublicKey(t *testing.T) {
	w := setupRouter(t, nil).do(t, http.MethodGet, "/api/vapid_public_key", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = setupRouter(t, &webpush.Options{VAPIDPublicKey: "pub"}).do(t, http.MethodGet, "/api/vapid_public_key", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"public_key":"pub"}`, w.Body.String())
}

func TestHealthzAndMetrics(t *testing.T) {
	f := setupRouter(t, nil)

	w := f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = f.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "aidfinder_http_request_duration_seconds")
}

func TestCORSPreflight(t *testing.T) {
	f := setupRouter(t, nil)

	req, _ := http.NewRequest(http.MethodOptions, "/api/resources", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
