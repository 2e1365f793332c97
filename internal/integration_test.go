package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aidfinder-backend/internal/analytics"
	"aidfinder-backend/internal/api"
	"aidfinder-backend/internal/catalog"
	"aidfinder-backend/internal/dbtest"
	"aidfinder-backend/internal/model"
	"aidfinder-backend/internal/reservation"
	"aidfinder-backend/internal/seed"
	"aidfinder-backend/internal/store"
)

type countingNotifier struct {
	n atomic.Int64
}

func (c *countingNotifier) Dispatch(uuid.UUID) { c.n.Add(1) }

func patchJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPatch, url, bytes.NewReader(buf))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func getJSON(t *testing.T, url string, out any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

// TestReservationLifecycle drives the service over HTTP from a seeded
// directory through concurrent submissions, status changes and analytics.
func TestReservationLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	log := zap.NewNop()

	appStore := store.NewGormStore(dbtest.NewSQLite(t), 5*time.Second)
	cat := catalog.New(appStore, log)

	file, err := seed.Load("../config/seed.yaml")
	require.NoError(t, err)
	require.NoError(t, seed.Apply(ctx, file, appStore, cat, log))

	notifier := &countingNotifier{}
	router := api.NewRouter(api.Deps{
		Store:       appStore,
		Catalog:     cat,
		Coordinator: reservation.New(appStore, 3, notifier, log),
		Analytics:   analytics.New(appStore),
		Log:         log,
	}, api.RouterConfig{RateLimitPerSec: 1000, RateLimitBurst: 1000, CacheTTL: time.Minute})

	server := httptest.NewServer(router)
	defer server.Close()

	two := 2
	r1 := model.Resource{Name: "Overflow Beds", Category: model.CategoryHousing, CapacityTotal: 2, CapacityAvailable: &two}
	require.NoError(t, cat.CreateResource(ctx, &r1))
	r1URL := fmt.Sprintf("%s/api/resources/%s", server.URL, r1.ID)

	var created []model.Request
	t.Run("Concurrent submissions never overcommit", func(t *testing.T) {
		var (
			wg sync.WaitGroup
			mu sync.Mutex
		)
		for i := 0; i < 3; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				body := fmt.Sprintf(`{"name":"requester-%d"}`, i)
				resp, err := http.Post(r1URL+"/requests", "application/json", bytes.NewBufferString(body))
				if !assert.NoError(t, err) {
					return
				}
				defer resp.Body.Close()
				assert.Equal(t, http.StatusCreated, resp.StatusCode)

				var req model.Request
				if assert.NoError(t, json.NewDecoder(resp.Body).Decode(&req)) {
					mu.Lock()
					created = append(created, req)
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()

		var res model.Resource
		getJSON(t, r1URL, &res)
		require.NotNil(t, res.CapacityAvailable)
		assert.Equal(t, 0, *res.CapacityAvailable)

		var requests []model.Request
		getJSON(t, r1URL+"/requests", &requests)
		require.Len(t, requests, 3)
		reserved := 0
		for _, r := range requests {
			assert.Equal(t, model.StatusPending, r.Status)
			if r.Reserved {
				reserved++
			}
		}
		assert.Equal(t, 2, reserved)
		assert.Equal(t, int64(3), notifier.n.Load())
	})

	t.Run("Fulfilling a pending request is rejected", func(t *testing.T) {
		require.NotEmpty(t, created)
		resp := patchJSON(t, fmt.Sprintf("%s/api/requests/%s", server.URL, created[0].ID), map[string]string{"status": "fulfilled"})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "InvalidTransition", body["error"])
	})

	t.Run("Approve then fulfil", func(t *testing.T) {
		require.NotEmpty(t, created)
		url := fmt.Sprintf("%s/api/requests/%s", server.URL, created[0].ID)
		for _, status := range []string{"approved", "fulfilled"} {
			resp := patchJSON(t, url, map[string]string{"status": status})
			resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode, status)
		}
	})

	t.Run("Pantry search over seeded catalog", func(t *testing.T) {
		var results []catalog.Result
		getJSON(t, server.URL+"/api/resources?category=food&q=pantry", &results)
		names := make([]string, 0, len(results))
		for _, r := range results {
			assert.Equal(t, model.CategoryFood, r.Category)
			names = append(names, r.Name)
		}
		assert.ElementsMatch(t, []string{"Bea Gaddy Family Center", "Donald Bentley Food Pantry"}, names)

		getJSON(t, server.URL+"/api/resources?category=clothing&q=pantry", &results)
		assert.Empty(t, results)
	})

	t.Run("Analytics reflect the ledger", func(t *testing.T) {
		var stats map[string]int64
		getJSON(t, server.URL+"/api/analytics/requests", &stats)
		assert.Equal(t, int64(3), stats["total"])
		assert.Equal(t, int64(2), stats["pending"])
		assert.Equal(t, int64(1), stats["fulfilled"])

		var categories map[string]int64
		getJSON(t, server.URL+"/api/analytics/categories", &categories)
		assert.Equal(t, int64(3), categories["housing"])
		assert.Equal(t, int64(3), categories["food"])
		assert.Equal(t, int64(2), categories["clothing"])
		assert.Equal(t, int64(0), categories["other"])
	})
}
