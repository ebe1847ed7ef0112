package themembers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	cfgpkg "github.com/cursopassei/checkout/pkg/config"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	cfg := &cfgpkg.Config{}
	cfg.TheMembers.BaseURL = baseURL
	cfg.TheMembers.DeveloperToken = "dev-token"
	cfg.TheMembers.PlatformToken = "platform-token"
	cfg.TheMembers.RetryAttempts = 3
	cfg.TheMembers.RetryDelay = time.Millisecond
	cfg.TheMembers.Timeout = time.Second
	return NewClient(cfg, zap.NewNop().Sugar())
}

func TestCreateUsersWithProducts_SendsTokensAndPayload(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody createUsersRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"status":"queued"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	out, err := c.CreateUsersWithProducts(context.Background(), []string{"p1", "p2"}, []UserPayload{{
		Name:  "Maria da Silva",
		Email: "maria@example.com",
	}})

	require.NoError(t, err)
	require.Equal(t, "queued", out["status"])
	require.Equal(t, "/users/create/dev-token/platform-token", gotPath)
	require.Equal(t, "Bearer platform-token", gotAuth)
	require.Equal(t, []string{"p1", "p2"}, gotBody.ProductID)
	require.Len(t, gotBody.Users, 1)
}

func TestDoWithRetry_RetriesOn429(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	var out map[string]any
	err := c.doWithRetry(context.Background(), http.MethodGet, "/x", nil, &out)

	require.NoError(t, err)
	require.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDoWithRetry_GivesUpAfterAttempts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	err := c.doWithRetry(context.Background(), http.MethodGet, "/x", nil, nil)

	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
}

func TestDoWithRetry_OtherStatusIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"email already registered"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	err := c.doWithRetry(context.Background(), http.MethodPost, "/x", map[string]string{}, nil)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	require.Contains(t, apiErr.Body, "email already registered")
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestListProducts_FollowsCursor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cursor") == "" {
			_, _ = w.Write([]byte(`{"data":[{"id":"p1","title":"A"}],"links":{"next":"http://next"},"meta":{"next_cursor":"abc"}}`))
			return
		}
		require.Equal(t, "abc", r.URL.Query().Get("cursor"))
		_, _ = w.Write([]byte(`{"data":[{"id":"p2","title":"B"}],"links":{"next":""},"meta":{"next_cursor":""}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	products, err := c.ListProducts(context.Background())

	require.NoError(t, err)
	require.Len(t, products, 2)
	require.Equal(t, "p1", products[0].ID)
	require.Equal(t, "p2", products[1].ID)
}

func TestListProducts_StopsAtPageCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":"p","title":"loop"}],"links":{"next":"http://next"},"meta":{"next_cursor":"again"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	products, err := c.ListProducts(context.Background())

	require.NoError(t, err)
	require.Len(t, products, maxProductPages)
}
