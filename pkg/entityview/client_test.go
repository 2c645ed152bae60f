package entityview

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/okanero/flowstudio/pkg/models"
	"github.com/okanero/flowstudio/pkg/presence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEntityServer serves one entity with ETag/If-Match semantics.
type fakeEntityServer struct {
	etag     string
	data     map[string]any
	requests atomic.Int64
}

func (s *fakeEntityServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)

		switch r.Method {
		case http.MethodGet:
			w.Header().Set("ETag", s.etag)
			_ = json.NewEncoder(w).Encode(s.data)
		case http.MethodPut, http.MethodPatch:
			if r.Header.Get("If-Match") != s.etag {
				w.Header().Set("Content-Type", "application/problem+json")
				w.WriteHeader(http.StatusConflict)
				_, _ = w.Write([]byte(`{"title":"Conflict","detail":"entity was modified"}`))

				return
			}

			var patch map[string]any

			_ = json.NewDecoder(r.Body).Decode(&patch)
			for k, v := range patch {
				s.data[k] = v
			}

			s.etag = s.etag + "'"
			w.Header().Set("ETag", s.etag)
			_ = json.NewEncoder(w).Encode(s.data)
		}
	}
}

func newFakeServer(t *testing.T) (*fakeEntityServer, *httptest.Server) {
	t.Helper()

	fake := &fakeEntityServer{etag: `"v1"`, data: map[string]any{"status": "new"}}
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)

	return fake, server
}

func TestClient_FetchReturnsETag(t *testing.T) {
	_, server := newFakeServer(t)
	client := NewClient(server.URL)

	view, err := client.Fetch(t.Context(), "Order", "o-1")
	require.NoError(t, err)
	assert.Equal(t, `"v1"`, view.ETag)
	assert.Equal(t, "new", view.Data["status"])
}

func TestClient_UpdateRotatesETag(t *testing.T) {
	_, server := newFakeServer(t)
	client := NewClient(server.URL)

	view, err := client.Fetch(t.Context(), "Order", "o-1")
	require.NoError(t, err)

	updated, err := client.Update(t.Context(), "Order", "o-1", map[string]any{"status": "paid"}, view.ETag)
	require.NoError(t, err)
	assert.NotEqual(t, view.ETag, updated.ETag)

	refetched, err := client.Fetch(t.Context(), "Order", "o-1")
	require.NoError(t, err)
	assert.Equal(t, updated.ETag, refetched.ETag)
	assert.Equal(t, "paid", refetched.Data["status"])
}

func TestClient_StaleETagInvokesConflictHandler(t *testing.T) {
	_, server := newFakeServer(t)

	var got *Conflict

	client := NewClient(server.URL, WithConflictHandler(func(c Conflict) {
		got = &c
	}))

	_, err := client.Update(t.Context(), "Order", "o-1", map[string]any{"status": "paid"}, `"stale"`)
	require.ErrorIs(t, err, ErrConflict)

	require.NotNil(t, got)
	assert.ErrorIs(t, got.Err, ErrConflict)
	assert.Equal(t, "entity was modified", got.Message)

	// The reload action must fail fast: resynchronization goes through
	// Fetch, never through the conflict object.
	assert.ErrorIs(t, got.Reload(), ErrReloadRequired)
}

func TestClient_ConflictNeverSilentlySucceeds(t *testing.T) {
	fake, server := newFakeServer(t)
	client := NewClient(server.URL)

	_, err := client.Update(t.Context(), "Order", "o-1", map[string]any{"status": "paid"}, `"stale"`)
	require.ErrorIs(t, err, ErrConflict)

	assert.Equal(t, "new", fake.data["status"])
}

func TestClient_PreconditionFailedIsAlsoConflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPreconditionFailed)
	}))
	t.Cleanup(server.Close)

	conflicts := 0
	client := NewClient(server.URL, WithConflictHandler(func(Conflict) { conflicts++ }))

	_, err := client.Update(t.Context(), "Order", "o-1", nil, `"v1"`)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 1, conflicts)
}

func TestClient_PatchRejectedLocallyWhenFieldLocked(t *testing.T) {
	fake, server := newFakeServer(t)

	locks := presence.NewMemoryLockTable()
	require.NoError(t, locks.Acquire(t.Context(), models.FieldLock{
		EntityID: "o-1",
		Field:    "status",
		HolderID: "alice",
	}))

	client := NewClient(server.URL, WithLockTable(locks))

	_, err := client.Patch(t.Context(), "Order", "o-1", "status", "paid", `"v1"`, "bob")
	require.ErrorIs(t, err, presence.ErrFieldLocked)
	assert.Contains(t, err.Error(), "alice")

	// Rejected before any network call.
	assert.Zero(t, fake.requests.Load())
}

func TestClient_PatchByLockHolderGoesThrough(t *testing.T) {
	_, server := newFakeServer(t)

	locks := presence.NewMemoryLockTable()
	require.NoError(t, locks.Acquire(t.Context(), models.FieldLock{
		EntityID: "o-1",
		Field:    "status",
		HolderID: "alice",
	}))

	client := NewClient(server.URL, WithLockTable(locks))

	view, err := client.Patch(t.Context(), "Order", "o-1", "status", "paid", `"v1"`, "alice")
	require.NoError(t, err)
	assert.Equal(t, "paid", view.Data["status"])
}

func TestClient_FetchNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	client := NewClient(server.URL)

	_, err := client.Fetch(t.Context(), "Order", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_ValidationErrorCarriesDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"title":"Bad Request","detail":"status must not be empty"}`))
	}))
	t.Cleanup(server.Close)

	client := NewClient(server.URL)

	_, err := client.Update(t.Context(), "Order", "o-1", map[string]any{}, `"v1"`)
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "status must not be empty")
}
