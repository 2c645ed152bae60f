package web

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okanero/flowstudio/pkg/models"
	"github.com/okanero/flowstudio/pkg/persistence/file"
	"github.com/okanero/flowstudio/pkg/services"
	"github.com/okanero/flowstudio/pkg/testutil"
)

const testCapabilities = `{
  "features": ["workflow_editor", "dry_run"],
  "menus": ["workflows"],
  "data_scope": "tenant"
}`

type testEnv struct {
	app      *fiber.App
	entities *EntityStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	p := file.NewPersistence(t.TempDir())
	validation := services.NewValidation()

	entities := NewEntityStore()
	handlers := NewAPIHandlers(
		services.NewDraft(p),
		services.NewProposal(p, nil),
		validation,
		services.NewDryRun(),
		services.NewPublishing(p, validation, nil),
		validator.New(validator.WithRequiredStructEnabled()),
		entities,
		[]byte(testCapabilities),
	)

	app := fiber.New()
	RegisterRoutes(app, handlers)

	return &testEnv{app: app, entities: entities}
}

func (e *testEnv) request(t *testing.T, method, path string, body any, headers map[string]string) *http.Response {
	t.Helper()

	var reader io.Reader

	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := e.app.Test(req)
	require.NoError(t, err)

	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var out T

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NoError(t, resp.Body.Close())

	return out
}

func saveDraft(t *testing.T, env *testEnv, ifMatch string) (models.Draft, string) {
	t.Helper()

	seed := testutil.CreateTestDraft("order")
	headers := map[string]string{}

	if ifMatch != "" {
		headers["If-Match"] = ifMatch
	}

	resp := env.request(t, http.MethodPut, "/workflows/order/draft", SaveDraftRequest{
		Nodes:     seed.Nodes,
		Edges:     seed.Edges,
		UpdatedBy: "alice",
	}, headers)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	etag := resp.Header.Get("ETag")
	require.NotEmpty(t, etag)

	return decodeBody[models.Draft](t, resp), etag
}

func TestPutDraft_CreateAndGet(t *testing.T) {
	env := newTestEnv(t)

	created, etag := saveDraft(t, env, "")
	assert.Equal(t, int64(1), created.Version)

	resp := env.request(t, http.MethodGet, "/workflows/order/draft", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, etag, resp.Header.Get("ETag"))

	draft := decodeBody[models.Draft](t, resp)
	assert.Len(t, draft.Nodes, 2)
}

func TestPutDraft_StaleETagConflicts(t *testing.T) {
	env := newTestEnv(t)

	_, etag := saveDraft(t, env, "")
	saveDraft(t, env, etag)

	seed := testutil.CreateTestDraft("order")
	resp := env.request(t, http.MethodPut, "/workflows/order/draft", SaveDraftRequest{
		Nodes: seed.Nodes,
		Edges: seed.Edges,
	}, map[string]string{"If-Match": etag})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	problem := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "conflict", problem["type"])
}

func TestGetDraft_Missing(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodGet, "/workflows/nope/draft", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestValidateDraft(t *testing.T) {
	env := newTestEnv(t)
	saveDraft(t, env, "")

	resp := env.request(t, http.MethodPost, "/workflows/order/validate", map[string]any{}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	report := decodeBody[services.ValidationReport](t, resp)
	assert.True(t, report.Valid())
}

func TestDryRunDraft(t *testing.T) {
	env := newTestEnv(t)
	saveDraft(t, env, "")

	resp := env.request(t, http.MethodPost, "/workflows/order/dry-run", DryRunRequest{}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decodeBody[services.DryRunResult](t, resp)
	assert.True(t, result.Completed)
	assert.Len(t, result.Steps, 2)
}

func TestDryRunDraft_UnknownStartNode(t *testing.T) {
	env := newTestEnv(t)
	saveDraft(t, env, "")

	resp := env.request(t, http.MethodPost, "/workflows/order/dry-run", DryRunRequest{StartNodeID: "ghost"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPublishDraft(t *testing.T) {
	env := newTestEnv(t)
	saveDraft(t, env, "")

	resp := env.request(t, http.MethodPost, "/workflows/order/publish", PublishRequest{PublishedBy: "alice"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decodeBody[services.PublishResult](t, resp)
	assert.True(t, result.Draft.Published)

	// Publishing an already published draft conflicts.
	resp = env.request(t, http.MethodPost, "/workflows/order/publish", PublishRequest{PublishedBy: "alice"}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestPublishDraft_RequiresPublisher(t *testing.T) {
	env := newTestEnv(t)
	saveDraft(t, env, "")

	resp := env.request(t, http.MethodPost, "/workflows/order/publish", map[string]any{}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProposalLifecycle(t *testing.T) {
	env := newTestEnv(t)
	saveDraft(t, env, "")

	seed := testutil.CreateTestDraft("order")
	seed.Nodes = append(seed.Nodes, testutil.CreateTestNode(testutil.WithNodeID("review")))

	resp := env.request(t, http.MethodPost, "/workflows/order/proposals", CreateProposalRequest{
		Title:  "Add review",
		Author: "alice",
		Nodes:  seed.Nodes,
		Edges:  seed.Edges,
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	proposal := decodeBody[models.Proposal](t, resp)
	require.NotEmpty(t, proposal.ID)

	resp = env.request(t, http.MethodGet, "/workflows/order/proposals", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeBody[[]models.Proposal](t, resp), 1)

	resp = env.request(t, http.MethodGet, "/workflows/order/proposals/"+proposal.ID+"/diff", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	diff := decodeBody[services.GraphDiff](t, resp)
	assert.Equal(t, []string{"review"}, diff.AddedNodes)

	resp = env.request(t, http.MethodPost, "/workflows/order/proposals/"+proposal.ID+"/approve",
		DecideProposalRequest{DecidedBy: "bob"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	decided := decodeBody[models.Proposal](t, resp)
	assert.Equal(t, models.ProposalStatusApproved, decided.Status)

	// Deciding twice conflicts.
	resp = env.request(t, http.MethodPost, "/workflows/order/proposals/"+proposal.ID+"/reject",
		DecideProposalRequest{DecidedBy: "carol"}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestProposalCreate_Validates(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodPost, "/workflows/order/proposals", CreateProposalRequest{
		Title: "x", // Too short, and no author.
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEntityResource_ETagRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	etag := env.entities.Seed("customer", "c-1", map[string]any{"name": "ACME", "tier": "gold"})

	resp := env.request(t, http.MethodGet, "/entities/customer/c-1", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, etag, resp.Header.Get("ETag"))

	// Update with the fresh tag succeeds and rotates the tag.
	resp = env.request(t, http.MethodPut, "/entities/customer/c-1",
		map[string]any{"name": "ACME Corp"}, map[string]string{"If-Match": etag})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	newTag := resp.Header.Get("ETag")
	assert.NotEqual(t, etag, newTag)

	// Replaying the old tag hits the precondition wall.
	resp = env.request(t, http.MethodPut, "/entities/customer/c-1",
		map[string]any{"name": "stale write"}, map[string]string{"If-Match": etag})
	assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)

	// And the stale write left no trace.
	resp = env.request(t, http.MethodGet, "/entities/customer/c-1", nil, nil)
	data := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "ACME Corp", data["name"])
}

func TestEntityResource_Patch(t *testing.T) {
	env := newTestEnv(t)

	etag := env.entities.Seed("customer", "c-1", map[string]any{"name": "ACME", "tier": "gold"})

	resp := env.request(t, http.MethodPatch, "/entities/customer/c-1",
		map[string]any{"tier": "platinum"}, map[string]string{"If-Match": etag})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "platinum", data["tier"])
	assert.Equal(t, "ACME", data["name"])

	resp = env.request(t, http.MethodPatch, "/entities/customer/c-1",
		map[string]any{"tier": "silver"}, map[string]string{"If-Match": etag})
	assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)
}

func TestEntityResource_NotFound(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodGet, "/entities/customer/ghost", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.request(t, http.MethodPatch, "/entities/customer/ghost",
		map[string]any{"x": 1}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCapabilities_ETagRevalidation(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodGet, "/capabilities", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	etag := resp.Header.Get("ETag")
	require.NotEmpty(t, etag)

	body := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "tenant", body["data_scope"])

	resp = env.request(t, http.MethodGet, "/capabilities", nil, map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)
}
