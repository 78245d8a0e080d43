package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"keystone-backend/models"
	"keystone-backend/repository"
	"keystone-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var legalID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	legalStore := repository.NewMemoryRecordStore(models.Record{
		ID:              legalID,
		Kind:            models.KindLegal,
		Text:            "first offense simple possession qualifies for judicial diversion",
		Tags:            []string{"tennessee", "diversion_eligible"},
		SourceReference: "TCA 40-35-313",
	})
	principleStore := repository.NewMemoryRecordStore()

	rules := []service.Rule{{
		Name: "diversion-eligibility",
		Evaluate: func(_ models.Query, legal []models.ScoredRecord) ([]service.Conclusion, error) {
			if len(legal) == 0 {
				return nil, nil
			}
			return []service.Conclusion{{
				Description:       "Pursue judicial diversion based on eligibility precedent.",
				SupportingRecords: []uuid.UUID{legal[0].Record.ID},
			}}, nil
		},
	}}

	svc, err := service.NewReasonService(
		service.ReasonWithLegalStore(legalStore),
		service.ReasonWithPrincipleStore(principleStore),
		service.ReasonWithRules(rules),
	)
	require.NoError(t, err)

	r := gin.New()
	api := r.Group("/api")
	api.POST("/reason", NewReasonHandler(svc).Reason)
	api.GET("/records/:id", NewRecordHandler(legalStore, principleStore).GetRecord)
	return r
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func doRequest(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestReasonEndpoint(t *testing.T) {
	r := testRouter(t)

	w, env := doRequest(t, r, http.MethodPost, "/api/reason",
		`{"facts":["first offense","simple possession"],"jurisdiction_tags":["tennessee"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, env.Success)

	var results []models.RankedResult
	require.NoError(t, json.Unmarshal(env.Data, &results))
	require.Len(t, results, 1)
	assert.Equal(t, "Pursue judicial diversion based on eligibility precedent.", results[0].Strategy.Description)
	assert.Equal(t, []string{"TCA 40-35-313"}, results[0].Citations)
}

func TestReasonEndpointMalformedBody(t *testing.T) {
	r := testRouter(t)

	w, env := doRequest(t, r, http.MethodPost, "/api/reason", `{"facts": not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_REQUEST", env.Error.Code)
}

func TestReasonEndpointEmptyQuery(t *testing.T) {
	r := testRouter(t)

	w, env := doRequest(t, r, http.MethodPost, "/api/reason", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_ARGUMENT", env.Error.Code)
}

func TestReasonEndpointConfigOverrides(t *testing.T) {
	r := testRouter(t)

	// An invalid override is rejected just like an invalid default
	w, env := doRequest(t, r, http.MethodPost, "/api/reason",
		`{"facts":["simple possession"],"config":{"limit_legal":0}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_ARGUMENT", env.Error.Code)
}

func TestGetRecordEndpoint(t *testing.T) {
	r := testRouter(t)

	w, env := doRequest(t, r, http.MethodGet, "/api/records/"+legalID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, env.Success)

	var rec models.Record
	require.NoError(t, json.Unmarshal(env.Data, &rec))
	assert.Equal(t, "TCA 40-35-313", rec.SourceReference)
}

func TestGetRecordEndpointInvalidID(t *testing.T) {
	r := testRouter(t)

	w, env := doRequest(t, r, http.MethodGet, "/api/records/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_ID", env.Error.Code)
}

// trackingStore wraps scripted Get results and counts calls.
type trackingStore struct {
	getErr error
	calls  int
}

func (s *trackingStore) Lookup(context.Context, models.RecordKind, models.RecordQuery) ([]models.ScoredRecord, error) {
	return nil, nil
}

func (s *trackingStore) Get(context.Context, uuid.UUID) (*models.Record, error) {
	s.calls++
	return nil, s.getErr
}

func TestGetRecordEndpointStoreUnavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)

	legal := &trackingStore{getErr: fmt.Errorf("database down: %w", models.ErrStoreUnavailable)}
	principle := &trackingStore{getErr: models.ErrNotFound}

	r := gin.New()
	r.GET("/api/records/:id", NewRecordHandler(legal, principle).GetRecord)

	w, env := doRequest(t, r, http.MethodGet, "/api/records/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "STORE_UNAVAILABLE", env.Error.Code)
	assert.Contains(t, env.Error.Message, "database down")

	// An unreachable legal store is not "not found": the principle collection
	// must not be consulted
	assert.Equal(t, 1, legal.calls)
	assert.Zero(t, principle.calls)
}

func TestGetRecordEndpointNotFound(t *testing.T) {
	r := testRouter(t)

	w, env := doRequest(t, r, http.MethodGet, "/api/records/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}
