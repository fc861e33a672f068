package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aneshas/esgate"
	"github.com/aneshas/esgate/api"
	"github.com/aneshas/esgate/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

type streams struct {
	payload []byte
	stream  string
	names   []string
	report  esgate.DeleteReport
	wantErr error
	deleted string
}

func (s *streams) WriteEvent(_ context.Context, payload []byte) (string, error) {
	s.payload = payload

	return s.stream, s.wantErr
}

func (s *streams) ListActiveStreams(_ context.Context) ([]string, error) {
	return s.names, s.wantErr
}

func (s *streams) DeleteHalf(_ context.Context) (esgate.DeleteReport, error) {
	s.deleted = esgate.PolicyHalf

	return s.report, s.wantErr
}

func (s *streams) DeleteOld(_ context.Context) (esgate.DeleteReport, error) {
	s.deleted = esgate.PolicyOld

	return s.report, s.wantErr
}

func serve(t *testing.T, svc api.Streams, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	e := api.New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	return rec
}

func TestShould_Write_Event(t *testing.T) {
	s := &streams{stream: "payments-order-1"}

	rec := serve(t, s, http.MethodPost, "/api/events", `{"amount":1}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Event written successfully to stream: payments-order-1", rec.Body.String())
	assert.Equal(t, `{"amount":1}`, string(s.payload))
}

func TestShould_Fail_Writing_Event(t *testing.T) {
	s := &streams{wantErr: errors.New("connection refused")}

	rec := serve(t, s, http.MethodPost, "/api/events", `{}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to write event: connection refused", rec.Body.String())
}

func TestShould_List_Streams(t *testing.T) {
	s := &streams{names: []string{"a", "b", "a"}}

	rec := serve(t, s, http.MethodGet, "/api/streams", "")

	var got []string

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []string{"a", "b", "a"}, got)
}

func TestShould_List_No_Streams_As_Empty_Array(t *testing.T) {
	rec := serve(t, &streams{}, http.MethodGet, "/api/streams", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestShould_Fail_Listing_Streams_With_Empty_Body(t *testing.T) {
	rec := serve(t, &streams{wantErr: errors.New("boom")}, http.MethodGet, "/api/streams", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestShould_Delete_Streams(t *testing.T) {
	cases := []struct {
		name     string
		target   string
		policy   string
		report   esgate.DeleteReport
		wantErr  error
		wantCode int
		wantBody string
	}{
		{
			name:     "half",
			target:   "/api/streams/delete-half",
			policy:   esgate.PolicyHalf,
			report:   esgate.DeleteReport{Candidates: 4, Deleted: []string{"a", "b"}},
			wantCode: http.StatusOK,
			wantBody: "Successfully deleted 2 streams.",
		},
		{
			name:     "old",
			target:   "/api/streams/delete-old",
			policy:   esgate.PolicyOld,
			report:   esgate.DeleteReport{Candidates: 4, Deleted: []string{"a"}},
			wantCode: http.StatusOK,
			wantBody: "Successfully deleted 1 streams.",
		},
		{
			name:     "half nothing to delete",
			target:   "/api/streams/delete-half",
			policy:   esgate.PolicyHalf,
			report:   esgate.DeleteReport{NothingToDelete: true},
			wantCode: http.StatusOK,
			wantBody: "No streams to delete.",
		},
		{
			name:     "old nothing to delete",
			target:   "/api/streams/delete-old",
			policy:   esgate.PolicyOld,
			report:   esgate.DeleteReport{NothingToDelete: true},
			wantCode: http.StatusOK,
			wantBody: "No streams to delete.",
		},
		{
			name:     "old failure",
			target:   "/api/streams/delete-old",
			policy:   esgate.PolicyOld,
			wantErr:  errors.New("tombstone a: boom"),
			wantCode: http.StatusInternalServerError,
			wantBody: "Failed to delete streams: tombstone a: boom",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &streams{report: tc.report, wantErr: tc.wantErr}

			rec := serve(t, s, http.MethodGet, tc.target, "")

			assert.Equal(t, tc.policy, s.deleted)
			assert.Equal(t, tc.wantCode, rec.Code)
			assert.Equal(t, tc.wantBody, rec.Body.String())
		})
	}
}

func TestShould_Serve_Service_End_To_End(t *testing.T) {
	store := testutil.NewStore()

	svc, err := esgate.New(store, esgate.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatal(err)
	}

	rec := serve(t, svc, http.MethodPost, "/api/events", `{"amount":1}`)

	assert.Equal(t, http.StatusOK, rec.Code)

	stream := strings.TrimPrefix(rec.Body.String(), "Event written successfully to stream: ")

	rec = serve(t, svc, http.MethodGet, "/api/streams", "")

	var got []string

	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []string{stream}, got)

	rec = serve(t, svc, http.MethodGet, "/api/streams/delete-old", "")

	assert.Equal(t, "No streams to delete.", rec.Body.String())

	rec = serve(t, svc, http.MethodPost, "/api/events", `not json`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Failed to write event: "))
}

func TestShould_Not_Serve_Unknown_Routes(t *testing.T) {
	rec := serve(t, &streams{}, http.MethodGet, "/api/events", "")

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
