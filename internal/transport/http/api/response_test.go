package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perfcycle/internal/domain/apperr"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestFailErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{apperr.Validation("validation_error", "bad"), http.StatusBadRequest, "validation_error"},
		{apperr.Conflict("hierarchy_cycle", "cycle"), http.StatusBadRequest, "hierarchy_cycle"},
		{apperr.Forbidden("no"), http.StatusForbidden, "forbidden"},
		{apperr.NotFound("gone"), http.StatusNotFound, "not_found"},
		{apperr.Transaction("delete goals", errors.New("fk")), http.StatusInternalServerError, "transaction_failed"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
		{errors.Wrap(apperr.Forbidden("wrapped"), "outer"), http.StatusForbidden, "forbidden"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		FailError(rec, tc.err, "req-1")
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())

		env := decode(t, rec)
		assert.False(t, env.Success)
		require.NotNil(t, env.Error)
		assert.Equal(t, tc.code, env.Error.Code)
		assert.Equal(t, "req-1", env.RequestID)
	}
}

func TestFailErrorTransactionKeepsCause(t *testing.T) {
	rec := httptest.NewRecorder()
	FailError(rec, apperr.Transaction("delete goals", errors.New("fk violation")), "")

	env := decode(t, rec)
	assert.Equal(t, "delete goals: fk violation", env.Error.Message)
}

func TestFailErrorHidesInternalMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	FailError(rec, errors.New("password=hunter2"), "")

	env := decode(t, rec)
	assert.NotContains(t, env.Error.Message, "hunter2")
}

func TestSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, map[string]int{"n": 1}, "r")

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":true,"data":{"n":1},"requestId":"r"}`, rec.Body.String())
}
