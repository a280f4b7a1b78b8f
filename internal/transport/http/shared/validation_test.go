package shared

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type samplePayload struct {
	Name   string   `json:"name" validate:"required"`
	Email  string   `json:"email" validate:"omitempty,email"`
	IDs    []string `json:"ids" validate:"omitempty,dive,uuid"`
	Peers  int      `json:"peers" validate:"gte=0"`
	Hidden string   `json:"-" validate:"omitempty,max=1"`
}

func TestValidatorStructUsesJSONNames(t *testing.T) {
	v := NewValidator()
	v.Struct(samplePayload{Email: "nope", IDs: []string{"x"}, Peers: -1})

	issues := v.Issues()
	fields := map[string]string{}
	for _, issue := range issues {
		fields[issue.Field] = issue.Reason
	}
	assert.Equal(t, "is required", fields["name"])
	assert.Equal(t, "must be a valid email", fields["email"])
	assert.Equal(t, "must be a valid uuid", fields["ids[0]"])
	assert.Equal(t, "must be greater than or equal to 0", fields["peers"])
}

func TestValidatorStructPasses(t *testing.T) {
	v := NewValidator()
	v.Struct(samplePayload{Name: "ok"})
	assert.False(t, v.HasIssues())
}

func TestRejectWritesDetails(t *testing.T) {
	v := NewValidator()
	v.Required("name", " ", "is required")
	rec := httptest.NewRecorder()
	require.True(t, v.Reject(rec, "req"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				Fields []ValidationIssue `json:"fields"`
			} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "validation_error", body.Error.Code)
	assert.Equal(t, []ValidationIssue{{Field: "name", Reason: "is required"}}, body.Error.Details.Fields)
}

func TestDateOrder(t *testing.T) {
	v := NewValidator()
	start, ok := v.Date("startDate", "2026-03-01")
	require.True(t, ok)
	end, ok := v.Date("endDate", "2026-02-01")
	require.True(t, ok)
	v.DateOrder("startDate", start, "endDate", end)
	assert.Len(t, v.Issues(), 2)

	_, ok = v.Date("other", "01/02/2026")
	assert.False(t, ok)
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","extra":1}`))
	var payload samplePayload
	assert.Error(t, DecodeJSON(req, &payload))
}

func TestNullable(t *testing.T) {
	var body struct {
		ManagerID Nullable[string] `json:"managerId"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{}`), &body))
	assert.False(t, body.ManagerID.Present)

	require.NoError(t, json.Unmarshal([]byte(`{"managerId":null}`), &body))
	assert.True(t, body.ManagerID.Present)
	assert.True(t, body.ManagerID.Null)

	body.ManagerID = Nullable[string]{}
	require.NoError(t, json.Unmarshal([]byte(`{"managerId":"m1"}`), &body))
	assert.True(t, body.ManagerID.Present)
	assert.False(t, body.ManagerID.Null)
	assert.Equal(t, "m1", body.ManagerID.Value)
}
