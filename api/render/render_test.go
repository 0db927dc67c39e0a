package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/worklog/core/ledger"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("x: %w", ledger.ErrInvalidInput), http.StatusBadRequest, CodeInvalidInput},
		{ledger.ErrCapacityExceeded, http.StatusConflict, CodeCapacityExceeded},
		{ledger.ErrNotFound, http.StatusNotFound, CodeNotFound},
		{ledger.Unavailable(errors.New("dial")), http.StatusServiceUnavailable, CodeStorageUnavailable},
		{errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}
	for _, c := range cases {
		status, code := Status(c.err)
		assert.Equal(t, c.status, status, c.err.Error())
		assert.Equal(t, c.code, code, c.err.Error())
	}
}

func TestError_HidesInternalText(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, nil, errors.New("pq: password authentication failed"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, CodeInternal, body.Code)
	assert.NotContains(t, body.Message, "password")
}

func TestDecode_RejectsUnknownFields(t *testing.T) {
	var v struct {
		A int `json:"a"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1,"b":2}`))
	assert.ErrorIs(t, Decode(r, &v), ledger.ErrInvalidInput)
}

func TestParams(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?start=2025-03-10&bad=10/03/2025&n=7&ids=1,2&ids=3", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "42")
	r = r.WithContext(contextWithRoute(r, rctx))

	id, err := PathID(r, "id")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	day, ok, err := QueryDay(r, "start")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 10, day.Day())

	_, _, err = QueryDay(r, "bad")
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)
	_, ok, err = QueryDay(r, "missing")
	assert.NoError(t, err)
	assert.False(t, ok)

	n, ok, err := QueryInt(r, "n")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(7), n)

	ids, err := QueryIDs(r, "ids")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)
}
