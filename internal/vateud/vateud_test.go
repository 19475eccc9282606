package vateud

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRoster = `{
  "success": true,
  "data": {
    "staff": [
      {"cid": 1000001, "position": "Director"},
      [{"cid": "1000002"}, {"cid": 1000003}]
    ],
    "controllers": [1000003, "1000004", 1000005]
  }
}`

func TestRoster(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("X-API-KEY"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla")
		_, _ = w.Write([]byte(sampleRoster))
	}))
	defer srv.Close()

	roster, err := NewClient(srv.URL, "key", time.Second).Roster(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"1000001", "1000002", "1000003"}, roster.Staff)
	assert.Equal(t, []string{"1000003", "1000004", "1000005"}, roster.Controllers)

	members := roster.Members()
	require.Len(t, members, 5)
	assert.Equal(t, Member{CID: "1000003", Kind: KindStaff}, members[2])
	assert.Equal(t, Member{CID: "1000004", Kind: KindController}, members[3])
}

func TestRoster_SkipsMissingCIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"staff":[{"cid":null},{"cid":1000001},{"cid":""}],"controllers":[1000002,null,1000003]}}`))
	}))
	defer srv.Close()

	roster, err := NewClient(srv.URL, "key", time.Second).Roster(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"1000001"}, roster.Staff)
	assert.Equal(t, []string{"1000002", "1000003"}, roster.Controllers)
}

func TestRoster_Errors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(strings.Repeat("x", 800)))
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, "key", time.Second).Roster(context.Background())
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
		assert.Len(t, apiErr.Body, 500)
	})

	t.Run("unsuccessful", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"success": false, "message": "nope"}`))
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, "key", time.Second).Roster(context.Background())
		assert.ErrorIs(t, err, ErrUnsuccessful)
	})

	t.Run("bad cid", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"success": true, "data": {"staff": [], "controllers": [1.5]}}`))
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, "key", time.Second).Roster(context.Background())
		assert.Error(t, err)
	})
}
