package checkwx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeICAO(t *testing.T) {
	icao, err := NormalizeICAO(" ltfm ")
	require.NoError(t, err)
	assert.Equal(t, "LTFM", icao)

	for _, bad := range []string{"", "LTF", "LTFMX", "LT-M", "../x"} {
		_, err := NormalizeICAO(bad)
		assert.ErrorIs(t, err, ErrInvalidICAO, bad)
	}
}

func TestMetar(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/metar/LTFM/decoded", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		_, _ = w.Write([]byte(`{"results":1,"data":[{"raw_text":"LTFM 011050Z 03010KT CAVOK 18/08 Q1015"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", time.Second, time.Minute, 16)

	raw, err := c.Metar(context.Background(), "ltfm")
	require.NoError(t, err)
	assert.Equal(t, "LTFM 011050Z 03010KT CAVOK 18/08 Q1015", raw)

	raw2, err := c.Metar(context.Background(), "LTFM")
	require.NoError(t, err)
	assert.Equal(t, raw, raw2)
	assert.Equal(t, int32(1), hits.Load())
}

func TestTaf_NoCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/taf/LTBA/decoded", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[{"raw_text":"TAF LTBA 011100Z 0112/0218 04008KT 9999 FEW030"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", time.Second, 0, 16)
	for i := 0; i < 2; i++ {
		_, err := c.Taf(context.Background(), "LTBA")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), hits.Load())
}

func TestReport_Errors(t *testing.T) {
	t.Run("no data", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"results":0,"data":[]}`))
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, "k", time.Second, time.Minute, 4).Metar(context.Background(), "ZZZZ")
		assert.ErrorIs(t, err, ErrNoData)
		assert.Equal(t, "no data available", err.Error())
	})

	t.Run("api error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, "k", time.Second, time.Minute, 4).Metar(context.Background(), "LTFM")
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	})

	t.Run("no api key", func(t *testing.T) {
		_, err := NewClient("http://127.0.0.1:1", "", time.Second, 0, 1).Metar(context.Background(), "LTFM")
		assert.ErrorIs(t, err, ErrNoAPIKey)
	})

	t.Run("invalid icao never hits network", func(t *testing.T) {
		_, err := NewClient("http://127.0.0.1:1", "k", time.Second, 0, 1).Taf(context.Background(), "X")
		assert.ErrorIs(t, err, ErrInvalidICAO)
	})
}
