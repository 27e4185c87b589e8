package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendAndParseJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "DGS10", r.URL.Query().Get("series_id"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Equal(t, "override", r.Header.Get("X-Extra"))
		_, _ = w.Write([]byte(`{"observations":[{"date":"2024-06-03","value":"4.4"}]}`))
	}))
	defer srv.Close()

	c := NewClient(WithTimeout(time.Second), WithUserAgent("test-agent"))
	var out struct {
		Observations []struct {
			Date  string `json:"date"`
			Value string `json:"value"`
		} `json:"observations"`
	}
	err := c.SendAndParse(context.Background(), &RequestOptions{
		URL:         srv.URL,
		Headers:     map[string]string{"X-Extra": "override"},
		QueryParams: map[string][]string{"series_id": {"DGS10"}},
	}, &out)
	require.NoError(t, err)
	require.Len(t, out.Observations, 1)
	assert.Equal(t, "4.4", out.Observations[0].Value)
}

func TestSendAndParseRawBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("Date,Close\n2024-06-03,10\n"))
	}))
	defer srv.Close()

	var body []byte
	require.NoError(t, NewClient().SendAndParse(context.Background(), &RequestOptions{URL: srv.URL}, &body))
	assert.Equal(t, "Date,Close\n2024-06-03,10\n", string(body))
}

func TestSendAndParseStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewClient().SendAndParse(context.Background(), &RequestOptions{URL: srv.URL}, nil)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.Code)
	assert.Equal(t, "rate limited", se.Body)
}

func TestTransportErrorsRedactKeys(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := NewClient(WithTimeout(time.Second)).SendAndParse(context.Background(), &RequestOptions{
		URL:         url,
		QueryParams: map[string][]string{"api_key": {"s3cret"}, "series_id": {"DGS10"}},
	}, nil)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "s3cret")
	assert.Contains(t, err.Error(), "REDACTED")
	assert.Contains(t, err.Error(), "series_id=DGS10")
}
