package httputil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrySucceedsOnSecondAttempt(t *testing.T) {
	calls := 0
	err := Retry{Attempts: 2, Delay: time.Millisecond}.Do(context.Background(), "op", func(context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("flaky")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryGivesUpAndWraps(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := Retry{Attempts: 2, Delay: time.Millisecond}.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestRetryStopsOnPermanent(t *testing.T) {
	boom := errors.New("bad request")
	calls := 0
	err := Retry{Attempts: 3, Delay: time.Millisecond}.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return Permanent(boom)
	})
	assert.Equal(t, boom, err)
	assert.Equal(t, 1, calls)
}

func TestRetryStopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry{Attempts: 5, Delay: time.Hour}.Do(ctx, "op", func(context.Context) error {
		calls++
		cancel()
		return errors.New("x")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestClientsSetDefaultHeaders(t *testing.T) {
	var ua, lang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		lang = r.Header.Get("Accept-Language")
	}))
	defer srv.Close()

	c := NewClients(time.Second)
	resp, err := c.Scraping.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, BrowserUserAgent, ua)
	assert.Contains(t, lang, "pl-PL")

	resp, err = c.API.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, APIUserAgent, ua)
}
