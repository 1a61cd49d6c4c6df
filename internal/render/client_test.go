package render

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelterscout/petharvester/internal/secret"
)

func TestFetchPassesURLAndKey(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte("<html>rex</html>"))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, secret.Static("sekrit"))

	html, err := c.Fetch(context.Background(), "https://www.petfinder.com/dog/rex-123/")
	require.NoError(t, err)
	assert.Equal(t, "<html>rex</html>", html)

	assert.Equal(t, "/scrape", gotPath)
	assert.Equal(t, []string{"https://www.petfinder.com/dog/rex-123/"}, gotQuery["url"])
	assert.Equal(t, []string{"sekrit"}, gotQuery["key"])
	assert.NotContains(t, gotQuery, "wait_timeout")
}

func TestFetchJSForwardsWaitParameters(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte("<html/>"))
	}))
	defer srv.Close()

	c := New(Config{
		BaseURL:        srv.URL + "/",
		JSTimeout:      5 * time.Second,
		WaitTimeout:    20,
		AdditionalWait: 5,
	}, secret.Static("sekrit"))

	_, err := c.FetchJS(context.Background(), "https://www.petfinder.com/search/dogs-for-adoption/?page=1")
	require.NoError(t, err)

	assert.Equal(t, "/scrape-js", gotPath)
	assert.Equal(t, []string{"20"}, gotQuery["wait_timeout"])
	assert.Equal(t, []string{"5"}, gotQuery["additional_wait"])
}

func TestFetchReportsRejectedKey(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, secret.Static("wrong"))

	_, err := c.Fetch(context.Background(), "https://www.petfinder.com/dog/rex-123/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected key")
}

func TestFetchStopsOnCanceledContext(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		close(started)
		<-release
		_, _ = w.Write([]byte("<html/>"))
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	c := New(Config{BaseURL: srv.URL, Timeout: 30 * time.Second}, secret.Static("sekrit"))

	_, err := c.Fetch(ctx, "https://www.petfinder.com/dog/rex-123/")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
