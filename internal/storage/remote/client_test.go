package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/julianstephens/tally/internal/models"
	"github.com/julianstephens/tally/internal/server"
	"github.com/julianstephens/tally/internal/storage"
	"github.com/julianstephens/tally/internal/storage/sqlite"
	"github.com/julianstephens/tally/internal/storage/sqlstore"
	"github.com/julianstephens/tally/internal/storage/storagetest"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "tally.db"), sqlstore.Options{})
	require.NoError(t, store.Init())
	t.Cleanup(func() { store.Close() })

	ts := httptest.NewServer(server.New(store, server.Options{AuthRate: rate.Inf}).Handler())
	t.Cleanup(ts.Close)

	client, err := New(ts.URL, ts.Client())
	require.NoError(t, err)
	require.NoError(t, client.Load())
	return client
}

func TestClientContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Provider {
		return newTestClient(t)
	})
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("ftp://example.com", nil)
	assert.Error(t, err)
	_, err = New("://nope", nil)
	assert.Error(t, err)

	c, err := New("http://localhost:8080/", nil)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", c.Location())
}

func TestUnreachableServerIsUnavailable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c, err := New(url, nil)
	require.NoError(t, err)
	assert.Error(t, c.Load())

	_, err = c.ListHabits(context.Background(), models.Session{AccessToken: "x"})
	assert.True(t, storage.IsUnavailable(err), "ListHabits() error = %v, want unavailable", err)
}

func TestKindFor(t *testing.T) {
	tests := []struct {
		status int
		code   string
		want   storage.Kind
	}{
		{http.StatusConflict, "duplicate", storage.KindDuplicate},
		{http.StatusBadRequest, "not_found", storage.KindNotFound},
		{http.StatusConflict, "", storage.KindDuplicate},
		{http.StatusTooManyRequests, server.CodeRateLimited, storage.KindUnavailable},
		{http.StatusForbidden, "", storage.KindUnauthorized},
		{http.StatusTeapot, "", storage.KindInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, kindFor(tt.status, tt.code), "kindFor(%d, %q)", tt.status, tt.code)
	}
}

func TestNonJSONErrorBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer ts.Close()

	c, err := New(ts.URL, ts.Client())
	require.NoError(t, err)
	_, err = c.GetHabit(context.Background(), models.Session{AccessToken: "x"}, "h1")
	require.Error(t, err)
	assert.True(t, storage.IsUnavailable(err))
	var se *storage.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "upstream exploded", se.Message)
}
