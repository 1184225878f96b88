package plantclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plantJSON = `{"id":"65f0c0ffee0000000000abcd","image":"https://img.example/p.png","description":"first leaf","date":"2024-03-01T10:00:00Z","comments":[]}`

func newTestClient(t *testing.T, baseURL string, cfg Config, opts ...Option) *Client {
	t.Helper()
	cfg.BaseURL = baseURL
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	if cfg.SlowStartThreshold == 0 {
		cfg.SlowStartThreshold = time.Hour
	}
	c, err := New(cfg, opts...)
	require.NoError(t, err)
	return c
}

func TestNew_RejectsInvalidBaseURL(t *testing.T) {
	_, err := New(Config{BaseURL: "not a url"})
	assert.Error(t, err)
}

func TestListPlants_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			io.WriteString(w, `{"message":"Server error"}`)
			return
		}
		io.WriteString(w, "["+plantJSON+"]")
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, Config{MaxAttempts: 3})
	plants, err := c.ListPlants(context.Background())
	require.NoError(t, err)
	require.Len(t, plants, 1)
	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, DefaultTitle, plants[0].DisplayTitle())
}

func TestListPlants_GivesUpAfterMaxAttempts(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"message":"Server error"}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, Config{MaxAttempts: 2})
	_, err := c.ListPlants(context.Background())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "Server error", apiErr.Message)
	assert.Equal(t, int32(2), hits.Load())
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"message":"Plant not found"}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, Config{MaxAttempts: 3})
	err := c.DeletePlant(context.Background(), "missing")

	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "Plant not found")
	assert.Equal(t, int32(1), hits.Load())
}

func TestUnauthorizedClearsSessionThenCallsHook(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"message":"Token has expired"}`)
	}))
	defer srv.Close()

	session := NewMemorySession()
	require.NoError(t, session.SetToken("stale"))

	var tokenAtHook string
	hookCalls := 0
	c := newTestClient(t, srv.URL, Config{}, WithSession(session), OnUnauthorized(func() {
		hookCalls++
		tokenAtHook = session.Token()
	}))

	err := c.DeletePlant(context.Background(), "65f0c0ffee0000000000abcd")

	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, "Bearer stale", gotAuth)
	assert.Equal(t, 1, hookCalls)
	assert.Empty(t, tokenAtHook)
	assert.Empty(t, session.Token())
}

func TestLoginStoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/admin/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		io.WriteString(w, `{"token":"fresh"}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, Config{})
	require.NoError(t, c.Login(context.Background(), "abhi", "secret"))
	assert.Equal(t, "fresh", c.Session().Token())

	require.NoError(t, c.Logout())
	assert.Empty(t, c.Session().Token())
}

func TestCreatePlant_ReusesIdempotencyKeyAcrossRetries(t *testing.T) {
	var (
		mu   sync.Mutex
		keys []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		_, header, err := r.FormFile("image")
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		assert.Equal(t, "Week 3", r.FormValue("title"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		mu.Lock()
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		n := len(keys)
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, plantJSON)
	}))
	defer srv.Close()

	session := NewMemorySession()
	require.NoError(t, session.SetToken("tok"))
	c := newTestClient(t, srv.URL, Config{MaxAttempts: 3}, WithSession(session))

	plant, err := c.CreatePlant(context.Background(), NewPlant{
		Title:       "Week 3",
		Description: "first leaf",
		Image:       Image{Filename: "leaf.png", Body: bytes.NewReader([]byte("\x89PNG\r\n\x1a\nrest"))},
	})
	require.NoError(t, err)
	assert.Equal(t, "65f0c0ffee0000000000abcd", plant.ID)

	require.Len(t, keys, 2)
	assert.NotEmpty(t, keys[0])
	assert.Equal(t, keys[0], keys[1])
}

func TestCreatePlant_RetriesWhileKeyedCreateInProgress(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusConflict)
			io.WriteString(w, `{"message":"Upload already in progress"}`)
			return
		}
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, plantJSON)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, Config{MaxAttempts: 3})
	plant, err := c.CreatePlant(context.Background(), NewPlant{
		Title:       "Week 3",
		Description: "first leaf",
		Image:       Image{Filename: "leaf.png", Body: bytes.NewReader([]byte("\x89PNG\r\n\x1a\nrest"))},
	})
	require.NoError(t, err)
	assert.Equal(t, "65f0c0ffee0000000000abcd", plant.ID)
	assert.Equal(t, int32(2), hits.Load())
}

func TestDeletePlant_ConflictWithoutKeyIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusConflict)
		io.WriteString(w, `{"message":"busy"}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, Config{MaxAttempts: 3})
	err := c.DeletePlant(context.Background(), "a1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, int32(1), hits.Load())
}

func TestCreatePlant_TimeoutReturnsUnavailable(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, Config{MaxAttempts: 2, Timeout: 30 * time.Millisecond})
	_, err := c.CreatePlant(context.Background(), NewPlant{
		Title:       "t",
		Description: "d",
		Image:       Image{Filename: "a.jpg", Body: bytes.NewReader([]byte{0xff, 0xd8, 0xff})},
	})

	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.Equal(t, int32(2), hits.Load())
}

func TestAddComment_IsSentOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, Config{MaxAttempts: 3})
	_, err := c.AddComment(context.Background(), "65f0c0ffee0000000000abcd", "lovely")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusText(http.StatusInternalServerError), apiErr.Message)
	assert.Equal(t, int32(1), hits.Load())
}

func TestCallerCancellationIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClient(t, srv.URL, Config{MaxAttempts: 3})
	_, err := c.ListPlants(ctx)

	assert.True(t, errors.Is(err, context.Canceled))
	assert.LessOrEqual(t, hits.Load(), int32(1))
}

func TestSlowStartHookFiresOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(80 * time.Millisecond)
		io.WriteString(w, "[]")
	}))
	defer srv.Close()

	var fired atomic.Int32
	c := newTestClient(t, srv.URL, Config{SlowStartThreshold: 10 * time.Millisecond}, OnSlowStart(func() {
		fired.Add(1)
	}))

	_, err := c.ListPlants(context.Background())
	require.NoError(t, err)
	_, err = c.ListPlants(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(1), fired.Load())
}

func TestSlowStartHookSkippedForFastStart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "[]")
	}))
	defer srv.Close()

	var fired atomic.Int32
	c := newTestClient(t, srv.URL, Config{SlowStartThreshold: 200 * time.Millisecond}, OnSlowStart(func() {
		fired.Add(1)
	}))
	_, err := c.ListPlants(context.Background())
	require.NoError(t, err)

	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

func TestUpdatePlant_SendsOnlyGivenFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/plants/abc", r.URL.Path)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		_, hasTitle := r.PostForm["title"]
		assert.False(t, hasTitle)
		assert.Equal(t, "taller now", r.PostForm.Get("description"))
		assert.Equal(t, "2024-04-02T00:00:00Z", r.PostForm.Get("date"))
		_, _, err := r.FormFile("image")
		assert.ErrorIs(t, err, http.ErrMissingFile)
		io.WriteString(w, plantJSON)
	}))
	defer srv.Close()

	desc := "taller now"
	date := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	c := newTestClient(t, srv.URL, Config{})
	_, err := c.UpdatePlant(context.Background(), "abc", PlantChanges{Description: &desc, Date: &date})
	require.NoError(t, err)
}

func TestFileSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")
	s := NewFileSession(path)

	assert.Empty(t, s.Token())
	require.NoError(t, s.SetToken("abc"))
	assert.Equal(t, "abc", s.Token())
	assert.Equal(t, "abc", NewFileSession(path).Token())

	require.NoError(t, s.Clear())
	assert.Empty(t, s.Token())
	require.NoError(t, s.Clear())
}

func TestDisplayTitle(t *testing.T) {
	assert.Equal(t, "Week 1", Plant{Title: "Week 1"}.DisplayTitle())
	assert.Equal(t, DefaultTitle, Plant{Title: "  "}.DisplayTitle())
}
