package fetch

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"artscraper/pkg/errors"
	"artscraper/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observation struct {
	method  string
	outcome string
}

type recordingObserver struct {
	mu   sync.Mutex
	seen []observation
}

func (o *recordingObserver) ObserveRequest(method, outcome string, d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, observation{method, outcome})
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Seen-UA", r.Header.Get("User-Agent"))
		w.Write([]byte("hello"))
	})
	mux.HandleFunc("/json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"objectID": 436535, "title": "Wheat Field with Cypresses"}`))
	})
	mux.HandleFunc("/badjson", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/teapot", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	mux.HandleFunc("/sized", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "4096")
		if r.Method == http.MethodHead {
			return
		}
		w.Write(make([]byte, 4096))
	})
	mux.HandleFunc("/redirect", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/sized", http.StatusFound)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})
	mux.HandleFunc("/auth", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "leonardo" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte("archive-bytes"))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestNewClient(t *testing.T) {
	client := NewClient(10*time.Second, logger.NewTestLogger())

	assert.Equal(t, 10*time.Second, client.Timeout())
	assert.Equal(t, DefaultUserAgent, client.headers["User-Agent"])
}

func TestGet(t *testing.T) {
	server := newTestServer(t)
	client := NewClient(5*time.Second, logger.NewTestLogger())
	client.SetHeader("User-Agent", "artscraper-test")

	res := client.Get(context.Background(), server.URL+"/ok")

	require.True(t, res.OK(), "unexpected error: %v", res.Error())
	assert.NoError(t, res.Error())
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, []byte("hello"), res.Body)
	assert.Equal(t, int64(5), res.ContentLength)
	assert.Equal(t, "artscraper-test", res.Header.Get("X-Seen-UA"))
}

func TestGetStatusErrors(t *testing.T) {
	server := newTestServer(t)
	client := NewClient(5*time.Second, logger.NewTestLogger())

	tests := []struct {
		path     string
		wantType errors.ErrorType
		wantCode int
	}{
		{"/missing", errors.ErrorTypeNotFound, 404},
		{"/broken", errors.ErrorTypeServerError, 503},
		{"/teapot", errors.ErrorTypeHTTPStatus, 418},
		{"/auth", errors.ErrorTypeAuth, 401},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			res := client.Get(context.Background(), server.URL+tt.path)

			require.False(t, res.OK())
			assert.Equal(t, tt.wantType, res.Err.Type)
			assert.Equal(t, tt.wantCode, res.Err.Code)
			assert.Equal(t, server.URL+tt.path, res.Err.URL)
			assert.Empty(t, res.Body)
		})
	}
}

func TestInvalidURLMakesNoRequest(t *testing.T) {
	client := NewClient(5*time.Second, logger.NewTestLogger())
	hits := 0
	client.SetHTTPClient(&http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		hits++
		return nil, nil
	})})

	for _, raw := range []string{"", "/relative/path.jpg", "ftp://example.com/a.jpg", "http://", "http://exa mple.com/%zz"} {
		res := client.Get(context.Background(), raw)
		require.False(t, res.OK(), raw)
		assert.Equal(t, errors.ErrorTypeInvalidURL, res.Err.Type, raw)
		assert.True(t, errors.IsPermanent(res.Error()), raw)
	}
	assert.Zero(t, hits)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestTimeout(t *testing.T) {
	server := newTestServer(t)
	client := NewClient(50*time.Millisecond, logger.NewTestLogger())

	res := client.Get(context.Background(), server.URL+"/slow")

	require.False(t, res.OK())
	assert.Equal(t, errors.ErrorTypeTimeout, res.Err.Type)
}

func TestCanceledContext(t *testing.T) {
	server := newTestServer(t)
	client := NewClient(5*time.Second, logger.NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := client.Get(ctx, server.URL+"/ok")
	require.False(t, res.OK())
	assert.Equal(t, errors.ErrorTypeCanceled, res.Err.Type)
}

func TestConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	client := NewClient(time.Second, logger.NewTestLogger())
	res := client.Get(context.Background(), addr+"/a.jpg")

	require.False(t, res.OK())
	assert.Equal(t, errors.ErrorTypeNetwork, res.Err.Type)
	assert.Zero(t, res.StatusCode)
}

func TestHead(t *testing.T) {
	server := newTestServer(t)
	client := NewClient(5*time.Second, logger.NewTestLogger())

	res := client.Head(context.Background(), server.URL+"/redirect")

	require.True(t, res.OK(), "unexpected error: %v", res.Error())
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, int64(4096), res.ContentLength)
	assert.Empty(t, res.Body)
}

func TestDownload(t *testing.T) {
	server := newTestServer(t)
	client := NewClient(5*time.Second, logger.NewTestLogger())

	var buf bytes.Buffer
	res := client.Download(context.Background(), server.URL+"/auth", &buf, WithBasicAuth("leonardo", "secret"))

	require.True(t, res.OK(), "unexpected error: %v", res.Error())
	assert.Equal(t, "archive-bytes", buf.String())
	assert.Equal(t, int64(len("archive-bytes")), res.ContentLength)
	assert.Empty(t, res.Body)

	buf.Reset()
	res = client.Download(context.Background(), server.URL+"/auth", &buf, WithBasicAuth("leonardo", "wrong"))
	require.False(t, res.OK())
	assert.Equal(t, errors.ErrorTypeAuth, res.Err.Type)
	assert.Zero(t, buf.Len())
}

func TestGetJSON(t *testing.T) {
	server := newTestServer(t)
	log := logger.NewTestLogger()
	client := NewClient(5*time.Second, log)

	var obj struct {
		ObjectID int    `json:"objectID"`
		Title    string `json:"title"`
	}
	require.NoError(t, client.GetJSON(context.Background(), server.URL+"/json", &obj))
	assert.Equal(t, 436535, obj.ObjectID)
	assert.Equal(t, "Wheat Field with Cypresses", obj.Title)

	err := client.GetJSON(context.Background(), server.URL+"/badjson", &obj)
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeParsing, errors.TypeOf(err))
	assert.True(t, log.HasMessage("failed to parse JSON response"))

	err = client.GetJSON(context.Background(), server.URL+"/missing", &obj)
	assert.Equal(t, errors.ErrorTypeNotFound, errors.TypeOf(err))
}

func TestObserver(t *testing.T) {
	server := newTestServer(t)
	client := NewClient(5*time.Second, logger.NewNopLogger())
	obs := &recordingObserver{}
	client.SetObserver(obs)

	client.Get(context.Background(), server.URL+"/ok")
	client.Get(context.Background(), server.URL+"/missing")
	client.Head(context.Background(), server.URL+"/sized")
	client.Get(context.Background(), "not a url")

	assert.Equal(t, []observation{
		{"GET", "ok"},
		{"GET", "not_found"},
		{"HEAD", "ok"},
		{"GET", "invalid_url"},
	}, obs.seen)
}

type countingLimiter struct {
	calls int
	err   error
}

func (l *countingLimiter) Wait(ctx context.Context) error {
	l.calls++
	return l.err
}

func TestLimiter(t *testing.T) {
	server := newTestServer(t)
	client := NewClient(5*time.Second, logger.NewTestLogger())
	limiter := &countingLimiter{}
	client.SetLimiter(limiter)

	require.True(t, client.Get(context.Background(), server.URL+"/ok").OK())
	require.True(t, client.Head(context.Background(), server.URL+"/sized").OK())
	client.Get(context.Background(), "not a url")
	assert.Equal(t, 2, limiter.calls, "invalid URLs never wait")

	limiter.err = context.Canceled
	res := client.Get(context.Background(), server.URL+"/ok")
	require.False(t, res.OK())
	assert.Equal(t, errors.ErrorTypeCanceled, res.Err.Type)
}
