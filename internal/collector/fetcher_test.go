package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/imroc/req/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCollector struct {
	index      string
	indexCode  int
	indexHits  atomic.Int32
	fileHits   atomic.Int32
	failFirst  int32
	failCode   int
	files      map[string]string
	fileStatus map[string]int
}

func (fc *fakeCollector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/index/index.json" {
		fc.indexHits.Add(1)
		if fc.indexCode != 0 {
			w.WriteHeader(fc.indexCode)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(fc.index))
		return
	}

	hit := fc.fileHits.Add(1)
	if code, ok := fc.fileStatus[r.URL.Path]; ok {
		w.WriteHeader(code)
		return
	}
	if hit <= fc.failFirst {
		w.WriteHeader(fc.failCode)
		return
	}
	body, ok := fc.files[r.URL.Path]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Write([]byte(body))
}

func newFakeCollector() *fakeCollector {
	return &fakeCollector{
		index: sampleIndex,
		files: map[string]string{
			"/recent/bridge-pool-assignments/2024-01-01-00-00-00": "one",
			"/recent/bridge-pool-assignments/2024-01-02-00-00-00": "two",
			"/recent/bridge-pool-assignments/2024-01-03-00-00-00": "three",
		},
		fileStatus: map[string]int{},
	}
}

func fastRetry() FetcherOption {
	return WithRetry(DefaultRetryAttempts, time.Millisecond)
}

func TestFetcher_FetchLatest(t *testing.T) {
	fc := newFakeCollector()
	srv := httptest.NewServer(fc)
	defer srv.Close()

	f := NewFetcher(srv.URL+"/", WithLatest(2), fastRetry())
	files, err := f.FetchLatest(context.Background(), "recent/bridge-pool-assignments")
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, "recent/bridge-pool-assignments/2024-01-03-00-00-00", files[0].Path)
	assert.Equal(t, []byte("three"), files[0].Raw)
	assert.Equal(t, "three", files[0].Content)
	assert.Equal(t, millis(indexTimeLayout, "2024-01-03 00:00"), files[0].LastModified)
	assert.Equal(t, "two", files[1].Content)
	assert.Equal(t, int32(2), fc.fileHits.Load())
}

func TestFetcher_RetriesTransientFailures(t *testing.T) {
	fc := newFakeCollector()
	fc.failFirst = 2
	fc.failCode = http.StatusServiceUnavailable
	srv := httptest.NewServer(fc)
	defer srv.Close()

	f := NewFetcher(srv.URL, WithLatest(1), fastRetry())
	files, err := f.FetchLatest(context.Background(), "recent/bridge-pool-assignments")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "three", files[0].Content)
	assert.Equal(t, int32(3), fc.fileHits.Load())
}

func TestFetcher_GivesUpAfterMaxAttempts(t *testing.T) {
	fc := newFakeCollector()
	fc.failFirst = 100
	fc.failCode = http.StatusInternalServerError
	srv := httptest.NewServer(fc)
	defer srv.Close()

	f := NewFetcher(srv.URL, fastRetry())
	files, err := f.FetchLatest(context.Background(), "recent/bridge-pool-assignments")
	require.Error(t, err)
	assert.Nil(t, files)
	assert.True(t, IsStatus(err, http.StatusInternalServerError))
	assert.Equal(t, int32(DefaultRetryAttempts), fc.fileHits.Load())
}

func TestFetcher_ClientErrorAbortsBatch(t *testing.T) {
	fc := newFakeCollector()
	fc.fileStatus["/recent/bridge-pool-assignments/2024-01-02-00-00-00"] = http.StatusNotFound
	srv := httptest.NewServer(fc)
	defer srv.Close()

	f := NewFetcher(srv.URL, fastRetry())
	files, err := f.FetchLatest(context.Background(), "recent/bridge-pool-assignments")
	require.Error(t, err)
	assert.Nil(t, files)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Contains(t, se.URL, "2024-01-02-00-00-00")
	// newest file fetched, 404 not retried, oldest never requested
	assert.Equal(t, int32(2), fc.fileHits.Load())
}

func TestFetcher_IndexFailures(t *testing.T) {
	t.Run("status is not retried", func(t *testing.T) {
		fc := newFakeCollector()
		fc.indexCode = http.StatusBadGateway
		srv := httptest.NewServer(fc)
		defer srv.Close()

		_, err := NewFetcher(srv.URL, fastRetry()).FetchLatest(context.Background(), "recent/bridge-pool-assignments")
		assert.True(t, IsStatus(err, http.StatusBadGateway))
		assert.Equal(t, int32(1), fc.indexHits.Load())
		assert.Equal(t, int32(0), fc.fileHits.Load())
	})

	t.Run("malformed document", func(t *testing.T) {
		fc := newFakeCollector()
		fc.index = `[1, 2, 3]`
		srv := httptest.NewServer(fc)
		defer srv.Close()

		_, err := NewFetcher(srv.URL, fastRetry()).FetchLatest(context.Background(), "recent/bridge-pool-assignments")
		assert.ErrorIs(t, err, ErrIndexStructure)
	})

	t.Run("missing target", func(t *testing.T) {
		srv := httptest.NewServer(newFakeCollector())
		defer srv.Close()

		_, err := NewFetcher(srv.URL, fastRetry()).FetchLatest(context.Background(), "archive/bridge-pool-assignments")
		assert.ErrorIs(t, err, ErrIndexStructure)
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(newFakeCollector())
		url := srv.URL
		srv.Close()

		_, err := NewFetcher(url, WithTimeout(time.Second), fastRetry()).FetchIndex(context.Background())
		assert.ErrorIs(t, err, ErrTransport)
	})
}

func TestShouldRetry(t *testing.T) {
	assert.True(t, shouldRetry(nil, errors.New("connection reset")))
	assert.False(t, shouldRetry(nil, context.Canceled))
	assert.False(t, shouldRetry(nil, fmt.Errorf("get: %w", context.DeadlineExceeded)))
}

func TestFetcher_CancelledContextStopsRetrying(t *testing.T) {
	fc := newFakeCollector()
	fc.failFirst = 100
	fc.failCode = http.StatusServiceUnavailable
	srv := httptest.NewServer(fc)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var retries atomic.Int32
	f := NewFetcher(srv.URL, WithRetry(DefaultRetryAttempts, 10*time.Millisecond))
	f.fileClient.AddCommonRetryHook(func(*req.Response, error) {
		retries.Add(1)
		cancel()
	})

	_, err := f.FetchFile(ctx, "recent/bridge-pool-assignments/2024-01-01-00-00-00")
	assert.ErrorIs(t, err, context.Canceled)
	// the 503 is retried once, the cancelled attempt is not
	assert.Equal(t, int32(1), retries.Load())
	assert.Equal(t, int32(1), fc.fileHits.Load())
}

func TestExponentialBackoff(t *testing.T) {
	next := exponentialBackoff(100 * time.Millisecond)
	assert.Equal(t, 100*time.Millisecond, next(nil, 1))
	assert.Equal(t, 200*time.Millisecond, next(nil, 2))
	assert.Equal(t, 400*time.Millisecond, next(nil, 3))
	assert.Equal(t, 800*time.Millisecond, next(nil, 4))
}
