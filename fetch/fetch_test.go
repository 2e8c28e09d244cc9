package fetch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestGetReadsBody(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test", "yes")
		io.WriteString(w, "hello")
	}))
	defer srv.Close()

	resp, err := Get(srv.URL).Run().Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "yes", resp.Header.Get("X-Test"))
	require.Equal(t, []byte("hello"), resp.Body)
}

func TestPostSendsBodyAndContentType(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Got-CT", r.Header.Get("Content-Type"))
		w.Write(b)
	}))
	defer srv.Close()

	resp, err := Post(srv.URL, "application/json", []byte(`{"n":1}`)).
		Run().Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, "application/json", resp.Header.Get("X-Got-CT"))
	require.Equal(t, []byte(`{"n":1}`), resp.Body)
}

func TestTaskIsReusable(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	tk := Get(srv.URL)
	for i := 0; i < 3; i++ {
		resp, err := tk.Run().Await(context.Background())
		require.NoError(t, err)
		require.Equal(t, []byte("ok"), resp.Body)
	}
	require.Equal(t, int32(3), hits.Load(), "each run performs a fresh request")
}

func TestTransportErrorRejects(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	_, err := Get(srv.URL).Run().Await(context.Background())
	require.Error(t, err, "a non-cancellation transport failure rejects normally")
}

func TestCancelLeavesExecutionPending(t *testing.T) {
	t.Parallel()
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer srv.Close()

	tk := Get(srv.URL)
	e := tk.Run()
	<-started
	tk.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := e.Await(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.False(t, e.Settled(), "a cancelled request never settles")
}

func TestWithHeaderIsSent(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, r.Header.Get("Authorization"))
	}))
	defer srv.Close()

	resp, err := Get(srv.URL, WithHeader("Authorization", "Bearer t0k3n")).
		Run().Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, []byte("Bearer t0k3n"), resp.Body)
}
