package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/plugin-hub/internal/domain"
)

func transferTask(t *testing.T, url string) *domain.Task {
	t.Helper()
	task := domain.NewTask("vim-mode", "Vim Mode", "official", "1.0.0", url)
	dir := t.TempDir()
	task.TargetPath = filepath.Join(dir, "vim-mode.plugin")
	task.TempPath = filepath.Join(dir, "vim-mode.part")
	return task
}

func TestHTTPTransferer_FullDownload(t *testing.T) {
	payload := []byte("complete plugin payload")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		w.Write(payload)
	}))
	defer server.Close()

	task := transferTask(t, server.URL)
	tr := NewHTTPTransferer(0, nil)

	var mu sync.Mutex
	var lastTransferred, lastTotal int64
	err := tr.Transfer(context.Background(), task, domain.TransferOptions{
		OnProgress: func(transferred, total int64) {
			mu.Lock()
			lastTransferred, lastTotal = transferred, total
			mu.Unlock()
		},
	})
	require.NoError(t, err)

	got, err := os.ReadFile(task.TempPath)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, int64(len(payload)), lastTransferred)
	assert.Equal(t, int64(len(payload)), lastTotal)
}

func TestHTTPTransferer_ResumesFromOffset(t *testing.T) {
	payload := []byte("0123456789abcdefghij")
	var gotRange string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRange = r.Header.Get("Range")
		offset := 0
		if gotRange != "" {
			fmt.Sscanf(gotRange, "bytes=%d-", &offset)
			w.Header().Set("Content-Range",
				fmt.Sprintf("bytes %d-%d/%d", offset, len(payload)-1, len(payload)))
			w.WriteHeader(http.StatusPartialContent)
		}
		w.Write(payload[offset:])
	}))
	defer server.Close()

	task := transferTask(t, server.URL)
	require.NoError(t, os.WriteFile(task.TempPath, payload[:8], 0644))

	tr := NewHTTPTransferer(0, nil)
	err := tr.Transfer(context.Background(), task, domain.TransferOptions{Resume: true})
	require.NoError(t, err)

	assert.Equal(t, "bytes=8-", gotRange)
	got, err := os.ReadFile(task.TempPath)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestHTTPTransferer_RestartsWhenRangeIgnored(t *testing.T) {
	payload := []byte("0123456789abcdefghij")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// answer 200 with the full body no matter what was asked
		w.Write(payload)
	}))
	defer server.Close()

	task := transferTask(t, server.URL)
	require.NoError(t, os.WriteFile(task.TempPath, []byte("stale partial"), 0644))

	tr := NewHTTPTransferer(0, nil)
	var mu sync.Mutex
	var reports []int64
	err := tr.Transfer(context.Background(), task, domain.TransferOptions{
		Resume: true,
		OnProgress: func(transferred, total int64) {
			mu.Lock()
			reports = append(reports, transferred)
			mu.Unlock()
		},
	})
	require.NoError(t, err)

	got, err := os.ReadFile(task.TempPath)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	// the restart is announced from byte zero, discarding the stale offset
	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, reports)
	assert.Equal(t, int64(0), reports[0])
	assert.Equal(t, int64(len(payload)), reports[len(reports)-1])
}

func TestHTTPTransferer_NoResumeIgnoresPartialFile(t *testing.T) {
	payload := []byte("fresh payload")
	var gotRange string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRange = r.Header.Get("Range")
		w.Write(payload)
	}))
	defer server.Close()

	task := transferTask(t, server.URL)
	require.NoError(t, os.WriteFile(task.TempPath, []byte("leftover"), 0644))

	tr := NewHTTPTransferer(0, nil)
	err := tr.Transfer(context.Background(), task, domain.TransferOptions{Resume: false})
	require.NoError(t, err)

	assert.Empty(t, gotRange)
	got, err := os.ReadFile(task.TempPath)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestHTTPTransferer_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	task := transferTask(t, server.URL)
	tr := NewHTTPTransferer(0, nil)

	err := tr.Transfer(context.Background(), task, domain.TransferOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestHTTPTransferer_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000000")
		w.Write([]byte(strings.Repeat("x", 1024)))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	task := transferTask(t, server.URL)
	tr := NewHTTPTransferer(0, nil)

	done := make(chan error, 1)
	go func() {
		done <- tr.Transfer(ctx, task, domain.TransferOptions{})
	}()
	cancel()

	err := <-done
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPTransferer_DetectsTruncation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// promise more than is delivered
		w.Header().Set("Content-Length", "100")
		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			return
		}
		fmt.Fprintf(conn, "HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\nshort body")
		conn.Close()
	}))
	defer server.Close()

	task := transferTask(t, server.URL)
	tr := NewHTTPTransferer(0, nil)

	err := tr.Transfer(context.Background(), task, domain.TransferOptions{})
	assert.Error(t, err)
}
