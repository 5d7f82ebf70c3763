package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

func TestNameFor(t *testing.T) {
	t.Parallel()

	name := NameFor("https://cdn.example.com/img/photo.PNG?w=800")
	if !strings.HasSuffix(name, ".png") || len(name) != 20 {
		t.Fatalf("unexpected name %q", name)
	}
	if NameFor("https://cdn.example.com/img/photo.PNG?w=800") != name {
		t.Fatalf("expected stable name")
	}
	if got := NameFor("https://cdn.example.com/render?id=5"); !strings.HasSuffix(got, ".jpg") {
		t.Fatalf("expected default extension, got %q", got)
	}
}

func TestFetchDownloadsOnceAndCaches(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer server.Close()

	store, err := NewStore(Options{Dir: t.TempDir()}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	first, err := store.Fetch(context.Background(), server.URL+"/a.jpg")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	second, err := store.Fetch(context.Background(), server.URL+"/a.jpg")
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if first != second {
		t.Fatalf("expected same name, got %q and %q", first, second)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected cache hit on second fetch, server hits=%d", hits.Load())
	}
	data, err := os.ReadFile(store.Path(first))
	if err != nil || string(data) != "jpeg-bytes" {
		t.Fatalf("unexpected stored file: %q err=%v", data, err)
	}
}

func TestFetchRejectsOversizedBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer server.Close()

	store, err := NewStore(Options{Dir: t.TempDir(), MaxBytes: 16}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, err := store.Fetch(context.Background(), server.URL+"/big.jpg"); err == nil {
		t.Fatalf("expected size error")
	}
}

func TestResolveDropsFailuresAndKeepsOrder(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "missing") {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(r.URL.Path))
	}))
	defer server.Close()

	store, err := NewStore(Options{Dir: t.TempDir(), Concurrency: 2}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	urls := []string{server.URL + "/1.jpg", server.URL + "/missing.jpg", server.URL + "/2.jpg", server.URL + "/1.jpg"}
	names := store.Resolve(context.Background(), urls, 0)
	if len(names) != 2 {
		t.Fatalf("expected 2 names, got %v", names)
	}
	if names[0] != NameFor(urls[0]) || names[1] != NameFor(urls[2]) {
		t.Fatalf("unexpected order %v", names)
	}

	capped := store.Resolve(context.Background(), urls, 1)
	if len(capped) != 1 {
		t.Fatalf("expected cap to apply, got %v", capped)
	}
}

func TestResolveFillsCapPastFailures(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if strings.Contains(r.URL.Path, "missing") {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(r.URL.Path))
	}))
	defer server.Close()

	store, err := NewStore(Options{Dir: t.TempDir(), Concurrency: 4}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	urls := []string{
		server.URL + "/missing-1.jpg",
		server.URL + "/a.jpg",
		server.URL + "/missing-2.jpg",
		server.URL + "/b.jpg",
		server.URL + "/c.jpg",
		server.URL + "/d.jpg",
	}
	names := store.Resolve(context.Background(), urls, 3)
	want := []string{NameFor(urls[1]), NameFor(urls[3]), NameFor(urls[4])}
	if len(names) != len(want) {
		t.Fatalf("expected %d names, got %v", len(want), names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("unexpected names %v, want %v", names, want)
		}
	}
	if got := hits.Load(); got != 5 {
		t.Fatalf("expected the last url to stay unfetched, server hits=%d", got)
	}
}
