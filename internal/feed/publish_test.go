package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

func writeTempImage(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("fake-image-bytes"), 0o644); err != nil {
		t.Fatalf("write temp image: %v", err)
	}
	return path
}

// uploadBackend emulates the signed-url-then-PUT contract plus post CRUD,
// recording what reached it.
type uploadBackend struct {
	mu          sync.Mutex
	signedCount int
	putCount    int
	failUpload  string // file name whose PUT should fail
	created     []postRequest
	edited      []postRequest
}

func (b *uploadBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/uploads/signed-url", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			FileName string `json:"fileName"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		b.signedCount++
		b.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"signedUrl":"http://%s/api/uploads/put/%s","publicUrl":"https://cdn.example/%s"}`,
			r.Host, req.FileName, req.FileName)
	})
	mux.HandleFunc("/api/uploads/put/", func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/api/uploads/put/")
		b.mu.Lock()
		b.putCount++
		fail := b.failUpload != "" && name == b.failUpload
		b.mu.Unlock()
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/posts/create", func(w http.ResponseWriter, r *http.Request) {
		var req postRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		b.created = append(b.created, req)
		b.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/api/posts/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req postRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		b.edited = append(b.edited, req)
		b.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func TestPublishUploadsSequentiallyAndMirrorsLegacyField(t *testing.T) {
	backend := &uploadBackend{}
	f, _, _ := newTestFeed(t, backend.handler())

	img1 := writeTempImage(t, "uno.jpg")
	img2 := writeTempImage(t, "dos.jpg")

	if err := f.Publish(context.Background(), "hola vecinos", []string{img1, img2}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if backend.signedCount != 2 || backend.putCount != 2 {
		t.Fatalf("expected 2 uploads, got signed=%d put=%d", backend.signedCount, backend.putCount)
	}
	if len(backend.created) != 1 {
		t.Fatalf("expected 1 created post, got %d", len(backend.created))
	}
	post := backend.created[0]
	if len(post.ImagenesURL) != 2 {
		t.Fatalf("expected 2 image urls, got %v", post.ImagenesURL)
	}
	if post.ImagenURL != post.ImagenesURL[0] {
		t.Fatalf("legacy field %q should mirror first url %q", post.ImagenURL, post.ImagenesURL[0])
	}
}

func TestPublishAbortsWhenAnyUploadFails(t *testing.T) {
	backend := &uploadBackend{failUpload: "dos.jpg"}
	f, _, _ := newTestFeed(t, backend.handler())

	img1 := writeTempImage(t, "uno.jpg")
	img2 := writeTempImage(t, "dos.jpg")
	img3 := writeTempImage(t, "tres.jpg")

	err := f.Publish(context.Background(), "hola", []string{img1, img2, img3})
	if err == nil {
		t.Fatal("expected publish to fail")
	}
	if len(backend.created) != 0 {
		t.Fatal("no post may be created after a failed upload")
	}
	// sequential short-circuit: the third image is never attempted
	if backend.putCount != 2 {
		t.Fatalf("expected uploads to stop at the failure, got %d PUTs", backend.putCount)
	}
}

func TestPublishValidationSendsNoRequest(t *testing.T) {
	var requests atomic.Int64
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	})
	f, _, _ := newTestFeed(t, handler)

	long := strings.Repeat("x", MaxMessageLen+1)
	if err := f.Publish(context.Background(), long, nil); err == nil {
		t.Fatal("expected length rejection")
	}
	if err := f.Publish(context.Background(), "pura mierda", nil); err == nil {
		t.Fatal("expected moderation rejection")
	}
	if requests.Load() != 0 {
		t.Fatalf("client-side rejections must not reach the network, saw %d requests", requests.Load())
	}
}

func TestEditReuploadsOnlyLocalImages(t *testing.T) {
	backend := &uploadBackend{}
	f, _, _ := newTestFeed(t, backend.handler())

	local := writeTempImage(t, "nueva.jpg")
	images := []string{
		"https://cdn.example/a.jpg",
		"https://cdn.example/b.jpg",
		local,
	}

	if err := f.Edit(context.Background(), "post-1", "mensaje editado", images); err != nil {
		t.Fatalf("edit: %v", err)
	}

	if backend.putCount != 1 {
		t.Fatalf("expected exactly 1 re-upload, got %d", backend.putCount)
	}
	if len(backend.edited) != 1 {
		t.Fatalf("expected 1 edit request, got %d", len(backend.edited))
	}
	final := backend.edited[0].ImagenesURL
	want := []string{"https://cdn.example/a.jpg", "https://cdn.example/b.jpg", "https://cdn.example/nueva.jpg"}
	if len(final) != len(want) {
		t.Fatalf("expected %v, got %v", want, final)
	}
	for i := range want {
		if final[i] != want[i] {
			t.Fatalf("kept-remote order must be preserved: expected %v, got %v", want, final)
		}
	}
}

func TestDeleteReloadsFeedOnlyOnSuccess(t *testing.T) {
	var deletes, lists atomic.Int64
	var failDelete atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("/api/posts", func(w http.ResponseWriter, r *http.Request) {
		lists.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[],"nextCursor":null}`)
	})
	mux.HandleFunc("/api/posts/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		deletes.Add(1)
		if failDelete.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	f, _, _ := newTestFeed(t, mux)

	if err := f.Delete(context.Background(), "post-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deletes.Load() != 1 || lists.Load() != 1 {
		t.Fatalf("successful deletes reload the feed, got deletes=%d lists=%d", deletes.Load(), lists.Load())
	}

	failDelete.Store(true)
	if err := f.Delete(context.Background(), "post-2"); err == nil {
		t.Fatal("expected delete failure")
	}
	if lists.Load() != 1 {
		t.Fatalf("failed deletes must not reload the feed, got %d list requests", lists.Load())
	}
}

func TestEditAbortsWhenNewUploadFails(t *testing.T) {
	backend := &uploadBackend{failUpload: "nueva.jpg"}
	f, _, _ := newTestFeed(t, backend.handler())

	local := writeTempImage(t, "nueva.jpg")
	err := f.Edit(context.Background(), "post-1", "mensaje", []string{"https://cdn.example/a.jpg", local})
	if err == nil {
		t.Fatal("expected edit to fail")
	}
	if len(backend.edited) != 0 {
		t.Fatal("no partial update may be submitted after a failed upload")
	}
}
