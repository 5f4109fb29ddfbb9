package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/imgvault/imgvault/internal/b2"
	"github.com/imgvault/imgvault/internal/errdefs"
)

// fakeBucket is a minimal in-memory service covering the endpoints the
// adapter exercises.
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	mtimes  map[string]string
}

func newFakeBucket(t *testing.T) (*fakeBucket, *b2.Client) {
	t.Helper()
	fb := &fakeBucket{objects: map[string][]byte{}, mtimes: map[string]string{}}
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/b2api/v3/b2_authorize_account", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"authorizationToken":"tok","apiInfo":{"storageApi":{"apiUrl":%q,"downloadUrl":%q}}}`, srv.URL, srv.URL)
	})
	mux.HandleFunc("/b2api/v3/b2_get_upload_url", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"uploadUrl":%q,"authorizationToken":"upload-tok"}`, srv.URL+"/upload")
	})
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		fb.mu.Lock()
		fb.objects[r.Header.Get("X-Bz-File-Name")] = data
		fb.mtimes[r.Header.Get("X-Bz-File-Name")] = r.Header.Get("X-Bz-Info-src_last_modified_millis")
		fb.mu.Unlock()
		fmt.Fprint(w, `{}`)
	})
	mux.HandleFunc("/file/pics/", func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Path[len("/file/pics/"):]
		fb.mu.Lock()
		data, ok := fb.objects[name]
		millis := fb.mtimes[name]
		fb.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("x-bz-info-src_last_modified_millis", millis)
		if r.Method == http.MethodHead {
			return
		}
		w.Write(data)
	})

	client, err := b2.Authorize(context.Background(), b2.Credentials{
		KeyID:          "key-id",
		ApplicationKey: "app-key",
		BucketID:       "bucket-id",
		BucketName:     "pics",
	}, b2.WithAuthorizeURL(srv.URL+"/b2api/v3/b2_authorize_account"))
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	return fb, client
}

func TestB2AdapterRoundTrip(t *testing.T) {
	_, client := newFakeBucket(t)
	store := NewB2(client)
	ctx := context.Background()
	payload := []byte("jpeg-bytes")

	if err := store.Store(ctx, "alice", "avatar.jpg", payload); err != nil {
		t.Fatalf("store: %v", err)
	}
	got, err := store.GetImage(ctx, "alice", "avatar.jpg")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("round trip mismatch: %q", got)
	}

	ok, err := store.Exists(ctx, "alice", "avatar.jpg")
	if err != nil || !ok {
		t.Fatalf("expected image present, got %v/%v", ok, err)
	}
	ok, err = store.Exists(ctx, "alice", "other.jpg")
	if err != nil || ok {
		t.Fatalf("expected image absent, got %v/%v", ok, err)
	}
}

func TestB2AdapterLastModified(t *testing.T) {
	_, client := newFakeBucket(t)
	store := NewB2(client)
	ctx := context.Background()

	before := time.Now().Add(-time.Second)
	if err := store.Store(ctx, "alice", "avatar.jpg", []byte("x")); err != nil {
		t.Fatalf("store: %v", err)
	}
	modified, err := store.LastModified(ctx, "alice", "avatar.jpg")
	if err != nil {
		t.Fatalf("last modified: %v", err)
	}
	if modified.Before(before) || modified.After(time.Now().Add(time.Second)) {
		t.Fatalf("implausible modification time: %v", modified)
	}
}

func TestB2AdapterNotFound(t *testing.T) {
	_, client := newFakeBucket(t)
	store := NewB2(client)
	ctx := context.Background()

	if _, err := store.GetImage(ctx, "alice", "nope"); !errdefs.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := store.Delete(ctx, "alice", "nope"); !errdefs.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := store.LastModified(ctx, "alice", "nope"); !errdefs.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestB2AdapterRejectsBadPath(t *testing.T) {
	_, client := newFakeBucket(t)
	store := NewB2(client)

	if err := store.Store(context.Background(), "a/b", "c", []byte("x")); err == nil {
		t.Fatalf("expected path validation error")
	}
}
