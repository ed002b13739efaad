package service

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lataonhehe/data-contract-hackathon/config"
	"github.com/lataonhehe/data-contract-hackathon/pkg/apperr"
)

// fakeS3 is a minimal path-style S3 endpoint: one bucket, objects in a map.
type fakeS3 struct {
	mu              sync.Mutex
	bucketExists    bool
	makeBucketCalls int
	objects         map[string][]byte
}

// decodeAWSChunked strips the aws-chunked framing the client uses for
// plain-HTTP uploads (hex size + chunk signature per chunk, zero-size
// terminator).
func decodeAWSChunked(r io.Reader) []byte {
	br := bufio.NewReader(r)
	var out bytes.Buffer
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			break
		}
		line = strings.TrimRight(line, "\r\n")
		if i := strings.Index(line, ";"); i != -1 {
			line = line[:i]
		}
		size, err := strconv.ParseInt(strings.TrimSpace(line), 16, 64)
		if err != nil || size == 0 {
			break
		}
		if _, err := io.CopyN(&out, br, size); err != nil {
			break
		}
		br.Discard(2) // chunk-trailing CRLF
	}
	return out.Bytes()
}

func (f *fakeS3) handler(bucket string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/"+bucket), "/")

		f.mu.Lock()
		defer f.mu.Unlock()

		if key == "" { // bucket operations
			if r.Method == http.MethodGet && r.URL.Query().Has("location") {
				w.Header().Set("Content-Type", "application/xml")
				w.Write([]byte(`<LocationConstraint xmlns="http://s3.amazonaws.com/doc/2006-03-01/">us-east-1</LocationConstraint>`))
				return
			}
			switch r.Method {
			case http.MethodHead:
				if f.bucketExists {
					w.WriteHeader(http.StatusOK)
				} else {
					w.WriteHeader(http.StatusNotFound)
				}
			case http.MethodPut:
				f.makeBucketCalls++
				f.bucketExists = true
				w.WriteHeader(http.StatusOK)
			default:
				w.WriteHeader(http.StatusOK)
			}
			return
		}

		switch r.Method {
		case http.MethodPut:
			var data []byte
			if strings.HasPrefix(r.Header.Get("X-Amz-Content-Sha256"), "STREAMING-") ||
				strings.Contains(r.Header.Get("Content-Encoding"), "aws-chunked") {
				data = decodeAWSChunked(r.Body)
			} else {
				data, _ = io.ReadAll(r.Body)
			}
			f.objects[key] = data
			w.Header().Set("ETag", `"fake-etag"`)
			w.WriteHeader(http.StatusOK)
		case http.MethodGet, http.MethodHead:
			data, ok := f.objects[key]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Header().Set("ETag", `"fake-etag"`)
			w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
			w.Header().Set("Content-Type", "application/x-yaml")
			if r.Method == http.MethodGet {
				w.Write(data)
			}
		case http.MethodDelete:
			delete(f.objects, key)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}
}

func newMinioTestStore(t *testing.T) (*MinioBlobStore, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: make(map[string][]byte)}
	server := httptest.NewServer(fake.handler("test-bucket"))
	t.Cleanup(server.Close)

	store, err := NewMinioBlobStore(&config.MinioConfig{
		Endpoint:  strings.TrimPrefix(server.URL, "http://"),
		AccessKey: "test-access",
		SecretKey: "test-secret",
		Bucket:    "test-bucket",
		UseSSL:    false,
	})
	if err != nil {
		t.Fatalf("NewMinioBlobStore failed: %v", err)
	}
	return store, fake
}

func TestMinioBlobStoreEnsure(t *testing.T) {
	store, fake := newMinioTestStore(t)
	ctx := context.Background()

	if err := store.Ensure(ctx); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if !fake.bucketExists {
		t.Fatal("Expected bucket to be created")
	}
	if fake.makeBucketCalls != 1 {
		t.Fatalf("Expected one MakeBucket call, got %d", fake.makeBucketCalls)
	}

	// Second Ensure sees the bucket and must not create again
	if err := store.Ensure(ctx); err != nil {
		t.Fatalf("Second Ensure failed: %v", err)
	}
	if fake.makeBucketCalls != 1 {
		t.Errorf("Expected Ensure to be idempotent, got %d MakeBucket calls", fake.makeBucketCalls)
	}
}

func TestMinioBlobStorePutGet(t *testing.T) {
	store, _ := newMinioTestStore(t)
	ctx := context.Background()

	if err := store.Ensure(ctx); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}

	locator, err := store.Put(ctx, "abc-123", sampleYAML)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if locator != "s3://test-bucket/contracts/abc-123.yaml" {
		t.Errorf("Unexpected locator %q", locator)
	}

	got, err := store.Get(ctx, "abc-123")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != sampleYAML {
		t.Errorf("Content mismatch after round-trip:\n%q\n%q", got, sampleYAML)
	}
}

func TestMinioBlobStoreGetMissing(t *testing.T) {
	store, _ := newMinioTestStore(t)

	_, err := store.Get(context.Background(), "never-written")
	if !apperr.IsNotFound(err) {
		t.Errorf("Expected not-found error, got %v", err)
	}
}

func TestMinioBlobStoreDelete(t *testing.T) {
	store, _ := newMinioTestStore(t)
	ctx := context.Background()

	if _, err := store.Put(ctx, "abc-123", sampleYAML); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Delete(ctx, "abc-123"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "abc-123"); !apperr.IsNotFound(err) {
		t.Errorf("Expected not-found after delete, got %v", err)
	}
}

func TestObjectKey(t *testing.T) {
	if got := objectKey("abc-123"); got != "contracts/abc-123.yaml" {
		t.Errorf("objectKey = %q, want contracts/abc-123.yaml", got)
	}
}
