package imagehost

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tanvir/sharebite/internal/model"
)

func TestClient_Upload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.URL.Query().Get("key"); got != "test-key" {
			t.Errorf("key = %q, want test-key", got)
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			t.Fatalf("missing image field: %v", err)
		}
		defer file.Close()
		if header.Filename != "food.jpg" {
			t.Errorf("filename = %q, want food.jpg", header.Filename)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"url":"https://i.ibb.co/abc123/food.jpg"},"success":true}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", 1<<20, server.Client(), nil)
	url, err := client.Upload(context.Background(), "food.jpg", strings.NewReader("fake-image-bytes"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://i.ibb.co/abc123/food.jpg" {
		t.Errorf("url = %q, want https://i.ibb.co/abc123/food.jpg", url)
	}
}

func TestClient_UploadRejectsOversizedImage(t *testing.T) {
	requested := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = true
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 8, server.Client(), nil)
	_, err := client.Upload(context.Background(), "big.jpg", strings.NewReader("more-than-eight-bytes"))
	if model.CodeOf(err) != "INVALID_PAYLOAD" {
		t.Fatalf("code = %q, want INVALID_PAYLOAD: %v", model.CodeOf(err), err)
	}
	if requested {
		t.Error("oversized image should not be sent")
	}
}

func TestClient_UploadHostFailureIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 1<<20, server.Client(), nil)
	_, err := client.Upload(context.Background(), "food.jpg", strings.NewReader("bytes"))
	if !model.IsKind(err, model.KindTransient) {
		t.Fatalf("error kind = %v, want transient: %v", model.KindOf(err), err)
	}
}

func TestClient_UploadMissingURLInResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 1<<20, server.Client(), nil)
	_, err := client.Upload(context.Background(), "food.jpg", strings.NewReader("bytes"))
	if model.CodeOf(err) != "INVALID_PAYLOAD" {
		t.Fatalf("code = %q, want INVALID_PAYLOAD: %v", model.CodeOf(err), err)
	}
}
