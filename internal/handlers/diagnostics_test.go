package handlers

import (
	"bytes"
	"errors"
	"image/jpeg"
	"net/http"
	"testing"

	"family-media/internal/auth"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/bcrypt"
)

func TestTestThumbnailPaths(t *testing.T) {
	t.Parallel()

	hs := newHarness(t)
	hs.store.Put("2024/a%20b.jpg", []byte("x"), "image/jpeg")
	hs.store.SetExistsErr("2024/a b.jpg", errors.New("throttled"))

	rec := hs.do(t, http.MethodGet, "/api/test-thumbnail-paths?path=2024%252Fa%2520b.jpg", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var resp ThumbnailPathsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Original != "2024%2Fa%20b.jpg" || resp.Decoded != "2024/a b.jpg" {
		t.Errorf("original = %q, decoded = %q", resp.Original, resp.Decoded)
	}
	if len(resp.Results) < 3 {
		t.Fatalf("results = %+v", resp.Results)
	}

	first := resp.Results[0]
	if first.Path != "2024/a b.jpg" || first.Exists || first.Error == nil || *first.Error == "" {
		t.Errorf("first result = %+v, want probe error reported", first)
	}

	found := 0
	for _, r := range resp.Results {
		if r.Exists {
			found++
			if r.Path != "2024/a%20b.jpg" {
				t.Errorf("unexpected match %q", r.Path)
			}
		}
	}
	if found != 1 {
		t.Errorf("found %d existing candidates, want 1", found)
	}
}

func TestTestThumbnailPathsMissingParam(t *testing.T) {
	t.Parallel()

	hs := newHarness(t)
	rec := hs.do(t, http.MethodGet, "/api/test-thumbnail-paths", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestDebugThumbnail(t *testing.T) {
	t.Parallel()

	hs := newHarness(t)
	hs.store.Put("media/thumb_IMG_0001.jpg", testJPEG(t, 64, 48), "image/jpeg")

	rec := hs.do(t, http.MethodGet, "/api/debug-thumbnail/IMG_0001.HEIC", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp ThumbnailDebugResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Filename != "thumb_IMG_0001.jpg" {
		t.Errorf("filename = %q", resp.Filename)
	}
	if resp.Dimensions.Width != 64 || resp.Dimensions.Height != 48 {
		t.Errorf("dimensions = %+v", resp.Dimensions)
	}
	if resp.Format != "jpeg" {
		t.Errorf("format = %q", resp.Format)
	}
	if resp.Orientation != "none" || resp.HasExif {
		t.Errorf("orientation = %v, hasExif = %v", resp.Orientation, resp.HasExif)
	}

	rec = hs.do(t, http.MethodGet, "/api/debug-thumbnail/missing.jpg", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing thumbnail: expected status 404, got %d", rec.Code)
	}
}

func TestRotateThumbnail(t *testing.T) {
	t.Parallel()

	hash, err := bcrypt.GenerateFromPassword([]byte("family-admin"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	hs := newHarness(t)
	hs.router = hs.h.Router(auth.NewKeyAuthorizer([]auth.Key{
		{Name: "admin", Role: auth.RoleFull, Hash: hash},
	}, auth.RoleRead))
	hs.store.Put("thumbnails/media/IMG_0002.jpg", testJPEG(t, 80, 40), "image/jpeg")

	withKey := http.Header{}
	withKey.Set(auth.APIKeyHeader, "family-admin")

	tests := []struct {
		name       string
		target     string
		header     http.Header
		wantStatus int
	}{
		{name: "anonymous reader forbidden", target: "/api/rotate-thumbnail/IMG_0002.jpg", wantStatus: http.StatusForbidden},
		{name: "missing thumbnail", target: "/api/rotate-thumbnail/nope.jpg", header: withKey, wantStatus: http.StatusNotFound},
		{name: "bad degrees", target: "/api/rotate-thumbnail/IMG_0002.jpg?degrees=45", header: withKey, wantStatus: http.StatusBadRequest},
		{name: "rotates", target: "/api/rotate-thumbnail/IMG_0002.jpg", header: withKey, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := hs.do(t, http.MethodPost, tt.target, tt.header)
			if rec.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp RotateResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if !resp.Success || resp.ThumbnailPath != "thumbnails/media/IMG_0002.jpg" || resp.RotatedSize == 0 {
				t.Errorf("response = %+v", resp)
			}

			stored, _ := hs.store.Get("thumbnails/media/IMG_0002.jpg")
			cfg, err := jpeg.DecodeConfig(bytes.NewReader(stored))
			if err != nil {
				t.Fatal(err)
			}
			if cfg.Width != 40 || cfg.Height != 80 {
				t.Errorf("rotated thumbnail is %dx%d, want 40x80", cfg.Width, cfg.Height)
			}
		})
	}
}
