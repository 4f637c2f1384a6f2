package handlers

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"

	"family-media/internal/auth"
	"family-media/internal/media"
	"family-media/internal/storage"
	"family-media/internal/streaming"

	"github.com/gorilla/mux"
)

type harness struct {
	store  *storage.Memory
	h      *Handlers
	router *mux.Router
}

// newHarness wires Handlers over an in-memory store with the pure-Go image
// processor and no frame extractor. Anonymous callers get Read.
func newHarness(t *testing.T) *harness {
	t.Helper()

	store := storage.NewMemory()
	gen := media.NewGenerator(media.Config{
		Store:  store,
		Images: media.NewImagingProcessor(),
	})

	cfg := streaming.DefaultConfig()
	cfg.LargeVideoThreshold = 4096

	h := New(Config{Store: store, Generator: gen, Streaming: cfg})
	h.SetReady(true)

	return &harness{
		store:  store,
		h:      h,
		router: h.Router(auth.NewKeyAuthorizer(nil, auth.RoleRead)),
	}
}

func (hs *harness) do(t *testing.T, method, target string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, http.NoBody)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	hs.router.ServeHTTP(rec, req)
	return rec
}

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestNewDetectsBreaker(t *testing.T) {
	t.Parallel()

	plain := New(Config{Store: storage.NewMemory()})
	if plain.breaker != nil {
		t.Error("memory store has no breaker")
	}

	guarded := New(Config{Store: storage.NewGuard(storage.NewMemory(), storage.DefaultBreakerConfig())})
	if guarded.breaker == nil {
		t.Error("guarded store should report breaker state")
	}
}

func TestMediaPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{raw: "2024/a.jpg", want: "2024/a.jpg", wantOK: true},
		{raw: "/media/a.jpg", want: "media/a.jpg", wantOK: true},
		{raw: `2024\trip\a.jpg`, want: "2024/trip/a.jpg", wantOK: true},
		{raw: "dots..in..name.jpg", want: "dots..in..name.jpg", wantOK: true},
		{raw: "", wantOK: false},
		{raw: "///", wantOK: false},
		{raw: "2024/../secret", wantOK: false},
		{raw: `..\secret`, wantOK: false},
	}

	for _, tt := range tests {
		got, ok := mediaPath(tt.raw)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("mediaPath(%q) = %q, %v; want %q, %v", tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
}
