package resolver

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"family-media/internal/storage"
)

func TestResolveFirstCandidateWins(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	// Both the prefixed and the backslash copies exist; prefixed comes first.
	mem.Put("media/2019/Beach Day/a.jpg", []byte("prefixed"), "image/jpeg")
	mem.Put(`media/2019\Beach Day\a.jpg`, []byte("backslash"), "image/jpeg")

	r := New(mem)
	res, err := r.Resolve(ctx, "2019/Beach Day/a.jpg")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.Key != "media/2019/Beach Day/a.jpg" {
		t.Errorf("Key = %q, want the prefixed copy", res.Key)
	}
	if res.Strategy != "prefixed" {
		t.Errorf("Strategy = %q, want prefixed", res.Strategy)
	}
	if want := []string{"2019/Beach Day/a.jpg", "media/2019/Beach Day/a.jpg"}; !reflect.DeepEqual(res.Tried, want) {
		t.Errorf("Tried = %q, want %q", res.Tried, want)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	mem.Put("2019/Beach%20Day/Grandma%27s.jpg", []byte("x"), "image/jpeg")
	mem.Put("2019/Beach Day/Grandma%27s.jpg", []byte("y"), "image/jpeg")

	r := New(mem)
	first, err := r.Resolve(ctx, "2019/Beach Day/Grandma's.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if first.Key != "2019/Beach%20Day/Grandma%27s.jpg" {
		t.Errorf("Key = %q", first.Key)
	}
	for i := 0; i < 10; i++ {
		again, _ := r.Resolve(ctx, "2019/Beach Day/Grandma's.jpg")
		if again.Key != first.Key {
			t.Fatalf("run %d resolved %q, first run %q", i, again.Key, first.Key)
		}
	}
}

func TestResolveSkipsFailingProbe(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	mem.Put("photo.jpg", []byte("x"), "image/jpeg")
	mem.Put("media/photo.jpg", []byte("y"), "image/jpeg")
	mem.SetExistsErr("photo.jpg", errors.New("503 server busy"))

	res, err := New(mem).Resolve(ctx, "photo.jpg")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.Key != "media/photo.jpg" {
		t.Errorf("Key = %q, want media/photo.jpg", res.Key)
	}
}

func TestResolveNotFound(t *testing.T) {
	ctx := context.Background()
	_, err := New(storage.NewMemory()).Resolve(ctx, "2019/missing file.jpg")

	if !errors.Is(err, ErrNotResolved) {
		t.Fatalf("err = %v, want ErrNotResolved", err)
	}
	var nre *NotResolvedError
	if !errors.As(err, &nre) {
		t.Fatalf("err is %T, want *NotResolvedError", err)
	}
	if len(nre.Tried) < 5 {
		t.Errorf("Tried = %q, expected every candidate", nre.Tried)
	}
	if nre.Tried[0] != "2019/missing file.jpg" {
		t.Errorf("Tried[0] = %q", nre.Tried[0])
	}
}

func TestProbeReportsEveryCandidate(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	mem.Put("media/Xmas/Tree Lights.mov", []byte("x"), "video/quicktime")
	mem.SetExistsErr(`Xmas\Tree Lights.mov`, errors.New("timeout"))

	results := New(mem).Probe(ctx, "Xmas/Tree Lights.mov")

	if len(results) != 5 {
		t.Fatalf("len(results) = %d, want 5: %+v", len(results), results)
	}
	var hits, errs int
	for _, r := range results {
		if r.Exists {
			hits++
			if r.Path != "media/Xmas/Tree Lights.mov" {
				t.Errorf("unexpected hit %q", r.Path)
			}
		}
		if r.Error != nil {
			errs++
		}
	}
	if hits != 1 || errs != 1 {
		t.Errorf("hits = %d, errs = %d; want 1, 1", hits, errs)
	}
}
