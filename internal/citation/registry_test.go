package citation

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Use("/a/", "zeta")
	r.Use("/a/", "alpha")
	r.Use("/a/", "zeta")
	r.Use("/b/", "mu")

	if diff := cmp.Diff([]string{"alpha", "zeta"}, r.Keys("/a/")); diff != "" {
		t.Errorf("Keys(/a/) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"mu"}, r.Keys("/b/")); diff != "" {
		t.Errorf("Keys(/b/) mismatch (-want +got):\n%s", diff)
	}
	if len(r.Keys("/unknown/")) != 0 {
		t.Error("Keys() of an unknown page should be empty")
	}

	r.Miss("/a/", "ghost")
	if diff := cmp.Diff([]string{"alpha", "zeta"}, r.Keys("/a/")); diff != "" {
		t.Errorf("Miss() should not mark a key as used (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"ghost"}, r.Missing("/a/")); diff != "" {
		t.Errorf("Missing(/a/) mismatch (-want +got):\n%s", diff)
	}

	r.ClearPage("/a/")
	if len(r.Missing("/a/")) != 0 {
		t.Error("ClearPage() should clear missing keys")
	}
	if len(r.Keys("/a/")) != 0 || len(r.Keys("/b/")) != 1 {
		t.Error("ClearPage() should only clear one page")
	}

	r.Clear()
	if len(r.Keys("/b/")) != 0 {
		t.Errorf("Keys(/b/) after Clear() = %v", r.Keys("/b/"))
	}
}

func TestRegistry_ConcurrentPages(t *testing.T) {
	r := NewRegistry()
	pages := []string{"/a/", "/b/", "/c/", "/d/"}

	var wg sync.WaitGroup
	for _, p := range pages {
		wg.Add(1)
		go func(page string) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				r.Use(page, "k")
			}
		}(p)
	}
	wg.Wait()

	for _, p := range pages {
		if diff := cmp.Diff([]string{"k"}, r.Keys(p)); diff != "" {
			t.Errorf("Keys(%s) mismatch (-want +got):\n%s", p, diff)
		}
	}
}
