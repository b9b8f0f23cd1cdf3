package importer

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ali-ramadhan/citekit/internal/reference"
)

func TestMerge(t *testing.T) {
	existing := map[string]reference.Reference{
		"known": &reference.Article{Common: reference.Common{Title: "Known", Links: reference.Links{DOI: "https://doi.org/10.1/ABC"}}},
	}
	entries := []Entry{
		{Key: "known", Record: reference.Record{Title: "Same key"}},
		{Key: "other", Record: reference.Record{Title: "Same DOI", DOI: "10.1/abc"}},
		{Key: "new", Record: reference.Record{Title: "New", DOI: "10.2/xyz"}},
		{Key: "new2", Record: reference.Record{Title: "Duplicate in batch", DOI: "doi:10.2/XYZ"}},
		{Key: "nodoi", Record: reference.Record{Title: "No DOI"}},
	}

	fresh, skipped := Merge(existing, entries)

	var freshKeys []string
	for _, e := range fresh {
		freshKeys = append(freshKeys, e.Key)
	}
	if diff := cmp.Diff([]string{"new", "nodoi"}, freshKeys); diff != "" {
		t.Errorf("fresh mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"known", "other", "new2"}, skipped); diff != "" {
		t.Errorf("skipped mismatch (-want +got):\n%s", diff)
	}
}
