package importer

import (
	"strings"

	"github.com/ali-ramadhan/citekit/internal/reference"
)

// Merge returns the entries whose key and DOI appear neither in existing
// nor earlier in entries, plus the keys of those skipped.
func Merge(existing map[string]reference.Reference, entries []Entry) (fresh []Entry, skipped []string) {
	keys := make(map[string]bool, len(existing)+len(entries))
	dois := make(map[string]bool, len(existing)+len(entries))
	for key, ref := range existing {
		keys[key] = true
		if doi := normalizeDOI(ref.Base().Links.DOI); doi != "" {
			dois[doi] = true
		}
	}

	for _, e := range entries {
		doi := normalizeDOI(e.Record.DOI)
		if keys[e.Key] || (doi != "" && dois[doi]) {
			skipped = append(skipped, e.Key)
			continue
		}
		keys[e.Key] = true
		if doi != "" {
			dois[doi] = true
		}
		fresh = append(fresh, e)
	}
	return fresh, skipped
}

func normalizeDOI(doi string) string {
	doi = strings.ToLower(strings.TrimSpace(doi))
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "doi:"} {
		doi = strings.TrimPrefix(doi, prefix)
	}
	return doi
}
