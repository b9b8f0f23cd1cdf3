package citation

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// KeySource yields the citation keys a bibliography should cover.
type KeySource interface {
	CitedKeys() []string
}

// Keys is a fixed key list, e.g. read back from the usage index.
type Keys []string

func (k Keys) CitedKeys() []string { return k }

type pageRecordKeys struct {
	registry *Registry
	page     string
}

// FromPageRecord reads the keys accumulated for page during resolution.
func FromPageRecord(r *Registry, page string) KeySource {
	return pageRecordKeys{registry: r, page: page}
}

func (s pageRecordKeys) CitedKeys() []string {
	return s.registry.Keys(s.page)
}

type renderedContentKeys struct {
	html  string
	class string
}

// FromRenderedContent recovers cited keys by scanning already rendered HTML
// for citation anchors (<a class="{class}" href="#key">), independent of
// any in-memory record.
func FromRenderedContent(html, class string) KeySource {
	if class == "" {
		class = "citation"
	}
	return renderedContentKeys{html: html, class: class}
}

func (s renderedContentKeys) CitedKeys() []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s.html))
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var keys []string
	doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		if !a.HasClass(s.class) {
			return
		}
		href, ok := a.Attr("href")
		if !ok || !strings.HasPrefix(href, "#") || len(href) == 1 {
			return
		}
		key := href[1:]
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	})

	sort.Strings(keys)
	return keys
}
