package format

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/ali-ramadhan/citekit/internal/reference"
)

// tooltipData is the payload a citation carries in its data-tooltip attribute.
// Field order is the serialized order.
type tooltipData struct {
	Title   string `json:"title,omitempty"`
	Authors string `json:"authors,omitempty"`
	Year    string `json:"year,omitempty"`
	Journal string `json:"journal"`
	DOI     string `json:"doi"`
}

// Tooltip serializes the reference summary shown on hover. The result is
// safe inside a single-quoted HTML attribute.
func Tooltip(ref reference.Reference) string {
	if ref == nil {
		return "{}"
	}

	c := ref.Base()
	data := tooltipData{
		Title:   c.Title,
		Authors: c.Authors,
		Year:    c.Year,
		Journal: reference.Venue(ref),
		DOI:     c.Links.DOI,
	}
	if data.DOI == "" {
		data.DOI = c.Links.URL
	}

	// Author lists use "&", which must survive unescaped.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(data) // cannot fail on a struct of strings
	raw := strings.TrimSuffix(buf.String(), "\n")
	return strings.ReplaceAll(raw, "'", "&#39;")
}
