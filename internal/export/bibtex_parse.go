package export

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
)

var (
	// @type{key,
	entryStartRegex = regexp.MustCompile(`@\w+\{([^,]+),`)
	// doi = {value} or doi = "value"
	doiFieldRegex = regexp.MustCompile(`(?i)^\s*doi\s*=\s*[\{"]([^\}"]+)[\}"]`)
)

// BibTeXIndex indexes existing BibTeX entries for deduplication.
type BibTeXIndex struct {
	Keys map[string]bool   // citation keys present
	DOIs map[string]string // normalized DOI -> citation key
}

// NewBibTeXIndex creates an empty BibTeX index.
func NewBibTeXIndex() *BibTeXIndex {
	return &BibTeXIndex{
		Keys: make(map[string]bool),
		DOIs: make(map[string]string),
	}
}

// HasEntry reports whether an entry already exists. DOI is the primary
// match; the citation key is the fallback.
func (idx *BibTeXIndex) HasEntry(key, doi string) bool {
	if doi != "" {
		if _, exists := idx.DOIs[normalizeDOI(doi)]; exists {
			return true
		}
	}
	return idx.Keys[key]
}

// Add records an entry so later HasEntry calls see it.
func (idx *BibTeXIndex) Add(key, doi string) {
	idx.Keys[key] = true
	if d := normalizeDOI(doi); d != "" {
		idx.DOIs[d] = key
	}
}

// ParseBibTeXFile builds an index from an existing .bib file.
// Returns an empty index if the file doesn't exist.
func ParseBibTeXFile(path string) (*BibTeXIndex, error) {
	idx := NewBibTeXIndex()

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, fmt.Errorf("opening bib file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var currentKey string

	for scanner.Scan() {
		line := scanner.Text()

		if m := entryStartRegex.FindStringSubmatch(line); len(m) > 1 {
			currentKey = strings.TrimSpace(m[1])
			idx.Keys[currentKey] = true
		}

		if m := doiFieldRegex.FindStringSubmatch(line); len(m) > 1 && currentKey != "" {
			if doi := normalizeDOI(m[1]); doi != "" {
				idx.DOIs[doi] = currentKey
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading bib file: %w", err)
	}
	return idx, nil
}

// normalizeDOI strips resolver prefixes and lowercases for comparison.
func normalizeDOI(doi string) string {
	return strings.ToLower(stripDOIPrefix(doi))
}

// AppendResult lists what AppendNew wrote and what it skipped as duplicates.
type AppendResult struct {
	Added   []string `json:"added"`
	Skipped []string `json:"skipped"`
}

// AppendNew appends the entries not already present in the .bib file at
// path, matching by DOI then key. Duplicates within entries are skipped too.
func AppendNew(path string, entries []Entry) (*AppendResult, error) {
	idx, err := ParseBibTeXFile(path)
	if err != nil {
		return nil, err
	}

	res := &AppendResult{Added: []string{}, Skipped: []string{}}
	var fresh []Entry
	for _, e := range entries {
		doi := e.Ref.Base().Links.DOI
		if idx.HasEntry(e.Key, doi) {
			res.Skipped = append(res.Skipped, e.Key)
			continue
		}
		idx.Add(e.Key, doi)
		fresh = append(fresh, e)
		res.Added = append(res.Added, e.Key)
	}

	if len(fresh) == 0 {
		return res, nil
	}
	if err := AppendToBibFile(path, ToBibTeXList(fresh)); err != nil {
		return nil, err
	}
	return res, nil
}

// AppendToBibFile appends BibTeX content to a file, starting on a new line.
func AppendToBibFile(path, content string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("opening bib file: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString("\n" + content); err != nil {
		return fmt.Errorf("writing bib file: %w", err)
	}
	return nil
}
