// Package storage persists citation usage as JSONL and indexes it in SQLite.
package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines (1MB per line).
const MaxJSONLLineCapacity = 1024 * 1024

// Usage is the citation record of one page after a build.
type Usage struct {
	Page    string   `json:"page"`
	Source  string   `json:"source"`
	File    string   `json:"file,omitempty"`
	Keys    []string `json:"keys"`
	Missing []string `json:"missing,omitempty"`
}

// ReadAllUsage reads all usage records from a JSONL file.
func ReadAllUsage(path string) ([]Usage, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening usage file: %w", err)
	}
	defer f.Close()

	var usages []Usage
	scanner := bufio.NewScanner(f)

	buf := make([]byte, MaxJSONLLineCapacity)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var u Usage
		if err := json.Unmarshal(line, &u); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}
		usages = append(usages, u)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading usage file: %w", err)
	}

	return usages, nil
}

// WriteAllUsage writes usage records sorted by page, replacing existing
// content. Parent directories are created as needed.
func WriteAllUsage(path string, usages []Usage) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating usage directory: %w", err)
	}

	sorted := make([]Usage, len(usages))
	copy(sorted, usages)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Page < sorted[j].Page })

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating usage file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for i, u := range sorted {
		if u.Keys == nil {
			u.Keys = []string{}
		}
		data, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("encoding usage %d: %w", i, err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("writing usage %d: %w", i, err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fmt.Errorf("writing newline: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing usage file: %w", err)
	}
	return nil
}

// FindByPage searches for the usage record of a page.
func FindByPage(usages []Usage, page string) (int, bool) {
	for i, u := range usages {
		if u.Page == page {
			return i, true
		}
	}
	return -1, false
}
