// Package site discovers Markdown pages, renders them with citations
// resolved and rebuilds them when content or reference data changes.
package site

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnterminatedFrontMatter is returned when an opening "---" has no
// closing line.
var ErrUnterminatedFrontMatter = errors.New("unterminated front matter")

// FrontMatter holds the page settings read from the YAML block at the
// top of a Markdown file.
type FrontMatter struct {
	Title         string `yaml:"title,omitempty"`
	URL           string `yaml:"url,omitempty"`
	Permalink     string `yaml:"permalink,omitempty"`
	ReferenceFile string `yaml:"reference_file,omitempty"`
}

// Page is one Markdown file under the content directory.
type Page struct {
	Rel  string // slash-separated path relative to the content directory
	Path string
	FrontMatter
	Body []byte
}

// ID returns the page identifier: the front matter url or permalink if
// set, otherwise the URL derived from the file path.
func (p *Page) ID() string {
	for _, v := range []string{p.URL, p.Permalink} {
		if v = strings.TrimSpace(v); v != "" {
			if !strings.HasPrefix(v, "/") {
				v = "/" + v
			}
			return v
		}
	}
	return URLFor(p.Rel)
}

// URLFor maps a content-relative Markdown path to its page URL:
// "blog/post.md" is "/blog/post/", "blog/index.md" is "/blog/" and
// "index.md" is "/".
func URLFor(rel string) string {
	rel = filepath.ToSlash(rel)
	rel = strings.TrimSuffix(rel, path.Ext(rel))
	if path.Base(rel) == "index" {
		rel = path.Dir(rel)
	}
	if rel == "." || rel == "" {
		return "/"
	}
	return "/" + strings.Trim(rel, "/") + "/"
}

// OutputPath maps a page identifier to the file it is written to under
// outDir. Directory-style URLs get an index.html.
func OutputPath(outDir, id string) string {
	clean := path.Clean("/" + id)
	if strings.HasSuffix(id, "/") || path.Ext(clean) == "" {
		clean = path.Join(clean, "index.html")
	}
	return filepath.Join(outDir, filepath.FromSlash(strings.TrimPrefix(clean, "/")))
}

// ParseFrontMatter splits a leading "---" YAML block from the body.
// Content without front matter is returned unchanged.
func ParseFrontMatter(data []byte) (FrontMatter, []byte, error) {
	var fm FrontMatter

	first, rest, ok := cutLine(data)
	if !ok || strings.TrimSpace(string(first)) != "---" {
		return fm, data, nil
	}

	var yamlBlock []byte
	for len(rest) > 0 {
		var line []byte
		line, rest, _ = cutLine(rest)
		if strings.TrimSpace(string(line)) == "---" {
			if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
				return fm, nil, fmt.Errorf("parsing front matter: %w", err)
			}
			return fm, rest, nil
		}
		yamlBlock = append(yamlBlock, line...)
		yamlBlock = append(yamlBlock, '\n')
	}

	return fm, nil, ErrUnterminatedFrontMatter
}

// cutLine returns the first line of b without its terminator.
func cutLine(b []byte) (line, rest []byte, ok bool) {
	if len(b) == 0 {
		return nil, nil, false
	}
	i := bytes.IndexByte(b, '\n')
	if i < 0 {
		return bytes.TrimSuffix(b, []byte("\r")), nil, true
	}
	return bytes.TrimSuffix(b[:i], []byte("\r")), b[i+1:], true
}

// LoadPage reads and parses the Markdown file at path.
func LoadPage(contentDir, p string) (*Page, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("reading page: %w", err)
	}

	fm, body, err := ParseFrontMatter(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}

	rel, err := filepath.Rel(contentDir, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(p)
	}

	return &Page{
		Rel:         filepath.ToSlash(rel),
		Path:        p,
		FrontMatter: fm,
		Body:        body,
	}, nil
}

// Discover returns every Markdown file under contentDir, sorted. Hidden
// directories and directories starting with "_" are skipped, as is skip
// when it lies inside contentDir.
func Discover(contentDir, skip string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(contentDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p == contentDir {
				return nil
			}
			name := d.Name()
			if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || (skip != "" && p == skip) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(p), ".md") {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discovering pages: %w", err)
	}

	sort.Strings(paths)
	return paths, nil
}

// ErrDuplicatePage is returned when two files map to the same page URL.
var ErrDuplicatePage = errors.New("duplicate page identifier")
