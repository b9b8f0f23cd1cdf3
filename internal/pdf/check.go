package pdf

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Status is the outcome of checking one local PDF.
type Status string

const (
	StatusMatch      Status = "match"      // PDF carries the reference's DOI
	StatusMismatch   Status = "mismatch"   // PDF carries a different DOI
	StatusNoDOI      Status = "no-doi"     // no DOI found in the PDF or none expected
	StatusMissing    Status = "missing"    // file does not exist
	StatusUnreadable Status = "unreadable" // not a parseable PDF
	StatusRemote     Status = "remote"     // link is not a local file
)

// Result reports one PDF check.
type Result struct {
	Key      string `json:"key"`
	Link     string `json:"link"`
	Path     string `json:"path,omitempty"`
	Expected string `json:"expected,omitempty"`
	Found    string `json:"found,omitempty"`
	Status   Status `json:"status"`
	Error    string `json:"error,omitempty"`
}

// OK reports whether the result needs no attention.
func (r Result) OK() bool {
	switch r.Status {
	case StatusMatch, StatusRemote, StatusNoDOI:
		return true
	}
	return false
}

// Checker resolves reference PDF links against a site directory.
type Checker struct {
	root string
}

// NewChecker creates a checker resolving links relative to root.
func NewChecker(root string) *Checker {
	return &Checker{root: root}
}

// ResolvePath maps a pdf link to a local path. Site-absolute links
// ("/papers/x.pdf") and relative links both resolve under the root.
func (c *Checker) ResolvePath(link string) (string, bool) {
	if link == "" {
		return "", false
	}
	if u, err := url.Parse(link); err == nil && u.Scheme != "" && u.Scheme != "file" {
		return "", false
	}
	link = strings.TrimPrefix(link, "file://")
	if filepath.IsAbs(link) {
		if _, err := os.Stat(link); err == nil {
			return link, true
		}
	}
	return filepath.Join(c.root, filepath.FromSlash(strings.TrimPrefix(link, "/"))), true
}

// Check compares the DOI inside the PDF at link with doi.
func (c *Checker) Check(key, link, doi string) Result {
	res := Result{Key: key, Link: link, Expected: NormalizeDOI(doi)}

	path, local := c.ResolvePath(link)
	if !local {
		res.Status = StatusRemote
		return res
	}
	res.Path = path

	if _, err := os.Stat(path); err != nil {
		res.Status = StatusMissing
		return res
	}

	found, err := ExtractDOI(path)
	if err != nil {
		res.Status = StatusUnreadable
		res.Error = err.Error()
		return res
	}
	res.Found = NormalizeDOI(found)

	switch {
	case res.Found == "" || res.Expected == "":
		res.Status = StatusNoDOI
	case res.Found == res.Expected:
		res.Status = StatusMatch
	default:
		res.Status = StatusMismatch
	}
	return res
}
