// Package reference defines the core domain types for bibliographic records.
package reference

import "strings"

// Kind identifies which variant a Reference is.
type Kind string

const (
	KindArticle Kind = "article"
	KindBook    Kind = "book"
	KindChapter Kind = "chapter"
	KindGeneric Kind = "generic"
)

// ParseKind maps a record's type string to a Kind.
// Unknown or empty types are generic.
func ParseKind(s string) Kind {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindArticle:
		return KindArticle
	case KindBook:
		return KindBook
	case KindChapter:
		return KindChapter
	default:
		return KindGeneric
	}
}

// Reference is a bibliographic record. It is one of *Article, *Book,
// *Chapter or *Generic.
type Reference interface {
	Kind() Kind
	Base() Common
}

// Common holds the fields every reference kind carries.
type Common struct {
	Authors string // Free text, e.g. "Smith, J., Doe, A. & Lee, K."
	Year    string
	Title   string
	Links   Links
}

// Links are optional hyperlinks, rendered in field order.
type Links struct {
	DOI    string
	URL    string
	PDF    string
	Source string
}

// Article is a journal article.
type Article struct {
	Common
	Journal string
	Volume  string
	Issue   string
	Pages   string
}

// Book is a monograph.
type Book struct {
	Common
	Publisher string
	Pages     string
}

// Chapter is a chapter in an edited book.
type Chapter struct {
	Common
	BookTitle string
	Editors   string
	Pages     string
	Publisher string
}

// Generic is any reference without a recognized type.
type Generic struct {
	Common
}

func (r *Article) Kind() Kind { return KindArticle }
func (r *Book) Kind() Kind    { return KindBook }
func (r *Chapter) Kind() Kind { return KindChapter }
func (r *Generic) Kind() Kind { return KindGeneric }

func (r *Article) Base() Common { return r.Common }
func (r *Book) Base() Common    { return r.Common }
func (r *Chapter) Base() Common { return r.Common }
func (r *Generic) Base() Common { return r.Common }

// Venue returns the journal for articles and the publisher for books and
// chapters. Generic references have no venue.
func Venue(ref Reference) string {
	switch r := ref.(type) {
	case *Article:
		return r.Journal
	case *Book:
		return r.Publisher
	case *Chapter:
		return r.Publisher
	}
	return ""
}
