package reference

// Record is the on-disk shape of a reference in a YAML source file.
// Numeric scalars such as year or volume decode into the string fields.
type Record struct {
	Type      string `yaml:"type,omitempty"`
	Authors   string `yaml:"authors,omitempty"`
	Year      string `yaml:"year,omitempty"`
	Title     string `yaml:"title,omitempty"`
	Journal   string `yaml:"journal,omitempty"`
	Volume    string `yaml:"volume,omitempty"`
	Issue     string `yaml:"issue,omitempty"`
	Pages     string `yaml:"pages,omitempty"`
	Publisher string `yaml:"publisher,omitempty"`
	BookTitle string `yaml:"book_title,omitempty"`
	Editors   string `yaml:"editors,omitempty"`
	DOI       string `yaml:"doi,omitempty"`
	URL       string `yaml:"url,omitempty"`
	PDF       string `yaml:"pdf,omitempty"`
	Source    string `yaml:"source,omitempty"`
}

// Reference converts the record to its typed variant. Fields that do not
// belong to the record's kind are dropped.
func (r Record) Reference() Reference {
	common := Common{
		Authors: r.Authors,
		Year:    r.Year,
		Title:   r.Title,
		Links: Links{
			DOI:    r.DOI,
			URL:    r.URL,
			PDF:    r.PDF,
			Source: r.Source,
		},
	}

	switch ParseKind(r.Type) {
	case KindArticle:
		return &Article{Common: common, Journal: r.Journal, Volume: r.Volume, Issue: r.Issue, Pages: r.Pages}
	case KindBook:
		return &Book{Common: common, Publisher: r.Publisher, Pages: r.Pages}
	case KindChapter:
		return &Chapter{Common: common, BookTitle: r.BookTitle, Editors: r.Editors, Pages: r.Pages, Publisher: r.Publisher}
	default:
		return &Generic{Common: common}
	}
}

// FromReference flattens a typed reference back into a Record.
func FromReference(ref Reference) Record {
	c := ref.Base()
	rec := Record{
		Authors: c.Authors,
		Year:    c.Year,
		Title:   c.Title,
		DOI:     c.Links.DOI,
		URL:     c.Links.URL,
		PDF:     c.Links.PDF,
		Source:  c.Links.Source,
	}

	switch r := ref.(type) {
	case *Article:
		rec.Type = string(KindArticle)
		rec.Journal, rec.Volume, rec.Issue, rec.Pages = r.Journal, r.Volume, r.Issue, r.Pages
	case *Book:
		rec.Type = string(KindBook)
		rec.Publisher, rec.Pages = r.Publisher, r.Pages
	case *Chapter:
		rec.Type = string(KindChapter)
		rec.BookTitle, rec.Editors, rec.Pages, rec.Publisher = r.BookTitle, r.Editors, r.Pages, r.Publisher
	}
	return rec
}
