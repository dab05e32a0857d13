package arxiv

import (
	"encoding/xml"
	"strings"
	"time"
)

// Paper is the normalized metadata for one arXiv entry.
type Paper struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Authors     []string  `json:"authors"`
	Abstract    string    `json:"abstract"`
	Categories  []string  `json:"categories"`
	Published   time.Time `json:"published"`
	Updated     time.Time `json:"updated"`
	PDFURL      string    `json:"url"`
	ResourceURI string    `json:"resource_uri"`
	DOI         string    `json:"doi,omitempty"`
	Comment     string    `json:"comment,omitempty"`
	JournalRef  string    `json:"journal_ref,omitempty"`
}

// SearchResult is the parsed answer for one API query. TotalResults is
// the index-side match count, which can exceed len(Papers).
type SearchResult struct {
	TotalResults int
	StartIndex   int
	ItemsPerPage int
	Papers       []Paper
}

// atomFeed models the Atom envelope returned by the arXiv API.
type atomFeed struct {
	XMLName      xml.Name    `xml:"feed"`
	TotalResults int         `xml:"http://a9.com/-/spec/opensearch/1.1/ totalResults"`
	StartIndex   int         `xml:"http://a9.com/-/spec/opensearch/1.1/ startIndex"`
	ItemsPerPage int         `xml:"http://a9.com/-/spec/opensearch/1.1/ itemsPerPage"`
	Entries      []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
	Updated   string `xml:"updated"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
	Links []struct {
		Href  string `xml:"href,attr"`
		Rel   string `xml:"rel,attr"`
		Type  string `xml:"type,attr"`
		Title string `xml:"title,attr"`
	} `xml:"link"`
	Categories []struct {
		Term string `xml:"term,attr"`
	} `xml:"category"`
	DOI        string `xml:"http://arxiv.org/schemas/atom doi"`
	Comment    string `xml:"http://arxiv.org/schemas/atom comment"`
	JournalRef string `xml:"http://arxiv.org/schemas/atom journal_ref"`
}

func (e atomEntry) toPaper() Paper {
	p := Paper{
		ID:         shortID(e.ID),
		Title:      collapseWhitespace(e.Title),
		Abstract:   strings.TrimSpace(e.Summary),
		DOI:        strings.TrimSpace(e.DOI),
		Comment:    collapseWhitespace(e.Comment),
		JournalRef: strings.TrimSpace(e.JournalRef),
	}

	for _, author := range e.Authors {
		p.Authors = append(p.Authors, author.Name)
	}
	for _, category := range e.Categories {
		p.Categories = append(p.Categories, category.Term)
	}

	// Feed timestamps are RFC3339; a malformed one leaves the zero time
	// rather than failing the whole feed.
	p.Published, _ = time.Parse(time.RFC3339, e.Published)
	p.Updated, _ = time.Parse(time.RFC3339, e.Updated)

	for _, link := range e.Links {
		if link.Title == "pdf" || link.Type == "application/pdf" {
			p.PDFURL = link.Href
			break
		}
	}
	if p.PDFURL == "" && p.ID != "" {
		p.PDFURL = "http://arxiv.org/pdf/" + p.ID
	}

	p.ResourceURI = "arxiv://" + p.ID
	return p
}

// shortID reduces an entry id URL such as
// http://arxiv.org/abs/2401.12345v1 to 2401.12345v1.
func shortID(idURL string) string {
	if idx := strings.LastIndex(idURL, "/abs/"); idx >= 0 {
		return idURL[idx+len("/abs/"):]
	}
	return strings.TrimSpace(idURL)
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
