package arxiv

import "encoding/xml"

// Feed is one page of the Atom query response. Only the fields the feed
// pipeline reads are decoded.
type Feed struct {
	XMLName      xml.Name `xml:"feed"`
	TotalResults int      `xml:"totalResults"`
	Entries      []Entry  `xml:"entry"`
}

// Entry is one submission, newest first within a page.
type Entry struct {
	// ID is the abs URL with version, e.g. http://arxiv.org/abs/2501.01234v2.
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
	Authors    []Person `xml:"author"`
	Categories []Term   `xml:"category"`
	Links      []Link   `xml:"link"`
}

// Person is an entry author.
type Person struct {
	Name string `xml:"name"`
}

// Term is a subject category such as cs.LG.
type Term struct {
	Term string `xml:"term,attr"`
}

// Link is an alternate or related link; the PDF link is titled "pdf".
type Link struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
}

// Identity returns the version-less arXiv id, or "" when the id is unusable.
func (e *Entry) Identity() string {
	return extractArXivID(e.ID)
}

// AuthorNames returns the non-blank author names in feed order.
func (e *Entry) AuthorNames() []string {
	names := make([]string, 0, len(e.Authors))
	for _, a := range e.Authors {
		if name := normalizeWhitespace(a.Name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// PDFLink returns the href of the link titled "pdf".
func (e *Entry) PDFLink() string {
	for _, link := range e.Links {
		if link.Title == "pdf" {
			return link.Href
		}
	}
	return ""
}

// CategoryTerms returns the raw category terms.
func (e *Entry) CategoryTerms() []string {
	terms := make([]string, 0, len(e.Categories))
	for _, c := range e.Categories {
		terms = append(terms, c.Term)
	}
	return terms
}
