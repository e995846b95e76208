package export

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"reports/internal/domain"
	"reports/internal/palette"
)

// ParagraphStyle is the DOCX paragraph role.
type ParagraphStyle string

const (
	ParagraphTitle    ParagraphStyle = "Title"
	ParagraphHeading1 ParagraphStyle = "Heading1"
	ParagraphHeading2 ParagraphStyle = "Heading2"
	ParagraphBody     ParagraphStyle = "Body"
	ParagraphImage    ParagraphStyle = "Image"
)

// Paragraph is one entry of the flat DOCX body.
type Paragraph struct {
	Style           ParagraphStyle `json:"style"`
	Text            string         `json:"text,omitempty"`
	Src             string         `json:"src,omitempty"`
	PageBreakBefore bool           `json:"pageBreakBefore,omitempty"`
}

// DefaultDocxTitle is used when the document has no title.
const DefaultDocxTitle = "Report"

// PlanDOCX flattens doc into DOCX paragraphs: the title, one Heading1 per
// page and the page content. Only headings, text and images are carried;
// rows and columns are flattened and every other kind is skipped.
func PlanDOCX(doc domain.Document) []Paragraph {
	title := doc.Title
	if title == "" {
		title = DefaultDocxTitle
	}
	out := []Paragraph{{Style: ParagraphTitle, Text: title}}
	for i, p := range doc.Pages {
		out = append(out, Paragraph{Style: ParagraphHeading1, Text: p.Name, PageBreakBefore: i > 0})
		out = appendDocx(out, p.Components)
	}
	return out
}

func appendDocx(out []Paragraph, list []domain.Node) []Paragraph {
	for _, n := range list {
		switch c := n.Content.(type) {
		case domain.Heading:
			out = append(out, Paragraph{Style: ParagraphHeading2, Text: c.Content})
		case domain.Text:
			out = append(out, Paragraph{Style: ParagraphBody, Text: c.Content})
		case domain.Image:
			if c.Src != "" {
				out = append(out, Paragraph{Style: ParagraphImage, Src: c.Src, Text: c.Alt})
			}
		case domain.Row:
			out = appendDocx(out, c.Children)
		case domain.Column:
			out = appendDocx(out, c.Children)
		}
	}
	return out
}

// ─────────────────────────────────────────────────────────────
// Import
// ─────────────────────────────────────────────────────────────

// ImportedImageAlt is the alt text for imported images that carry none.
const ImportedImageAlt = "Imported Image"

// ImportHTML converts the HTML a DOCX converter produces into flat root
// nodes. Only direct children of <body> are considered. newID may be nil,
// in which case palette ids are generated.
func ImportHTML(r io.Reader, newID func(domain.Kind) string) ([]domain.Node, error) {
	if newID == nil {
		newID = palette.NewID
	}
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	body := findElement(root, atom.Body)
	if body == nil {
		return nil, nil
	}

	var out []domain.Node
	add := func(c domain.Content) {
		out = append(out, domain.Node{ID: newID(c.Kind()), Order: len(out), Content: c})
	}

	for el := body.FirstChild; el != nil; el = el.NextSibling {
		if el.Type != html.ElementNode {
			continue
		}
		switch el.DataAtom {
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			add(domain.Heading{Content: textContent(el)})
		case atom.P:
			if img := findElement(el, atom.Img); img != nil {
				add(imageFrom(img))
			} else if txt := textContent(el); strings.TrimSpace(txt) != "" {
				add(domain.Text{Content: txt})
			}
		case atom.Table:
			if txt := textContent(el); strings.TrimSpace(txt) != "" {
				add(domain.Text{Content: "[Table]: " + txt})
			}
		case atom.Img:
			add(imageFrom(el))
		}
	}
	return out, nil
}

func imageFrom(el *html.Node) domain.Image {
	img := domain.Image{Src: attr(el, "src"), Alt: attr(el, "alt")}
	if img.Alt == "" {
		img.Alt = ImportedImageAlt
	}
	return img
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
