package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

type PageSize string

const (
	PageA4     PageSize = "A4"
	PageLetter PageSize = "Letter"
)

type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

type Margins struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

type PageSettings struct {
	Size        PageSize    `json:"size"`
	Orientation Orientation `json:"orientation"`
	Margins     Margins     `json:"margins"`
}

// Page sizes in CSS pixels at 96 dpi, portrait.
var pageDimensions = map[PageSize][2]float64{
	PageA4:     {794, 1123},
	PageLetter: {816, 1056},
}

// Dimensions returns the page width and height in CSS pixels, honoring the
// orientation. Unknown sizes fall back to A4.
func (s PageSettings) Dimensions() (width, height float64) {
	d, ok := pageDimensions[s.Size]
	if !ok {
		d = pageDimensions[PageA4]
	}
	if s.Orientation == Landscape {
		return d[1], d[0]
	}
	return d[0], d[1]
}

// ContentHeight is the printable height: page height minus vertical margins.
func (s PageSettings) ContentHeight() float64 {
	_, h := s.Dimensions()
	return h - s.Margins.Top - s.Margins.Bottom
}

type PageStyles struct {
	BackgroundColor string   `json:"backgroundColor,omitempty"`
	BackgroundImage string   `json:"backgroundImage,omitempty"`
	Padding         *float64 `json:"padding,omitempty"`
}

// Page is an ordered list of root nodes plus page metadata.
type Page struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Styles     *PageStyles `json:"styles,omitempty"`
	Components []Node      `json:"components"`
}

func (p Page) MarshalJSON() ([]byte, error) {
	type alias Page
	if p.Components == nil {
		p.Components = []Node{}
	}
	return json.Marshal(alias(p))
}

// Document is the whole report: title, page settings and ordered pages.
// It always holds at least one page.
type Document struct {
	Title        string       `json:"title"`
	PageSettings PageSettings `json:"pageSettings"`
	Pages        []Page       `json:"pages"`
}

func (d Document) MarshalJSON() ([]byte, error) {
	type alias Document
	if d.Pages == nil {
		d.Pages = []Page{}
	}
	return json.Marshal(alias(d))
}

const (
	DefaultTitle    = "Untitled Report"
	DefaultPageID   = "page-1"
	DefaultPageName = "Page 1"
)

// DefaultPageSettings is A4 portrait with 20px margins.
func DefaultPageSettings() PageSettings {
	return PageSettings{
		Size:        PageA4,
		Orientation: Portrait,
		Margins:     Margins{Top: 20, Right: 20, Bottom: 20, Left: 20},
	}
}

// NewDocument returns the default document: one empty page.
func NewDocument() Document {
	return Document{
		Title:        DefaultTitle,
		PageSettings: DefaultPageSettings(),
		Pages:        []Page{{ID: DefaultPageID, Name: DefaultPageName, Components: []Node{}}},
	}
}

// PageIndex returns the index of the page with the given id, or -1.
func (d Document) PageIndex(id string) int {
	for i, p := range d.Pages {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// ─────────────────────────────────────────────────────────────
// Report store
// ─────────────────────────────────────────────────────────────

// ErrReportNotFound is returned by ReportStore.LoadReport for unknown paths.
var ErrReportNotFound = errors.New("report not found")

// Report is a document saved under a slash-delimited path key.
type Report struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Layout    Document  `json:"layout"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ReportSummary is a report without its layout, for listings.
type ReportSummary struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ReportStore persists documents by path key. Load returns ErrReportNotFound
// when nothing is stored under the key.
type ReportStore interface {
	SaveReport(ctx context.Context, path string, doc Document) error
	LoadReport(ctx context.Context, path string) (*Report, error)
	ListReports(ctx context.Context) ([]ReportSummary, error)
	DeleteReport(ctx context.Context, path string) error
}
