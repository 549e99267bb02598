package content

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	Placeholder = "Conteúdo indisponível, servidor fora do ar."

	// PublishedLayout renders a guide's publication date.
	PublishedLayout = "02/01/2006"
)

// Category is the tipo code of a guide.
type Category string

const (
	CategoryPortal     Category = "p"
	CategoryTelehealth Category = "t"
	CategoryGeneral    Category = "i"
)

// Categories lists the buckets in display order.
var Categories = []Category{CategoryPortal, CategoryTelehealth, CategoryGeneral}

func (c Category) Label() string {
	switch c {
	case CategoryPortal:
		return "Portal do Paciente"
	case CategoryTelehealth:
		return "Teleconsulta"
	case CategoryGeneral:
		return "Geral"
	}
	return string(c)
}

// ParseCategory accepts a tipo code, a bucket position or a bucket label in
// any accent or case form.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for i, c := range Categories {
		if s == string(c) || s == string(rune('0'+i)) || Slug(s) == Slug(c.Label()) {
			return c, true
		}
	}
	return "", false
}

// Guide is an entry of the content collection.
type Guide struct {
	ID          string   `json:"id"`
	Title       string   `json:"titulo"`
	Text        string   `json:"texto"`
	Image       string   `json:"imagem,omitempty"`
	Video       string   `json:"video,omitempty"`
	PublishedAt string   `json:"dataPublicacao"`
	Category    Category `json:"tipo"`
}

func (g Guide) Slug() string { return Slug(g.Title) }

// Paragraphs splits the text on newlines, dropping blank lines.
func (g Guide) Paragraphs() []string {
	out := []string{}
	for _, p := range strings.Split(g.Text, "\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var publishedLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"}

// Published renders the publication date, falling back to the raw value.
func (g Guide) Published() string {
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, g.PublishedAt); err == nil {
			return t.Format(PublishedLayout)
		}
	}
	return g.PublishedAt
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Slug folds accents, lower-cases and joins alphanumeric runs with "-".
func Slug(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}
	return strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(folded), "-"), "-")
}

// Summary is a guide as the bucket lists show it.
type Summary struct {
	ID    string `json:"id"`
	Title string `json:"titulo"`
	Slug  string `json:"slug"`
}

type Bucket struct {
	Category Category  `json:"tipo"`
	Label    string    `json:"label"`
	Guides   []Summary `json:"guides"`
}

type Catalog struct {
	Buckets     []Bucket `json:"buckets"`
	Placeholder string   `json:"placeholder,omitempty"`
}

// Media is the single image or video shown next to a guide.
type Media struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
}

type View struct {
	ID         string   `json:"id"`
	Title      string   `json:"titulo"`
	Slug       string   `json:"slug"`
	Published  string   `json:"publicadoEm"`
	Paragraphs []string `json:"paragrafos"`
	Media      *Media   `json:"media,omitempty"`
}

func viewOf(g Guide) View {
	v := View{ID: g.ID, Title: g.Title, Slug: g.Slug(), Published: g.Published(), Paragraphs: g.Paragraphs()}
	switch {
	case g.Video != "":
		v.Media = &Media{Kind: "video", Path: "/media/" + g.Video}
	case g.Image != "":
		v.Media = &Media{Kind: "image", Path: "/media/" + g.Image}
	}
	return v
}
