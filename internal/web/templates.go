package web

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/justestif/songboard/internal/catalog"
)

// Templates manages HTML template rendering.
type Templates struct {
	templates map[string]*template.Template
	partials  map[string]*template.Template
	funcs     template.FuncMap
}

// NewTemplates creates a new template manager by loading templates from the given filesystem.
func NewTemplates(templatesFS fs.FS) (*Templates, error) {
	t := &Templates{
		templates: make(map[string]*template.Template),
		partials:  make(map[string]*template.Template),
		funcs:     defaultFuncs(),
	}

	if err := t.load(templatesFS); err != nil {
		return nil, err
	}

	return t, nil
}

// Render renders a page template with the given data.
func (t *Templates) Render(w io.Writer, page string, data any) error {
	tmpl, ok := t.templates[page]
	if !ok {
		return fmt.Errorf("template %q not found", page)
	}

	return tmpl.ExecuteTemplate(w, "base", data)
}

// RenderPartial renders a partial template (without base layout) with the given data.
func (t *Templates) RenderPartial(w io.Writer, partial string, data any) error {
	tmpl, ok := t.partials[partial]
	if !ok {
		return fmt.Errorf("partial %q not found", partial)
	}
	return tmpl.Execute(w, data)
}

// load parses all templates from the filesystem.
func (t *Templates) load(templatesFS fs.FS) error {
	// Load base layout
	layoutPattern := "layouts/*.html"
	layouts, err := fs.Glob(templatesFS, layoutPattern)
	if err != nil {
		return fmt.Errorf("finding layouts: %w", err)
	}

	// Load partials
	partialPattern := "partials/*.html"
	partials, err := fs.Glob(templatesFS, partialPattern)
	if err != nil {
		return fmt.Errorf("finding partials: %w", err)
	}

	// Load each page template with layouts and partials
	pagePattern := "pages/*.html"
	pages, err := fs.Glob(templatesFS, pagePattern)
	if err != nil {
		return fmt.Errorf("finding pages: %w", err)
	}

	// Common files to include with every page
	commonFiles := append(layouts, partials...)

	for _, page := range pages {
		// Create a new template for each page
		name := filepath.Base(page)
		name = name[:len(name)-len(".html")] // Remove .html extension

		files := append([]string{page}, commonFiles...)

		tmpl, err := template.New(name).Funcs(t.funcs).ParseFS(templatesFS, files...)
		if err != nil {
			return fmt.Errorf("parsing template %s: %w", name, err)
		}

		t.templates[name] = tmpl
	}

	// Partials also render on their own
	for _, partial := range partials {
		name := filepath.Base(partial)
		name = name[:len(name)-len(".html")] // Remove .html extension

		tmpl, err := template.New(name).Funcs(t.funcs).ParseFS(templatesFS, partial)
		if err != nil {
			return fmt.Errorf("parsing partial %s: %w", name, err)
		}
		t.partials[name] = tmpl
	}

	return nil
}

// defaultFuncs returns the default template functions.
func defaultFuncs() template.FuncMap {
	return template.FuncMap{
		// formatDate formats a time as "Jan 2, 2006"
		"formatDate": func(t time.Time) string {
			return t.Format("Jan 2, 2006")
		},

		"formatTime": func(t time.Time) string {
			return t.Format("Jan 2, 3:04 PM")
		},

		// embedURL converts a catalog track link to its embeddable player URL
		"embedURL": catalog.EmbedURL,

		"deref": deref,

		// ratings lists the selectable rating values
		"ratings": func() []int {
			return []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
		},

		// add adds two integers (for 1-based indexing in loops)
		"add": func(a, b int) int {
			return a + b
		},
	}
}

// PageData contains common data passed to all page templates.
type PageData struct {
	Title       string
	Admin       bool
	Flash       *FlashMessage
	CurrentPath string
}

// FlashMessage represents a temporary notification message.
type FlashMessage struct {
	Type    string // "success", "error"
	Message string
}

// SongData is the featured song as shown in templates.
type SongData struct {
	Title         string
	Artist        string
	Link          string
	ArtworkURL    string
	AppleMusicURL string
	UpdatedAt     time.Time
}

// HomePageData contains data for the home page template.
type HomePageData struct {
	PageData
	Song *SongData
}

// RecommendationData contains data for a single recommendation.
type RecommendationData struct {
	ID        string
	Name      string
	SongTitle string
	Artist    string
	Link      string
	Rating    int // 0 when unrated
	Message   string
	CreatedAt time.Time
}

// RecommendationsPageData contains data for the recommendations page.
type RecommendationsPageData struct {
	PageData
	Recommendations []RecommendationData
	MoreURL         string
}

// MessageData contains data for a single message or reply.
type MessageData struct {
	ID        string
	Body      string
	Author    string
	Likes     int
	Liked     bool
	CreatedAt time.Time
}

// ThreadData is a top-level message with its replies.
type ThreadData struct {
	MessageData
	Replies []MessageData
}

// MessagesPageData contains data for the messages page.
type MessagesPageData struct {
	PageData
	Threads []ThreadData
	Sort    string
	Sorts   []string
	Show    int
	MoreURL string
	MaxLen  int
}

// CuratedPageData contains data for the featured-song editor.
type CuratedPageData struct {
	PageData
	Song SongData
}
