package page

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/strongdm/supportdesk/internal/config"
)

//go:embed templates/*.html
var templateFS embed.FS

// Lead is the descriptive paragraph under the landing heading.
const Lead = "Tenant-scoped support workspace with AI-assisted workflows."

var nextSteps = [...]string{
	"Connect a tenant-specific brand profile and theme.",
	"Configure AI prompts and knowledge bases.",
	"Invite supervisors and agents.",
}

// NextSteps returns the onboarding steps shown on the landing view, in order.
func NextSteps() []string {
	out := make([]string, len(nextSteps))
	copy(out, nextSteps[:])
	return out
}

// Metadata is the document-level title and description.
type Metadata struct {
	Title       string
	Description string
}

// Landing is the data behind the landing view.
type Landing struct {
	Heading string
	Lead    string
	Steps   []string
}

// View bundles everything needed to render the workspace document.
type View struct {
	Metadata Metadata
	Landing  Landing
}

// NewView derives the view from cfg. The display title is resolved once and
// shared by the metadata and the heading.
func NewView(cfg config.Config) View {
	title := cfg.DisplayTitle()
	return View{
		Metadata: Metadata{Title: title, Description: cfg.Description},
		Landing:  Landing{Heading: title, Lead: Lead, Steps: NextSteps()},
	}
}

type shellData struct {
	Metadata Metadata
	Children template.HTML
}

// Renderer executes the embedded templates.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("page").Option("missingkey=error").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse page templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// MustRenderer is NewRenderer for package-level initialisation and tests.
func MustRenderer() *Renderer {
	r, err := NewRenderer()
	if err != nil {
		panic(err)
	}
	return r
}

// Shell writes the document wrapper around children without altering them.
func (r *Renderer) Shell(w io.Writer, meta Metadata, children template.HTML) error {
	if err := r.tmpl.ExecuteTemplate(w, "shell", shellData{Metadata: meta, Children: children}); err != nil {
		return fmt.Errorf("render shell: %w", err)
	}
	return nil
}

// Landing writes the landing view fragment.
func (r *Renderer) Landing(w io.Writer, l Landing) error {
	if err := r.tmpl.ExecuteTemplate(w, "landing", l); err != nil {
		return fmt.Errorf("render landing: %w", err)
	}
	return nil
}

// Render writes the complete document for v: the landing view wrapped in
// the shell.
func (r *Renderer) Render(w io.Writer, v View) error {
	var body bytes.Buffer
	if err := r.Landing(&body, v.Landing); err != nil {
		return err
	}
	// body was produced by html/template and is already escaped.
	return r.Shell(w, v.Metadata, template.HTML(body.String()))
}

// Document renders v into memory.
func (r *Renderer) Document(v View) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
