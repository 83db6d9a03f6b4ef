// Package output renders command results for the terminal.
//
// Results are expanded through the embedded text templates; the style
// template function applies a lipgloss style from StyleRegistry, or nothing
// when color is disabled.
package output

import (
	"embed"
	"fmt"
	"io"
	"os"
	"text/template"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/arthur-debert/deploytpl/pkg/logging"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// FileLine is one generated file in a Summary.
type FileLine struct {
	Path     string
	Template string
	Changed  bool
	Error    string
}

// Summary describes a generation run.
type Summary struct {
	Host    string
	Service string
	Files   []FileLine
}

// ChangedCount returns the number of files generated with new content.
func (s Summary) ChangedCount() int {
	n := 0
	for _, f := range s.Files {
		if f.Error == "" && f.Changed {
			n++
		}
	}
	return n
}

// FailedCount returns the number of files that could not be generated.
func (s Summary) FailedCount() int {
	n := 0
	for _, f := range s.Files {
		if f.Error != "" {
			n++
		}
	}
	return n
}

// List is a titled list of paths.
type List struct {
	Title string
	Empty string
	Items []string
}

// Renderer writes templated, optionally styled output.
type Renderer struct {
	templates *template.Template
	writer    io.Writer
	renderer  *lipgloss.Renderer
	noColor   bool
}

// NewRenderer returns a Renderer writing to w. Color is disabled when noColor
// is set, NO_COLOR is present or w is not a terminal.
func NewRenderer(w io.Writer, noColor bool) (*Renderer, error) {
	log := logging.GetLogger("output.renderer")

	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		noColor = true
	}
	if f, ok := w.(*os.File); !ok || (!isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())) {
		noColor = true
	}

	r := &Renderer{
		writer:   w,
		renderer: lipgloss.NewRenderer(w),
		noColor:  noColor,
	}
	log.Debug().Bool("noColor", noColor).Msg("Creating renderer")

	tmpl, err := template.New("output").
		Funcs(template.FuncMap{"style": r.style}).
		ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	r.templates = tmpl
	return r, nil
}

// RenderSummary writes the outcome of a generation run.
func (r *Renderer) RenderSummary(s Summary) error {
	return r.templates.ExecuteTemplate(r.writer, "summary.tmpl", s)
}

// RenderList writes a titled list, or its Empty text when there are no items.
func (r *Renderer) RenderList(l List) error {
	return r.templates.ExecuteTemplate(r.writer, "list.tmpl", l)
}

// RenderError writes err in the error style.
func (r *Renderer) RenderError(err error) error {
	_, werr := fmt.Fprintln(r.writer, r.style(StyleError, "Error:")+" "+err.Error())
	return werr
}

func (r *Renderer) style(name, text string) string {
	if r.noColor {
		return text
	}
	s, ok := StyleRegistry[name]
	if !ok {
		return text
	}
	return s.Renderer(r.renderer).Render(text)
}
