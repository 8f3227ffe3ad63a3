package plotpage

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"sync"
)

const (
	// EChartsURL is the script the rendered pages load echarts from.
	EChartsURL = "https://go-echarts.github.io/go-echarts-assets/assets/echarts.min.js"

	styleTagLen = len("</style>")
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	templates     *template.Template
	templatesOnce sync.Once
	errTemplates  error
)

func getTemplates() (*template.Template, error) {
	templatesOnce.Do(func() {
		var parseErr error

		templates, parseErr = template.ParseFS(templateFS, "templates/*.html")
		if parseErr != nil {
			errTemplates = fmt.Errorf("parsing templates: %w", parseErr)
		}
	})

	return templates, errTemplates
}

func renderTemplate(w io.Writer, name string, data any) error {
	tmpl, err := getTemplates()
	if err != nil {
		return err
	}

	execErr := tmpl.ExecuteTemplate(w, name, data)
	if execErr != nil {
		return fmt.Errorf("executing template %s: %w", name, execErr)
	}

	return nil
}

// Renderable is anything that writes an HTML fragment.
type Renderable interface {
	Render(w io.Writer) error
}

// Section is one titled block of a page.
type Section struct {
	Title    string
	Subtitle string
	Chart    Renderable
}

// Page is a complete HTML document.
type Page struct {
	Title       string
	Description string
	Theme       Theme
	Sections    []Section
}

// NewPage creates an empty light-themed page.
func NewPage(title, description string) *Page {
	return &Page{
		Title:       title,
		Description: description,
		Theme:       ThemeLight,
	}
}

// Add appends sections to the page.
func (p *Page) Add(sections ...Section) {
	p.Sections = append(p.Sections, sections...)
}

type sectionData struct {
	Title    string
	Subtitle string
	Content  template.HTML
}

type pageData struct {
	Title       string
	Description string
	EChartsURL  string
	Theme       ThemeConfig
	Sections    []sectionData
}

// Render writes the page as HTML.
func (p *Page) Render(w io.Writer) error {
	sections := make([]sectionData, 0, len(p.Sections))

	for _, section := range p.Sections {
		content, err := renderFragment(section.Chart)
		if err != nil {
			return fmt.Errorf("render section %q: %w", section.Title, err)
		}

		sections = append(sections, sectionData{
			Title:    section.Title,
			Subtitle: section.Subtitle,
			Content:  content,
		})
	}

	err := renderTemplate(w, "page.html", pageData{
		Title:       p.Title,
		Description: p.Description,
		EChartsURL:  EChartsURL,
		Theme:       GetThemeConfig(p.Theme),
		Sections:    sections,
	})
	if err != nil {
		return fmt.Errorf("render page: %w", err)
	}

	return nil
}

func renderFragment(chart Renderable) (template.HTML, error) {
	if chart == nil {
		return "", nil
	}

	var buf bytes.Buffer

	err := chart.Render(&buf)
	if err != nil {
		return "", err
	}

	//nolint:gosec // chart output is produced by echarts and our own templates.
	return template.HTML(extractChartContent(buf.String())), nil
}

// extractChartContent strips the document shell echarts wraps around a chart.
// Fragments that are not full documents pass through unchanged.
func extractChartContent(html string) string {
	trimmed := strings.TrimSpace(html)
	if !strings.HasPrefix(trimmed, "<!DOCTYPE") && !strings.HasPrefix(trimmed, "<html") {
		return html
	}

	start := strings.Index(html, `<div class="container">`)
	if start == -1 {
		return html
	}

	end := strings.Index(html, `</body>`)
	if end == -1 {
		return html
	}

	content := strings.ReplaceAll(html[start:end], `class="container"`, `class="echart-box"`)

	return removeStyleTags(content)
}

func removeStyleTags(content string) string {
	for {
		i := strings.Index(content, `<style>`)
		if i == -1 {
			return content
		}

		j := strings.Index(content[i:], `</style>`)
		if j == -1 {
			return content
		}

		content = content[:i] + content[i+j+styleTagLen:]
	}
}
