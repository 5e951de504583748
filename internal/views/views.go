// Package views renders the server-side HTML pages from embedded templates.
package views

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"folio/internal/models"
	"folio/internal/site"

	"github.com/gofiber/template/html/v2"
)

//go:embed templates/*.html templates/partials/*.html
var content embed.FS

// LayoutName is the template every page renders inside; it inserts the page
// with {{embed}}.
const LayoutName = "layout"

// Page templates selectable inside the user page.
const (
	TemplateLogin    = "login"
	TemplateProfile  = "profile"
	TemplateRegister = "register"
)

// Page is the binding passed to every template.
type Page struct {
	Site     site.Metadata
	Session  bool
	Template string
	Profile  *models.Profile
}

// New returns the html engine over the embedded templates. Templates are
// named by their path below templates/ without the extension, so partials
// are referenced as "partials/login".
func New() *html.Engine {
	// Sub only fails on an invalid path and "templates" is a literal.
	root, _ := fs.Sub(content, "templates")

	engine := html.NewFileSystem(http.FS(root), ".html")
	engine.AddFunc("join", strings.Join)
	// Avatars are generated server-side from a fixed path vocabulary.
	engine.AddFunc("trustedSVG", func(s string) template.HTML { return template.HTML(s) }) // #nosec G203
	return engine
}
