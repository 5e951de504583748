package views

import (
	"bytes"
	"testing"

	"folio/internal/models"
	"folio/internal/site"

	"github.com/gofiber/template/html/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, e *html.Engine, name string, page Page) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, e.Render(&buf, name, page, LayoutName))
	return buf.String()
}

func TestRenderPages(t *testing.T) {
	e := New()
	require.NoError(t, e.Load())

	meta := site.Default()
	meta.Title = "Folio Test"
	meta.Keywords = []string{"a", "b"}

	t.Run("index", func(t *testing.T) {
		out := render(t, e, "index", Page{Site: meta})
		assert.Contains(t, out, "<title>Folio Test</title>")
		assert.Contains(t, out, `content="a, b"`)
		assert.Contains(t, out, `src="/bundle/bundle.js"`)
		assert.Contains(t, out, `href="/user/register"`)
		assert.Contains(t, out, `<section class="home">`)
	})

	t.Run("login", func(t *testing.T) {
		out := render(t, e, "user", Page{Site: meta, Template: TemplateLogin})
		assert.Contains(t, out, `action="/user/login"`)
		assert.NotContains(t, out, `action="/user/register/new"`)
	})

	t.Run("register", func(t *testing.T) {
		out := render(t, e, "user", Page{Site: meta, Template: TemplateRegister})
		assert.Contains(t, out, `action="/user/register/new"`)
		assert.Contains(t, out, `name="for_hire"`)
	})

	t.Run("profile", func(t *testing.T) {
		profile := (&models.User{
			Username:   "alice",
			FirstName:  "Alice",
			Bio:        "<b>hi</b>",
			Avatar:     `<svg xmlns="http://www.w3.org/2000/svg"></svg>`,
			CoverPhoto: "/media/covers/abc.jpg",
			Password:   "$2a$10$secret-hash",
		}).ToProfile()

		out := render(t, e, "user", Page{Site: meta, Session: true, Template: TemplateProfile, Profile: &profile})
		assert.Contains(t, out, "@alice")
		assert.Contains(t, out, `<svg xmlns="http://www.w3.org/2000/svg"></svg>`)
		assert.Contains(t, out, "&lt;b&gt;hi&lt;/b&gt;")
		assert.Contains(t, out, `src="/media/covers/abc.jpg"`)
		assert.Contains(t, out, `action="/user/logout"`)
		assert.NotContains(t, out, "secret-hash")
	})
}

func TestRenderPartialWithoutLayout(t *testing.T) {
	e := New()
	require.NoError(t, e.Load())

	var buf bytes.Buffer
	require.NoError(t, e.Render(&buf, "partials/login", Page{}))
	assert.Contains(t, buf.String(), `action="/user/login"`)
	assert.NotContains(t, buf.String(), "<html")
}

func TestRenderUnknownTemplate(t *testing.T) {
	e := New()
	var buf bytes.Buffer
	assert.Error(t, e.Render(&buf, "missing", Page{}, LayoutName))
	assert.Error(t, e.Render(&buf, "index", Page{}, "no-such-layout"))
}
