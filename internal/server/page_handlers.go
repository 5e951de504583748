package server

import (
	"folio/internal/middleware"
	"folio/internal/models"
	"folio/internal/views"

	"github.com/gofiber/fiber/v2"
)

// IndexPage handles GET /
func (s *Server) IndexPage(c *fiber.Ctx) error {
	_, loggedIn := s.sessions.Current(c)
	return c.Render("index", views.Page{
		Site:    s.site,
		Session: loggedIn,
	})
}

// UserPage handles GET /user. A valid session shows the profile, anything
// else shows the login form.
func (s *Server) UserPage(c *fiber.Ctx) error {
	page := views.Page{
		Site:     s.site,
		Template: views.TemplateLogin,
	}

	claims, ok := s.sessions.Current(c)
	if !ok {
		return c.Render("user", page)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := s.accounts.FindUser(ctx, claims.Username())
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	if user == nil {
		// The account behind a still-valid token is gone.
		middleware.Logger.WarnContext(c.UserContext(), "session for unknown user", "username", claims.Username())
		return c.Render("user", page)
	}

	profile := user.ToProfile()
	page.Session = true
	page.Template = views.TemplateProfile
	page.Profile = &profile
	return c.Render("user", page)
}

// RegisterPage handles GET /user/register
func (s *Server) RegisterPage(c *fiber.Ctx) error {
	_, loggedIn := s.sessions.Current(c)
	return c.Render("user", views.Page{
		Site:     s.site,
		Session:  loggedIn,
		Template: views.TemplateRegister,
	})
}
