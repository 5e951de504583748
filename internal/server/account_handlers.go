package server

import (
	"folio/internal/middleware"
	"folio/internal/models"
	"folio/internal/service"

	"github.com/gofiber/fiber/v2"
)

// RegisterRequest is the registration form. It is accepted as form data or JSON.
type RegisterRequest struct {
	FirstName string `form:"first_name" json:"first_name"`
	LastName  string `form:"last_name" json:"last_name"`
	Bio       string `form:"bio" json:"bio"`
	Email     string `form:"email" json:"email"`
	ForHire   bool   `form:"for_hire" json:"for_hire"`
	Username  string `form:"username" json:"username"`
	Password  string `form:"password" json:"password"`
}

// LoginRequest carries login credentials.
type LoginRequest struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// CheckUserRequest names the account to look up.
type CheckUserRequest struct {
	Username string `form:"username" json:"username"`
}

// Register handles POST /user/register/new
// @Summary Register a user
// @Description Create an account and redirect to the user page
// @Tags user
// @Accept x-www-form-urlencoded,json
// @Param request body RegisterRequest true "Registration form"
// @Success 302
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /user/register/new [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	_, err := s.accounts.Register(ctx, service.RegisterInput{
		Username:  req.Username,
		Password:  req.Password,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Bio:       req.Bio,
		ForHire:   req.ForHire,
	})
	if err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "registration failed",
			"username", service.NormalizeUsername(req.Username), "code", models.ErrorCode(err))
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.Redirect("/user", fiber.StatusFound)
}

// Login handles POST /user/login
// @Summary Log in
// @Description Verify credentials, set the session cookie and return the profile. Unknown users and wrong passwords both answer false.
// @Tags user
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} models.Profile
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /user/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := s.accounts.Login(ctx, req.Username, req.Password)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	if user == nil {
		return c.JSON(false)
	}

	if _, err := s.sessions.Issue(c, user.Username); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}
	middleware.WithUsername(c, user.Username)

	return c.JSON(user.ToProfile())
}

// CheckUser handles POST /user/login/check-user
// @Summary Check whether a user exists
// @Tags user
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Param request body CheckUserRequest true "Username"
// @Success 200 {object} models.Profile
// @Failure 500 {object} models.ErrorResponse
// @Router /user/login/check-user [post]
func (s *Server) CheckUser(c *fiber.Ctx) error {
	var req CheckUserRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := s.accounts.FindUser(ctx, req.Username)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	if user == nil {
		return c.JSON(false)
	}
	return c.JSON(user.ToProfile())
}

// Logout handles POST /user/logout
// @Summary Log out
// @Description Clear the session cookie and revoke its token
// @Tags user
// @Success 200
// @Router /user/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	s.sessions.Clear(c)
	return c.SendString("")
}
