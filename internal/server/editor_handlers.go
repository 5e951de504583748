package server

import (
	"io"
	"time"

	"folio/internal/models"
	"folio/internal/service"

	"github.com/gofiber/fiber/v2"
)

// PhotoResponse is the API shape of a stored photo.
type PhotoResponse struct {
	ID        uint      `json:"id"`
	Hash      string    `json:"hash"`
	Kind      string    `json:"kind"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	SizeBytes int64     `json:"size_bytes"`
	URL       string    `json:"url"`
	WebPURL   string    `json:"webp_url"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) toPhotoResponse(p *models.Photo) PhotoResponse {
	return PhotoResponse{
		ID:        p.ID,
		Hash:      p.Hash,
		Kind:      p.Kind,
		Width:     p.Width,
		Height:    p.Height,
		SizeBytes: p.SizeBytes,
		URL:       s.photos.URL(p.JPEGPath),
		WebPURL:   s.photos.URL(p.WebPPath),
		CreatedAt: p.CreatedAt,
	}
}

// currentUser loads the account of the session owner.
func (s *Server) currentUser(c *fiber.Ctx) (*models.User, error) {
	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := s.accounts.FindUser(ctx, sessionUsername(c))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthorizedError("Login required")
	}
	return user, nil
}

// UploadCoverPhoto handles POST /editor/cover-photo
// @Summary Upload a cover photo
// @Description Resize, store and set the session user's cover photo
// @Tags editor
// @Accept multipart/form-data
// @Produce json
// @Param cover_photo formData file true "Image file"
// @Success 200 {object} PhotoResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /editor/cover-photo [post]
func (s *Server) UploadCoverPhoto(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	file, err := c.FormFile("cover_photo")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("No file uploaded"))
	}

	src, err := file.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(io.LimitReader(src, s.photos.MaxUploadSizeBytes()+1))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	photo, err := s.photos.UploadCover(ctx, service.UploadCoverInput{
		UserID:      user.ID,
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Content:     content,
	})
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(s.toPhotoResponse(photo))
}

// ListPhotos handles GET /editor/photos
// @Summary List the session user's photos
// @Tags editor
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {array} PhotoResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /editor/photos [get]
func (s *Server) ListPhotos(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	page := parsePagination(c, 20)
	ctx, cancel := requestContext(c)
	defer cancel()

	photos, err := s.photos.ListPhotos(ctx, user.ID, page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	out := make([]PhotoResponse, 0, len(photos))
	for i := range photos {
		out = append(out, s.toPhotoResponse(&photos[i]))
	}
	return c.JSON(out)
}
