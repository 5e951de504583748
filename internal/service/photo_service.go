package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"folio/internal/config"
	"folio/internal/middleware"
	"folio/internal/models"
	"folio/internal/observability"
	"folio/internal/repository"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultMediaDir             = "public/media"
	DefaultImageMaxUploadSizeMB = 10
	CoverMaxWidth               = 1920
	CoverMaxHeight              = 1080
	JPEGQuality                 = 82
	WebPQuality                 = 70

	coversDir = "covers"
)

// UploadCoverInput is a raw cover photo upload for one user.
type UploadCoverInput struct {
	UserID uint
	// Filename is the client's name for the file. It is only logged;
	// stored files are named by content hash.
	Filename    string
	ContentType string
	Content     []byte
}

// PhotoService resizes uploaded cover photos, stores them under the media
// directory and records them.
type PhotoService struct {
	photos             repository.PhotoRepository
	users              repository.UserRepository
	mediaDir           string
	maxUploadSizeBytes int64
}

func NewPhotoService(photos repository.PhotoRepository, users repository.UserRepository, cfg *config.Config) *PhotoService {
	mediaDir := DefaultMediaDir
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB

	if cfg != nil {
		if cfg.MediaDir != "" {
			mediaDir = cfg.MediaDir
		}
		if cfg.ImageMaxUploadSizeMB > 0 {
			maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
		}
	}

	return &PhotoService{
		photos:             photos,
		users:              users,
		mediaDir:           mediaDir,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// MaxUploadSizeBytes is the largest accepted upload.
func (s *PhotoService) MaxUploadSizeBytes() int64 {
	return s.maxUploadSizeBytes
}

// UploadCover stores a new cover photo and points the user's CoverPhoto at
// it. Re-uploading identical content reuses the stored photo.
func (s *PhotoService) UploadCover(ctx context.Context, in UploadCoverInput) (*models.Photo, error) {
	ctx, span := observability.StartSpan(ctx, "photo.upload_cover")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	if in.UserID == 0 {
		err = models.NewValidationError("Invalid user")
		return nil, err
	}
	if len(in.Content) == 0 {
		err = models.NewValidationError("No file uploaded")
		return nil, err
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		err = models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
		return nil, err
	}

	detectedType := http.DetectContentType(in.Content)
	if !isAllowedImageMIME(detectedType) {
		err = models.NewValidationError("Invalid image type")
		return nil, err
	}

	decoded, format, decodeErr := image.Decode(bytes.NewReader(in.Content))
	if decodeErr != nil {
		err = models.NewValidationError("Invalid image file")
		return nil, err
	}
	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") && !isMatchingContentType(provided, decodedFormatToMime(format)) {
		err = models.NewValidationError("Image content type mismatch")
		return nil, err
	}

	cover := fitOnWhite(decoded, CoverMaxWidth, CoverMaxHeight)

	jpgBytes, encErr := encodeJPEG(cover, JPEGQuality)
	if encErr != nil {
		err = models.NewInternalError(encErr)
		return nil, err
	}
	webpBytes, encErr := encodeWebP(cover, WebPQuality)
	if encErr != nil {
		err = models.NewInternalError(encErr)
		return nil, err
	}

	hash := photoHash(in.UserID, jpgBytes)

	var photo *models.Photo
	photo, err = s.photos.GetByHash(ctx, hash)
	if err != nil {
		return nil, err
	}

	if photo == nil {
		jpgRel := path.Join(coversDir, hash+".jpg")
		webpRel := path.Join(coversDir, hash+".webp")
		written := []string{s.absPath(jpgRel), s.absPath(webpRel)}

		if err = writeBytesToFile(written[0], jpgBytes); err != nil {
			err = models.NewInternalError(err)
			return nil, err
		}
		if err = writeBytesToFile(written[1], webpBytes); err != nil {
			cleanupFiles(written)
			err = models.NewInternalError(err)
			return nil, err
		}

		b := cover.Bounds()
		photo = &models.Photo{
			UserID:    in.UserID,
			Hash:      hash,
			Kind:      models.PhotoKindCover,
			JPEGPath:  jpgRel,
			WebPPath:  webpRel,
			Width:     b.Dx(),
			Height:    b.Dy(),
			SizeBytes: int64(len(jpgBytes)),
			CreatedAt: time.Now().UTC(),
		}
		if err = s.photos.Create(ctx, photo); err != nil {
			cleanupFiles(written)
			return nil, err
		}
		observability.PhotoUploads.WithLabelValues(models.PhotoKindCover).Inc()
	}

	if err = s.users.SetCoverPhoto(ctx, in.UserID, s.URL(photo.JPEGPath)); err != nil {
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "cover photo stored",
		"user_id", in.UserID, "filename", uploadName(in.Filename), "hash", hash,
		"width", photo.Width, "height", photo.Height)
	return photo, nil
}

// ListPhotos returns a user's photos, newest first.
func (s *PhotoService) ListPhotos(ctx context.Context, userID uint, limit, offset int) ([]models.Photo, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.photos.ListByUser(ctx, userID, limit, offset)
}

// URL maps a media-relative path to the public URL served under /media.
func (s *PhotoService) URL(rel string) string {
	return "/media/" + strings.TrimPrefix(filepath.ToSlash(rel), "/")
}

func (s *PhotoService) absPath(rel string) string {
	return filepath.Join(s.mediaDir, filepath.FromSlash(rel))
}

// fitOnWhite scales src down to fit within maxWidth x maxHeight, keeping the
// aspect ratio, and flattens it onto an opaque white canvas. JPEG has no
// alpha channel, so transparent pixels would otherwise encode as black.
func fitOnWhite(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}

	newW, newH := w, h
	if w > maxWidth || h > maxHeight {
		scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
		newW = max(int(float64(w)*scale), 1)
		newH = max(int(float64(h)*scale), 1)
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.Draw(dst, dst.Bounds(), image.White, image.Point{}, xdraw.Src)
	if newW == w && newH == h {
		xdraw.Draw(dst, dst.Bounds(), src, bounds.Min, xdraw.Over)
	} else {
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	}
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	if provided == detected {
		return true
	}
	return (provided == "image/jpg" && detected == "image/jpeg") || (provided == "image/jpeg" && detected == "image/jpg")
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}

// uploadName reduces a client-supplied filename to its base name for logs.
func uploadName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	return name
}

func photoHash(userID uint, content []byte) string {
	h := sha256.New()
	_, _ = fmt.Fprintf(h, "%d:", userID)
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

func writeBytesToFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func cleanupFiles(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}
