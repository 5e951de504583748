// Package testutil provides shared test doubles and fixtures.
package testutil

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sort"
	"sync"
	"testing"
	"time"

	"folio/internal/models"
	"folio/internal/repository"
)

// UserRepoStub is an in-memory UserRepository. Err, when set, is returned by
// every method.
type UserRepoStub struct {
	mu     sync.Mutex
	users  map[string]*models.User
	nextID uint
	Err    error
}

// NewUserRepoStub creates an empty in-memory user repository.
func NewUserRepoStub() *UserRepoStub {
	return &UserRepoStub{users: make(map[string]*models.User), nextID: 1}
}

func (s *UserRepoStub) FindByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.users[username]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *UserRepoStub) ExistsByUsername(_ context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	_, ok := s.users[username]
	return ok, nil
}

// Save enforces username uniqueness like the real unique index.
func (s *UserRepoStub) Save(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.users[user.Username]; ok {
		return repository.ErrDuplicateUsername
	}
	user.ID = s.nextID
	s.nextID++
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	cp := *user
	s.users[user.Username] = &cp
	return nil
}

func (s *UserRepoStub) SetCoverPhoto(_ context.Context, userID uint, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for _, u := range s.users {
		if u.ID == userID {
			u.CoverPhoto = url
			return nil
		}
	}
	return models.NewNotFoundError("User", userID)
}

// PhotoRepoStub is an in-memory PhotoRepository.
type PhotoRepoStub struct {
	mu     sync.Mutex
	items  map[string]*models.Photo
	nextID uint
}

// NewPhotoRepoStub creates an empty in-memory photo repository.
func NewPhotoRepoStub() *PhotoRepoStub {
	return &PhotoRepoStub{items: make(map[string]*models.Photo), nextID: 1}
}

func (s *PhotoRepoStub) Create(_ context.Context, photo *models.Photo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if photo.ID == 0 {
		photo.ID = s.nextID
		s.nextID++
	}
	if photo.CreatedAt.IsZero() {
		photo.CreatedAt = time.Now().UTC()
	}
	cp := *photo
	s.items[photo.Hash] = &cp
	return nil
}

func (s *PhotoRepoStub) GetByHash(_ context.Context, hash string) (*models.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[hash]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *PhotoRepoStub) ListByUser(_ context.Context, userID uint, limit, offset int) ([]models.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Photo{}
	for _, p := range s.items {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset >= len(out) {
		return []models.Photo{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// TinyPNG returns PNG bytes of a w by h image with a simple gradient.
func TinyPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

var (
	_ repository.UserRepository  = (*UserRepoStub)(nil)
	_ repository.PhotoRepository = (*PhotoRepoStub)(nil)
)
