package attachment

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Category is the kind of media an upload is destined for. It selects the allowed content types.
type Category string

const (
	CategoryImage Category = "image"
	CategoryVideo Category = "video"
	CategoryAudio Category = "audio"
	CategoryFile  Category = "file"
)

var ErrUnknownCategory = errors.New("unknown upload category")

var allowedTypes = map[Category]map[string]bool{
	CategoryImage: {
		"image/jpeg": true,
		"image/jpg":  true,
		"image/png":  true,
		"image/gif":  true,
		"image/webp": true,
	},
	CategoryVideo: {
		"video/mp4":       true,
		"video/quicktime": true,
		"video/webm":      true,
	},
	CategoryAudio: {
		"audio/mpeg": true,
		"audio/mp4":  true,
		"audio/aac":  true,
		"audio/ogg":  true,
		"audio/wav":  true,
		"audio/webm": true,
	},
	CategoryFile: {
		"application/pdf":    true,
		"application/msword": true,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
		"application/zip": true,
		"text/plain":      true,
		"image/jpeg":      true,
		"image/png":       true,
	},
}

// ParseCategory validates a category path segment.
func ParseCategory(raw string) (Category, error) {
	c := Category(strings.ToLower(raw))
	if _, ok := allowedTypes[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, raw)
	}
	return c, nil
}

// Allows reports whether contentType may be uploaded under c.
func (c Category) Allows(contentType string) bool {
	return allowedTypes[c][contentType]
}

// LocalStorage keeps uploads on local disk and serves them from a public base URL.
type LocalStorage struct {
	Dir     string
	BaseURL string
}

func NewLocalStorage(dir, baseURL string) *LocalStorage {
	return &LocalStorage{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}
}

// Reserve picks a unique destination for an upload named originalName and returns where to
// write it and the URL it will be served from.
func (s *LocalStorage) Reserve(category Category, originalName string) (dst, url string, err error) {
	dir := filepath.Join(s.Dir, string(category))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create upload directory: %w", err)
	}
	filename := uuid.New().String() + strings.ToLower(filepath.Ext(originalName))
	return filepath.Join(dir, filename), s.BaseURL + "/" + path.Join(string(category), filename), nil
}
