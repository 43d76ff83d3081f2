package utils

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"unidos-api/documents"
)

// ImageLimits caps a single upload request.
type ImageLimits struct {
	MaxFiles    int
	MaxFileSize int64
}

var (
	EventImageLimits     = ImageLimits{MaxFiles: 5, MaxFileSize: 5 << 20}
	MegaEventImageLimits = ImageLimits{MaxFiles: 10, MaxFileSize: 10 << 20}
)

// ReadImages pulls the named files out of a multipart form, enforces
// the per-request limits and sniffs the content type from the bytes.
// Only image payloads are accepted.
func ReadImages(form *multipart.Form, field string, limits ImageLimits, now time.Time) ([]documents.Image, error) {
	files := form.File[field]
	if len(files) == 0 {
		return nil, fmt.Errorf("no files in field %q", field)
	}
	if len(files) > limits.MaxFiles {
		return nil, fmt.Errorf("at most %d files per upload", limits.MaxFiles)
	}

	images := make([]documents.Image, 0, len(files))
	for _, fh := range files {
		if fh.Size > limits.MaxFileSize {
			return nil, fmt.Errorf("%s exceeds the %dMB limit", fh.Filename, limits.MaxFileSize>>20)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("could not read %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(io.LimitReader(f, limits.MaxFileSize+1))
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("could not read %s: %w", fh.Filename, err)
		}
		if int64(len(data)) > limits.MaxFileSize {
			return nil, fmt.Errorf("%s exceeds the %dMB limit", fh.Filename, limits.MaxFileSize>>20)
		}

		mime := http.DetectContentType(data)
		if !strings.HasPrefix(mime, "image/") {
			return nil, fmt.Errorf("%s is not an image (%s)", fh.Filename, mime)
		}

		images = append(images, documents.Image{
			Filename:   fh.Filename,
			MIME:       mime,
			Size:       int64(len(data)),
			Data:       data,
			UploadedAt: now,
		})
	}
	return images, nil
}
