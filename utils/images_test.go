package utils

import (
	"bytes"
	"mime/multipart"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}

func buildForm(t *testing.T, field string, files map[string][]byte) *multipart.Form {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, data := range files {
		fw, err := w.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	r := multipart.NewReader(&buf, w.Boundary())
	form, err := r.ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form
}

func TestReadImagesAcceptsPNG(t *testing.T) {
	payload := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 64)...)
	form := buildForm(t, "images", map[string][]byte{"photo.png": payload})

	now := time.Now()
	images, err := ReadImages(form, "images", EventImageLimits, now)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "photo.png", images[0].Filename)
	assert.Equal(t, "image/png", images[0].MIME)
	assert.Equal(t, int64(len(payload)), images[0].Size)
	assert.Equal(t, now, images[0].UploadedAt)
}

func TestReadImagesRejectsNonImage(t *testing.T) {
	form := buildForm(t, "images", map[string][]byte{"notes.txt": []byte("plain text, not a picture")})

	_, err := ReadImages(form, "images", EventImageLimits, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an image")
}

func TestReadImagesRejectsTooManyFiles(t *testing.T) {
	files := map[string][]byte{}
	for _, name := range []string{"a.png", "b.png", "c.png", "d.png", "e.png", "f.png"} {
		files[name] = pngHeader
	}
	form := buildForm(t, "images", files)

	_, err := ReadImages(form, "images", EventImageLimits, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at most 5 files")
}

func TestReadImagesRejectsOversizedFile(t *testing.T) {
	limits := ImageLimits{MaxFiles: 5, MaxFileSize: 16}
	payload := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 32)...)
	form := buildForm(t, "images", map[string][]byte{"big.png": payload})

	_, err := ReadImages(form, "images", limits, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit")
}

func TestReadImagesRequiresFiles(t *testing.T) {
	form := buildForm(t, "other", map[string][]byte{"photo.png": pngHeader})

	_, err := ReadImages(form, "images", EventImageLimits, time.Now())
	require.Error(t, err)
}
