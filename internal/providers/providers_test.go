package providers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMIMEType(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"a.jpg", "image/jpeg"},
		{"a.JPEG", "image/jpeg"},
		{"a.png", "image/png"},
		{"a.Bmp", "image/bmp"},
		{"a.gif", "image/gif"},
		{"a.tiff", "image/tiff"},
		{"a.webp", "image/webp"},
		{"a.heic", "image/jpeg"},
		{"noext", "image/jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, MIMEType(tt.path))
		})
	}
}

func TestLoadImageDataURI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "A.png")
	require.NoError(t, os.WriteFile(path, []byte("hi"), 0644))

	img, err := LoadImage(path)
	require.NoError(t, err)

	assert.Equal(t, "A.png", img.Name)
	assert.Equal(t, "png", img.Format())
	assert.Equal(t, "data:image/png;base64,aGk=", img.DataURI())
}

func TestLoadImageMissing(t *testing.T) {
	_, err := LoadImage(filepath.Join(t.TempDir(), "nope.jpg"))
	assert.Error(t, err)
}
