package providers

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config represents the configuration for a vision request
type Config struct {
	Model       string
	Temperature float64
	Prompt      string
	Image       Image
}

// Provider defines the interface for a vision-capable LLM provider
type Provider interface {
	DescribeImage(ctx context.Context, config Config) (string, error)
}

// Image is an encoded image ready to be sent to a provider.
type Image struct {
	Name     string
	MIMEType string
	Data     []byte
}

var mimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".bmp":  "image/bmp",
	".gif":  "image/gif",
	".tiff": "image/tiff",
	".webp": "image/webp",
}

// MIMEType maps an image extension to its MIME type, defaulting to JPEG.
func MIMEType(path string) string {
	if mt, ok := mimeTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return mt
	}
	return "image/jpeg"
}

// LoadImage reads an image file from disk.
func LoadImage(path string) (Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, fmt.Errorf("failed to read image: %w", err)
	}
	return Image{
		Name:     filepath.Base(path),
		MIMEType: MIMEType(path),
		Data:     data,
	}, nil
}

// Base64 returns the standard base64 encoding of the image bytes.
func (i Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// DataURI returns the image as a data: URI.
func (i Image) DataURI() string {
	return "data:" + i.MIMEType + ";base64," + i.Base64()
}

// Format is the short subtype ("jpeg", "png", ...) used by APIs that take it separately.
func (i Image) Format() string {
	return strings.TrimPrefix(i.MIMEType, "image/")
}
