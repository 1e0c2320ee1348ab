package models

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ImageData holds a raw image attachment: the bytes sent to the remote
// service and the MIME type describing them.
type ImageData struct {
	Data     []byte
	MIMEType string
}

// supported image extensions and their MIME types
var imageMIMETypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".heic": "image/heic",
	".heif": "image/heif",
}

// LoadImage reads an image file from disk and determines its MIME type
// from the file extension.
func LoadImage(path string) (*ImageData, error) {
	ext := strings.ToLower(filepath.Ext(path))
	mime, ok := imageMIMETypes[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported image type: %s", ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	return &ImageData{Data: data, MIMEType: mime}, nil
}

// DataURI encodes the image as a data URI for persistence alongside the
// message that carried it.
func (i *ImageData) DataURI() string {
	return fmt.Sprintf("data:%s;base64,%s", i.MIMEType, base64.StdEncoding.EncodeToString(i.Data))
}
