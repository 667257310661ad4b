// Package source decodes the artwork image from raster or SVG input.
package source

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var ErrUnsupported = errors.New("unsupported image format")

// Load reads and decodes the image at filePath. maxPx > 0 down-samples
// images whose longer side exceeds it.
func Load(filePath string, maxPx int) (image.Image, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return Decode(data, filePath, maxPx)
}

// Decode decodes data. name is only used for its extension: ".svg" is
// rasterised, anything else goes through the registered raster decoders.
func Decode(data []byte, name string, maxPx int) (image.Image, error) {
	ext := strings.ToLower(filepath.Ext(name))

	var img image.Image
	var err error
	if ext == ".svg" || looksLikeSVG(data) {
		img, err = decodeSVG(data)
	} else {
		img, _, err = image.Decode(bytes.NewReader(data))
		if errors.Is(err, image.ErrFormat) {
			return nil, errors.Join(ErrUnsupported, errors.New(ext))
		}
	}
	if err != nil {
		return nil, err
	}
	return limit(img, maxPx), nil
}

func limit(img image.Image, maxPx int) image.Image {
	if maxPx <= 0 {
		return img
	}
	b := img.Bounds()
	if b.Dx() <= maxPx && b.Dy() <= maxPx {
		return img
	}
	return resize.Thumbnail(uint(maxPx), uint(maxPx), img, resize.Bilinear)
}

func looksLikeSVG(data []byte) bool {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.Contains(bytes.ToLower(head), []byte("<svg"))
}
