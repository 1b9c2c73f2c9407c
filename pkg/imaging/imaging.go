// Package imaging shrinks uploaded profile pictures.
package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // Register PNG decoder

	"golang.org/x/image/draw"
)

const (
	MaxIconDimension = 256
	IconQuality      = 85
)

// Fit returns the size of a width×height image scaled down, keeping its
// aspect ratio, so neither side exceeds maxDimension.
func Fit(width, height, maxDimension int) (int, int) {
	if width <= maxDimension && height <= maxDimension {
		return width, height
	}
	if width > height {
		h := int(float64(height) * float64(maxDimension) / float64(width))
		return maxDimension, max(h, 1)
	}
	w := int(float64(width) * float64(maxDimension) / float64(height))
	return max(w, 1), maxDimension
}

// Compress decodes data, scales it to fit maxDimension and re-encodes it as
// JPEG with the given quality.
func Compress(data []byte, maxDimension, quality int) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image (format: %s): %w", format, err)
	}

	bounds := img.Bounds()
	width, height := Fit(bounds.Dx(), bounds.Dy(), maxDimension)

	resized := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// IconDataURL turns an uploaded picture into a JPEG data URL small enough to
// store on the profile record.
func IconDataURL(data []byte) (string, error) {
	compressed, err := Compress(data, MaxIconDimension, IconQuality)
	if err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(compressed), nil
}
