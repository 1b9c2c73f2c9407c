package security

import (
	"bytes"
	"errors"

	"github.com/gabriel-vasile/mimetype"
)

// ErrUnsupportedImage is returned for uploads that are not PNG or JPEG.
var ErrUnsupportedImage = errors.New("file is not a PNG or JPEG image")

// Magic byte signatures of the accepted image types
var magicBytes = map[string][]byte{
	"image/jpeg": {0xFF, 0xD8, 0xFF},
	"image/png":  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
}

// FileValidationResult contains the result of file validation
type FileValidationResult struct {
	Valid        bool
	DetectedMIME string
	Error        string
}

// ValidateImage checks an uploaded image in two layers: the sniffed MIME
// type must be on the whitelist, and the leading bytes must carry that
// type's signature. The filename and the client's Content-Type are never
// trusted.
func ValidateImage(data []byte) FileValidationResult {
	detected := mimetype.Detect(data)
	result := FileValidationResult{DetectedMIME: detected.String()}

	sig, ok := magicBytes[detected.String()]
	if !ok {
		result.Error = "MIME type not allowed: " + detected.String()
		return result
	}
	if !bytes.HasPrefix(data, sig) {
		result.Error = "file content does not match its type"
		return result
	}

	result.Valid = true
	return result
}

// CheckImage is ValidateImage reduced to an error.
func CheckImage(data []byte) error {
	if r := ValidateImage(data); !r.Valid {
		return ErrUnsupportedImage
	}
	return nil
}
