// Package imaging prepares tool photos for upload.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

// MaxUploadSize is the largest image a user may attach.
const MaxUploadSize = 5 << 20

// MaxDimension is the maximum width or height sent to the backend.
const MaxDimension = 1024

// MaxPixels caps width*height so a small, highly compressed file cannot
// expand into a huge bitmap.
const MaxPixels = 40_000_000

// JPEGQuality is the compression quality for re-encoded images.
const JPEGQuality = 85

// ErrTooLarge is returned for images over MaxUploadSize.
var ErrTooLarge = errors.New("Image must be 5MB or smaller")

// ErrTooManyPixels is returned for images over MaxPixels.
var ErrTooManyPixels = errors.New("Image dimensions are too large")

// AllowedMIME lists the accepted input MIME types.
var AllowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Upload is an image ready to attach to a multipart request.
type Upload struct {
	Filename string
	MIME     string
	Data     []byte
}

// Prepare reads an image, validates the format by sniffing bytes, and
// downscales it if larger than MaxDimension. Images already within bounds are
// passed through untouched, except WebP which is always re-encoded as JPEG.
func Prepare(filename string, r io.Reader) (*Upload, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}
	if len(data) > MaxUploadSize {
		return nil, ErrTooLarge
	}

	// Sniff actual MIME type from bytes (not trusting client headers).
	detected := http.DetectContentType(data)
	if !AllowedMIME[detected] {
		return nil, fmt.Errorf("unsupported image format: %s (PNG, JPG, GIF or WebP accepted)", detected)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, ErrTooManyPixels
	}
	if cfg.Width <= MaxDimension && cfg.Height <= MaxDimension && detected != "image/webp" {
		return &Upload{Filename: baseName(filename, detected), MIME: detected, Data: data}, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	img = downscale(img, MaxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}

	return &Upload{
		Filename: baseName(filename, "image/jpeg"),
		MIME:     "image/jpeg",
		Data:     buf.Bytes(),
	}, nil
}

// baseName strips any directory from the client filename and makes the
// extension match mime.
func baseName(filename, mime string) string {
	name := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	if name == "." || name == "/" || name == "" {
		name = "tool"
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))

	switch mime {
	case "image/png":
		return stem + ".png"
	case "image/gif":
		return stem + ".gif"
	default:
		return stem + ".jpg"
	}
}

// downscale resizes the image so neither dimension exceeds maxDim.
// Uses high-quality Catmull-Rom interpolation.
// Returns the original image if already within bounds.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	if w <= maxDim && h <= maxDim {
		return img
	}

	// Calculate new dimensions preserving aspect ratio.
	newW, newH := w, h
	if w > h {
		newW = maxDim
		newH = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		newH = maxDim
		newW = int(float64(w) * float64(maxDim) / float64(h))
	}

	newW = max(newW, 1)
	newH = max(newH, 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func init() {
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
	image.RegisterFormat("gif", "GIF8?a", gif.Decode, gif.DecodeConfig)
	image.RegisterFormat("webp", "RIFF????WEBPVP8", webp.Decode, webp.DecodeConfig)
}
