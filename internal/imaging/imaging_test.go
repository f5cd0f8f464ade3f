package imaging

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"
)

func createTestJPEG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{255, 0, 0, 255})
		}
	}
	var buf bytes.Buffer
	jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

func createTestPNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{0, 0, 255, 255})
		}
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

func TestPrepareSmallJPEGPassesThrough(t *testing.T) {
	data := createTestJPEG(100, 100)
	up, err := Prepare("drill.jpeg", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Prepare JPEG: %v", err)
	}
	if up.MIME != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", up.MIME)
	}
	if !bytes.Equal(up.Data, data) {
		t.Error("expected small image to be passed through unchanged")
	}
	if up.Filename != "drill.jpg" {
		t.Errorf("expected drill.jpg, got %q", up.Filename)
	}
}

func TestPrepareSmallPNGKeepsFormat(t *testing.T) {
	up, err := Prepare("saw.png", bytes.NewReader(createTestPNG(100, 100)))
	if err != nil {
		t.Fatalf("Prepare PNG: %v", err)
	}
	if up.MIME != "image/png" || up.Filename != "saw.png" {
		t.Errorf("expected saw.png as image/png, got %s %s", up.Filename, up.MIME)
	}
}

func TestPrepareGIF(t *testing.T) {
	img := image.NewPaletted(image.Rect(0, 0, 20, 10), []color.Color{color.Black, color.White})
	var buf bytes.Buffer
	if err := gif.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}

	up, err := Prepare("ladder.gif", &buf)
	if err != nil {
		t.Fatalf("Prepare GIF: %v", err)
	}
	if up.MIME != "image/gif" {
		t.Errorf("expected image/gif, got %s", up.MIME)
	}
}

func TestPrepareDownscale(t *testing.T) {
	up, err := Prepare("big.png", bytes.NewReader(createTestPNG(2048, 1024)))
	if err != nil {
		t.Fatalf("Prepare large image: %v", err)
	}
	if up.MIME != "image/jpeg" || up.Filename != "big.jpg" {
		t.Errorf("expected re-encoded big.jpg, got %s %s", up.Filename, up.MIME)
	}

	img, _, err := image.Decode(bytes.NewReader(up.Data))
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != MaxDimension || bounds.Dy() != MaxDimension/2 {
		t.Errorf("expected %dx%d, got %dx%d", MaxDimension, MaxDimension/2, bounds.Dx(), bounds.Dy())
	}
}

func TestPrepareTooLarge(t *testing.T) {
	data := make([]byte, MaxUploadSize+1)
	copy(data, createTestJPEG(10, 10))

	_, err := Prepare("huge.jpg", bytes.NewReader(data))
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
}

// pngHeader returns the signature and IHDR chunk of a w x h grayscale PNG,
// which is all DecodeConfig reads.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 4+13)
	copy(ihdr, "IHDR")
	binary.BigEndian.PutUint32(ihdr[4:], w)
	binary.BigEndian.PutUint32(ihdr[8:], h)
	ihdr[12] = 8 // bit depth, then color type 0 (gray) and zeroed methods

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	binary.Write(&buf, binary.BigEndian, uint32(13))
	buf.Write(ihdr)
	binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(ihdr))
	return buf.Bytes()
}

func TestPrepareTooManyPixels(t *testing.T) {
	data := pngHeader(20000, 20000)
	if len(data) > 100 {
		t.Fatalf("expected a tiny file, got %d bytes", len(data))
	}

	_, err := Prepare("bomb.png", bytes.NewReader(data))
	if !errors.Is(err, ErrTooManyPixels) {
		t.Errorf("expected ErrTooManyPixels, got %v", err)
	}
}

func TestPrepareInvalidFormat(t *testing.T) {
	_, err := Prepare("notes.txt", bytes.NewReader([]byte("not an image")))
	if err == nil {
		t.Error("expected error for invalid format")
	}
}

func TestBaseName(t *testing.T) {
	tests := []struct {
		in, mime, expected string
	}{
		{"C:\\Users\\me\\photo.JPG", "image/jpeg", "photo.jpg"},
		{"../../etc/passwd.png", "image/png", "passwd.png"},
		{"", "image/jpeg", "tool.jpg"},
		{"hammer.webp", "image/jpeg", "hammer.jpg"},
	}
	for _, tt := range tests {
		if got := baseName(tt.in, tt.mime); got != tt.expected {
			t.Errorf("baseName(%q, %q) = %q, want %q", tt.in, tt.mime, got, tt.expected)
		}
	}
}
