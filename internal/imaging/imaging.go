// Package imaging turns uploaded profile pictures into small square JPEGs.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
)

// Limits for profile pictures.
const (
	AvatarSize   = 256
	MaxUploadLen = 5 << 20
	JPEGQuality  = 85
)

// ErrUnsupported is returned for anything other than JPEG or PNG input.
var ErrUnsupported = errors.New("unsupported image format")

// Avatar is a processed profile picture.
type Avatar struct {
	Data []byte
	MIME string
}

// ProcessAvatar sniffs the upload, crops it to a centered square, scales it
// down to AvatarSize and re-encodes it as JPEG. Client-supplied content
// types are ignored.
func ProcessAvatar(r io.Reader) (*Avatar, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadLen+1))
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}
	if len(data) > MaxUploadLen {
		return nil, fmt.Errorf("image larger than %d bytes", MaxUploadLen)
	}

	switch detected := http.DetectContentType(data); detected {
	case "image/jpeg", "image/png":
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	img = squareThumbnail(img, AvatarSize)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}

	return &Avatar{Data: buf.Bytes(), MIME: "image/jpeg"}, nil
}

// squareThumbnail crops the largest centered square and scales it to at
// most size pixels per side. Small images are cropped but never upscaled.
func squareThumbnail(img image.Image, size int) image.Image {
	b := img.Bounds()
	side := min(b.Dx(), b.Dy())
	x0 := b.Min.X + (b.Dx()-side)/2
	y0 := b.Min.Y + (b.Dy()-side)/2
	crop := image.Rect(x0, y0, x0+side, y0+side)

	out := min(side, size)
	if out < 1 {
		out = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, out, out))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, crop, draw.Src, nil)
	return dst
}
