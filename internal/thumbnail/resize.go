// Package thumbnail scales uploaded images down to fixed widths.
package thumbnail

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
)

// MaxDecodedBytes caps the decoded RGBA size of a source image.
// A crafted header can claim huge dimensions and make image.Decode allocate gigabytes.
const MaxDecodedBytes int64 = 256 << 20

// jpegQualities are tried in order until the output is no larger than the source.
var jpegQualities = []int{85, 70, 50, 30}

var (
	// ErrUndecodable is returned when the bytes are not an image in a supported format.
	ErrUndecodable = errors.New("undecodable image")
	// ErrTooLarge is returned when the decoded image would exceed MaxDecodedBytes.
	ErrTooLarge = errors.New("image too large")
	// ErrInvalidWidth is returned for non-positive target widths.
	ErrInvalidWidth = errors.New("invalid thumbnail width")
)

// Source is a decoded image ready to be scaled. It is safe for concurrent use.
type Source struct {
	raw    []byte
	img    image.Image
	format string
}

// Decode checks the image header and decodes data.
func Decode(data []byte) (*Source, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if int64(cfg.Width)*int64(cfg.Height)*4 > MaxDecodedBytes {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	return &Source{raw: data, img: img, format: format}, nil
}

// Width is the source width in pixels.
func (s *Source) Width() int { return s.img.Bounds().Dx() }

// Height is the source height in pixels.
func (s *Source) Height() int { return s.img.Bounds().Dy() }

// Format is the name of the decoder that read the source ("png", "jpeg", "gif").
func (s *Source) Format() string { return s.format }

// Resize scales the source to width keeping the aspect ratio.
// Sources already at most width pixels wide are returned unchanged.
// PNG sources are encoded as PNG, everything else as JPEG. The result is never larger
// in bytes than the source: lower JPEG qualities are tried first, then the source itself
// is returned.
func (s *Source) Resize(width int) ([]byte, error) {
	if width <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWidth, width)
	}
	if width >= s.Width() {
		return s.raw, nil
	}

	height := s.Height() * width / s.Width()
	if height < 1 {
		height = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), s.img, s.img.Bounds(), draw.Src, nil)

	if s.format == "png" {
		var buf bytes.Buffer
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, dst); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
		return s.smallest(buf.Bytes()), nil
	}

	var out []byte
	for _, quality := range jpegQualities {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
		out = buf.Bytes()
		if len(out) <= len(s.raw) {
			return out, nil
		}
	}
	return s.smallest(out), nil
}

// smallest returns encoded unless the source bytes are smaller.
func (s *Source) smallest(encoded []byte) []byte {
	if len(encoded) > len(s.raw) {
		return s.raw
	}
	return encoded
}

// Resize decodes data and scales it to width in one step.
func Resize(data []byte, width int) ([]byte, error) {
	src, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return src.Resize(width)
}
