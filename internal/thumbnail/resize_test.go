package thumbnail

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(w, h)))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(w, h), &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

// noisyImage has no structure an encoder could exploit.
func noisyImage(w, h int) *image.RGBA {
	rng := rand.New(rand.NewSource(42))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	rng.Read(img.Pix)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

func decodedSize(t *testing.T, data []byte) (int, int, string) {
	t.Helper()
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	return cfg.Width, cfg.Height, format
}

func TestResize_KeepsAspectRatio(t *testing.T) {
	tests := []struct {
		name       string
		data       []byte
		width      int
		wantHeight int
		wantFormat string
	}{
		{name: "png stays png", data: encodePNG(t, 1000, 500), width: 250, wantHeight: 125, wantFormat: "png"},
		{name: "jpeg stays jpeg", data: encodeJPEG(t, 800, 600), width: 100, wantHeight: 75, wantFormat: "jpeg"},
		{name: "tall image", data: encodePNG(t, 600, 1200), width: 250, wantHeight: 500, wantFormat: "png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Resize(tt.data, tt.width)
			require.NoError(t, err)

			w, h, format := decodedSize(t, out)
			assert.Equal(t, tt.width, w)
			assert.Equal(t, tt.wantHeight, h)
			assert.Equal(t, tt.wantFormat, format)
		})
	}
}

func TestResize_GIFBecomesJPEG(t *testing.T) {
	var buf bytes.Buffer
	pal := image.NewPaletted(image.Rect(0, 0, 400, 200), color.Palette{color.Black, color.White})
	require.NoError(t, gif.Encode(&buf, pal, nil))

	out, err := Resize(buf.Bytes(), 100)
	require.NoError(t, err)

	w, h, format := decodedSize(t, out)
	assert.Equal(t, 100, w)
	assert.Equal(t, 50, h)
	assert.Equal(t, "jpeg", format)
}

func TestResize_NeverUpscales(t *testing.T) {
	data := encodePNG(t, 120, 80)

	for _, width := range []int{120, 250, 500} {
		out, err := Resize(data, width)
		require.NoError(t, err)
		assert.Equal(t, data, out)
	}
}

func TestResize_Errors(t *testing.T) {
	_, err := Resize([]byte("definitely not an image"), 100)
	assert.ErrorIs(t, err, ErrUndecodable)

	_, err = Resize(encodePNG(t, 10, 10), 0)
	assert.ErrorIs(t, err, ErrInvalidWidth)
}

func TestSource_ConcurrentResize(t *testing.T) {
	src, err := Decode(encodeJPEG(t, 640, 480))
	require.NoError(t, err)
	assert.Equal(t, 640, src.Width())
	assert.Equal(t, 480, src.Height())
	assert.Equal(t, "jpeg", src.Format())

	widths := []int{500, 250, 100}
	results := make([][]byte, len(widths))
	done := make(chan struct{})
	for i, w := range widths {
		go func(i, w int) {
			defer func() { done <- struct{}{} }()
			out, err := src.Resize(w)
			if err == nil {
				results[i] = out
			}
		}(i, w)
	}
	for range widths {
		<-done
	}

	for i, w := range widths {
		require.NotNil(t, results[i])
		gotW, _, _ := decodedSize(t, results[i])
		assert.Equal(t, w, gotW)
	}
}

func TestResize_NeverLargerThanSource(t *testing.T) {
	var lowQuality bytes.Buffer
	require.NoError(t, jpeg.Encode(&lowQuality, noisyImage(600, 400), &jpeg.Options{Quality: 10}))
	var noisyPNG bytes.Buffer
	require.NoError(t, png.Encode(&noisyPNG, noisyImage(600, 400)))

	tests := []struct {
		name string
		data []byte
	}{
		{name: "heavily compressed jpeg", data: lowQuality.Bytes()},
		{name: "noisy png", data: noisyPNG.Bytes()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, width := range []int{500, 250, 100} {
				out, err := Resize(tt.data, width)
				require.NoError(t, err)
				assert.NotEmpty(t, out)
				assert.LessOrEqual(t, len(out), len(tt.data), "%dpx artifact", width)
				_, _, err = image.DecodeConfig(bytes.NewReader(out))
				assert.NoError(t, err)
			}
		})
	}
}
