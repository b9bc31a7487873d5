package renderer

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capturePNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := imaging.New(width, height, color.NRGBA{R: 40, G: 80, B: 120, A: 255})

	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))

	return buf.Bytes()
}

func TestFitToBox(t *testing.T) {
	tests := []struct {
		name         string
		srcW, srcH   int
		wantW, wantH int
	}{
		{"downscale wide capture", 1920, 1080, 1200, 630},
		{"square target", 1920, 1080, 600, 600},
		{"upscale small capture", 400, 300, 1200, 630},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := fitToBox(capturePNG(t, tt.srcW, tt.srcH), tt.wantW, tt.wantH)
			require.NoError(t, err)

			decoded, format, err := image.Decode(bytes.NewReader(out))
			require.NoError(t, err)
			assert.Equal(t, "png", format)
			assert.Equal(t, tt.wantW, decoded.Bounds().Dx())
			assert.Equal(t, tt.wantH, decoded.Bounds().Dy())
		})
	}
}

func TestFitToBoxRejectsGarbage(t *testing.T) {
	_, err := fitToBox([]byte("not an image"), 1200, 630)
	assert.Error(t, err)
}
