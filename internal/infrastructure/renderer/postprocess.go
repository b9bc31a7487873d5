package renderer

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

// fitToBox center-crops the capture to the requested aspect ratio and
// resizes it to exactly width x height, re-encoded as PNG.
func fitToBox(data []byte, width, height int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("fitToBox - imaging.Decode: %w", err)
	}

	fitted := imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	err = imaging.Encode(&buf, fitted, imaging.PNG)
	if err != nil {
		return nil, fmt.Errorf("fitToBox - imaging.Encode: %w", err)
	}

	return buf.Bytes(), nil
}
