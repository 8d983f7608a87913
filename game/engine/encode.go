package engine

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/jpeg"
)

// jpegQuality trades size for fidelity; frames are small and pushed 15 times
// a second, so bandwidth wins.
const jpegQuality = 85

// EncodeFrame encodes a frame as a JPEG data URI suitable for direct use as
// an <img> source in the browser client.
func EncodeFrame(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
