package uploader

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"

	// Source images may come from the camera roll in either format.
	_ "image/png"
)

// maxUploadBytes bounds the size of the JPEG sent to the blob store.
const maxUploadBytes = 2 << 20

// compressJPEG re-encodes the image at path as a JPEG no larger than
// maxBytes, stepping the quality down until it fits. When even the lowest
// quality setting overshoots, the smallest encoding is returned anyway:
// an oversized upload beats a stuck one.
func compressJPEG(path string, maxBytes int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	var buf bytes.Buffer
	for _, quality := range []int{75, 60, 45, 30} {
		buf.Reset()
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
		if buf.Len() <= maxBytes {
			break
		}
	}
	return buf.Bytes(), nil
}
