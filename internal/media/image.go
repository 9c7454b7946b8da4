package media

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
)

const (
	// MaxImageBytes caps uploaded image size before decoding.
	MaxImageBytes = 10 * 1024 * 1024

	// maxDimension is the largest side we send to the vision model.
	maxDimension = 1024

	jpegQuality = 90
)

// NormalizeImage decodes an uploaded image and re-encodes it into the
// canonical form used for hashing and inference: JPEG, max side 1024px,
// aspect ratio preserved. The canonical bytes are what get fingerprinted,
// so the same logical image always normalizes identically.
func NormalizeImage(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("image is empty")
	}
	if len(raw) > MaxImageBytes {
		return nil, fmt.Errorf("image too large (%d bytes, max %d)", len(raw), MaxImageBytes)
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	img = downscale(img)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode %s image as jpeg: %w", format, err)
	}
	return buf.Bytes(), nil
}

// downscale shrinks the image so its longest side is at most maxDimension.
func downscale(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDimension && h <= maxDimension {
		return img
	}

	var nw, nh int
	if w >= h {
		nw = maxDimension
		nh = h * maxDimension / w
	} else {
		nh = maxDimension
		nw = w * maxDimension / h
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}
