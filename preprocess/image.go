package preprocess

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DecodeImage decodes any of the registered formats (jpeg, png, bmp,
// tiff, webp).
func DecodeImage(r io.Reader) (image.Image, string, error) {
	return image.Decode(r)
}

// ImageToHWC flattens img into interleaved 8-bit pixels, three channels
// per pixel in RGB order (or BGR when bgr is set), the layout Letterbox
// consumes.
func ImageToHWC(img image.Image, bgr bool) (pix []uint8, w, h int) {
	b := img.Bounds()
	w, h = b.Dx(), b.Dy()
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(rgba, rgba.Bounds(), img, b.Min, xdraw.Src)

	pix = make([]uint8, 0, w*h*3)
	for i := 0; i < len(rgba.Pix); i += 4 {
		r, g, bl := rgba.Pix[i], rgba.Pix[i+1], rgba.Pix[i+2]
		if bgr {
			r, bl = bl, r
		}
		pix = append(pix, r, g, bl)
	}
	return pix, w, h
}

// Thumbnail downsizes img so its longer side is at most maxSide, using
// Catmull-Rom resampling. Smaller images are returned unchanged.
func Thumbnail(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSide <= 0 || (w <= maxSide && h <= maxSide) {
		return img
	}
	if w >= h {
		h = h * maxSide / w
		w = maxSide
	} else {
		w = w * maxSide / h
		h = maxSide
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}
