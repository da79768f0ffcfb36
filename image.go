package oreasset

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"io/ioutil"

	"github.com/nfnt/resize"
	"golang.org/x/image/bmp"
)

// PNGCodec reads png, gif, jpeg & bmp images and always writes png.
type PNGCodec struct{}

// Load implements ImageCodec
func (PNGCodec) Load(path string) (image.Image, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// Save implements ImageCodec
func (PNGCodec) Save(path string, img image.Image) error {
	buff := new(bytes.Buffer)
	err := png.Encode(buff, img)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path, buff.Bytes(), 0644)
}

// decode tries each decoder we know in turn
func decode(data []byte) (image.Image, error) {
	decoders := []func(io.Reader) (image.Image, error){
		png.Decode,
		gif.Decode,
		jpeg.Decode,
		bmp.Decode,
	}

	var lastErr error
	for _, decoder := range decoders {
		im, err := decoder(bytes.NewReader(data))
		if err == nil {
			return im, nil
		}
		lastErr = err
	}

	return nil, lastErr
}

// ImportOptions tweaks how ImportAtlas prepares an image.
type ImportOptions struct {
	// Gutter is the width in pixels of grid lines drawn between (and around)
	// tiles in the source image. They're cut out before anything else.
	Gutter int

	// Snap resizes the image to the nearest whole number of tiles. Without it
	// any partial tiles on the right & bottom edges are cropped off.
	Snap bool
}

// ImportAtlas reads the image at path and returns a new atlas (without a
// tileset) whose image is an exact multiple of tileSize.
func ImportAtlas(codec ImageCodec, path, name string, tileSize image.Point, opts *ImportOptions) (*Atlas, error) {
	if tileSize.X < 1 || tileSize.Y < 1 {
		return nil, fmt.Errorf("invalid tile size %v", tileSize)
	}
	if opts == nil {
		opts = &ImportOptions{}
	}

	in, err := codec.Load(path)
	if err != nil {
		return nil, err
	}

	if opts.Gutter > 0 {
		in = removeGutters(in, tileSize, opts.Gutter)
	}
	if opts.Snap {
		in = sizeToTiles(in, tileSize.X, tileSize.Y)
	} else {
		b := in.Bounds()
		in = cutOut(in, image.Rect(
			b.Min.X, b.Min.Y,
			b.Min.X+b.Dx()/tileSize.X*tileSize.X,
			b.Min.Y+b.Dy()/tileSize.Y*tileSize.Y,
		))
	}

	if in.Bounds().Dx() < tileSize.X || in.Bounds().Dy() < tileSize.Y {
		return nil, fmt.Errorf("image %s is smaller than one %v tile", path, tileSize)
	}

	return NewAtlas(name, tileSize, in), nil
}

// sizeToTiles forces input image to be of a width, height of some multiple(s)
// of given input tx,ty (tile x,y size in pixels).
// We default to 1 tile high/wide. Image will be resized to the nearest full
// tile (resized either up or down)
func sizeToTiles(in image.Image, tx, ty int) image.Image {
	width := in.Bounds().Dx()
	height := in.Bounds().Dy()

	fitx := width / tx
	fity := height / ty

	// more than half a tile short: grow to fit, otherwise shrink
	if width%tx > tx/2 {
		fitx++
	}
	if height%ty > ty/2 {
		fity++
	}

	if fitx < 1 {
		fitx = 1
	}
	if fity < 1 {
		fity = 1
	}
	if fitx*tx == width && fity*ty == height {
		return in
	}

	// pixel art: nearest neighbour keeps hard edges & the alpha key intact
	return resize.Resize(
		uint(fitx*tx),
		uint(fity*ty),
		in,
		resize.NearestNeighbor,
	)
}

// cutOut the rectangle marked by `r` from the given image
func cutOut(in image.Image, r image.Rectangle) image.Image {
	out := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), in, r.Min, draw.Src)
	return out
}

// removeGutters cuts tiles out from between grid lines of width `gutter`
// (there is a line before the first tile too) & glues them back together.
func removeGutters(in image.Image, tileSize image.Point, gutter int) image.Image {
	bnds := in.Bounds()
	tilesWide := (bnds.Dx() - gutter) / (tileSize.X + gutter)
	tilesHigh := (bnds.Dy() - gutter) / (tileSize.Y + gutter)
	if tilesWide < 1 || tilesHigh < 1 {
		return in
	}

	dst := image.NewNRGBA(image.Rect(0, 0, tileSize.X*tilesWide, tileSize.Y*tilesHigh))
	for ty := 0; ty < tilesHigh; ty++ {
		for tx := 0; tx < tilesWide; tx++ {
			drect := image.Rect(tx*tileSize.X, ty*tileSize.Y, (tx+1)*tileSize.X, (ty+1)*tileSize.Y)
			spnt := bnds.Min.Add(image.Pt(
				gutter+tx*(tileSize.X+gutter),
				gutter+ty*(tileSize.Y+gutter),
			))
			draw.Draw(dst, drect, in, spnt, draw.Src)
		}
	}
	return dst
}
