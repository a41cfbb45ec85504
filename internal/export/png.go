/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"pagecraft/internal/domain"
)

// Thumbnail size bounds in pixels.
const (
	DefaultThumbWidth = 480
	MaxThumbWidth     = 4096
	MaxThumbHeight    = 4096
)

// PNGOptions controls thumbnail rendering.
// Width is the output width in pixels (0 means 480, capped at 4096); height
// follows the layout's aspect ratio up to MaxHeight (0 means 4096). A layout
// too tall for the box is scaled down to fit it, narrowing the image.
// Labels are drawn when a box is tall enough.
type PNGOptions struct {
	Width     int
	MaxHeight int
	Labels    bool
	Stroke RGB
	Fill   RGB
	Text   RGB
}

// Thumbnail rasterizes cfg's visible components.
func Thumbnail(cfg domain.Configuration, opt PNGOptions) (*image.RGBA, error) {
	ext, err := pageExtent(cfg)
	if err != nil {
		return nil, err
	}
	if opt.Width <= 0 {
		opt.Width = DefaultThumbWidth
	}
	if opt.Width > MaxThumbWidth {
		opt.Width = MaxThumbWidth
	}
	if opt.MaxHeight <= 0 || opt.MaxHeight > MaxThumbHeight {
		opt.MaxHeight = MaxThumbHeight
	}
	if opt.Stroke.zero() {
		opt.Stroke = defaultStroke
	}
	if opt.Fill.zero() {
		opt.Fill = defaultFill
	}
	if opt.Text.zero() {
		opt.Text = defaultText
	}
	const pad = 4
	if opt.Width <= 2*pad || opt.MaxHeight <= 2*pad {
		return nil, fmt.Errorf("%w: thumbnail box %dx%d", ErrExtent, opt.Width, opt.MaxHeight)
	}
	scale := math.Min(float64(opt.Width-2*pad)/ext.W, float64(opt.MaxHeight-2*pad)/ext.H)
	pixW := min(opt.Width, int(math.Ceil(ext.W*scale))+2*pad)
	pixH := min(opt.MaxHeight, int(math.Ceil(ext.H*scale))+2*pad)

	img := image.NewRGBA(image.Rect(0, 0, pixW, pixH))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{255, 255, 255, 255}}, image.Point{}, draw.Src)

	face := basicfont.Face7x13
	for _, c := range paintOrder(cfg) {
		x0 := pad + int(math.Round((c.Position.X-ext.X)*scale))
		y0 := pad + int(math.Round((c.Position.Y-ext.Y)*scale))
		x1 := x0 + int(math.Round(c.Size.Width*scale)) - 1
		y1 := y0 + int(math.Round(c.Size.Height*scale)) - 1
		if x1 < x0 {
			x1 = x0
		}
		if y1 < y0 {
			y1 = y0
		}
		fillRect(img, x0, y0, x1, y1, opt.Fill.rgba())
		strokeRect(img, x0, y0, x1, y1, opt.Stroke.rgba())

		if opt.Labels && y1-y0 > face.Height+2 && x1-x0 > face.Width*2 {
			clip := img.SubImage(image.Rect(x0+1, y0+1, x1, y1)).(*image.RGBA)
			d := &font.Drawer{
				Dst:  clip,
				Src:  image.NewUniform(opt.Text.rgba()),
				Face: face,
				Dot:  fixed.P(x0+3, y0+1+face.Ascent),
			}
			d.DrawString(label(c))
		}
	}
	return img, nil
}

// WriteThumbnailPNG renders cfg and writes it to outPath.
func WriteThumbnailPNG(cfg domain.Configuration, outPath string, opt PNGOptions) error {
	img, err := Thumbnail(cfg, opt)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close png: %w", err)
	}
	return nil
}

// strokeRect draws a 1px axis-aligned rectangle border inclusive of endpoints.
func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y0, col)
		img.SetRGBA(x, y1, col)
	}
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x0, y, col)
		img.SetRGBA(x1, y, col)
	}
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	draw.Draw(img, image.Rect(x0, y0, x1+1, y1+1), &image.Uniform{C: col}, image.Point{}, draw.Src)
}
