package source

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// svgMinSide is the resolution the longer side of small SVG view boxes is
// scaled up to, so icons sized in tens of units still sample smoothly.
const svgMinSide = 1024

func decodeSVG(data []byte) (image.Image, error) {
	svgIcon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	viewBoxW := svgIcon.ViewBox.W
	viewBoxH := svgIcon.ViewBox.H
	if viewBoxW <= 0 || viewBoxH <= 0 {
		return nil, errors.New("svg has no view box")
	}

	scale := 1.0
	if long := math.Max(viewBoxW, viewBoxH); long < svgMinSide {
		scale = svgMinSide / long
	}
	width := int(math.Ceil(viewBoxW * scale))
	height := int(math.Ceil(viewBoxH * scale))
	svgIcon.SetTarget(0, 0, float64(width), float64(height))

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(width, height, img, img.Bounds())
	scanner.SetClip(img.Bounds())
	raster := rasterx.NewDasher(width, height, scanner)

	svgIcon.Draw(raster, 1.0)
	return img, nil
}
