// Package art turns embedded cover pictures into framed ASCII thumbnails.
package art

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// Width and Height are the thumbnail size in characters, frame included
	Width  = 40
	Height = 20

	// Ramp maps brightness to characters, darkest first
	Ramp = " .:-=+*#%@"
)

// Render decodes an encoded picture and returns Height lines of Width
// characters. When data is empty or cannot be decoded the placeholder is
// returned, along with the decode error if there was one.
func Render(data []byte) ([]string, error) {
	if len(data) == 0 {
		return Placeholder(), nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Placeholder(), fmt.Errorf("decode cover art: %w", err)
	}
	return FromImage(img), nil
}

// FromImage scales img into the frame interior and maps each cell to Ramp
func FromImage(img image.Image) []string {
	inner := image.Rect(0, 0, Width-2, Height-2)
	gray := image.NewGray(inner)
	draw.ApproxBiLinear.Scale(gray, inner, img, img.Bounds(), draw.Src, nil)

	grid := frame()
	for y := 0; y < inner.Dy(); y++ {
		for x := 0; x < inner.Dx(); x++ {
			grid[y+1][x+1] = shade(gray.GrayAt(x, y))
		}
	}
	return lines(grid)
}

func shade(c color.Gray) byte {
	i := int(c.Y) * (len(Ramp) - 1) / 255
	return Ramp[i]
}

// frame returns an empty grid with a +--+ border
func frame() [][]byte {
	grid := make([][]byte, Height)
	for y := range grid {
		row := []byte(strings.Repeat(" ", Width))
		row[0], row[Width-1] = '|', '|'
		if y == 0 || y == Height-1 {
			for x := range row {
				row[x] = '-'
			}
			row[0], row[Width-1] = '+', '+'
		}
		grid[y] = row
	}
	return grid
}

func lines(grid [][]byte) []string {
	out := make([]string, len(grid))
	for i, row := range grid {
		out[i] = string(row)
	}
	return out
}

var placeholder = []string{
	"ALBUM ARTWORK",
	"",
	"~ * ~",
	"+-------------+",
	"|  *       ~  |",
	"|             |",
	"|    ~   *    |",
	"|             |",
	"|  *       ~  |",
	"+-------------+",
	"",
	"NO IMAGE FOUND",
}

// Placeholder is shown for tracks and streams without a picture
func Placeholder() []string {
	grid := frame()
	top := (Height - 2 - len(placeholder)) / 2
	for i, text := range placeholder {
		left := (Width - 2 - len(text)) / 2
		copy(grid[top+i+1][left+1:], text)
	}
	return lines(grid)
}
