// Package avatar renders deterministic identicons used as default profile
// pictures.
package avatar

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// DefaultSize is the rendered width and height in pixels.
const DefaultSize = 200

const (
	gridSize    = 5
	halfColumns = (gridSize + 1) / 2
)

// Generate renders the identicon for seed at DefaultSize.
func Generate(seed string) string {
	return GenerateSize(seed, DefaultSize)
}

// GenerateSize renders the identicon for seed as an SVG document of size x size
// pixels. The same seed and size always produce identical markup.
func GenerateSize(seed string, size int) string {
	if size < gridSize*2 {
		size = DefaultSize
	}
	digest := xxhash.Sum64String(seed)

	cells := cellPattern(digest)
	hue := int((digest >> 16) % 360)
	saturation := 45 + int((digest>>28)%21)
	lightness := 45 + int((digest>>36)%16)

	padding := size / 12
	cell := (size - 2*padding) / gridSize
	// Recentre after integer division so the grid stays square.
	offset := (size - cell*gridSize) / 2

	var b strings.Builder
	b.Grow(512)
	sz := strconv.Itoa(size)
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="`)
	b.WriteString(sz)
	b.WriteString(`" height="`)
	b.WriteString(sz)
	b.WriteString(`" viewBox="0 0 `)
	b.WriteString(sz)
	b.WriteByte(' ')
	b.WriteString(sz)
	b.WriteString(`"><rect width="100%" height="100%" fill="#f2f2f2"/><path fill="hsl(`)
	b.WriteString(strconv.Itoa(hue))
	b.WriteByte(',')
	b.WriteString(strconv.Itoa(saturation))
	b.WriteString(`%,`)
	b.WriteString(strconv.Itoa(lightness))
	b.WriteString(`%)" d="`)
	cs := strconv.Itoa(cell)
	for row := 0; row < gridSize; row++ {
		for col := 0; col < gridSize; col++ {
			if !cells[row][col] {
				continue
			}
			b.WriteByte('M')
			b.WriteString(strconv.Itoa(offset + col*cell))
			b.WriteByte(' ')
			b.WriteString(strconv.Itoa(offset + row*cell))
			b.WriteByte('h')
			b.WriteString(cs)
			b.WriteByte('v')
			b.WriteString(cs)
			b.WriteString("h-")
			b.WriteString(cs)
			b.WriteByte('z')
		}
	}
	b.WriteString(`"/></svg>`)
	return b.String()
}

// cellPattern fills the left half plus centre column from the low digest bits
// and mirrors it onto the right half.
func cellPattern(digest uint64) [gridSize][gridSize]bool {
	var cells [gridSize][gridSize]bool
	filled := 0
	for row := 0; row < gridSize; row++ {
		for col := 0; col < halfColumns; col++ {
			bit := uint(row*halfColumns + col)
			on := digest&(1<<bit) != 0
			cells[row][col] = on
			cells[row][gridSize-1-col] = on
			if on {
				filled++
			}
		}
	}
	if filled == 0 {
		cells[gridSize/2][gridSize/2] = true
	}
	return cells
}
