package avatar

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Deterministic(t *testing.T) {
	t.Parallel()
	for _, seed := range []string{"alice", "bob", "", "ünïcødé"} {
		first := Generate(seed)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, Generate(seed), "seed %q", seed)
		}
	}
}

func TestGenerate_DistinctSeeds(t *testing.T) {
	t.Parallel()
	assert.NotEqual(t, Generate("alice"), Generate("bob"))
}

func TestGenerate_WellFormedSVG(t *testing.T) {
	t.Parallel()
	markup := Generate("alice")

	assert.True(t, strings.HasPrefix(markup, "<svg "))
	assert.Contains(t, markup, `width="200"`)
	assert.Contains(t, markup, `height="200"`)

	var doc struct {
		XMLName xml.Name
		Width   string `xml:"width,attr"`
		Paths   []struct {
			D string `xml:"d,attr"`
		} `xml:"path"`
	}
	require.NoError(t, xml.Unmarshal([]byte(markup), &doc))
	assert.Equal(t, "svg", doc.XMLName.Local)
	require.Len(t, doc.Paths, 1)
	assert.NotEmpty(t, doc.Paths[0].D)
}

func TestGenerateSize_FallsBackOnTinySize(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Generate("alice"), GenerateSize("alice", 3))
	assert.Contains(t, GenerateSize("alice", 64), `width="64"`)
}

func TestCellPattern_MirroredAndNonEmpty(t *testing.T) {
	t.Parallel()
	for _, digest := range []uint64{0, 1, 0x7fff, 0xdeadbeefcafef00d} {
		cells := cellPattern(digest)
		filled := 0
		for row := 0; row < gridSize; row++ {
			for col := 0; col < gridSize; col++ {
				assert.Equal(t, cells[row][col], cells[row][gridSize-1-col])
				if cells[row][col] {
					filled++
				}
			}
		}
		assert.Positive(t, filled, "digest %x", digest)
	}
}
