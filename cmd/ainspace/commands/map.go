package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kmh4500/ainspace/worldgen"
)

var (
	mapX      int
	mapY      int
	mapWidth  int
	mapHeight int
	mapRadius float64
)

var tileGlyphs = map[worldgen.TileID]byte{
	worldgen.Void:  ' ',
	worldgen.Grass: '.',
	worldgen.Dirt:  ':',
	worldgen.Water: '~',
	worldgen.Stone: '^',
}

// MapCmd prints an ASCII viewport of the procedural world.
var MapCmd = &cobra.Command{
	Use:   "map",
	Short: "Print a window of the procedural world",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if mapWidth <= 0 || mapHeight <= 0 {
			return fmt.Errorf("width and height must be positive")
		}
		var grid [][]worldgen.TileID
		if mapRadius > 0 {
			grid = worldgen.CircularWindow(mapX, mapY, mapWidth, mapHeight, mapRadius)
		} else {
			grid = worldgen.Window(mapX, mapY, mapWidth, mapHeight)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "center (%d, %d) biome %s\n", mapX, mapY, worldgen.BiomeAt(mapX, mapY))
		fmt.Fprint(out, renderMap(grid, mapWidth/2, mapHeight/2))
		fmt.Fprintln(out, ". grass  : dirt  ~ water  ^ stone  @ you")
		return nil
	},
}

func init() {
	MapCmd.Flags().IntVar(&mapX, "x", 0, "Center x")
	MapCmd.Flags().IntVar(&mapY, "y", 0, "Center y")
	MapCmd.Flags().IntVar(&mapWidth, "width", 41, "Viewport width in tiles")
	MapCmd.Flags().IntVar(&mapHeight, "height", 21, "Viewport height in tiles")
	MapCmd.Flags().Float64Var(&mapRadius, "radius", 0, "Blank tiles farther than this from the center")
}

func renderMap(grid [][]worldgen.TileID, px, py int) string {
	var b strings.Builder
	for j, row := range grid {
		for i, t := range row {
			if i == px && j == py {
				b.WriteByte('@')
				continue
			}
			g, ok := tileGlyphs[t]
			if !ok {
				g = '?'
			}
			b.WriteByte(g)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
