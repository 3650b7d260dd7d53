package worldmap

// TileKind identifies the terrain type occupying a single grid cell.
type TileKind int

const (
	TileFloor TileKind = iota
	TileGrassLight
	TileGrassDark
	TileDirt
	TileSand
	TileWater
	TileWaterDeep
	TileWall
	TilePillar
	TileRock1
	TileRock2
	TileRock3
	TileRock4
	TileRock5
	TileTree1
	TileTree2
	TileTree3
	TileTree4
	TileTree5
	TileBush
)

// tileKindCount must track the number of TileKind constants above; it
// sizes the name and derivation tables below.
const tileKindCount = int(TileBush) + 1

var tileNames = [tileKindCount]string{
	TileFloor:      "floor",
	TileGrassLight: "grass-light",
	TileGrassDark:  "grass-dark",
	TileDirt:       "dirt",
	TileSand:       "sand",
	TileWater:      "water",
	TileWaterDeep:  "water-deep",
	TileWall:       "wall",
	TilePillar:     "pillar",
	TileRock1:      "rock-1",
	TileRock2:      "rock-2",
	TileRock3:      "rock-3",
	TileRock4:      "rock-4",
	TileRock5:      "rock-5",
	TileTree1:      "tree-1",
	TileTree2:      "tree-2",
	TileTree3:      "tree-3",
	TileTree4:      "tree-4",
	TileTree5:      "tree-5",
	TileBush:       "bush",
}

// String returns the canonical kind name, matching the data model's
// `kind` enumeration.
func (k TileKind) String() string {
	if k < 0 || int(k) >= tileKindCount {
		return "unknown"
	}
	return tileNames[k]
}

// walkableByKind and blocksLOSByKind are fixed derivations: a kind always
// carries the same two booleans, with no per-tile override.
var walkableByKind = [tileKindCount]bool{
	TileFloor:      true,
	TileGrassLight: true,
	TileGrassDark:  true,
	TileDirt:       true,
	TileSand:       true,
	TileWater:      false,
	TileWaterDeep:  false,
	TileWall:       false,
	TilePillar:     false,
	TileRock1:      false,
	TileRock2:      false,
	TileRock3:      false,
	TileRock4:      false,
	TileRock5:      false,
	TileTree1:      false,
	TileTree2:      false,
	TileTree3:      false,
	TileTree4:      false,
	TileTree5:      false,
	TileBush:       true,
}

var blocksLOSByKind = [tileKindCount]bool{
	TileFloor:      false,
	TileGrassLight: false,
	TileGrassDark:  false,
	TileDirt:       false,
	TileSand:       false,
	TileWater:      false,
	TileWaterDeep:  false,
	TileWall:       true,
	TilePillar:     true,
	TileRock1:      true,
	TileRock2:      true,
	TileRock3:      true,
	TileRock4:      true,
	TileRock5:      true,
	TileTree1:      true,
	TileTree2:      true,
	TileTree3:      true,
	TileTree4:      true,
	TileTree5:      true,
	TileBush:       false,
}

// Tile is a value object: its two derived booleans follow only from Kind.
type Tile struct {
	Kind TileKind
}

// Walkable reports whether a living unit may occupy this tile.
func (t Tile) Walkable() bool {
	return walkableByKind[t.Kind]
}

// BlocksLOS reports whether this tile blocks a line-of-sight ray passing
// through it.
func (t Tile) BlocksLOS() bool {
	return blocksLOSByKind[t.Kind]
}
