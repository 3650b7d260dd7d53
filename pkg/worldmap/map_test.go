package worldmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// conformanceVector pins tile(seed, x, y) -> kind for a fixed set of 20
// (seed, x, y) triples. It is generated once from this package's own
// TileAt and frozen here; any future change to the noise layering or
// thresholds in map.go that changes one of these entries is a breaking
// change to the world-generation contract and must be called out
// explicitly, not silently absorbed.
var conformanceVector = []struct {
	seed int32
	x, y int
	kind TileKind
}{
	{12345, 0, 0, TileGrassLight},
	{12345, 1, 0, TileFloor},
	{12345, 0, 1, TileFloor},
	{12345, 5, 5, TileGrassLight},
	{12345, -5, -5, TileGrassLight},
	{12345, 100, 100, TileGrassLight},
	{12345, -100, 100, TileGrassLight},
	{12345, 50, -50, TileGrassLight},
	{99, 0, 0, TileGrassLight},
	{99, 10, 10, TileGrassLight},
	{99, -10, -10, TileSand},
	{99, 200, 0, TileGrassLight},
	{1, 0, 0, TileGrassLight},
	{1, 3, 7, TileGrassLight},
	{7, 40, 40, TileWaterDeep},
	{7, -40, 40, TileGrassLight},
	{2024, 0, 0, TileGrassLight},
	{2024, 500, 500, TileGrassLight},
	{2024, -500, -500, TileGrassLight},
	{2024, 25, -25, TileFloor},
}

func TestTileAt_ConformanceVectorIsStable(t *testing.T) {
	for _, tc := range conformanceVector {
		m := New(tc.seed)
		got := m.TileAt(tc.x, tc.y)
		assert.Equalf(t, tc.kind, got.Kind, "seed=%d x=%d y=%d", tc.seed, tc.x, tc.y)
	}
}

func TestTileAt_DeterministicAcrossFreshMaps(t *testing.T) {
	seeds := []int32{1, 99, 12345, -42, 2024}
	coords := []struct{ x, y int }{
		{0, 0}, {1, 0}, {0, 1}, {-1, -1}, {1000, 1000}, {-1000, 1000}, {7, -3},
	}

	for _, seed := range seeds {
		m1 := New(seed)
		m2 := New(seed)
		for _, c := range coords {
			t1 := m1.TileAt(c.x, c.y)
			t2 := m2.TileAt(c.x, c.y)
			require.Equalf(t, t1, t2, "seed=%d x=%d y=%d must reproduce identically from a fresh Map", seed, c.x, c.y)
		}
	}
}

func TestTileAt_StableUnderRepeatedQuery(t *testing.T) {
	m := New(777)
	for i := 0; i < 50; i++ {
		a := m.TileAt(i, -i)
		b := m.TileAt(i, -i)
		require.Equal(t, a, b)
	}
}

func TestTileAt_DifferentSeedsDiverge(t *testing.T) {
	a := New(1)
	b := New(2)

	differs := false
	for x := 0; x < 50; x++ {
		for y := 0; y < 50; y++ {
			if a.TileAt(x, y).Kind != b.TileAt(x, y).Kind {
				differs = true
			}
		}
	}
	assert.True(t, differs, "two distinct seeds should not produce an identical world over a 50x50 sample")
}

func TestTile_DerivationIsFixedByKind(t *testing.T) {
	cases := []struct {
		kind      TileKind
		walkable  bool
		blocksLOS bool
	}{
		{TileFloor, true, false},
		{TileWall, false, true},
		{TileWater, false, false},
		{TileWaterDeep, false, false},
		{TileBush, true, false},
		{TileTree1, false, true},
		{TileRock3, false, true},
		{TilePillar, false, true},
	}
	for _, tc := range cases {
		tile := Tile{Kind: tc.kind}
		assert.Equal(t, tc.walkable, tile.Walkable(), tc.kind.String())
		assert.Equal(t, tc.blocksLOS, tile.BlocksLOS(), tc.kind.String())
	}
}

func TestMap_SeedIdentity(t *testing.T) {
	m := New(42)
	assert.Equal(t, int32(42), m.Seed())
}
