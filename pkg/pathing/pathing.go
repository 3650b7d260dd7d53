// Package pathing implements grid pathfinding and line-of-sight queries
// against a worldmap.Map, under a move-budget cap and a set of blocked
// positions (tiles occupied by a living unit other than the mover).
package pathing

import (
	"container/heap"

	"runeforge/pkg/worldmap"
)

// Position is an integer grid coordinate.
type Position struct {
	X, Y int
}

// Blockers reports whether a position is occupied by a living unit other
// than the one currently pathing.
type Blockers interface {
	Blocked(p Position) bool
}

// BlockerSet is a simple set-backed Blockers implementation.
type BlockerSet map[Position]bool

// Blocked implements Blockers.
func (b BlockerSet) Blocked(p Position) bool { return b[p] }

type node struct {
	pos    Position
	g, h   int
	parent *node
	index  int
}

func (n *node) f() int { return n.g + n.h }

type priorityQueue []*node

func (pq priorityQueue) Len() int { return len(pq) }

// Less orders by lowest F only. container/heap does not keep equal keys
// in insertion order, so among equal-F nodes the pop order is whatever
// the heap's sift operations leave; it is the same for the same push
// sequence, but it does not follow the +x-then-+y expansion order.
func (pq priorityQueue) Less(i, j int) bool { return pq[i].f() < pq[j].f() }

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x interface{}) {
	n := x.(*node)
	n.index = len(*pq)
	*pq = append(*pq, n)
}

func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	item.index = -1
	*pq = old[:n-1]
	return item
}

// FindPath returns the shortest 4-connected path from `from` to `to`
// whose length (in steps) does not exceed budget, avoiding non-walkable
// tiles and positions reported blocked. It returns (nil, false) if no
// such path exists; FindPath never errors, absence of a path is the only
// failure mode.
func FindPath(m *worldmap.Map, from, to Position, budget int, blockers Blockers) ([]Position, bool) {
	if from == to {
		return []Position{from}, true
	}
	if !walkableAndOpen(m, to, blockers) {
		return nil, false
	}

	open := &priorityQueue{}
	heap.Init(open)

	start := &node{pos: from, g: 0, h: manhattan(from, to)}
	heap.Push(open, start)

	best := map[Position]*node{from: start}
	closed := map[Position]bool{}

	for open.Len() > 0 {
		current := heap.Pop(open).(*node)
		if closed[current.pos] {
			continue
		}
		closed[current.pos] = true

		if current.pos == to {
			path := reconstruct(current)
			if len(path)-1 > budget {
				return nil, false
			}
			return path, true
		}
		if current.g >= budget {
			continue
		}

		for _, next := range neighborsOf(current.pos) {
			if closed[next] {
				continue
			}
			if next != to && !walkableAndOpen(m, next, blockers) {
				continue
			}
			tentativeG := current.g + 1
			existing, seen := best[next]
			if !seen || tentativeG < existing.g {
				n := &node{pos: next, g: tentativeG, h: manhattan(next, to), parent: current}
				best[next] = n
				heap.Push(open, n)
			}
		}
	}

	return nil, false
}

// Reachable returns the set of positions reachable from `from` within
// budget steps, a breadth-limited flood fill honoring the same
// walkability and blocker rules as FindPath.
func Reachable(m *worldmap.Map, from Position, budget int, blockers Blockers) map[Position]bool {
	result := map[Position]bool{from: true}
	frontier := []Position{from}
	dist := map[Position]int{from: 0}

	for len(frontier) > 0 {
		next := frontier[0]
		frontier = frontier[1:]
		d := dist[next]
		if d >= budget {
			continue
		}
		for _, n := range neighborsOf(next) {
			if result[n] {
				continue
			}
			if !walkableAndOpen(m, n, blockers) {
				continue
			}
			result[n] = true
			dist[n] = d + 1
			frontier = append(frontier, n)
		}
	}
	return result
}

// HasLOS reports whether the discrete Bresenham line from the center of
// a to the center of b crosses no tile with BlocksLOS=true. The two
// endpoints themselves are exempt from the check.
func HasLOS(m *worldmap.Map, a, b Position) bool {
	for _, p := range bresenhamLine(a, b) {
		if p == a || p == b {
			continue
		}
		if m.TileAt(p.X, p.Y).BlocksLOS() {
			return false
		}
	}
	return true
}

// Distance is the Chebyshev distance used for range checks.
func Distance(a, b Position) int {
	dx := absInt(a.X - b.X)
	dy := absInt(a.Y - b.Y)
	if dx > dy {
		return dx
	}
	return dy
}

// IsAdjacent reports Distance(a,b) <= 1.
func IsAdjacent(a, b Position) bool {
	return Distance(a, b) <= 1
}

func walkableAndOpen(m *worldmap.Map, p Position, blockers Blockers) bool {
	if !m.TileAt(p.X, p.Y).Walkable() {
		return false
	}
	if blockers != nil && blockers.Blocked(p) {
		return false
	}
	return true
}

// neighborsOf returns the 4-connected neighbors in a fixed +x, +y, -x,
// -y order so that the push order, and with it the search result, is
// deterministic. Ties among equal-F nodes are not resolved by this order
// (see Less).
func neighborsOf(p Position) []Position {
	return []Position{
		{X: p.X + 1, Y: p.Y},
		{X: p.X, Y: p.Y + 1},
		{X: p.X - 1, Y: p.Y},
		{X: p.X, Y: p.Y - 1},
	}
}

func manhattan(a, b Position) int {
	return absInt(a.X-b.X) + absInt(a.Y-b.Y)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func reconstruct(n *node) []Position {
	var path []Position
	for cur := n; cur != nil; cur = cur.parent {
		path = append([]Position{cur.pos}, path...)
	}
	return path
}

func bresenhamLine(a, b Position) []Position {
	var points []Position

	x0, y0, x1, y1 := a.X, a.Y, b.X, b.Y
	dx := absInt(x1 - x0)
	dy := -absInt(y1 - y0)
	sx, sy := 1, 1
	if x0 >= x1 {
		sx = -1
	}
	if y0 >= y1 {
		sy = -1
	}
	err := dx + dy

	x, y := x0, y0
	for {
		points = append(points, Position{X: x, Y: y})
		if x == x1 && y == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
	return points
}
