package sim

import (
	"math"
	"math/rand"
	"strconv"
)

// monsterTemplate is the base stat block for one archetype before
// per-encounter scaling is applied by the caller (pkg/broker's
// difficulty/monster-count knobs operate on the roster this returns).
type monsterTemplate struct {
	archetype                       string
	hp, attack, defense, initiative int
	moveRange, attackRange          int
}

// DefaultMonsterTemplates is the published roster of spawnable monster
// archetypes, in the same three species DefaultLootTable pays out for.
var DefaultMonsterTemplates = []monsterTemplate{
	{archetype: "goblin", hp: 8, attack: 3, defense: 1, initiative: 3, moveRange: 4, attackRange: 1},
	{archetype: "skeleton", hp: 12, attack: 4, defense: 2, initiative: 2, moveRange: 3, attackRange: 1},
	{archetype: "orc", hp: 18, attack: 6, defense: 3, initiative: 1, moveRange: 3, attackRange: 1},
}

// DefaultSpawnMonsters builds a monster roster for a freshly started
// encounter: count monsters drawn round-robin from DefaultMonsterTemplates,
// scattered across a ring of starting tiles far enough from the player
// spawn cluster (see defaultPlayerUnit in pkg/session) not to start
// adjacent to a player. Deterministic in (mapSeed, prngSeed, existing).
func DefaultSpawnMonsters(count int) func(mapSeed int32, prngSeed int64, existing int) []*Unit {
	return func(mapSeed int32, prngSeed int64, existing int) []*Unit {
		if count <= 0 {
			return nil
		}
		rng := rand.New(rand.NewSource(prngSeed ^ int64(mapSeed)))
		units := make([]*Unit, 0, count)
		for i := 0; i < count; i++ {
			tpl := DefaultMonsterTemplates[i%len(DefaultMonsterTemplates)]
			angle := float64(i) * (2 * math.Pi / float64(count))
			radius := 6 + rng.Intn(3)
			x := int(float64(radius) * math.Cos(angle))
			y := int(float64(radius) * math.Sin(angle))
			units = append(units, &Unit{
				ID:          "monster-" + strconv.Itoa(existing+i),
				Kind:        UnitMonster,
				Archetype:   tpl.archetype,
				Position:    Position{X: x, Y: y},
				HP:          tpl.hp,
				HPMax:       tpl.hp,
				Attack:      tpl.attack,
				Defense:     tpl.defense,
				Initiative:  tpl.initiative,
				MoveRange:   tpl.moveRange,
				AttackRange: tpl.attackRange,
			})
		}
		return units
	}
}
