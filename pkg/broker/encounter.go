package broker

import (
	"fmt"

	"runeforge/pkg/sim"
)

var difficultyScale = map[string]float64{
	"easy":   0.75,
	"normal": 1.0,
	"hard":   1.5,
}

// scaleEncounter adapts a caller-supplied template roster to the
// requested count and difficulty: it truncates or cycles the template
// to reach count, then scales combat stats by the difficulty factor.
// A nil or empty template with count > 0 yields no monsters at all,
// since there is nothing to clone from; the caller's spawnMonsters
// factory is expected to always produce at least one template unit.
func scaleEncounter(template []*sim.Unit, count int, difficulty string) []*sim.Unit {
	if count <= 0 || len(template) == 0 {
		return applyDifficulty(template, difficulty)
	}

	out := make([]*sim.Unit, count)
	for i := 0; i < count; i++ {
		src := template[i%len(template)]
		clone := *src
		clone.ID = fmt.Sprintf("%s-%d", src.ID, i)
		clone.Position = sim.Position{X: src.Position.X + i, Y: src.Position.Y}
		out[i] = &clone
	}
	return applyDifficulty(out, difficulty)
}

func applyDifficulty(units []*sim.Unit, difficulty string) []*sim.Unit {
	factor, ok := difficultyScale[difficulty]
	if !ok || factor == 1.0 {
		return units
	}
	for _, u := range units {
		u.Attack = scaleStat(u.Attack, factor)
		u.Defense = scaleStat(u.Defense, factor)
		u.HP = scaleStat(u.HP, factor)
		u.HPMax = u.HP
	}
	return units
}

func scaleStat(v int, factor float64) int {
	scaled := int(float64(v)*factor + 0.5)
	if scaled < 1 {
		scaled = 1
	}
	return scaled
}
