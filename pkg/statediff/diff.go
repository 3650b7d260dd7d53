// Package statediff computes and applies path-based deltas between two
// snapshots of the same struct shape. It backs the session engine's
// broadcast path: rather than resend the whole game state after every
// accepted action, the engine diffs the state before and after and
// streams only what changed.
//
// Paths are dot-separated, JSON-pointer-like keys built from lowerCamel
// field names, map keys, and slice indices, e.g. "units.A.hp" or
// "combat.turn.movementRemaining". Diff and Apply are each other's
// inverse: apply(diff(a, b), a) reconstructs b, field for field.
package statediff

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"unicode"
)

// Change is one leaf (or, for additions/removals/length changes, one
// whole subtree) that differs between two snapshots.
type Change struct {
	Path  string
	Value interface{}
}

// Delta is the result of diffing one session version against the next.
type Delta struct {
	FromVersion uint64
	ToVersion   uint64
	Changes     []Change
}

// Diff walks before and after in lockstep and returns every path at
// which they differ. before and after must be the same type, normally
// two *sim.GameState values (one the pre-action clone, one the result
// of Execute). Changes are sorted by path for a stable wire encoding.
func Diff(fromVersion, toVersion uint64, before, after interface{}) Delta {
	var changes []Change
	walk("", reflect.ValueOf(before), reflect.ValueOf(after), &changes)
	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return Delta{FromVersion: fromVersion, ToVersion: toVersion, Changes: changes}
}

func walk(path string, before, after reflect.Value, out *[]Change) {
	before = indirect(before)
	after = indirect(after)

	if !after.IsValid() {
		if before.IsValid() {
			*out = append(*out, Change{Path: path, Value: nil})
		}
		return
	}
	if !before.IsValid() || before.Type() != after.Type() {
		*out = append(*out, Change{Path: path, Value: after.Interface()})
		return
	}

	switch after.Kind() {
	case reflect.Struct:
		t := after.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.PkgPath != "" {
				continue // unexported
			}
			walk(join(path, fieldName(f)), before.Field(i), after.Field(i), out)
		}

	case reflect.Map:
		for _, key := range unionMapKeys(before, after) {
			rk := reflect.ValueOf(key)
			bv := before.MapIndex(rk)
			av := after.MapIndex(rk)
			walk(join(path, key), bv, av, out)
		}

	case reflect.Slice:
		if before.Len() != after.Len() {
			// A length change is reported as one wholesale replacement
			// rather than per-index edits past the shorter length, which
			// Apply could never express as an in-place field set.
			*out = append(*out, Change{Path: path, Value: after.Interface()})
			return
		}
		for i := 0; i < after.Len(); i++ {
			walk(join(path, strconv.Itoa(i)), before.Index(i), after.Index(i), out)
		}

	default:
		if !reflect.DeepEqual(before.Interface(), after.Interface()) {
			*out = append(*out, Change{Path: path, Value: after.Interface()})
		}
	}
}

// indirect dereferences a pointer, reporting a nil pointer as invalid
// (not present) rather than as its zero value, so a newly-allocated
// *Unit in a map diffs as a whole addition, not a field-by-field one.
func indirect(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return reflect.Value{}
		}
		return v.Elem()
	}
	return v
}

func unionMapKeys(before, after reflect.Value) []string {
	seen := make(map[string]bool)
	var keys []string
	add := func(v reflect.Value) {
		if !v.IsValid() {
			return
		}
		for _, k := range v.MapKeys() {
			s := fmt.Sprint(k.Interface())
			if !seen[s] {
				seen[s] = true
				keys = append(keys, s)
			}
		}
	}
	add(before)
	add(after)
	sort.Strings(keys)
	return keys
}

func join(path, segment string) string {
	if path == "" {
		return segment
	}
	return path + "." + segment
}

// fieldName maps an exported Go struct field to its wire-path segment:
// the same name with its leading run of upper-case letters lowercased
// (HP -> hp, HPMax -> hpMax, MovementRemaining -> movementRemaining),
// matching the lowerCamel keys used throughout the wire protocol's
// payload encoding.
func fieldName(f reflect.StructField) string {
	if f.Name == "" {
		return f.Name
	}
	r := []rune(f.Name)
	n := 0
	for n < len(r) && unicode.IsUpper(r[n]) {
		n++
	}
	if n > 1 && n < len(r) && unicode.IsLower(r[n]) {
		n--
	}
	for i := 0; i < n; i++ {
		r[i] = unicode.ToLower(r[i])
	}
	return string(r)
}
