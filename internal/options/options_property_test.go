//go:build property

package options

import (
	"fmt"
	"math/rand"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// randomMapping builds a bounded random options tree from a seeded source so
// failures reproduce from the gopter seed alone.
func randomMapping(r *rand.Rand, depth int) Mapping {
	m := make(Mapping)
	for i := 0; i < r.Intn(4)+1; i++ {
		key := fmt.Sprintf("k%d", r.Intn(6))
		m[key] = randomValue(r, depth)
	}
	return m
}

func randomValue(r *rand.Rand, depth int) Value {
	if depth <= 0 {
		return Scalar{Val: r.Intn(100)}
	}
	switch r.Intn(4) {
	case 0:
		return randomMapping(r, depth-1)
	case 1:
		seq := make(Sequence, r.Intn(3))
		for i := range seq {
			seq[i] = randomValue(r, depth-1)
		}
		return seq
	case 2:
		return Scalar{Val: fmt.Sprintf("s%d", r.Intn(100))}
	default:
		return Scalar{Val: r.Intn(100)}
	}
}

func deepCopy(v Value) Value {
	switch t := v.(type) {
	case Mapping:
		m := make(Mapping, len(t))
		for k, mv := range t {
			m[k] = deepCopy(mv)
		}
		return m
	case Sequence:
		s := make(Sequence, len(t))
		for i, sv := range t {
			s[i] = deepCopy(sv)
		}
		return s
	default:
		return t
	}
}

// TestMergeProperties validates structural merge invariants over random trees
func TestMergeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234)
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	// Property: Merged keys are exactly the union of input keys
	properties.Property("result keys are the union of input keys", prop.ForAll(
		func(seed int64) bool {
			r := rand.New(rand.NewSource(seed))
			defaults := randomMapping(r, 3)
			user := randomMapping(r, 3)

			merged := Merge(defaults, user)

			for k := range defaults {
				if _, ok := merged[k]; !ok {
					return false
				}
			}
			for k := range user {
				if _, ok := merged[k]; !ok {
					return false
				}
			}
			for k := range merged {
				_, inDefaults := defaults[k]
				_, inUser := user[k]
				if !inDefaults && !inUser {
					return false
				}
			}
			return true
		},
		gen.Int64(),
	))

	// Property: Keys present only in user carry the user value unchanged
	properties.Property("user values win for user-only and conflicting keys", prop.ForAll(
		func(seed int64) bool {
			r := rand.New(rand.NewSource(seed))
			defaults := randomMapping(r, 2)
			user := randomMapping(r, 2)

			merged := Merge(defaults, user)

			for k, uv := range user {
				dv, inDefaults := defaults[k]
				_, dIsMap := dv.(Mapping)
				_, uIsMap := uv.(Mapping)
				if inDefaults && dIsMap && uIsMap {
					continue
				}
				if !reflect.DeepEqual(merged[k], uv) {
					return false
				}
			}
			return true
		},
		gen.Int64(),
	))

	// Property: Merging a tree with itself yields the same tree
	properties.Property("merge is idempotent", prop.ForAll(
		func(seed int64) bool {
			r := rand.New(rand.NewSource(seed))
			m := randomMapping(r, 3)

			return reflect.DeepEqual(Merge(m, m), m)
		},
		gen.Int64(),
	))

	// Property: Neither input tree is mutated by the merge
	properties.Property("inputs are never mutated", prop.ForAll(
		func(seed int64) bool {
			r := rand.New(rand.NewSource(seed))
			defaults := randomMapping(r, 3)
			user := randomMapping(r, 3)
			defaultsBefore := deepCopy(defaults)
			userBefore := deepCopy(user)

			Merge(defaults, user)

			return reflect.DeepEqual(Value(defaults), defaultsBefore) &&
				reflect.DeepEqual(Value(user), userBefore)
		},
		gen.Int64(),
	))

	// Property: FromAny then ToAny reproduces plain decoder output
	properties.Property("FromAny and ToAny round-trip plain trees", prop.ForAll(
		func(seed int64) bool {
			r := rand.New(rand.NewSource(seed))
			plain := ToAny(randomMapping(r, 3))

			return reflect.DeepEqual(ToAny(FromAny(plain)), plain)
		},
		gen.Int64(),
	))

	properties.TestingRun(t)
}
