package options

// Value is a node in an options tree. Exactly three kinds exist: Scalar,
// Sequence and Mapping. Trees are built at decode boundaries via FromAny and
// flattened back with ToAny; everything in between operates on the tagged
// forms and never re-inspects underlying Go types.
type Value interface {
	isValue()
}

// Scalar is a leaf value: strings, numbers, booleans, nil, or any other
// value the tree does not recurse into.
type Scalar struct {
	Val any
}

// Sequence is an ordered list of values. Merging treats sequences as
// atomic: an overriding sequence replaces the default wholesale.
type Sequence []Value

// Mapping is a string-keyed collection of values. It is the only kind the
// merge recurses into.
type Mapping map[string]Value

func (Scalar) isValue()   {}
func (Sequence) isValue() {}
func (Mapping) isValue()  {}

// FromAny converts a plain decoded value (as produced by the yaml, toml and
// json decoders) into a tagged tree. String-keyed maps become Mappings,
// slices become Sequences, everything else becomes a Scalar. Structs and
// other opaque composites land in Scalar and are therefore replaced
// wholesale on merge rather than recursed into.
func FromAny(v any) Value {
	switch t := v.(type) {
	case map[string]any:
		m := make(Mapping, len(t))
		for k, mv := range t {
			m[k] = FromAny(mv)
		}
		return m
	case []any:
		s := make(Sequence, len(t))
		for i, sv := range t {
			s[i] = FromAny(sv)
		}
		return s
	case Value:
		return t
	default:
		return Scalar{Val: v}
	}
}

// ToAny flattens a tagged tree back into plain maps, slices and scalars.
func ToAny(v Value) any {
	switch t := v.(type) {
	case Mapping:
		m := make(map[string]any, len(t))
		for k, mv := range t {
			m[k] = ToAny(mv)
		}
		return m
	case Sequence:
		s := make([]any, len(t))
		for i, sv := range t {
			s[i] = ToAny(sv)
		}
		return s
	case Scalar:
		return t.Val
	default:
		return nil
	}
}

// Merge combines a defaults tree with user overrides and returns a new
// Mapping. Neither input is mutated. Keys unique to either side are carried
// over; where both sides hold a Mapping the merge recurses; for every other
// combination the user value wins wholesale, sequences included.
func Merge(defaults, user Mapping) Mapping {
	merged := make(Mapping, len(defaults)+len(user))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, uv := range user {
		if dm, ok := merged[k].(Mapping); ok {
			if um, ok := uv.(Mapping); ok {
				merged[k] = Merge(dm, um)
				continue
			}
		}
		merged[k] = uv
	}
	return merged
}

// MergeMaps is the plain-map convenience over Merge for call sites that
// decode straight into map[string]any.
func MergeMaps(defaults, user map[string]any) map[string]any {
	dm, _ := FromAny(defaults).(Mapping)
	um, _ := FromAny(user).(Mapping)
	if dm == nil {
		dm = Mapping{}
	}
	merged := ToAny(Merge(dm, um))
	result, _ := merged.(map[string]any)
	return result
}
