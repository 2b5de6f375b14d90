package layout

import (
	"fmt"
	"strconv"
	"strings"
)

type filterKind int

const (
	filterLiteral filterKind = iota
	filterSameAsInput
	filterScaledInput
)

// FilterSpec describes an output-channel count for one convolution.
// It is either a literal number, the block's input channel count, or
// the input channel count scaled by a factor.
type FilterSpec struct {
	kind   filterKind
	n      int
	factor int
}

// Literal returns a spec for a fixed channel count.
func Literal(n int) FilterSpec {
	return FilterSpec{kind: filterLiteral, n: n}
}

// Literals builds a literal spec per value.
func Literals(ns ...int) []FilterSpec {
	specs := make([]FilterSpec, len(ns))
	for i, n := range ns {
		specs[i] = Literal(n)
	}
	return specs
}

// SameAsInput returns a spec that resolves to the block's input channels.
func SameAsInput() FilterSpec {
	return FilterSpec{kind: filterSameAsInput}
}

// ScaledInput returns a spec that resolves to factor times the block's
// input channels.
func ScaledInput(factor int) FilterSpec {
	return FilterSpec{kind: filterScaledInput, factor: factor}
}

// Resolve evaluates the spec against the known input channel count.
func (f FilterSpec) Resolve(inChannels int) (int, error) {
	switch f.kind {
	case filterLiteral:
		if f.n <= 0 {
			return 0, fmt.Errorf("layout: filter count must be positive, got %d", f.n)
		}
		return f.n, nil
	case filterSameAsInput:
		if inChannels <= 0 {
			return 0, fmt.Errorf("layout: cannot resolve same-as-input filters, input channels unknown")
		}
		return inChannels, nil
	case filterScaledInput:
		if inChannels <= 0 {
			return 0, fmt.Errorf("layout: cannot resolve scaled-input filters, input channels unknown")
		}
		if f.factor <= 0 {
			return 0, fmt.Errorf("layout: filter scale factor must be positive, got %d", f.factor)
		}
		return inChannels * f.factor, nil
	default:
		return 0, fmt.Errorf("layout: invalid filter spec")
	}
}

func (f FilterSpec) String() string {
	switch f.kind {
	case filterSameAsInput:
		return "same"
	case filterScaledInput:
		return fmt.Sprintf("same*%d", f.factor)
	default:
		return strconv.Itoa(f.n)
	}
}

// ParseFilterSpec reads a single spec from its string form: a decimal
// number, "same" (or the shorthand "S"), or "same*K" for an integer
// scale K.
func ParseFilterSpec(s string) (FilterSpec, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return Literal(n), nil
	}
	if s == "same" || s == "S" {
		return SameAsInput(), nil
	}
	for _, prefix := range []string{"same*", "S*"} {
		if rest, ok := strings.CutPrefix(s, prefix); ok {
			k, err := strconv.Atoi(strings.TrimSpace(rest))
			if err != nil {
				return FilterSpec{}, fmt.Errorf("layout: bad filter scale in %q", s)
			}
			return ScaledInput(k), nil
		}
	}
	return FilterSpec{}, fmt.Errorf("layout: bad filter spec %q", s)
}
