// Package layout implements the compact block-layout grammar used to
// describe convolutional architectures, and the compiler that turns a
// residual block description into per-repetition build plans.
//
// A layout is a string of single-letter operation tags, e.g. "cnacna"
// for conv-norm-activation twice. The grammar:
//
//	c, C    convolution, separable convolution
//	w, W    depthwise convolution, depthwise transposed convolution
//	t, T    transposed convolution, separable transposed convolution
//	n       batch normalization
//	a       activation
//	p       max pooling
//	d       dropout (or DropBlock when a block size is configured)
//	V       global average pooling
//	f       dense (fully connected)
//	B       branch point (capture input for a side branch)
//	+, .    merge the side branch back: add or concatenate
package layout

import (
	"fmt"
	"strings"
)

// Kind identifies the operation class of a layout tag.
type Kind int

const (
	KindConv Kind = iota
	KindNorm
	KindActivation
	KindPool
	KindDropout
	KindGlobalPool
	KindDense
	KindBranch
	KindMerge
)

// ConvVariant distinguishes the convolution tags. Only Op values with
// Kind == KindConv carry a meaningful variant.
type ConvVariant int

const (
	ConvStandard ConvVariant = iota // c
	ConvSeparable                   // C
	ConvDepthwise                   // w
	ConvDepthwiseTransposed         // W
	ConvTransposed                  // t
	ConvSeparableTransposed         // T
)

// MergeOp selects how a side branch is combined with the trunk.
type MergeOp int

const (
	MergeAdd    MergeOp = iota // +
	MergeConcat                // .
)

// Op is a single parsed layout operation.
type Op struct {
	Kind  Kind
	Conv  ConvVariant
	Merge MergeOp
}

// Layout is a parsed sequence of operations.
type Layout []Op

var tagToOp = map[rune]Op{
	'c': {Kind: KindConv, Conv: ConvStandard},
	'C': {Kind: KindConv, Conv: ConvSeparable},
	'w': {Kind: KindConv, Conv: ConvDepthwise},
	'W': {Kind: KindConv, Conv: ConvDepthwiseTransposed},
	't': {Kind: KindConv, Conv: ConvTransposed},
	'T': {Kind: KindConv, Conv: ConvSeparableTransposed},
	'n': {Kind: KindNorm},
	'a': {Kind: KindActivation},
	'p': {Kind: KindPool},
	'd': {Kind: KindDropout},
	'V': {Kind: KindGlobalPool},
	'f': {Kind: KindDense},
	'B': {Kind: KindBranch},
	'+': {Kind: KindMerge, Merge: MergeAdd},
	'.': {Kind: KindMerge, Merge: MergeConcat},
}

var opToTag = map[Kind]rune{
	KindNorm:       'n',
	KindActivation: 'a',
	KindPool:       'p',
	KindDropout:    'd',
	KindGlobalPool: 'V',
	KindDense:      'f',
	KindBranch:     'B',
}

var convToTag = map[ConvVariant]rune{
	ConvStandard:            'c',
	ConvSeparable:           'C',
	ConvDepthwise:           'w',
	ConvDepthwiseTransposed: 'W',
	ConvTransposed:          't',
	ConvSeparableTransposed: 'T',
}

// Parse converts a layout string into its operation sequence.
// Spaces are ignored. An unknown tag is an error.
func Parse(s string) (Layout, error) {
	ops := make(Layout, 0, len(s))
	for _, r := range s {
		if r == ' ' {
			continue
		}
		op, ok := tagToOp[r]
		if !ok {
			return nil, fmt.Errorf("layout: unknown tag %q in %q", r, s)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// MustParse is Parse for layouts known at compile time. It panics on error.
func MustParse(s string) Layout {
	l, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return l
}

// String reconstructs the layout string.
func (l Layout) String() string {
	var b strings.Builder
	for _, op := range l {
		switch op.Kind {
		case KindConv:
			b.WriteRune(convToTag[op.Conv])
		case KindMerge:
			if op.Merge == MergeConcat {
				b.WriteRune('.')
			} else {
				b.WriteRune('+')
			}
		default:
			b.WriteRune(opToTag[op.Kind])
		}
	}
	return b.String()
}

// NumConvs counts the convolution operations in the layout. Every
// convolution variant counts, including transposed and separable ones.
func (l Layout) NumConvs() int {
	n := 0
	for _, op := range l {
		if op.Kind == KindConv {
			n++
		}
	}
	return n
}
