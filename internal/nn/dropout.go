package nn

import (
	"fmt"

	exprand "golang.org/x/exp/rand"

	"github.com/blocknet-ml/blocknet/internal/tensor"
)

// Dropout randomly zeroes elements with probability rate during training
// and rescales the survivors by 1/(1-rate) so the expected activation
// magnitude is unchanged (inverted dropout). In inference mode, or with
// rate 0, Forward returns its input untouched.
type Dropout[B tensor.Backend] struct {
	rate     float64
	training bool
	src      exprand.Source // nil uses the process-global source
	backend  B
}

// NewDropout creates a Dropout layer. The layer starts in training mode.
func NewDropout[B tensor.Backend](rate float64, backend B) *Dropout[B] {
	if rate < 0 || rate >= 1 {
		panic(fmt.Sprintf("dropout: rate must be in [0, 1), got %g", rate))
	}
	return &Dropout[B]{rate: rate, training: true, backend: backend}
}

// Train switches the layer between training and inference behavior.
func (d *Dropout[B]) Train(training bool) {
	d.training = training
}

// Seed makes the layer sample from a deterministic source.
func (d *Dropout[B]) Seed(seed uint64) {
	d.src = exprand.NewSource(seed)
}

// Forward applies inverted dropout. An exact no-op outside training or with
// rate 0.
func (d *Dropout[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if !d.training || d.rate == 0 {
		return input
	}

	keep := tensor.Bernoulli[float32](input.Shape(), 1-d.rate, d.src, d.backend)
	return input.Mul(keep).MulScalar(float32(1 / (1 - d.rate)))
}

// Parameters returns an empty slice (Dropout has no trainable parameters).
func (d *Dropout[B]) Parameters() []*Parameter[B] {
	return nil
}

// String returns a string representation of the layer.
func (d *Dropout[B]) String() string {
	return fmt.Sprintf("Dropout(rate=%g)", d.rate)
}
