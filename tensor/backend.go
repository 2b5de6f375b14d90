// Copyright 2025 BlockNet ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/blocknet-ml/blocknet/internal/tensor"
)

// Backend is the interface compute backends implement. Backends operate
// on RawTensors; the generic Tensor wrapper adds type safety on top.
//
// Implementations:
//   - CPU: pure Go with gonum-backed matrix multiply (backend/cpu)
type Backend = tensor.Backend
