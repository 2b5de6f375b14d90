// Package cpu implements the tensor.Backend interface in pure Go.
package cpu

import (
	"github.com/blocknet-ml/blocknet/internal/tensor"
)

// CPUBackend executes tensor operations on the host CPU.
type CPUBackend struct {
	device tensor.Device
}

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{device: tensor.CPU}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "cpu"
}

// Device returns the device this backend computes on.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}
