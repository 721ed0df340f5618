package vecadd

import "errors"

var (
	// ErrInvalidConfig means the run configuration failed validation.
	ErrInvalidConfig = errors.New("vecadd: invalid configuration")

	// ErrKernelRead means no kernel candidate path could be read.
	ErrKernelRead = errors.New("vecadd: failed to read kernel")

	// ErrInvalidKernel means the kernel file is not SPIR-V.
	ErrInvalidKernel = errors.New("vecadd: invalid SPIR-V kernel")

	// ErrVerification means the device result differs from the host reference.
	ErrVerification = errors.New("vecadd: result verification failed")
)
