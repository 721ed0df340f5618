package vecadd

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
)

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic uint32 = 0x07230203

// Kernel is a loaded SPIR-V module.
type Kernel struct {
	Path string
	Code []uint32
}

// LoadKernel reads the first readable path in paths and validates it as
// SPIR-V. Paths are tried in order; once a file is read, a validation
// failure is returned without trying the rest.
func LoadKernel(paths []string) (*Kernel, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no candidate paths", ErrKernelRead)
	}

	var errs *multierror.Error
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		code, err := ValidateSPIRV(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return &Kernel{Path: path, Code: code}, nil
	}
	return nil, fmt.Errorf("%w: %w", ErrKernelRead, errs.ErrorOrNil())
}

// ValidateSPIRV checks that data is a plausible little-endian SPIR-V module
// and returns it as 32-bit words.
func ValidateSPIRV(data []byte) ([]uint32, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: size %d is not a positive multiple of 4", ErrInvalidKernel, len(data))
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	if words[0] != SPIRVMagic {
		return nil, fmt.Errorf("%w: bad magic %#08x", ErrInvalidKernel, words[0])
	}
	return words, nil
}
