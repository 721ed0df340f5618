package vecadd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadKernelFallback(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.spv")
	present := writeKernel(t, fakeSPIRV...)

	k, err := LoadKernel([]string{missing, present})
	require.NoError(t, err)
	assert.Equal(t, present, k.Path)
	assert.Equal(t, fakeSPIRV, k.Code)
}

func TestLoadKernelFirstPathWins(t *testing.T) {
	first := writeKernel(t, SPIRVMagic, 1)
	second := writeKernel(t, SPIRVMagic, 2)

	k, err := LoadKernel([]string{first, second})
	require.NoError(t, err)
	assert.Equal(t, first, k.Path)
	assert.Equal(t, uint32(1), k.Code[1])
}

func TestLoadKernelAggregatesReadErrors(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.spv")
	b := filepath.Join(dir, "b.spv")

	_, err := LoadKernel([]string{a, b})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrKernelRead)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), a)
	assert.Contains(t, err.Error(), b)

	_, err = LoadKernel(nil)
	assert.ErrorIs(t, err, ErrKernelRead)
}

func TestLoadKernelInvalidStopsSearch(t *testing.T) {
	bad := writeKernel(t, 0x12345678)
	good := writeKernel(t, fakeSPIRV...)

	_, err := LoadKernel([]string{bad, good})
	assert.ErrorIs(t, err, ErrInvalidKernel)
	assert.Contains(t, err.Error(), bad)
}

func TestValidateSPIRV(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr bool
	}{
		{"empty", nil, true},
		{"not word aligned", []byte{0x03, 0x02, 0x23, 0x07, 0x00}, true},
		{"big endian magic", []byte{0x07, 0x23, 0x02, 0x03}, true},
		{"magic only", []byte{0x03, 0x02, 0x23, 0x07}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			words, err := ValidateSPIRV(tt.data)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidKernel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []uint32{SPIRVMagic}, words)
		})
	}
}
