//go:build windows

package vulkan

import (
	"fmt"

	"github.com/ebitengine/purego"
	"golang.org/x/sys/windows"
)

func defaultLibraries() []string {
	return []string{"vulkan-1.dll"}
}

// loadLibrary opens vulkan-1.dll (or the configured path) with LoadLibrary.
func loadLibrary(path string) (uintptr, string, error) {
	name := "vulkan-1.dll"
	if path != "" {
		name = path
	}
	handle, err := windows.LoadLibrary(name)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %s: %v", ErrVulkanNotAvailable, name, err)
	}
	return uintptr(handle), name, nil
}

// registerFunctions resolves every entry point with GetProcAddress.
func registerFunctions(lib uintptr) error {
	for name, fptr := range symbols() {
		addr, err := windows.GetProcAddress(windows.Handle(lib), name)
		if err != nil {
			return fmt.Errorf("%w: missing symbol %s: %v", ErrVulkanNotAvailable, name, err)
		}
		purego.RegisterFunc(fptr, addr)
	}
	return nil
}

// closeLibrary releases a handle returned by loadLibrary.
func closeLibrary(lib uintptr) {
	_ = windows.FreeLibrary(windows.Handle(lib))
}
