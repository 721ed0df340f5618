//go:build darwin || freebsd || linux

package vulkan

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/ebitengine/purego"
)

// defaultLibraries lists the loader names tried when no path is configured.
func defaultLibraries() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{
			"libvulkan.1.dylib",
			"libvulkan.dylib",
			"/usr/local/lib/libvulkan.1.dylib",
			"/opt/homebrew/lib/libvulkan.1.dylib",
			"libMoltenVK.dylib",
		}
	default:
		return []string{"libvulkan.so.1", "libvulkan.so"}
	}
}

// loadLibrary opens the Vulkan loader and returns its handle and path.
func loadLibrary(path string) (uintptr, string, error) {
	candidates := defaultLibraries()
	if path != "" {
		candidates = []string{path}
	}

	var failures []string
	for _, name := range candidates {
		lib, err := purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err == nil {
			return lib, name, nil
		}
		failures = append(failures, fmt.Sprintf("%s: %v", name, err))
	}
	return 0, "", fmt.Errorf("%w: %s", ErrVulkanNotAvailable, strings.Join(failures, "; "))
}

// registerFunctions resolves every entry point in symbols() against lib.
func registerFunctions(lib uintptr) error {
	for name, fptr := range symbols() {
		addr, err := purego.Dlsym(lib, name)
		if err != nil {
			return fmt.Errorf("%w: missing symbol %s: %v", ErrVulkanNotAvailable, name, err)
		}
		purego.RegisterFunc(fptr, addr)
	}
	return nil
}

// closeLibrary releases a handle returned by loadLibrary.
func closeLibrary(lib uintptr) {
	_ = purego.Dlclose(lib)
}
