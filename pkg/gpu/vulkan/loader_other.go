//go:build !darwin && !freebsd && !linux && !windows

package vulkan

func defaultLibraries() []string { return nil }

func loadLibrary(path string) (uintptr, string, error) {
	return 0, "", ErrVulkanNotAvailable
}

func registerFunctions(lib uintptr) error {
	return ErrVulkanNotAvailable
}

func closeLibrary(lib uintptr) {}
