package vulkan

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrVulkanNotAvailable = errors.New("vulkan: Vulkan is not available (library not found)")
	ErrNativeCall         = errors.New("vulkan: native call failed")
	ErrNoPhysicalDevice   = errors.New("vulkan: no GPU with Vulkan support found")
	ErrNoQueueFamily      = errors.New("vulkan: no queue family with compute support found")
	ErrNoMemoryType       = errors.New("vulkan: no host-visible, host-coherent memory type found")
	ErrReleased           = errors.New("vulkan: handle already released")
	ErrOutOfRange         = errors.New("vulkan: access exceeds buffer size")
)

// Error reports a Vulkan call that returned a non-success status.
// errors.Is(err, ErrNativeCall) matches every *Error.
type Error struct {
	Op     string
	Result VkResult
}

func (e *Error) Error() string {
	return fmt.Sprintf("vulkan: %s failed: %s (code %d)", e.Op, e.Result, int32(e.Result))
}

// Is reports whether target is ErrNativeCall.
func (e *Error) Is(target error) bool {
	return target == ErrNativeCall
}

// check converts a status code into an *Error, or nil on VK_SUCCESS.
func check(op string, result VkResult) error {
	if result == VK_SUCCESS {
		return nil
	}
	return &Error{Op: op, Result: result}
}

// ResultOf extracts the Vulkan status code carried by err.
func ResultOf(err error) (VkResult, bool) {
	var verr *Error
	if errors.As(err, &verr) {
		return verr.Result, true
	}
	return 0, false
}

var resultNames = map[VkResult]string{
	VK_SUCCESS:                        "VK_SUCCESS",
	VK_NOT_READY:                      "VK_NOT_READY",
	VK_TIMEOUT:                        "VK_TIMEOUT",
	VK_EVENT_SET:                      "VK_EVENT_SET",
	VK_EVENT_RESET:                    "VK_EVENT_RESET",
	VK_INCOMPLETE:                     "VK_INCOMPLETE",
	VK_ERROR_OUT_OF_HOST_MEMORY:       "VK_ERROR_OUT_OF_HOST_MEMORY",
	VK_ERROR_OUT_OF_DEVICE_MEMORY:     "VK_ERROR_OUT_OF_DEVICE_MEMORY",
	VK_ERROR_INITIALIZATION_FAILED:    "VK_ERROR_INITIALIZATION_FAILED",
	VK_ERROR_DEVICE_LOST:              "VK_ERROR_DEVICE_LOST",
	VK_ERROR_MEMORY_MAP_FAILED:        "VK_ERROR_MEMORY_MAP_FAILED",
	VK_ERROR_LAYER_NOT_PRESENT:        "VK_ERROR_LAYER_NOT_PRESENT",
	VK_ERROR_EXTENSION_NOT_PRESENT:    "VK_ERROR_EXTENSION_NOT_PRESENT",
	VK_ERROR_FEATURE_NOT_PRESENT:      "VK_ERROR_FEATURE_NOT_PRESENT",
	VK_ERROR_INCOMPATIBLE_DRIVER:      "VK_ERROR_INCOMPATIBLE_DRIVER",
	VK_ERROR_TOO_MANY_OBJECTS:         "VK_ERROR_TOO_MANY_OBJECTS",
	VK_ERROR_FORMAT_NOT_SUPPORTED:     "VK_ERROR_FORMAT_NOT_SUPPORTED",
	VK_ERROR_FRAGMENTED_POOL:          "VK_ERROR_FRAGMENTED_POOL",
	VK_ERROR_UNKNOWN:                  "VK_ERROR_UNKNOWN",
	VK_ERROR_OUT_OF_POOL_MEMORY:       "VK_ERROR_OUT_OF_POOL_MEMORY",
	VK_ERROR_INVALID_EXTERNAL_HANDLE:  "VK_ERROR_INVALID_EXTERNAL_HANDLE",
	VK_ERROR_INVALID_SHADER_NV:        "VK_ERROR_INVALID_SHADER_NV",
	VK_ERROR_VALIDATION_FAILED_EXT:    "VK_ERROR_VALIDATION_FAILED_EXT",
	VK_ERROR_INCOMPATIBLE_DISPLAY_KHR: "VK_ERROR_INCOMPATIBLE_DISPLAY_KHR",
}

// String returns the VK_* name of the status code.
func (r VkResult) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return fmt.Sprintf("VkResult(%d)", int32(r))
}
