package vulkan

import (
	"fmt"
	"unsafe"
)

// Vulkan constants
const (
	VK_SUCCESS                        = VkResult(0)
	VK_NOT_READY                      = VkResult(1)
	VK_TIMEOUT                        = VkResult(2)
	VK_EVENT_SET                      = VkResult(3)
	VK_EVENT_RESET                    = VkResult(4)
	VK_INCOMPLETE                     = VkResult(5)
	VK_ERROR_OUT_OF_HOST_MEMORY       = VkResult(-1)
	VK_ERROR_OUT_OF_DEVICE_MEMORY     = VkResult(-2)
	VK_ERROR_INITIALIZATION_FAILED    = VkResult(-3)
	VK_ERROR_DEVICE_LOST              = VkResult(-4)
	VK_ERROR_MEMORY_MAP_FAILED        = VkResult(-5)
	VK_ERROR_LAYER_NOT_PRESENT        = VkResult(-6)
	VK_ERROR_EXTENSION_NOT_PRESENT    = VkResult(-7)
	VK_ERROR_FEATURE_NOT_PRESENT      = VkResult(-8)
	VK_ERROR_INCOMPATIBLE_DRIVER      = VkResult(-9)
	VK_ERROR_TOO_MANY_OBJECTS         = VkResult(-10)
	VK_ERROR_FORMAT_NOT_SUPPORTED     = VkResult(-11)
	VK_ERROR_FRAGMENTED_POOL          = VkResult(-12)
	VK_ERROR_UNKNOWN                  = VkResult(-13)
	VK_ERROR_OUT_OF_POOL_MEMORY       = VkResult(-1000069000)
	VK_ERROR_INVALID_EXTERNAL_HANDLE  = VkResult(-1000072003)
	VK_ERROR_INVALID_SHADER_NV        = VkResult(-1000012000)
	VK_ERROR_VALIDATION_FAILED_EXT    = VkResult(-1000011001)
	VK_ERROR_INCOMPATIBLE_DISPLAY_KHR = VkResult(-1000003001)

	VK_STRUCTURE_TYPE_APPLICATION_INFO                  = 0
	VK_STRUCTURE_TYPE_INSTANCE_CREATE_INFO              = 1
	VK_STRUCTURE_TYPE_DEVICE_QUEUE_CREATE_INFO          = 2
	VK_STRUCTURE_TYPE_DEVICE_CREATE_INFO                = 3
	VK_STRUCTURE_TYPE_SUBMIT_INFO                       = 4
	VK_STRUCTURE_TYPE_MEMORY_ALLOCATE_INFO              = 5
	VK_STRUCTURE_TYPE_BUFFER_CREATE_INFO                = 12
	VK_STRUCTURE_TYPE_SHADER_MODULE_CREATE_INFO         = 16
	VK_STRUCTURE_TYPE_PIPELINE_SHADER_STAGE_CREATE_INFO = 18
	VK_STRUCTURE_TYPE_COMPUTE_PIPELINE_CREATE_INFO      = 29
	VK_STRUCTURE_TYPE_PIPELINE_LAYOUT_CREATE_INFO       = 30
	VK_STRUCTURE_TYPE_DESCRIPTOR_SET_LAYOUT_CREATE_INFO = 32
	VK_STRUCTURE_TYPE_DESCRIPTOR_POOL_CREATE_INFO       = 33
	VK_STRUCTURE_TYPE_DESCRIPTOR_SET_ALLOCATE_INFO      = 34
	VK_STRUCTURE_TYPE_WRITE_DESCRIPTOR_SET              = 35
	VK_STRUCTURE_TYPE_COMMAND_POOL_CREATE_INFO          = 39
	VK_STRUCTURE_TYPE_COMMAND_BUFFER_ALLOCATE_INFO      = 40
	VK_STRUCTURE_TYPE_COMMAND_BUFFER_BEGIN_INFO         = 42

	VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR = 0x00000001

	VK_QUEUE_GRAPHICS_BIT = 0x00000001
	VK_QUEUE_COMPUTE_BIT  = 0x00000002
	VK_QUEUE_TRANSFER_BIT = 0x00000004

	VK_PHYSICAL_DEVICE_TYPE_OTHER          = 0
	VK_PHYSICAL_DEVICE_TYPE_INTEGRATED_GPU = 1
	VK_PHYSICAL_DEVICE_TYPE_DISCRETE_GPU   = 2
	VK_PHYSICAL_DEVICE_TYPE_VIRTUAL_GPU    = 3
	VK_PHYSICAL_DEVICE_TYPE_CPU            = 4

	VK_BUFFER_USAGE_TRANSFER_SRC_BIT   = 0x00000001
	VK_BUFFER_USAGE_TRANSFER_DST_BIT   = 0x00000002
	VK_BUFFER_USAGE_STORAGE_BUFFER_BIT = 0x00000020

	VK_SHARING_MODE_EXCLUSIVE = 0

	VK_MEMORY_PROPERTY_DEVICE_LOCAL_BIT  = 0x00000001
	VK_MEMORY_PROPERTY_HOST_VISIBLE_BIT  = 0x00000002
	VK_MEMORY_PROPERTY_HOST_COHERENT_BIT = 0x00000004
	VK_MEMORY_HEAP_DEVICE_LOCAL_BIT      = 0x00000001

	VK_SHADER_STAGE_COMPUTE_BIT = 0x00000020

	VK_DESCRIPTOR_TYPE_STORAGE_BUFFER = 7

	VK_COMMAND_BUFFER_LEVEL_PRIMARY = 0

	VK_COMMAND_BUFFER_USAGE_ONE_TIME_SUBMIT_BIT = 0x00000001

	VK_PIPELINE_BIND_POINT_COMPUTE = 1

	VK_WHOLE_SIZE = ^VkDeviceSize(0)
)

// Extension and layer names used by vkadd.
const (
	ExtDebugUtils                   = "VK_EXT_debug_utils"
	ExtPortabilityEnumeration       = "VK_KHR_portability_enumeration"
	ExtGetPhysicalDeviceProperties2 = "VK_KHR_get_physical_device_properties2"
	ExtPortabilitySubset            = "VK_KHR_portability_subset"
	LayerKhronosValidation          = "VK_LAYER_KHRONOS_validation"
)

const (
	maxExtensionNameSize               = 256
	maxDescriptionSize                 = 256
	maxPhysicalDeviceNameSize          = 256
	uuidSize                           = 16
	physicalDeviceLimitsSize           = 504
	physicalDeviceSparsePropertiesSize = 20
)

// MakeVersion packs a Vulkan version number (variant 0).
func MakeVersion(major, minor, patch uint32) uint32 {
	return major<<22 | minor<<12 | patch
}

// VersionString renders a packed Vulkan version as "major.minor.patch".
func VersionString(v uint32) string {
	return fmt.Sprintf("%d.%d.%d", v>>22, (v>>12)&0x3ff, v&0xfff)
}

// Vulkan handle types
type VkInstance uintptr
type VkPhysicalDevice uintptr
type VkDevice uintptr
type VkQueue uintptr
type VkBuffer uintptr
type VkDeviceMemory uintptr
type VkCommandPool uintptr
type VkCommandBuffer uintptr
type VkShaderModule uintptr
type VkDescriptorSetLayout uintptr
type VkPipelineLayout uintptr
type VkPipeline uintptr
type VkDescriptorPool uintptr
type VkDescriptorSet uintptr
type VkFence uintptr
type VkDeviceSize uint64
type VkResult int32

// VkApplicationInfo structure
type VkApplicationInfo struct {
	SType              uint32
	PNext              uintptr
	PApplicationName   uintptr
	ApplicationVersion uint32
	PEngineName        uintptr
	EngineVersion      uint32
	ApiVersion         uint32
}

// VkInstanceCreateInfo structure
type VkInstanceCreateInfo struct {
	SType                   uint32
	PNext                   uintptr
	Flags                   uint32
	PApplicationInfo        *VkApplicationInfo
	EnabledLayerCount       uint32
	PpEnabledLayerNames     uintptr
	EnabledExtensionCount   uint32
	PpEnabledExtensionNames uintptr
}

// VkExtensionProperties structure
type VkExtensionProperties struct {
	ExtensionName [maxExtensionNameSize]byte
	SpecVersion   uint32
}

// VkLayerProperties structure
type VkLayerProperties struct {
	LayerName             [maxExtensionNameSize]byte
	SpecVersion           uint32
	ImplementationVersion uint32
	Description           [maxDescriptionSize]byte
}

// VkPhysicalDeviceProperties structure. Limits and sparse properties are kept
// as opaque bytes; only the header fields are read.
type VkPhysicalDeviceProperties struct {
	ApiVersion        uint32
	DriverVersion     uint32
	VendorID          uint32
	DeviceID          uint32
	DeviceType        uint32
	DeviceName        [maxPhysicalDeviceNameSize]byte
	PipelineCacheUUID [uuidSize]byte
	_                 [4]byte
	Limits            [physicalDeviceLimitsSize]byte
	SparseProperties  [physicalDeviceSparsePropertiesSize]byte
	_                 [4]byte
}

// VkPhysicalDeviceMemoryProperties structure
type VkPhysicalDeviceMemoryProperties struct {
	MemoryTypeCount uint32
	MemoryTypes     [32]VkMemoryType
	MemoryHeapCount uint32
	MemoryHeaps     [16]VkMemoryHeap
}

// VkMemoryType structure
type VkMemoryType struct {
	PropertyFlags uint32
	HeapIndex     uint32
}

// VkMemoryHeap structure
type VkMemoryHeap struct {
	Size  VkDeviceSize
	Flags uint32
}

// VkQueueFamilyProperties structure
type VkQueueFamilyProperties struct {
	QueueFlags                  uint32
	QueueCount                  uint32
	TimestampValidBits          uint32
	MinImageTransferGranularity [3]uint32
}

// VkDeviceQueueCreateInfo structure
type VkDeviceQueueCreateInfo struct {
	SType            uint32
	PNext            uintptr
	Flags            uint32
	QueueFamilyIndex uint32
	QueueCount       uint32
	PQueuePriorities *float32
}

// VkDeviceCreateInfo structure
type VkDeviceCreateInfo struct {
	SType                   uint32
	PNext                   uintptr
	Flags                   uint32
	QueueCreateInfoCount    uint32
	PQueueCreateInfos       *VkDeviceQueueCreateInfo
	EnabledLayerCount       uint32
	PpEnabledLayerNames     uintptr
	EnabledExtensionCount   uint32
	PpEnabledExtensionNames uintptr
	PEnabledFeatures        uintptr
}

// VkBufferCreateInfo structure
type VkBufferCreateInfo struct {
	SType                 uint32
	PNext                 uintptr
	Flags                 uint32
	Size                  VkDeviceSize
	Usage                 uint32
	SharingMode           uint32
	QueueFamilyIndexCount uint32
	PQueueFamilyIndices   *uint32
}

// VkMemoryRequirements structure
type VkMemoryRequirements struct {
	Size           VkDeviceSize
	Alignment      VkDeviceSize
	MemoryTypeBits uint32
}

// VkMemoryAllocateInfo structure
type VkMemoryAllocateInfo struct {
	SType           uint32
	PNext           uintptr
	AllocationSize  VkDeviceSize
	MemoryTypeIndex uint32
}

// VkCommandPoolCreateInfo structure
type VkCommandPoolCreateInfo struct {
	SType            uint32
	PNext            uintptr
	Flags            uint32
	QueueFamilyIndex uint32
}

// VkShaderModuleCreateInfo structure
type VkShaderModuleCreateInfo struct {
	SType    uint32
	PNext    uintptr
	Flags    uint32
	CodeSize uintptr
	PCode    *uint32
}

// VkDescriptorSetLayoutBinding structure
type VkDescriptorSetLayoutBinding struct {
	Binding            uint32
	DescriptorType     uint32
	DescriptorCount    uint32
	StageFlags         uint32
	PImmutableSamplers uintptr
}

// VkDescriptorSetLayoutCreateInfo structure
type VkDescriptorSetLayoutCreateInfo struct {
	SType        uint32
	PNext        uintptr
	Flags        uint32
	BindingCount uint32
	PBindings    *VkDescriptorSetLayoutBinding
}

// VkPushConstantRange structure
type VkPushConstantRange struct {
	StageFlags uint32
	Offset     uint32
	Size       uint32
}

// VkPipelineLayoutCreateInfo structure
type VkPipelineLayoutCreateInfo struct {
	SType                  uint32
	PNext                  uintptr
	Flags                  uint32
	SetLayoutCount         uint32
	PSetLayouts            *VkDescriptorSetLayout
	PushConstantRangeCount uint32
	PPushConstantRanges    *VkPushConstantRange
}

// VkPipelineShaderStageCreateInfo structure
type VkPipelineShaderStageCreateInfo struct {
	SType               uint32
	PNext               uintptr
	Flags               uint32
	Stage               uint32
	Module              VkShaderModule
	PName               uintptr
	PSpecializationInfo uintptr
}

// VkComputePipelineCreateInfo structure
type VkComputePipelineCreateInfo struct {
	SType              uint32
	PNext              uintptr
	Flags              uint32
	Stage              VkPipelineShaderStageCreateInfo
	Layout             VkPipelineLayout
	BasePipelineHandle VkPipeline
	BasePipelineIndex  int32
}

// VkDescriptorPoolSize structure
type VkDescriptorPoolSize struct {
	Type            uint32
	DescriptorCount uint32
}

// VkDescriptorPoolCreateInfo structure
type VkDescriptorPoolCreateInfo struct {
	SType         uint32
	PNext         uintptr
	Flags         uint32
	MaxSets       uint32
	PoolSizeCount uint32
	PPoolSizes    *VkDescriptorPoolSize
}

// VkDescriptorSetAllocateInfo structure
type VkDescriptorSetAllocateInfo struct {
	SType              uint32
	PNext              uintptr
	DescriptorPool     VkDescriptorPool
	DescriptorSetCount uint32
	PSetLayouts        *VkDescriptorSetLayout
}

// VkDescriptorBufferInfo structure
type VkDescriptorBufferInfo struct {
	Buffer VkBuffer
	Offset VkDeviceSize
	Range  VkDeviceSize
}

// VkWriteDescriptorSet structure
type VkWriteDescriptorSet struct {
	SType            uint32
	PNext            uintptr
	DstSet           VkDescriptorSet
	DstBinding       uint32
	DstArrayElement  uint32
	DescriptorCount  uint32
	DescriptorType   uint32
	PImageInfo       uintptr
	PBufferInfo      *VkDescriptorBufferInfo
	PTexelBufferView uintptr
}

// VkCommandBufferAllocateInfo structure
type VkCommandBufferAllocateInfo struct {
	SType              uint32
	PNext              uintptr
	CommandPool        VkCommandPool
	Level              uint32
	CommandBufferCount uint32
}

// VkCommandBufferBeginInfo structure
type VkCommandBufferBeginInfo struct {
	SType            uint32
	PNext            uintptr
	Flags            uint32
	PInheritanceInfo uintptr
}

// VkSubmitInfo structure
type VkSubmitInfo struct {
	SType                uint32
	PNext                uintptr
	WaitSemaphoreCount   uint32
	PWaitSemaphores      uintptr
	PWaitDstStageMask    uintptr
	CommandBufferCount   uint32
	PCommandBuffers      *VkCommandBuffer
	SignalSemaphoreCount uint32
	PSignalSemaphores    uintptr
}

// CString converts a fixed-size, NUL-terminated Vulkan char array to a Go string.
func CString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// PutCString copies s into a fixed-size Vulkan char array, truncating and
// NUL-terminating it.
func PutCString(dst []byte, s string) {
	n := copy(dst[:len(dst)-1], s)
	dst[n] = 0
}

// GoString reads a NUL-terminated C string at p.
func GoString(p uintptr) string {
	if p == 0 {
		return ""
	}
	var n int
	for *(*byte)(unsafe.Add(unsafe.Pointer(p), n)) != 0 {
		n++
	}
	return string(unsafe.Slice((*byte)(unsafe.Pointer(p)), n))
}

func uintptrOf[T any](p *T) uintptr {
	return uintptr(unsafe.Pointer(p))
}
