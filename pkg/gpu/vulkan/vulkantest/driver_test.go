package vulkantest

import (
	"runtime"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/vkadd/pkg/gpu/vulkan"
)

func vulkanPtr[T any](p *T) uintptr {
	return uintptr(unsafe.Pointer(p))
}

func createInstance(t *testing.T, d *Driver) vulkan.VkInstance {
	t.Helper()
	info := vulkan.VkInstanceCreateInfo{SType: vulkan.VK_STRUCTURE_TYPE_INSTANCE_CREATE_INFO}
	var inst vulkan.VkInstance
	require.Equal(t, vulkan.VK_SUCCESS, d.CreateInstance(&info, &inst))
	return inst
}

func createDevice(t *testing.T, d *Driver) vulkan.VkDevice {
	t.Helper()
	priority := float32(1)
	qci := vulkan.VkDeviceQueueCreateInfo{
		SType:            vulkan.VK_STRUCTURE_TYPE_DEVICE_QUEUE_CREATE_INFO,
		QueueCount:       1,
		PQueuePriorities: &priority,
	}
	info := vulkan.VkDeviceCreateInfo{
		SType:                vulkan.VK_STRUCTURE_TYPE_DEVICE_CREATE_INFO,
		QueueCreateInfoCount: 1,
		PQueueCreateInfos:    &qci,
	}
	var dev vulkan.VkDevice
	require.Equal(t, vulkan.VK_SUCCESS, d.CreateDevice(vulkan.VkPhysicalDevice(physicalDeviceBase), &info, &dev))
	return dev
}

func TestVectorAdd(t *testing.T) {
	a := []float32{1, 2, 3, 4}
	b := []float32{10, 20, 30, 40}
	out := make([]float32, 4)

	VectorAdd([3]uint32{2, 2, 1}, [][]float32{a, b, out})
	assert.Equal(t, []float32{11, 22, 33, 44}, out)

	out = make([]float32, 4)
	VectorAdd([3]uint32{2, 1, 1}, [][]float32{a, b, out})
	assert.Equal(t, []float32{11, 22, 0, 0}, out)

	// Oversized grids stop at the shortest binding.
	VectorAdd([3]uint32{100, 1, 1}, [][]float32{a, b, out[:3]})
	assert.Equal(t, []float32{11, 22, 33, 0}, out)
}

func TestEnumerationProtocol(t *testing.T) {
	d := New()

	var count uint32
	require.Equal(t, vulkan.VK_SUCCESS, d.EnumerateInstanceExtensionProperties(nil, &count, nil))
	assert.Equal(t, uint32(len(d.InstanceExtensions)), count)

	count = 2
	props := make([]vulkan.VkExtensionProperties, 2)
	assert.Equal(t, vulkan.VK_INCOMPLETE, d.EnumerateInstanceExtensionProperties(nil, &count, &props[0]))
	assert.Equal(t, uint32(2), count)
	assert.Equal(t, d.InstanceExtensions[0], vulkan.CString(props[0].ExtensionName[:]))
	assert.Equal(t, d.InstanceExtensions[1], vulkan.CString(props[1].ExtensionName[:]))
}

func TestCreateInstanceRejectsUnknownExtension(t *testing.T) {
	d := New()
	name := append([]byte("VK_KHR_missing"), 0)
	ptrs := []uintptr{vulkanPtr(&name[0])}
	info := vulkan.VkInstanceCreateInfo{
		SType:                   vulkan.VK_STRUCTURE_TYPE_INSTANCE_CREATE_INFO,
		EnabledExtensionCount:   1,
		PpEnabledExtensionNames: vulkanPtr(&ptrs[0]),
	}
	var inst vulkan.VkInstance
	assert.Equal(t, vulkan.VK_ERROR_EXTENSION_NOT_PRESENT, d.CreateInstance(&info, &inst))
	runtime.KeepAlive(name)
	runtime.KeepAlive(ptrs)
	assert.Zero(t, inst)
	assert.Zero(t, d.Live())
}

func TestFailOn(t *testing.T) {
	d := New()
	d.FailOnCall("vkCreateInstance", 2, vulkan.VK_ERROR_OUT_OF_HOST_MEMORY)

	inst := createInstance(t, d)
	var second vulkan.VkInstance
	info := vulkan.VkInstanceCreateInfo{SType: vulkan.VK_STRUCTURE_TYPE_INSTANCE_CREATE_INFO}
	assert.Equal(t, vulkan.VK_ERROR_OUT_OF_HOST_MEMORY, d.CreateInstance(&info, &second))
	assert.Equal(t, 2, d.CallCount("vkCreateInstance"))

	d.DestroyInstance(inst)
	assert.Zero(t, d.Live())
	assert.Equal(t, []string{"vkCreateInstance", "vkCreateInstance", "vkDestroyInstance"}, d.Calls())
}

func TestDetectsDoubleAndNullDestroy(t *testing.T) {
	d := New()
	inst := createInstance(t, d)

	d.DestroyInstance(inst)
	d.DestroyInstance(inst)
	d.DestroyInstance(0)

	violations := d.Violations()
	require.Len(t, violations, 2)
	assert.Contains(t, violations[0], "not live")
	assert.Contains(t, violations[1], "null handle")
}

func TestDetectsDeviceDestroyedWithChildren(t *testing.T) {
	d := New()
	inst := createInstance(t, d)
	dev := createDevice(t, d)

	info := vulkan.VkBufferCreateInfo{SType: vulkan.VK_STRUCTURE_TYPE_BUFFER_CREATE_INFO, Size: 64}
	var buf vulkan.VkBuffer
	require.Equal(t, vulkan.VK_SUCCESS, d.CreateBuffer(dev, &info, &buf))

	d.DestroyDevice(dev)
	d.DestroyInstance(inst)

	violations := d.Violations()
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0], "live children buffer")
}

func TestDetectsMappedSubmitAndUnbalancedUnmap(t *testing.T) {
	d := New()
	createInstance(t, d)
	dev := createDevice(t, d)

	var q vulkan.VkQueue
	d.GetDeviceQueue(dev, 0, 0, &q)
	require.NotZero(t, q)

	alloc := vulkan.VkMemoryAllocateInfo{
		SType:           vulkan.VK_STRUCTURE_TYPE_MEMORY_ALLOCATE_INFO,
		AllocationSize:  256,
		MemoryTypeIndex: 1,
	}
	var mem vulkan.VkDeviceMemory
	require.Equal(t, vulkan.VK_SUCCESS, d.AllocateMemory(dev, &alloc, &mem))

	var ptr uintptr
	require.Equal(t, vulkan.VK_SUCCESS, d.MapMemory(dev, mem, 0, vulkan.VK_WHOLE_SIZE, 0, &ptr))
	assert.NotZero(t, ptr)

	submit := vulkan.VkSubmitInfo{SType: vulkan.VK_STRUCTURE_TYPE_SUBMIT_INFO}
	assert.Equal(t, vulkan.VK_SUCCESS, d.QueueSubmit(q, 1, &submit, 0))

	d.UnmapMemory(dev, mem)
	d.UnmapMemory(dev, mem)

	violations := d.Violations()
	require.Len(t, violations, 2)
	assert.Contains(t, violations[0], "mapped during submit")
	assert.Contains(t, violations[1], "not mapped")
	assert.Equal(t, 1, d.MapCount())
	assert.Equal(t, 1, d.UnmapCount())
}

func TestMapRejectsDeviceLocalMemory(t *testing.T) {
	d := New()
	createInstance(t, d)
	dev := createDevice(t, d)

	alloc := vulkan.VkMemoryAllocateInfo{
		SType:           vulkan.VK_STRUCTURE_TYPE_MEMORY_ALLOCATE_INFO,
		AllocationSize:  256,
		MemoryTypeIndex: 0,
	}
	var mem vulkan.VkDeviceMemory
	require.Equal(t, vulkan.VK_SUCCESS, d.AllocateMemory(dev, &alloc, &mem))

	var ptr uintptr
	assert.Equal(t, vulkan.VK_ERROR_MEMORY_MAP_FAILED, d.MapMemory(dev, mem, 0, vulkan.VK_WHOLE_SIZE, 0, &ptr))
	assert.Zero(t, d.MapCount())
}
