package vulkan_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/vkadd/pkg/gpu/vulkan"
	"github.com/orneryd/vkadd/pkg/gpu/vulkan/vulkantest"
)

var fakeSPIRV = []uint32{0x07230203, 0x00010000, 0, 16, 0}

func newInstance(t *testing.T, drv *vulkantest.Driver) *vulkan.Instance {
	t.Helper()
	inst, err := vulkan.NewInstance(drv, vulkan.DefaultInstanceOptions())
	require.NoError(t, err)
	t.Cleanup(inst.Release)
	return inst
}

func newDevice(t *testing.T, drv *vulkantest.Driver) *vulkan.Device {
	t.Helper()
	inst := newInstance(t, drv)
	pd, err := vulkan.SelectPhysicalDevice(inst, 0)
	require.NoError(t, err)
	dev, err := vulkan.NewDevice(pd, vulkan.DeviceOptions{})
	require.NoError(t, err)
	t.Cleanup(dev.Release)
	return dev
}

func TestNewInstance(t *testing.T) {
	drv := vulkantest.New()
	inst := newInstance(t, drv)

	assert.NotZero(t, inst.Handle())
	records := drv.Instances()
	require.Len(t, records, 1)
	assert.Equal(t, "Hello Vulkan", records[0].ApplicationName)
	assert.Equal(t, "Vulkan Engine", records[0].EngineName)
	assert.Equal(t, vulkan.MakeVersion(1, 0, 0), records[0].APIVersion)
	assert.Equal(t, []string{vulkan.LayerKhronosValidation}, records[0].Layers)
	assert.Contains(t, records[0].Extensions, vulkan.ExtDebugUtils)
	assert.Contains(t, records[0].Extensions, vulkan.ExtGetPhysicalDeviceProperties2)
}

func TestNewInstanceDropsMissingNames(t *testing.T) {
	drv := vulkantest.New()
	drv.InstanceExtensions = []string{vulkan.ExtGetPhysicalDeviceProperties2}
	drv.InstanceLayers = nil

	opts := vulkan.DefaultInstanceOptions()
	opts.Portability = false
	inst, err := vulkan.NewInstance(drv, opts)
	require.NoError(t, err)
	defer inst.Release()

	assert.Equal(t, []string{vulkan.ExtGetPhysicalDeviceProperties2}, inst.EnabledExtensions())
	assert.Empty(t, inst.EnabledLayers())
	assert.Empty(t, drv.Violations())
}

func TestNewInstancePortability(t *testing.T) {
	drv := vulkantest.New()
	opts := vulkan.DefaultInstanceOptions()
	opts.Extensions = nil
	opts.Portability = true

	inst, err := vulkan.NewInstance(drv, opts)
	require.NoError(t, err)
	defer inst.Release()

	rec := drv.Instances()[0]
	assert.Equal(t, uint32(vulkan.VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR), rec.Flags)
	assert.Equal(t, []string{vulkan.ExtPortabilityEnumeration}, rec.Extensions)

	// Without the extension the flag must not be set either.
	drv2 := vulkantest.New()
	drv2.InstanceExtensions = nil
	inst2, err := vulkan.NewInstance(drv2, opts)
	require.NoError(t, err)
	defer inst2.Release()
	assert.Zero(t, drv2.Instances()[0].Flags)
}

func TestNewInstanceFailure(t *testing.T) {
	drv := vulkantest.New()
	drv.FailOn("vkCreateInstance", vulkan.VK_ERROR_INCOMPATIBLE_DRIVER)

	_, err := vulkan.NewInstance(drv, vulkan.DefaultInstanceOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, vulkan.ErrNativeCall))

	result, ok := vulkan.ResultOf(err)
	require.True(t, ok)
	assert.Equal(t, vulkan.VK_ERROR_INCOMPATIBLE_DRIVER, result)
	assert.Contains(t, err.Error(), "vkCreateInstance")
	assert.Contains(t, err.Error(), "VK_ERROR_INCOMPATIBLE_DRIVER")
	assert.Equal(t, 0, drv.Live())
}

func TestSelectPhysicalDevice(t *testing.T) {
	t.Run("first device", func(t *testing.T) {
		drv := vulkantest.New()
		second := vulkantest.DefaultPhysicalDevice()
		second.Name = "Second GPU"
		drv.Devices = append(drv.Devices, second)
		inst := newInstance(t, drv)

		pd, err := vulkan.SelectPhysicalDevice(inst, 0)
		require.NoError(t, err)
		assert.Equal(t, "Fake GPU", pd.Name())

		pd, err = vulkan.SelectPhysicalDevice(inst, 1)
		require.NoError(t, err)
		assert.Equal(t, "Second GPU", pd.Name())
	})

	t.Run("no devices", func(t *testing.T) {
		drv := vulkantest.New()
		drv.Devices = nil
		inst := newInstance(t, drv)

		_, err := vulkan.SelectPhysicalDevice(inst, 0)
		assert.ErrorIs(t, err, vulkan.ErrNoPhysicalDevice)
	})

	t.Run("index out of range", func(t *testing.T) {
		drv := vulkantest.New()
		inst := newInstance(t, drv)

		_, err := vulkan.SelectPhysicalDevice(inst, 3)
		assert.ErrorIs(t, err, vulkan.ErrNoPhysicalDevice)
		_, err = vulkan.SelectPhysicalDevice(inst, -1)
		assert.ErrorIs(t, err, vulkan.ErrNoPhysicalDevice)
	})
}

func TestPhysicalDeviceInfo(t *testing.T) {
	drv := vulkantest.New()
	inst := newInstance(t, drv)
	pd, err := vulkan.SelectPhysicalDevice(inst, 0)
	require.NoError(t, err)

	info := pd.Info()
	assert.Equal(t, "Fake GPU", info.Name)
	assert.Equal(t, "discrete", info.Type)
	assert.Equal(t, "1.3.0", info.APIVersion)
	assert.Equal(t, uint64(8<<30), info.DeviceLocalMemory)
	assert.Equal(t, 0, info.ComputeFamily)

	exts, err := pd.Extensions()
	require.NoError(t, err)
	assert.Contains(t, exts, vulkan.ExtPortabilitySubset)

	idx, ok := pd.FindMemoryType(0x3, vulkan.VK_MEMORY_PROPERTY_HOST_VISIBLE_BIT)
	assert.True(t, ok)
	assert.Equal(t, uint32(1), idx)

	_, ok = pd.FindMemoryType(0x1, vulkan.VK_MEMORY_PROPERTY_HOST_VISIBLE_BIT)
	assert.False(t, ok)
}

func TestNewDeviceUsesComputeFamily(t *testing.T) {
	drv := vulkantest.New()
	drv.Devices[0].QueueFamilies = []vulkan.VkQueueFamilyProperties{
		{QueueFlags: vulkan.VK_QUEUE_GRAPHICS_BIT, QueueCount: 1},
		{QueueFlags: vulkan.VK_QUEUE_TRANSFER_BIT, QueueCount: 1},
		{QueueFlags: vulkan.VK_QUEUE_COMPUTE_BIT, QueueCount: 2},
	}
	dev := newDevice(t, drv)

	assert.Equal(t, uint32(2), dev.QueueFamily())
	assert.Equal(t, uint32(2), dev.Queue().Family())
	assert.NotZero(t, dev.Queue().Handle())

	rec := drv.DeviceRecords()[0]
	assert.Equal(t, uint32(2), rec.QueueFamily)
	assert.Equal(t, uint32(1), rec.QueueCount)
	assert.Equal(t, float32(1.0), rec.QueuePriority)
}

func TestNewDeviceNoComputeFamily(t *testing.T) {
	drv := vulkantest.New()
	drv.Devices[0].QueueFamilies = []vulkan.VkQueueFamilyProperties{
		{QueueFlags: vulkan.VK_QUEUE_GRAPHICS_BIT, QueueCount: 1},
	}
	inst := newInstance(t, drv)
	pd, err := vulkan.SelectPhysicalDevice(inst, 0)
	require.NoError(t, err)

	_, err = vulkan.NewDevice(pd, vulkan.DeviceOptions{})
	assert.ErrorIs(t, err, vulkan.ErrNoQueueFamily)
	assert.Zero(t, drv.CallCount("vkCreateDevice"))
}

func TestNewDeviceExtensions(t *testing.T) {
	drv := vulkantest.New()
	inst := newInstance(t, drv)
	pd, err := vulkan.SelectPhysicalDevice(inst, 0)
	require.NoError(t, err)

	dev, err := vulkan.NewDevice(pd, vulkan.DeviceOptions{
		Extensions: []string{vulkan.ExtPortabilitySubset, "VK_KHR_not_a_thing"},
	})
	require.NoError(t, err)
	defer dev.Release()

	assert.Equal(t, []string{vulkan.ExtPortabilitySubset}, dev.EnabledExtensions())
	assert.Equal(t, []string{vulkan.ExtPortabilitySubset}, drv.DeviceRecords()[0].Extensions)
}

func TestBufferRoundTrip(t *testing.T) {
	drv := vulkantest.New()
	dev := newDevice(t, drv)

	buf, err := dev.NewBuffer(16 * 4)
	require.NoError(t, err)
	defer buf.Release()

	assert.Equal(t, 16, buf.Len())
	require.NoError(t, buf.Fill(16, func(i int) float32 { return float32(i) * 1.5 }))

	got, err := buf.ReadFloat32(16)
	require.NoError(t, err)
	for i, v := range got {
		assert.Equal(t, float32(i)*1.5, v)
	}

	require.NoError(t, buf.WriteFloat32([]float32{7, 8}))
	got, err = buf.ReadFloat32(3)
	require.NoError(t, err)
	assert.Equal(t, []float32{7, 8, 3}, got)

	assert.Equal(t, drv.MapCount(), drv.UnmapCount())
	assert.Equal(t, 4, drv.MapCount())
	assert.Empty(t, drv.Violations())
}

func TestBufferOutOfRange(t *testing.T) {
	drv := vulkantest.New()
	dev := newDevice(t, drv)

	buf, err := dev.NewBuffer(8)
	require.NoError(t, err)
	defer buf.Release()

	_, err = buf.ReadFloat32(3)
	assert.ErrorIs(t, err, vulkan.ErrOutOfRange)

	_, err = buf.ReadFloat32(-1)
	assert.ErrorIs(t, err, vulkan.ErrOutOfRange)
	assert.ErrorIs(t, buf.Fill(-1, func(int) float32 { return 0 }), vulkan.ErrOutOfRange)
	assert.Zero(t, drv.MapCount())

	got, err := buf.ReadFloat32(0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBufferUnmapsOnPanic(t *testing.T) {
	drv := vulkantest.New()
	dev := newDevice(t, drv)

	buf, err := dev.NewBuffer(16)
	require.NoError(t, err)
	defer buf.Release()

	assert.Panics(t, func() {
		_ = buf.Fill(4, func(i int) float32 {
			if i == 2 {
				panic("boom")
			}
			return 1
		})
	})
	assert.Equal(t, 1, drv.MapCount())
	assert.Equal(t, 1, drv.UnmapCount())
}

func TestNewBufferNoHostVisibleMemory(t *testing.T) {
	drv := vulkantest.New()
	drv.Devices[0].MemoryTypes = []vulkan.VkMemoryType{
		{PropertyFlags: vulkan.VK_MEMORY_PROPERTY_DEVICE_LOCAL_BIT},
	}
	dev := newDevice(t, drv)

	_, err := dev.NewBuffer(64)
	assert.ErrorIs(t, err, vulkan.ErrNoMemoryType)
	assert.Equal(t, 1, drv.CallCount("vkDestroyBuffer"))
	assert.Zero(t, drv.CallCount("vkAllocateMemory"))
	assert.Zero(t, drv.LiveByKind()["buffer"])
}

func TestNewBufferCleansUpOnBindFailure(t *testing.T) {
	drv := vulkantest.New()
	drv.FailOn("vkBindBufferMemory", vulkan.VK_ERROR_OUT_OF_DEVICE_MEMORY)
	dev := newDevice(t, drv)

	_, err := dev.NewBuffer(64)
	require.ErrorIs(t, err, vulkan.ErrNativeCall)

	live := drv.LiveByKind()
	assert.Zero(t, live["buffer"])
	assert.Zero(t, live["memory"])
	assert.Empty(t, drv.Violations())
}

func TestReleaseIsIdempotent(t *testing.T) {
	drv := vulkantest.New()
	dev := newDevice(t, drv)

	buf, err := dev.NewBuffer(64)
	require.NoError(t, err)
	buf.Release()
	buf.Release()
	buf.ReleaseBuffer()
	buf.ReleaseMemory()

	var nilBuf *vulkan.Buffer
	nilBuf.Release()
	var nilModule *vulkan.ShaderModule
	nilModule.Release()
	var nilPool *vulkan.CommandPool
	nilPool.Release()
	var nilInst *vulkan.Instance
	nilInst.Release()

	assert.Equal(t, 1, drv.CallCount("vkDestroyBuffer"))
	assert.Equal(t, 1, drv.CallCount("vkFreeMemory"))
	assert.Empty(t, drv.Violations())

	_, err = buf.ReadFloat32(1)
	assert.ErrorIs(t, err, vulkan.ErrReleased)
}

func TestComputeDispatch(t *testing.T) {
	const n = 64
	drv := vulkantest.New()
	dev := newDevice(t, drv)

	bufs := make([]*vulkan.Buffer, 3)
	for i := range bufs {
		b, err := dev.NewBuffer(n * 4)
		require.NoError(t, err)
		bufs[i] = b
	}
	require.NoError(t, bufs[0].Fill(n, func(i int) float32 { return float32(i) }))
	require.NoError(t, bufs[1].Fill(n, func(i int) float32 { return float32(2 * i) }))

	module, err := vulkan.NewShaderModule(dev, fakeSPIRV)
	require.NoError(t, err)
	dsl, err := vulkan.NewDescriptorSetLayout(dev, 3)
	require.NoError(t, err)
	layout, err := vulkan.NewPipelineLayout(dev, dsl)
	require.NoError(t, err)
	pipeline, err := vulkan.NewComputePipeline(dev, module, layout, "main")
	require.NoError(t, err)

	pool, err := vulkan.NewDescriptorPool(dev, 1, 3)
	require.NoError(t, err)
	set, err := pool.Allocate(dsl)
	require.NoError(t, err)
	require.NoError(t, set.WriteBuffers(bufs[0], bufs[1], bufs[2]))

	cmdPool, err := vulkan.NewCommandPool(dev)
	require.NoError(t, err)
	cb, err := cmdPool.Allocate()
	require.NoError(t, err)
	require.NoError(t, cb.RecordDispatch(pipeline, set, n, 1))
	require.NoError(t, dev.Queue().SubmitAndWait(cb))

	got, err := bufs[2].ReadFloat32(n)
	require.NoError(t, err)
	for i, v := range got {
		assert.Equal(t, float32(3*i), v, "index %d", i)
	}

	dispatches := drv.Dispatches()
	require.Len(t, dispatches, 1)
	assert.Equal(t, [3]uint32{n, 1, 1}, dispatches[0].Groups)
	assert.Equal(t, "main", dispatches[0].EntryPoint)
	assert.Equal(t, []uint32{dev.QueueFamily()}, drv.CommandPoolFamilies())

	for _, b := range bufs {
		b.Release()
	}
	pipeline.Release()
	layout.Release()
	module.Release()
	dsl.Release()
	pool.Release()
	cmdPool.Release()
	require.NoError(t, dev.WaitIdle())

	assert.Empty(t, drv.Violations())
}

func TestDescriptorPoolExhausted(t *testing.T) {
	drv := vulkantest.New()
	dev := newDevice(t, drv)

	dsl, err := vulkan.NewDescriptorSetLayout(dev, 3)
	require.NoError(t, err)
	defer dsl.Release()
	pool, err := vulkan.NewDescriptorPool(dev, 1, 3)
	require.NoError(t, err)
	defer pool.Release()

	_, err = pool.Allocate(dsl)
	require.NoError(t, err)
	_, err = pool.Allocate(dsl)
	result, ok := vulkan.ResultOf(err)
	require.True(t, ok)
	assert.Equal(t, vulkan.VK_ERROR_OUT_OF_POOL_MEMORY, result)
}

func TestWriteBuffersRejectsExtraBindings(t *testing.T) {
	drv := vulkantest.New()
	dev := newDevice(t, drv)

	dsl, err := vulkan.NewDescriptorSetLayout(dev, 1)
	require.NoError(t, err)
	defer dsl.Release()
	pool, err := vulkan.NewDescriptorPool(dev, 1, 1)
	require.NoError(t, err)
	defer pool.Release()
	set, err := pool.Allocate(dsl)
	require.NoError(t, err)

	a, err := dev.NewBuffer(16)
	require.NoError(t, err)
	defer a.Release()

	assert.Error(t, set.WriteBuffers(a, a))
	assert.Zero(t, drv.CallCount("vkUpdateDescriptorSets"))
}

func TestShaderModuleRejectedByDriver(t *testing.T) {
	drv := vulkantest.New()
	dev := newDevice(t, drv)

	_, err := vulkan.NewShaderModule(dev, []uint32{0xdeadbeef})
	result, ok := vulkan.ResultOf(err)
	require.True(t, ok)
	assert.Equal(t, vulkan.VK_ERROR_INVALID_SHADER_NV, result)

	_, err = vulkan.NewShaderModule(dev, nil)
	assert.Error(t, err)
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "VK_SUCCESS", vulkan.VK_SUCCESS.String())
	assert.Equal(t, "VK_ERROR_DEVICE_LOST", vulkan.VK_ERROR_DEVICE_LOST.String())
	assert.Equal(t, "VkResult(-424242)", vulkan.VkResult(-424242).String())
}

func TestVersionString(t *testing.T) {
	assert.Equal(t, "1.0.0", vulkan.VersionString(vulkan.MakeVersion(1, 0, 0)))
	assert.Equal(t, "1.3.275", vulkan.VersionString(vulkan.MakeVersion(1, 3, 275)))
}

func TestCString(t *testing.T) {
	var buf [8]byte
	vulkan.PutCString(buf[:], "abcdefghijk")
	assert.Equal(t, "abcdefg", vulkan.CString(buf[:]))

	vulkan.PutCString(buf[:], "hi")
	assert.Equal(t, "hi", vulkan.CString(buf[:]))
}
