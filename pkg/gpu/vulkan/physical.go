package vulkan

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// PhysicalDevice is a GPU enumerated by an instance. It is not owned and
// needs no release.
type PhysicalDevice struct {
	drv    Driver
	handle VkPhysicalDevice
	index  int
}

// DeviceInfo summarizes a physical device.
type DeviceInfo struct {
	Index             int
	Name              string
	Type              string
	APIVersion        string
	DriverVersion     uint32
	VendorID          uint32
	DeviceID          uint32
	DeviceLocalMemory uint64
	ComputeFamily     int
}

// SelectPhysicalDevice returns the physical device at index.
func SelectPhysicalDevice(inst *Instance, index int) (PhysicalDevice, error) {
	devices, err := inst.PhysicalDevices()
	if err != nil {
		return PhysicalDevice{}, err
	}
	if len(devices) == 0 {
		return PhysicalDevice{}, ErrNoPhysicalDevice
	}
	if index < 0 || index >= len(devices) {
		return PhysicalDevice{}, fmt.Errorf("%w: device index %d out of range (found %d)", ErrNoPhysicalDevice, index, len(devices))
	}

	pd := devices[index]
	props := pd.Properties()
	inst.log.WithFields(logrus.Fields{
		"device": CString(props.DeviceName[:]),
		"index":  index,
		"type":   DeviceTypeString(props.DeviceType),
	}).Info("Physical device selected")
	return pd, nil
}

// Handle returns the raw VkPhysicalDevice.
func (p PhysicalDevice) Handle() VkPhysicalDevice { return p.handle }

// Index returns the enumeration index of the device.
func (p PhysicalDevice) Index() int { return p.index }

// Properties queries vkGetPhysicalDeviceProperties.
func (p PhysicalDevice) Properties() VkPhysicalDeviceProperties {
	var props VkPhysicalDeviceProperties
	p.drv.GetPhysicalDeviceProperties(p.handle, &props)
	return props
}

// Name returns the device name.
func (p PhysicalDevice) Name() string {
	props := p.Properties()
	return CString(props.DeviceName[:])
}

// MemoryProperties queries vkGetPhysicalDeviceMemoryProperties.
func (p PhysicalDevice) MemoryProperties() VkPhysicalDeviceMemoryProperties {
	var mem VkPhysicalDeviceMemoryProperties
	p.drv.GetPhysicalDeviceMemoryProperties(p.handle, &mem)
	return mem
}

// QueueFamilies queries vkGetPhysicalDeviceQueueFamilyProperties.
func (p PhysicalDevice) QueueFamilies() []VkQueueFamilyProperties {
	var count uint32
	p.drv.GetPhysicalDeviceQueueFamilyProperties(p.handle, &count, nil)
	if count == 0 {
		return nil
	}
	families := make([]VkQueueFamilyProperties, count)
	p.drv.GetPhysicalDeviceQueueFamilyProperties(p.handle, &count, &families[0])
	return families[:count]
}

// ComputeQueueFamily returns the index of the first queue family that
// supports compute, or -1.
func (p PhysicalDevice) ComputeQueueFamily() int {
	for i, family := range p.QueueFamilies() {
		if family.QueueFlags&VK_QUEUE_COMPUTE_BIT != 0 && family.QueueCount > 0 {
			return i
		}
	}
	return -1
}

// Extensions lists the device extensions the physical device supports.
func (p PhysicalDevice) Extensions() ([]string, error) {
	return deviceExtensions(p.drv, p.handle)
}

// FindMemoryType returns the first memory type allowed by typeFilter whose
// flags include all of properties.
func (p PhysicalDevice) FindMemoryType(typeFilter uint32, properties uint32) (uint32, bool) {
	return findMemoryType(p.MemoryProperties(), typeFilter, properties)
}

// DeviceLocalMemory returns the size of the first device-local heap.
func (p PhysicalDevice) DeviceLocalMemory() uint64 {
	mem := p.MemoryProperties()
	for i := uint32(0); i < mem.MemoryHeapCount; i++ {
		if mem.MemoryHeaps[i].Flags&VK_MEMORY_HEAP_DEVICE_LOCAL_BIT != 0 {
			return uint64(mem.MemoryHeaps[i].Size)
		}
	}
	return 0
}

// Info collects a DeviceInfo summary.
func (p PhysicalDevice) Info() DeviceInfo {
	props := p.Properties()
	return DeviceInfo{
		Index:             p.index,
		Name:              CString(props.DeviceName[:]),
		Type:              DeviceTypeString(props.DeviceType),
		APIVersion:        VersionString(props.ApiVersion),
		DriverVersion:     props.DriverVersion,
		VendorID:          props.VendorID,
		DeviceID:          props.DeviceID,
		DeviceLocalMemory: p.DeviceLocalMemory(),
		ComputeFamily:     p.ComputeQueueFamily(),
	}
}

func findMemoryType(mem VkPhysicalDeviceMemoryProperties, typeFilter uint32, properties uint32) (uint32, bool) {
	for i := uint32(0); i < mem.MemoryTypeCount && i < 32; i++ {
		if typeFilter&(1<<i) != 0 && mem.MemoryTypes[i].PropertyFlags&properties == properties {
			return i, true
		}
	}
	return 0, false
}

// DeviceTypeString names a VkPhysicalDeviceType.
func DeviceTypeString(t uint32) string {
	switch t {
	case VK_PHYSICAL_DEVICE_TYPE_INTEGRATED_GPU:
		return "integrated"
	case VK_PHYSICAL_DEVICE_TYPE_DISCRETE_GPU:
		return "discrete"
	case VK_PHYSICAL_DEVICE_TYPE_VIRTUAL_GPU:
		return "virtual"
	case VK_PHYSICAL_DEVICE_TYPE_CPU:
		return "cpu"
	default:
		return "other"
	}
}
