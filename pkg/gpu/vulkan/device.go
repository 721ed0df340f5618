package vulkan

import (
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/orneryd/vkadd/pkg/logging"
)

// DeviceOptions configures NewDevice.
type DeviceOptions struct {
	// Extensions are requested best-effort, like instance extensions.
	Extensions []string
	Logger     *logrus.Entry
}

// DefaultDeviceOptions returns the device extensions vkadd requests.
func DefaultDeviceOptions() DeviceOptions {
	var opts DeviceOptions
	if runtime.GOOS == "darwin" {
		opts.Extensions = []string{ExtPortabilitySubset}
	}
	return opts
}

// Device owns a VkDevice and the compute queue fetched from it.
type Device struct {
	drv         Driver
	handle      VkDevice
	physical    PhysicalDevice
	queueFamily uint32
	queue       Queue
	extensions  []string
	log         *logrus.Entry
}

// Queue is a device queue. Queues are owned by their device.
type Queue struct {
	drv    Driver
	handle VkQueue
	family uint32
}

// NewDevice creates a logical device with one compute queue on pd.
func NewDevice(pd PhysicalDevice, opts DeviceOptions) (*Device, error) {
	log := logging.OrDiscard(opts.Logger)
	drv := pd.drv

	computeFamily := pd.ComputeQueueFamily()
	if computeFamily < 0 {
		return nil, ErrNoQueueFamily
	}

	var extensions []string
	if len(opts.Extensions) > 0 {
		available, err := pd.Extensions()
		if err != nil {
			return nil, err
		}
		extensions = reconcile(log, "device extensions", opts.Extensions, available)
	}
	extNames := newCStrings(extensions)

	queuePriority := float32(1.0)
	queueCreateInfo := VkDeviceQueueCreateInfo{
		SType:            VK_STRUCTURE_TYPE_DEVICE_QUEUE_CREATE_INFO,
		QueueFamilyIndex: uint32(computeFamily),
		QueueCount:       1,
		PQueuePriorities: &queuePriority,
	}

	deviceCreateInfo := VkDeviceCreateInfo{
		SType:                   VK_STRUCTURE_TYPE_DEVICE_CREATE_INFO,
		QueueCreateInfoCount:    1,
		PQueueCreateInfos:       &queueCreateInfo,
		EnabledExtensionCount:   extNames.count(),
		PpEnabledExtensionNames: extNames.array(),
	}

	var handle VkDevice
	result := drv.CreateDevice(pd.handle, &deviceCreateInfo, &handle)
	runtime.KeepAlive(extNames)
	if err := check("vkCreateDevice", result); err != nil {
		return nil, err
	}

	var queue VkQueue
	drv.GetDeviceQueue(handle, uint32(computeFamily), 0, &queue)

	log.WithFields(logrus.Fields{
		"queue_family": computeFamily,
		"extensions":   extensions,
	}).Info("Logical device created")

	return &Device{
		drv:         drv,
		handle:      handle,
		physical:    pd,
		queueFamily: uint32(computeFamily),
		queue:       Queue{drv: drv, handle: queue, family: uint32(computeFamily)},
		extensions:  extensions,
		log:         log,
	}, nil
}

// Handle returns the raw VkDevice.
func (d *Device) Handle() VkDevice {
	if d == nil {
		return 0
	}
	return d.handle
}

// Physical returns the physical device the device was created on.
func (d *Device) Physical() PhysicalDevice { return d.physical }

// QueueFamily returns the compute queue family index.
func (d *Device) QueueFamily() uint32 { return d.queueFamily }

// Queue returns the compute queue.
func (d *Device) Queue() Queue { return d.queue }

// EnabledExtensions returns the device extensions that were enabled.
func (d *Device) EnabledExtensions() []string { return d.extensions }

// WaitIdle blocks until the device has finished all submitted work.
func (d *Device) WaitIdle() error {
	if d == nil || d.handle == 0 {
		return nil
	}
	return check("vkDeviceWaitIdle", d.drv.DeviceWaitIdle(d.handle))
}

// Release destroys the logical device. Every child object must already be
// released. Safe to call on nil or twice.
func (d *Device) Release() {
	if d == nil || d.handle == 0 {
		return
	}
	d.drv.DestroyDevice(d.handle)
	d.handle = 0
	d.queue.handle = 0
}

// Handle returns the raw VkQueue.
func (q Queue) Handle() VkQueue { return q.handle }

// Family returns the queue family index.
func (q Queue) Family() uint32 { return q.family }

// WaitIdle blocks until the queue has no pending work.
func (q Queue) WaitIdle() error {
	return check("vkQueueWaitIdle", q.drv.QueueWaitIdle(q.handle))
}
