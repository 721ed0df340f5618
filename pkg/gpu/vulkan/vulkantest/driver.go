// Package vulkantest provides an in-process fake of the Vulkan driver.
//
// The fake keeps every object it hands out in a table, so tests can assert
// on leaks, double destroys, map/unmap balance and call order. Memory is
// plain Go memory; a submitted dispatch runs a KernelFunc over float32 views
// of the bound storage buffers.
package vulkantest

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unsafe"

	"github.com/orneryd/vkadd/pkg/gpu/vulkan"
)

const spirvMagic = 0x07230203

// KernelFunc executes one dispatch. bindings[i] is the float32 view of the
// buffer range written to binding i.
type KernelFunc func(groups [3]uint32, bindings [][]float32)

// VectorAdd writes bindings[0][i]+bindings[1][i] to bindings[2][i] for every
// invocation of a local-size-1 kernel.
func VectorAdd(groups [3]uint32, bindings [][]float32) {
	if len(bindings) < 3 {
		return
	}
	a, b, out := bindings[0], bindings[1], bindings[2]
	n := int(groups[0]) * int(groups[1]) * int(groups[2])
	for i := 0; i < n && i < len(a) && i < len(b) && i < len(out); i++ {
		out[i] = a[i] + b[i]
	}
}

// PhysicalDevice describes a GPU exposed by the fake.
type PhysicalDevice struct {
	Name          string
	Type          uint32
	APIVersion    uint32
	VendorID      uint32
	DeviceID      uint32
	QueueFamilies []vulkan.VkQueueFamilyProperties
	MemoryTypes   []vulkan.VkMemoryType
	MemoryHeaps   []vulkan.VkMemoryHeap
	Extensions    []string
}

// DefaultPhysicalDevice returns a discrete GPU with one compute+graphics
// queue family, a device-local memory type and a host-visible coherent one.
func DefaultPhysicalDevice() PhysicalDevice {
	return PhysicalDevice{
		Name:       "Fake GPU",
		Type:       vulkan.VK_PHYSICAL_DEVICE_TYPE_DISCRETE_GPU,
		APIVersion: vulkan.MakeVersion(1, 3, 0),
		VendorID:   0x10de,
		DeviceID:   0x2684,
		QueueFamilies: []vulkan.VkQueueFamilyProperties{
			{QueueFlags: vulkan.VK_QUEUE_GRAPHICS_BIT | vulkan.VK_QUEUE_COMPUTE_BIT | vulkan.VK_QUEUE_TRANSFER_BIT, QueueCount: 4},
		},
		MemoryTypes: []vulkan.VkMemoryType{
			{PropertyFlags: vulkan.VK_MEMORY_PROPERTY_DEVICE_LOCAL_BIT, HeapIndex: 0},
			{PropertyFlags: vulkan.VK_MEMORY_PROPERTY_HOST_VISIBLE_BIT | vulkan.VK_MEMORY_PROPERTY_HOST_COHERENT_BIT, HeapIndex: 1},
		},
		MemoryHeaps: []vulkan.VkMemoryHeap{
			{Size: 8 << 30, Flags: vulkan.VK_MEMORY_HEAP_DEVICE_LOCAL_BIT},
			{Size: 16 << 30},
		},
		Extensions: []string{vulkan.ExtPortabilitySubset, "VK_KHR_storage_buffer_storage_class"},
	}
}

// InstanceRecord captures what CreateInstance was asked for.
type InstanceRecord struct {
	ApplicationName string
	EngineName      string
	APIVersion      uint32
	Flags           uint32
	Layers          []string
	Extensions      []string
}

// DeviceRecord captures what CreateDevice was asked for.
type DeviceRecord struct {
	PhysicalDevice int
	QueueFamily    uint32
	QueueCount     uint32
	QueuePriority  float32
	Extensions     []string
}

// Dispatch records one executed vkCmdDispatch.
type Dispatch struct {
	Groups     [3]uint32
	EntryPoint string
	Bindings   int
}

type object struct {
	kind   string
	parent uintptr
}

type memory struct {
	data      []byte
	typeIndex uint32
	mapped    bool
}

type buffer struct {
	size   uint64
	memory uintptr
	offset uint64
	bound  bool
}

type pipeline struct {
	layout uintptr
	module uintptr
	entry  string
}

type descriptorPool struct {
	maxSets     uint32
	descriptors uint32
	usedSets    uint32
	usedDesc    uint32
}

type descriptorSet struct {
	layoutBindings uint32
	writes         map[uint32]vulkan.VkDescriptorBufferInfo
}

const (
	cbInitial = iota
	cbRecording
	cbExecutable
	cbSubmitted
)

type command struct {
	name     string
	pipeline uintptr
	layout   uintptr
	set      uintptr
	groups   [3]uint32
}

type commandBuffer struct {
	state int
	cmds  []command
}

type queue struct {
	device uintptr
	family uint32
}

// Driver is a fake vulkan.Driver. Configure the exported fields before the
// first call; they are not synchronized.
type Driver struct {
	Devices            []PhysicalDevice
	InstanceExtensions []string
	InstanceLayers     []string
	Kernel             KernelFunc

	mu         sync.Mutex
	next       uintptr
	objects    map[uintptr]*object
	calls      []string
	counts     map[string]int
	failures   map[string]failure
	violations []string

	memories   map[uintptr]*memory
	buffers    map[uintptr]*buffer
	layouts    map[uintptr]uint32
	pipelines  map[uintptr]*pipeline
	pools      map[uintptr]*descriptorPool
	sets       map[uintptr]*descriptorSet
	cmdPools   map[uintptr]uint32
	cmdBuffers map[uintptr]*commandBuffer
	queues     map[uintptr]queue
	devices    map[uintptr]DeviceRecord

	instances  []InstanceRecord
	deviceLog  []DeviceRecord
	dispatches []Dispatch
	mapCount   int
	unmapCount int
	submits    int
}

type failure struct {
	nth    int
	result vulkan.VkResult
}

var _ vulkan.Driver = (*Driver)(nil)

const physicalDeviceBase = 0xD000

// New returns a fake driver exposing DefaultPhysicalDevice, the usual
// instance extensions and the Khronos validation layer.
func New() *Driver {
	return &Driver{
		Devices: []PhysicalDevice{DefaultPhysicalDevice()},
		InstanceExtensions: []string{
			vulkan.ExtDebugUtils,
			vulkan.ExtPortabilityEnumeration,
			vulkan.ExtGetPhysicalDeviceProperties2,
			"VK_KHR_surface",
		},
		InstanceLayers: []string{vulkan.LayerKhronosValidation},
		Kernel:         VectorAdd,
		next:           0x100,
		objects:        make(map[uintptr]*object),
		counts:         make(map[string]int),
		failures:       make(map[string]failure),
		memories:       make(map[uintptr]*memory),
		buffers:        make(map[uintptr]*buffer),
		layouts:        make(map[uintptr]uint32),
		pipelines:      make(map[uintptr]*pipeline),
		pools:          make(map[uintptr]*descriptorPool),
		sets:           make(map[uintptr]*descriptorSet),
		cmdPools:       make(map[uintptr]uint32),
		cmdBuffers:     make(map[uintptr]*commandBuffer),
		queues:         make(map[uintptr]queue),
		devices:        make(map[uintptr]DeviceRecord),
	}
}

// FailOn makes every call named call (e.g. "vkCreateBuffer") return result.
func (d *Driver) FailOn(call string, result vulkan.VkResult) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[call] = failure{result: result}
}

// FailOnCall makes only the nth (1-based) call named call return result.
func (d *Driver) FailOnCall(call string, nth int, result vulkan.VkResult) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[call] = failure{nth: nth, result: result}
}

// Calls returns every call made so far, in order.
func (d *Driver) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

// CallCount returns how often call was made.
func (d *Driver) CallCount(call string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counts[call]
}

// CallsMatching returns the calls that start with any of prefixes, in order.
func (d *Driver) CallsMatching(prefixes ...string) []string {
	var out []string
	for _, c := range d.Calls() {
		for _, p := range prefixes {
			if strings.HasPrefix(c, p) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// Violations returns the API misuse the fake detected.
func (d *Driver) Violations() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.violations...)
}

// Live returns the number of objects created and not yet destroyed.
func (d *Driver) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.objects)
}

// LiveByKind returns the live object count per kind.
func (d *Driver) LiveByKind() map[string]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]int)
	for _, o := range d.objects {
		out[o.kind]++
	}
	return out
}

// Dispatches returns the dispatches executed by QueueSubmit.
func (d *Driver) Dispatches() []Dispatch {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Dispatch(nil), d.dispatches...)
}

// Instances returns a record per successful CreateInstance.
func (d *Driver) Instances() []InstanceRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]InstanceRecord(nil), d.instances...)
}

// DeviceRecords returns a record per successful CreateDevice.
func (d *Driver) DeviceRecords() []DeviceRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]DeviceRecord(nil), d.deviceLog...)
}

// MapCount returns the number of successful vkMapMemory calls.
func (d *Driver) MapCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mapCount
}

// UnmapCount returns the number of vkUnmapMemory calls on mapped memory.
func (d *Driver) UnmapCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.unmapCount
}

// CommandPoolFamilies returns the queue family of every live command pool.
func (d *Driver) CommandPoolFamilies() []uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]uint32, 0, len(d.cmdPools))
	for _, f := range d.cmdPools {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// record logs a call and reports an injected failure, if any. Callers hold mu.
func (d *Driver) record(call string) (vulkan.VkResult, bool) {
	d.calls = append(d.calls, call)
	d.counts[call]++
	f, ok := d.failures[call]
	if !ok {
		return 0, false
	}
	if f.nth != 0 && f.nth != d.counts[call] {
		return 0, false
	}
	return f.result, true
}

func (d *Driver) violate(format string, args ...interface{}) {
	d.violations = append(d.violations, fmt.Sprintf(format, args...))
}

func (d *Driver) create(kind string, parent uintptr) uintptr {
	d.next += 0x10
	h := d.next
	d.objects[h] = &object{kind: kind, parent: parent}
	return h
}

// live reports whether h is a live object of kind.
func (d *Driver) live(h uintptr, kind string) bool {
	o, ok := d.objects[h]
	return ok && o.kind == kind
}

// destroy removes h, flagging null, unknown and wrong-kind handles.
func (d *Driver) destroy(call string, h uintptr, kind string) bool {
	if h == 0 {
		d.violate("%s: null handle", call)
		return false
	}
	o, ok := d.objects[h]
	if !ok {
		d.violate("%s: handle %#x is not live (double destroy?)", call, h)
		return false
	}
	if o.kind != kind {
		d.violate("%s: handle %#x is a %s, not a %s", call, h, o.kind, kind)
		return false
	}
	delete(d.objects, h)
	return true
}

// dropChildren removes every object whose parent is h.
func (d *Driver) dropChildren(h uintptr) {
	for child, o := range d.objects {
		if o.parent == h {
			delete(d.objects, child)
			delete(d.sets, child)
			delete(d.cmdBuffers, child)
		}
	}
}

func (d *Driver) childKinds(h uintptr) []string {
	var kinds []string
	for _, o := range d.objects {
		if o.parent == h {
			kinds = append(kinds, o.kind)
		}
	}
	sort.Strings(kinds)
	return kinds
}

func (d *Driver) physicalDevice(h vulkan.VkPhysicalDevice) (int, *PhysicalDevice) {
	idx := int(h) - physicalDeviceBase
	if idx < 0 || idx >= len(d.Devices) {
		return -1, nil
	}
	return idx, &d.Devices[idx]
}

func (d *Driver) deviceLive(h vulkan.VkDevice) bool {
	return d.live(uintptr(h), "device")
}

func readStrings(count uint32, array uintptr) []string {
	if count == 0 || array == 0 {
		return nil
	}
	ptrs := unsafe.Slice((*uintptr)(unsafe.Pointer(array)), count)
	out := make([]string, count)
	for i, p := range ptrs {
		out[i] = vulkan.GoString(p)
	}
	return out
}

func containsAll(have []string, want []string) (string, bool) {
	set := make(map[string]bool, len(have))
	for _, h := range have {
		set[h] = true
	}
	for _, w := range want {
		if !set[w] {
			return w, false
		}
	}
	return "", true
}

// fillExtensions implements the count/fill enumeration protocol.
func fillExtensions(names []string, pCount *uint32, pProps *vulkan.VkExtensionProperties) vulkan.VkResult {
	if pProps == nil {
		*pCount = uint32(len(names))
		return vulkan.VK_SUCCESS
	}
	n := int(*pCount)
	if n > len(names) {
		n = len(names)
	}
	props := unsafe.Slice(pProps, n)
	for i := 0; i < n; i++ {
		vulkan.PutCString(props[i].ExtensionName[:], names[i])
		props[i].SpecVersion = 1
	}
	*pCount = uint32(n)
	if n < len(names) {
		return vulkan.VK_INCOMPLETE
	}
	return vulkan.VK_SUCCESS
}

func (d *Driver) EnumerateInstanceExtensionProperties(pLayerName *byte, pPropertyCount *uint32, pProperties *vulkan.VkExtensionProperties) vulkan.VkResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, fail := d.record("vkEnumerateInstanceExtensionProperties"); fail {
		return r
	}
	if pLayerName != nil {
		*pPropertyCount = 0
		return vulkan.VK_SUCCESS
	}
	return fillExtensions(d.InstanceExtensions, pPropertyCount, pProperties)
}

func (d *Driver) EnumerateInstanceLayerProperties(pPropertyCount *uint32, pProperties *vulkan.VkLayerProperties) vulkan.VkResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, fail := d.record("vkEnumerateInstanceLayerProperties"); fail {
		return r
	}
	if pProperties == nil {
		*pPropertyCount = uint32(len(d.InstanceLayers))
		return vulkan.VK_SUCCESS
	}
	n := int(*pPropertyCount)
	if n > len(d.InstanceLayers) {
		n = len(d.InstanceLayers)
	}
	props := unsafe.Slice(pProperties, n)
	for i := 0; i < n; i++ {
		vulkan.PutCString(props[i].LayerName[:], d.InstanceLayers[i])
		vulkan.PutCString(props[i].Description[:], "fake layer")
		props[i].SpecVersion = vulkan.MakeVersion(1, 3, 0)
		props[i].ImplementationVersion = 1
	}
	*pPropertyCount = uint32(n)
	if n < len(d.InstanceLayers) {
		return vulkan.VK_INCOMPLETE
	}
	return vulkan.VK_SUCCESS
}

func (d *Driver) CreateInstance(pCreateInfo *vulkan.VkInstanceCreateInfo, pInstance *vulkan.VkInstance) vulkan.VkResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, fail := d.record("vkCreateInstance"); fail {
		return r
	}
	if pCreateInfo.SType != vulkan.VK_STRUCTURE_TYPE_INSTANCE_CREATE_INFO {
		d.violate("vkCreateInstance: bad sType %d", pCreateInfo.SType)
	}

	rec := InstanceRecord{
		Flags:      pCreateInfo.Flags,
		Layers:     readStrings(pCreateInfo.EnabledLayerCount, pCreateInfo.PpEnabledLayerNames),
		Extensions: readStrings(pCreateInfo.EnabledExtensionCount, pCreateInfo.PpEnabledExtensionNames),
	}
	if app := pCreateInfo.PApplicationInfo; app != nil {
		rec.ApplicationName = vulkan.GoString(app.PApplicationName)
		rec.EngineName = vulkan.GoString(app.PEngineName)
		rec.APIVersion = app.ApiVersion
	}

	if _, ok := containsAll(d.InstanceLayers, rec.Layers); !ok {
		return vulkan.VK_ERROR_LAYER_NOT_PRESENT
	}
	if _, ok := containsAll(d.InstanceExtensions, rec.Extensions); !ok {
		return vulkan.VK_ERROR_EXTENSION_NOT_PRESENT
	}

	d.instances = append(d.instances, rec)
	*pInstance = vulkan.VkInstance(d.create("instance", 0))
	return vulkan.VK_SUCCESS
}

func (d *Driver) DestroyInstance(instance vulkan.VkInstance) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("vkDestroyInstance")
	for _, o := range d.objects {
		if o.kind == "device" {
			d.violate("vkDestroyInstance: device still live")
			break
		}
	}
	d.destroy("vkDestroyInstance", uintptr(instance), "instance")
}

func (d *Driver) EnumeratePhysicalDevices(instance vulkan.VkInstance, pPhysicalDeviceCount *uint32, pPhysicalDevices *vulkan.VkPhysicalDevice) vulkan.VkResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, fail := d.record("vkEnumeratePhysicalDevices"); fail {
		return r
	}
	if !d.live(uintptr(instance), "instance") {
		d.violate("vkEnumeratePhysicalDevices: instance %#x is not live", instance)
		return vulkan.VK_ERROR_INITIALIZATION_FAILED
	}
	if pPhysicalDevices == nil {
		*pPhysicalDeviceCount = uint32(len(d.Devices))
		return vulkan.VK_SUCCESS
	}
	n := int(*pPhysicalDeviceCount)
	if n > len(d.Devices) {
		n = len(d.Devices)
	}
	out := unsafe.Slice(pPhysicalDevices, n)
	for i := 0; i < n; i++ {
		out[i] = vulkan.VkPhysicalDevice(physicalDeviceBase + i)
	}
	*pPhysicalDeviceCount = uint32(n)
	if n < len(d.Devices) {
		return vulkan.VK_INCOMPLETE
	}
	return vulkan.VK_SUCCESS
}

func (d *Driver) GetPhysicalDeviceProperties(physicalDevice vulkan.VkPhysicalDevice, pProperties *vulkan.VkPhysicalDeviceProperties) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("vkGetPhysicalDeviceProperties")
	_, pd := d.physicalDevice(physicalDevice)
	if pd == nil {
		d.violate("vkGetPhysicalDeviceProperties: unknown physical device %#x", physicalDevice)
		return
	}
	*pProperties = vulkan.VkPhysicalDeviceProperties{
		ApiVersion:    pd.APIVersion,
		DriverVersion: vulkan.MakeVersion(1, 0, 0),
		VendorID:      pd.VendorID,
		DeviceID:      pd.DeviceID,
		DeviceType:    pd.Type,
	}
	vulkan.PutCString(pProperties.DeviceName[:], pd.Name)
}

func (d *Driver) GetPhysicalDeviceMemoryProperties(physicalDevice vulkan.VkPhysicalDevice, pMemoryProperties *vulkan.VkPhysicalDeviceMemoryProperties) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("vkGetPhysicalDeviceMemoryProperties")
	_, pd := d.physicalDevice(physicalDevice)
	if pd == nil {
		d.violate("vkGetPhysicalDeviceMemoryProperties: unknown physical device %#x", physicalDevice)
		return
	}
	*pMemoryProperties = vulkan.VkPhysicalDeviceMemoryProperties{
		MemoryTypeCount: uint32(len(pd.MemoryTypes)),
		MemoryHeapCount: uint32(len(pd.MemoryHeaps)),
	}
	copy(pMemoryProperties.MemoryTypes[:], pd.MemoryTypes)
	copy(pMemoryProperties.MemoryHeaps[:], pd.MemoryHeaps)
}

func (d *Driver) GetPhysicalDeviceQueueFamilyProperties(physicalDevice vulkan.VkPhysicalDevice, pQueueFamilyPropertyCount *uint32, pQueueFamilyProperties *vulkan.VkQueueFamilyProperties) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("vkGetPhysicalDeviceQueueFamilyProperties")
	_, pd := d.physicalDevice(physicalDevice)
	if pd == nil {
		d.violate("vkGetPhysicalDeviceQueueFamilyProperties: unknown physical device %#x", physicalDevice)
		*pQueueFamilyPropertyCount = 0
		return
	}
	if pQueueFamilyProperties == nil {
		*pQueueFamilyPropertyCount = uint32(len(pd.QueueFamilies))
		return
	}
	n := int(*pQueueFamilyPropertyCount)
	if n > len(pd.QueueFamilies) {
		n = len(pd.QueueFamilies)
	}
	copy(unsafe.Slice(pQueueFamilyProperties, n), pd.QueueFamilies)
	*pQueueFamilyPropertyCount = uint32(n)
}

func (d *Driver) EnumerateDeviceExtensionProperties(physicalDevice vulkan.VkPhysicalDevice, pLayerName *byte, pPropertyCount *uint32, pProperties *vulkan.VkExtensionProperties) vulkan.VkResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, fail := d.record("vkEnumerateDeviceExtensionProperties"); fail {
		return r
	}
	_, pd := d.physicalDevice(physicalDevice)
	if pd == nil {
		d.violate("vkEnumerateDeviceExtensionProperties: unknown physical device %#x", physicalDevice)
		return vulkan.VK_ERROR_INITIALIZATION_FAILED
	}
	return fillExtensions(pd.Extensions, pPropertyCount, pProperties)
}

func (d *Driver) CreateDevice(physicalDevice vulkan.VkPhysicalDevice, pCreateInfo *vulkan.VkDeviceCreateInfo, pDevice *vulkan.VkDevice) vulkan.VkResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, fail := d.record("vkCreateDevice"); fail {
		return r
	}
	idx, pd := d.physicalDevice(physicalDevice)
	if pd == nil {
		d.violate("vkCreateDevice: unknown physical device %#x", physicalDevice)
		return vulkan.VK_ERROR_INITIALIZATION_FAILED
	}
	if pCreateInfo.QueueCreateInfoCount != 1 || pCreateInfo.PQueueCreateInfos == nil {
		d.violate("vkCreateDevice: expected exactly one queue create info, got %d", pCreateInfo.QueueCreateInfoCount)
		return vulkan.VK_ERROR_INITIALIZATION_FAILED
	}
	qci := pCreateInfo.PQueueCreateInfos
	if int(qci.QueueFamilyIndex) >= len(pd.QueueFamilies) {
		d.violate("vkCreateDevice: queue family %d out of range", qci.QueueFamilyIndex)
		return vulkan.VK_ERROR_INITIALIZATION_FAILED
	}
	if qci.QueueCount == 0 || qci.QueueCount > pd.QueueFamilies[qci.QueueFamilyIndex].QueueCount {
		d.violate("vkCreateDevice: bad queue count %d", qci.QueueCount)
		return vulkan.VK_ERROR_INITIALIZATION_FAILED
	}

	rec := DeviceRecord{
		PhysicalDevice: idx,
		QueueFamily:    qci.QueueFamilyIndex,
		QueueCount:     qci.QueueCount,
		Extensions:     readStrings(pCreateInfo.EnabledExtensionCount, pCreateInfo.PpEnabledExtensionNames),
	}
	if qci.PQueuePriorities != nil {
		rec.QueuePriority = *qci.PQueuePriorities
	}
	if _, ok := containsAll(pd.Extensions, rec.Extensions); !ok {
		return vulkan.VK_ERROR_EXTENSION_NOT_PRESENT
	}

	h := d.create("device", 0)
	d.devices[h] = rec
	d.deviceLog = append(d.deviceLog, rec)
	*pDevice = vulkan.VkDevice(h)
	return vulkan.VK_SUCCESS
}

func (d *Driver) DestroyDevice(device vulkan.VkDevice) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("vkDestroyDevice")
	if kinds := d.childKinds(uintptr(device)); len(kinds) > 0 {
		d.violate("vkDestroyDevice: live children %s", strings.Join(kinds, ","))
	}
	if d.destroy("vkDestroyDevice", uintptr(device), "device") {
		delete(d.devices, uintptr(device))
		for h, q := range d.queues {
			if q.device == uintptr(device) {
				delete(d.queues, h)
			}
		}
	}
}

func (d *Driver) GetDeviceQueue(device vulkan.VkDevice, queueFamilyIndex uint32, queueIndex uint32, pQueue *vulkan.VkQueue) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("vkGetDeviceQueue")
	rec, ok := d.devices[uintptr(device)]
	if !ok {
		d.violate("vkGetDeviceQueue: device %#x is not live", device)
		return
	}
	if queueFamilyIndex != rec.QueueFamily || queueIndex >= rec.QueueCount {
		d.violate("vkGetDeviceQueue: queue (%d,%d) was not created", queueFamilyIndex, queueIndex)
		return
	}
	d.next += 0x10
	h := d.next
	d.queues[h] = queue{device: uintptr(device), family: queueFamilyIndex}
	*pQueue = vulkan.VkQueue(h)
}

func (d *Driver) DeviceWaitIdle(device vulkan.VkDevice) vulkan.VkResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, fail := d.record("vkDeviceWaitIdle"); fail {
		return r
	}
	if !d.deviceLive(device) {
		d.violate("vkDeviceWaitIdle: device %#x is not live", device)
		return vulkan.VK_ERROR_DEVICE_LOST
	}
	return vulkan.VK_SUCCESS
}

func (d *Driver) CreateBuffer(device vulkan.VkDevice, pCreateInfo *vulkan.VkBufferCreateInfo, pBuffer *vulkan.VkBuffer) vulkan.VkResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, fail := d.record("vkCreateBuffer"); fail {
		return r
	}
	if !d.deviceLive(device) {
		d.violate("vkCreateBuffer: device %#x is not live", device)
		return vulkan.VK_ERROR_DEVICE_LOST
	}
	if pCreateInfo.Size == 0 {
		d.violate("vkCreateBuffer: zero size")
		return vulkan.VK_ERROR_OUT_OF_DEVICE_MEMORY
	}
	h := d.create("buffer", uintptr(device))
	d.buffers[h] = &buffer{size: uint64(pCreateInfo.Size)}
	*pBuffer = vulkan.VkBuffer(h)
	return vulkan.VK_SUCCESS
}

func (d *Driver) DestroyBuffer(device vulkan.VkDevice, buf vulkan.VkBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("vkDestroyBuffer")
	if d.destroy("vkDestroyBuffer", uintptr(buf), "buffer") {
		delete(d.buffers, uintptr(buf))
	}
}

func (d *Driver) GetBufferMemoryRequirements(device vulkan.VkDevice, buf vulkan.VkBuffer, pMemoryRequirements *vulkan.VkMemoryRequirements) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("vkGetBufferMemoryRequirements")
	b, ok := d.buffers[uintptr(buf)]
	if !ok {
		d.violate("vkGetBufferMemoryRequirements: buffer %#x is not live", buf)
		return
	}
	rec := d.devices[uintptr(device)]
	types := 0
	if rec.PhysicalDevice >= 0 && rec.PhysicalDevice < len(d.Devices) {
		types = len(d.Devices[rec.PhysicalDevice].MemoryTypes)
	}
	*pMemoryRequirements = vulkan.VkMemoryRequirements{
		Size:           vulkan.VkDeviceSize((b.size + 255) &^ 255),
		Alignment:      256,
		MemoryTypeBits: uint32(1)<<uint(types) - 1,
	}
}

func (d *Driver) AllocateMemory(device vulkan.VkDevice, pAllocateInfo *vulkan.VkMemoryAllocateInfo, pMemory *vulkan.VkDeviceMemory) vulkan.VkResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, fail := d.record("vkAllocateMemory"); fail {
		return r
	}
	rec, ok := d.devices[uintptr(device)]
	if !ok {
		d.violate("vkAllocateMemory: device %#x is not live", device)
		return vulkan.VK_ERROR_DEVICE_LOST
	}
	if int(pAllocateInfo.MemoryTypeIndex) >= len(d.Devices[rec.PhysicalDevice].MemoryTypes) {
		d.violate("vkAllocateMemory: memory type %d out of range", pAllocateInfo.MemoryTypeIndex)
		return vulkan.VK_ERROR_OUT_OF_DEVICE_MEMORY
	}
	h := d.create("memory", uintptr(device))
	d.memories[h] = &memory{
		data:      make([]byte, pAllocateInfo.AllocationSize),
		typeIndex: pAllocateInfo.MemoryTypeIndex,
	}
	*pMemory = vulkan.VkDeviceMemory(h)
	return vulkan.VK_SUCCESS
}

func (d *Driver) FreeMemory(device vulkan.VkDevice, mem vulkan.VkDeviceMemory) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("vkFreeMemory")
	if m, ok := d.memories[uintptr(mem)]; ok && m.mapped {
		d.violate("vkFreeMemory: memory %#x freed while mapped", mem)
	}
	if d.destroy("vkFreeMemory", uintptr(mem), "memory") {
		delete(d.memories, uintptr(mem))
	}
}

func (d *Driver) BindBufferMemory(device vulkan.VkDevice, buf vulkan.VkBuffer, mem vulkan.VkDeviceMemory, memoryOffset vulkan.VkDeviceSize) vulkan.VkResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, fail := d.record("vkBindBufferMemory"); fail {
		return r
	}
	b, okb := d.buffers[uintptr(buf)]
	m, okm := d.memories[uintptr(mem)]
	if !okb || !okm {
		d.violate("vkBindBufferMemory: buffer or memory not live")
		return vulkan.VK_ERROR_INITIALIZATION_FAILED
	}
	if b.bound {
		d.violate("vkBindBufferMemory: buffer %#x already bound", buf)
		return vulkan.VK_ERROR_INITIALIZATION_FAILED
	}
	if uint64(memoryOffset)+b.size > uint64(len(m.data)) {
		d.violate("vkBindBufferMemory: memory too small")
		return vulkan.VK_ERROR_OUT_OF_DEVICE_MEMORY
	}
	b.memory = uintptr(mem)
	b.offset = uint64(memoryOffset)
	b.bound = true
	return vulkan.VK_SUCCESS
}

func (d *Driver) MapMemory(device vulkan.VkDevice, mem vulkan.VkDeviceMemory, offset vulkan.VkDeviceSize, size vulkan.VkDeviceSize, flags uint32, ppData *uintptr) vulkan.VkResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, fail := d.record("vkMapMemory"); fail {
		return r
	}
	m, ok := d.memories[uintptr(mem)]
	if !ok {
		d.violate("vkMapMemory: memory %#x is not live", mem)
		return vulkan.VK_ERROR_MEMORY_MAP_FAILED
	}
	if m.mapped {
		d.violate("vkMapMemory: memory %#x already mapped", mem)
		return vulkan.VK_ERROR_MEMORY_MAP_FAILED
	}
	rec := d.devices[uintptr(device)]
	flagsOf := d.Devices[rec.PhysicalDevice].MemoryTypes[m.typeIndex].PropertyFlags
	if flagsOf&vulkan.VK_MEMORY_PROPERTY_HOST_VISIBLE_BIT == 0 {
		d.violate("vkMapMemory: memory type %d is not host visible", m.typeIndex)
		return vulkan.VK_ERROR_MEMORY_MAP_FAILED
	}
	end := uint64(len(m.data))
	if size != vulkan.VK_WHOLE_SIZE {
		end = uint64(offset) + uint64(size)
	}
	if uint64(offset) >= uint64(len(m.data)) || end > uint64(len(m.data)) {
		d.violate("vkMapMemory: range [%d,%d) outside allocation of %d bytes", offset, end, len(m.data))
		return vulkan.VK_ERROR_MEMORY_MAP_FAILED
	}
	m.mapped = true
	d.mapCount++
	*ppData = uintptr(unsafe.Pointer(&m.data[offset]))
	return vulkan.VK_SUCCESS
}

func (d *Driver) UnmapMemory(device vulkan.VkDevice, mem vulkan.VkDeviceMemory) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("vkUnmapMemory")
	m, ok := d.memories[uintptr(mem)]
	if !ok || !m.mapped {
		d.violate("vkUnmapMemory: memory %#x is not mapped", mem)
		return
	}
	m.mapped = false
	d.unmapCount++
}

func (d *Driver) CreateShaderModule(device vulkan.VkDevice, pCreateInfo *vulkan.VkShaderModuleCreateInfo, pShaderModule *vulkan.VkShaderModule) vulkan.VkResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, fail := d.record("vkCreateShaderModule"); fail {
		return r
	}
	if !d.deviceLive(device) {
		d.violate("vkCreateShaderModule: device %#x is not live", device)
		return vulkan.VK_ERROR_DEVICE_LOST
	}
	if pCreateInfo.CodeSize == 0 || pCreateInfo.CodeSize%4 != 0 || pCreateInfo.PCode == nil {
		d.violate("vkCreateShaderModule: bad code size %d", pCreateInfo.CodeSize)
		return vulkan.VK_ERROR_INVALID_SHADER_NV
	}
	words := unsafe.Slice(pCreateInfo.PCode, pCreateInfo.CodeSize/4)
	if words[0] != spirvMagic {
		return vulkan.VK_ERROR_INVALID_SHADER_NV
	}
	*pShaderModule = vulkan.VkShaderModule(d.create("shader", uintptr(device)))
	return vulkan.VK_SUCCESS
}

func (d *Driver) DestroyShaderModule(device vulkan.VkDevice, shaderModule vulkan.VkShaderModule) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("vkDestroyShaderModule")
	d.destroy("vkDestroyShaderModule", uintptr(shaderModule), "shader")
}

func (d *Driver) CreateDescriptorSetLayout(device vulkan.VkDevice, pCreateInfo *vulkan.VkDescriptorSetLayoutCreateInfo, pSetLayout *vulkan.VkDescriptorSetLayout) vulkan.VkResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, fail := d.record("vkCreateDescriptorSetLayout"); fail {
		return r
	}
	if !d.deviceLive(device) {
		d.violate("vkCreateDescriptorSetLayout: device %#x is not live", device)
		return vulkan.VK_ERROR_DEVICE_LOST
	}
	bindings := unsafe.Slice(pCreateInfo.PBindings, pCreateInfo.BindingCount)
	for i, b := range bindings {
		if b.Binding != uint32(i) || b.DescriptorType != vulkan.VK_DESCRIPTOR_TYPE_STORAGE_BUFFER ||
			b.DescriptorCount != 1 || b.StageFlags != vulkan.VK_SHADER_STAGE_COMPUTE_BIT {
			d.violate("vkCreateDescriptorSetLayout: unexpected binding %+v", b)
		}
	}
	h := d.create("descriptor_set_layout", uintptr(device))
	d.layouts[h] = pCreateInfo.BindingCount
	*pSetLayout = vulkan.VkDescriptorSetLayout(h)
	return vulkan.VK_SUCCESS
}

func (d *Driver) DestroyDescriptorSetLayout(device vulkan.VkDevice, descriptorSetLayout vulkan.VkDescriptorSetLayout) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("vkDestroyDescriptorSetLayout")
	if d.destroy("vkDestroyDescriptorSetLayout", uintptr(descriptorSetLayout), "descriptor_set_layout") {
		delete(d.layouts, uintptr(descriptorSetLayout))
	}
}

func (d *Driver) CreatePipelineLayout(device vulkan.VkDevice, pCreateInfo *vulkan.VkPipelineLayoutCreateInfo, pPipelineLayout *vulkan.VkPipelineLayout) vulkan.VkResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, fail := d.record("vkCreatePipelineLayout"); fail {
		return r
	}
	if !d.deviceLive(device) {
		d.violate("vkCreatePipelineLayout: device %#x is not live", device)
		return vulkan.VK_ERROR_DEVICE_LOST
	}
	for _, l := range unsafe.Slice(pCreateInfo.PSetLayouts, pCreateInfo.SetLayoutCount) {
		if !d.live(uintptr(l), "descriptor_set_layout") {
			d.violate("vkCreatePipelineLayout: set layout %#x is not live", l)
		}
	}
	*pPipelineLayout = vulkan.VkPipelineLayout(d.create("pipeline_layout", uintptr(device)))
	return vulkan.VK_SUCCESS
}

func (d *Driver) DestroyPipelineLayout(device vulkan.VkDevice, pipelineLayout vulkan.VkPipelineLayout) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("vkDestroyPipelineLayout")
	d.destroy("vkDestroyPipelineLayout", uintptr(pipelineLayout), "pipeline_layout")
}

func (d *Driver) CreateComputePipelines(device vulkan.VkDevice, pipelineCache uintptr, createInfoCount uint32, pCreateInfos *vulkan.VkComputePipelineCreateInfo, pPipelines *vulkan.VkPipeline) vulkan.VkResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, fail := d.record("vkCreateComputePipelines"); fail {
		return r
	}
	if !d.deviceLive(device) {
		d.violate("vkCreateComputePipelines: device %#x is not live", device)
		return vulkan.VK_ERROR_DEVICE_LOST
	}
	infos := unsafe.Slice(pCreateInfos, createInfoCount)
	out := unsafe.Slice(pPipelines, createInfoCount)
	for i, info := range infos {
		if info.Stage.Stage != vulkan.VK_SHADER_STAGE_COMPUTE_BIT {
			d.violate("vkCreateComputePipelines: stage %#x is not compute", info.Stage.Stage)
		}
		if !d.live(uintptr(info.Stage.Module), "shader") || !d.live(uintptr(info.Layout), "pipeline_layout") {
			d.violate("vkCreateComputePipelines: module or layout not live")
			return vulkan.VK_ERROR_INITIALIZATION_FAILED
		}
		h := d.create("pipeline", uintptr(device))
		d.pipelines[h] = &pipeline{
			layout: uintptr(info.Layout),
			module: uintptr(info.Stage.Module),
			entry:  vulkan.GoString(info.Stage.PName),
		}
		out[i] = vulkan.VkPipeline(h)
	}
	return vulkan.VK_SUCCESS
}

func (d *Driver) DestroyPipeline(device vulkan.VkDevice, p vulkan.VkPipeline) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("vkDestroyPipeline")
	if d.destroy("vkDestroyPipeline", uintptr(p), "pipeline") {
		delete(d.pipelines, uintptr(p))
	}
}

func (d *Driver) CreateDescriptorPool(device vulkan.VkDevice, pCreateInfo *vulkan.VkDescriptorPoolCreateInfo, pDescriptorPool *vulkan.VkDescriptorPool) vulkan.VkResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, fail := d.record("vkCreateDescriptorPool"); fail {
		return r
	}
	if !d.deviceLive(device) {
		d.violate("vkCreateDescriptorPool: device %#x is not live", device)
		return vulkan.VK_ERROR_DEVICE_LOST
	}
	pool := &descriptorPool{maxSets: pCreateInfo.MaxSets}
	for _, size := range unsafe.Slice(pCreateInfo.PPoolSizes, pCreateInfo.PoolSizeCount) {
		if size.Type == vulkan.VK_DESCRIPTOR_TYPE_STORAGE_BUFFER {
			pool.descriptors += size.DescriptorCount
		}
	}
	h := d.create("descriptor_pool", uintptr(device))
	d.pools[h] = pool
	*pDescriptorPool = vulkan.VkDescriptorPool(h)
	return vulkan.VK_SUCCESS
}

func (d *Driver) DestroyDescriptorPool(device vulkan.VkDevice, descriptorPool vulkan.VkDescriptorPool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("vkDestroyDescriptorPool")
	if d.destroy("vkDestroyDescriptorPool", uintptr(descriptorPool), "descriptor_pool") {
		delete(d.pools, uintptr(descriptorPool))
		d.dropChildren(uintptr(descriptorPool))
	}
}

func (d *Driver) AllocateDescriptorSets(device vulkan.VkDevice, pAllocateInfo *vulkan.VkDescriptorSetAllocateInfo, pDescriptorSets *vulkan.VkDescriptorSet) vulkan.VkResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, fail := d.record("vkAllocateDescriptorSets"); fail {
		return r
	}
	pool, ok := d.pools[uintptr(pAllocateInfo.DescriptorPool)]
	if !ok {
		d.violate("vkAllocateDescriptorSets: pool %#x is not live", pAllocateInfo.DescriptorPool)
		return vulkan.VK_ERROR_OUT_OF_POOL_MEMORY
	}
	layouts := unsafe.Slice(pAllocateInfo.PSetLayouts, pAllocateInfo.DescriptorSetCount)
	out := unsafe.Slice(pDescriptorSets, pAllocateInfo.DescriptorSetCount)

	var need uint32
	for _, l := range layouts {
		n, ok := d.layouts[uintptr(l)]
		if !ok {
			d.violate("vkAllocateDescriptorSets: set layout %#x is not live", l)
			return vulkan.VK_ERROR_OUT_OF_POOL_MEMORY
		}
		need += n
	}
	if pool.usedSets+uint32(len(layouts)) > pool.maxSets || pool.usedDesc+need > pool.descriptors {
		return vulkan.VK_ERROR_OUT_OF_POOL_MEMORY
	}
	pool.usedSets += uint32(len(layouts))
	pool.usedDesc += need

	for i, l := range layouts {
		h := d.create("descriptor_set", uintptr(pAllocateInfo.DescriptorPool))
		d.sets[h] = &descriptorSet{
			layoutBindings: d.layouts[uintptr(l)],
			writes:         make(map[uint32]vulkan.VkDescriptorBufferInfo),
		}
		out[i] = vulkan.VkDescriptorSet(h)
	}
	return vulkan.VK_SUCCESS
}

func (d *Driver) UpdateDescriptorSets(device vulkan.VkDevice, descriptorWriteCount uint32, pDescriptorWrites *vulkan.VkWriteDescriptorSet, descriptorCopyCount uint32, pDescriptorCopies uintptr) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("vkUpdateDescriptorSets")
	if descriptorCopyCount != 0 {
		d.violate("vkUpdateDescriptorSets: copies are not supported")
	}
	for _, w := range unsafe.Slice(pDescriptorWrites, descriptorWriteCount) {
		set, ok := d.sets[uintptr(w.DstSet)]
		if !ok {
			d.violate("vkUpdateDescriptorSets: set %#x is not live", w.DstSet)
			continue
		}
		if w.DstBinding >= set.layoutBindings || w.DescriptorType != vulkan.VK_DESCRIPTOR_TYPE_STORAGE_BUFFER || w.DescriptorCount != 1 || w.PBufferInfo == nil {
			d.violate("vkUpdateDescriptorSets: bad write to binding %d", w.DstBinding)
			continue
		}
		info := *w.PBufferInfo
		b, ok := d.buffers[uintptr(info.Buffer)]
		if !ok {
			d.violate("vkUpdateDescriptorSets: buffer %#x is not live", info.Buffer)
			continue
		}
		if info.Range != vulkan.VK_WHOLE_SIZE && uint64(info.Offset)+uint64(info.Range) > b.size {
			d.violate("vkUpdateDescriptorSets: range exceeds buffer size")
			continue
		}
		set.writes[w.DstBinding] = info
	}
}

func (d *Driver) CreateCommandPool(device vulkan.VkDevice, pCreateInfo *vulkan.VkCommandPoolCreateInfo, pCommandPool *vulkan.VkCommandPool) vulkan.VkResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, fail := d.record("vkCreateCommandPool"); fail {
		return r
	}
	rec, ok := d.devices[uintptr(device)]
	if !ok {
		d.violate("vkCreateCommandPool: device %#x is not live", device)
		return vulkan.VK_ERROR_DEVICE_LOST
	}
	if pCreateInfo.QueueFamilyIndex != rec.QueueFamily {
		d.violate("vkCreateCommandPool: family %d has no queues on this device (queues created on %d)", pCreateInfo.QueueFamilyIndex, rec.QueueFamily)
	}
	h := d.create("command_pool", uintptr(device))
	d.cmdPools[h] = pCreateInfo.QueueFamilyIndex
	*pCommandPool = vulkan.VkCommandPool(h)
	return vulkan.VK_SUCCESS
}

func (d *Driver) DestroyCommandPool(device vulkan.VkDevice, commandPool vulkan.VkCommandPool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("vkDestroyCommandPool")
	if d.destroy("vkDestroyCommandPool", uintptr(commandPool), "command_pool") {
		delete(d.cmdPools, uintptr(commandPool))
		d.dropChildren(uintptr(commandPool))
	}
}

func (d *Driver) AllocateCommandBuffers(device vulkan.VkDevice, pAllocateInfo *vulkan.VkCommandBufferAllocateInfo, pCommandBuffers *vulkan.VkCommandBuffer) vulkan.VkResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, fail := d.record("vkAllocateCommandBuffers"); fail {
		return r
	}
	if !d.live(uintptr(pAllocateInfo.CommandPool), "command_pool") {
		d.violate("vkAllocateCommandBuffers: pool %#x is not live", pAllocateInfo.CommandPool)
		return vulkan.VK_ERROR_OUT_OF_DEVICE_MEMORY
	}
	if pAllocateInfo.Level != vulkan.VK_COMMAND_BUFFER_LEVEL_PRIMARY {
		d.violate("vkAllocateCommandBuffers: level %d is not primary", pAllocateInfo.Level)
	}
	out := unsafe.Slice(pCommandBuffers, pAllocateInfo.CommandBufferCount)
	for i := range out {
		h := d.create("command_buffer", uintptr(pAllocateInfo.CommandPool))
		d.cmdBuffers[h] = &commandBuffer{}
		out[i] = vulkan.VkCommandBuffer(h)
	}
	return vulkan.VK_SUCCESS
}

func (d *Driver) BeginCommandBuffer(commandBuffer vulkan.VkCommandBuffer, pBeginInfo *vulkan.VkCommandBufferBeginInfo) vulkan.VkResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, fail := d.record("vkBeginCommandBuffer"); fail {
		return r
	}
	cb, ok := d.cmdBuffers[uintptr(commandBuffer)]
	if !ok {
		d.violate("vkBeginCommandBuffer: command buffer %#x is not live", commandBuffer)
		return vulkan.VK_ERROR_INITIALIZATION_FAILED
	}
	if cb.state != cbInitial {
		d.violate("vkBeginCommandBuffer: command buffer is not in the initial state")
	}
	cb.state = cbRecording
	cb.cmds = nil
	return vulkan.VK_SUCCESS
}

func (d *Driver) EndCommandBuffer(commandBuffer vulkan.VkCommandBuffer) vulkan.VkResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, fail := d.record("vkEndCommandBuffer"); fail {
		return r
	}
	cb, ok := d.cmdBuffers[uintptr(commandBuffer)]
	if !ok || cb.state != cbRecording {
		d.violate("vkEndCommandBuffer: command buffer %#x is not recording", commandBuffer)
		return vulkan.VK_ERROR_INITIALIZATION_FAILED
	}
	cb.state = cbExecutable
	return vulkan.VK_SUCCESS
}

func (d *Driver) recordCommand(call string, commandBuffer vulkan.VkCommandBuffer, cmd command) {
	cb, ok := d.cmdBuffers[uintptr(commandBuffer)]
	if !ok || cb.state != cbRecording {
		d.violate("%s: command buffer %#x is not recording", call, commandBuffer)
		return
	}
	cb.cmds = append(cb.cmds, cmd)
}

func (d *Driver) CmdBindPipeline(commandBuffer vulkan.VkCommandBuffer, pipelineBindPoint uint32, p vulkan.VkPipeline) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("vkCmdBindPipeline")
	if pipelineBindPoint != vulkan.VK_PIPELINE_BIND_POINT_COMPUTE {
		d.violate("vkCmdBindPipeline: bind point %d is not compute", pipelineBindPoint)
	}
	d.recordCommand("vkCmdBindPipeline", commandBuffer, command{name: "bind_pipeline", pipeline: uintptr(p)})
}

func (d *Driver) CmdBindDescriptorSets(commandBuffer vulkan.VkCommandBuffer, pipelineBindPoint uint32, layout vulkan.VkPipelineLayout, firstSet uint32, descriptorSetCount uint32, pDescriptorSets *vulkan.VkDescriptorSet, dynamicOffsetCount uint32, pDynamicOffsets uintptr) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("vkCmdBindDescriptorSets")
	if firstSet != 0 || descriptorSetCount != 1 || pDescriptorSets == nil {
		d.violate("vkCmdBindDescriptorSets: expected one set at index 0")
		return
	}
	d.recordCommand("vkCmdBindDescriptorSets", commandBuffer, command{name: "bind_set", layout: uintptr(layout), set: uintptr(*pDescriptorSets)})
}

func (d *Driver) CmdDispatch(commandBuffer vulkan.VkCommandBuffer, groupCountX uint32, groupCountY uint32, groupCountZ uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("vkCmdDispatch")
	d.recordCommand("vkCmdDispatch", commandBuffer, command{name: "dispatch", groups: [3]uint32{groupCountX, groupCountY, groupCountZ}})
}

func (d *Driver) QueueSubmit(q vulkan.VkQueue, submitCount uint32, pSubmits *vulkan.VkSubmitInfo, fence vulkan.VkFence) vulkan.VkResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, fail := d.record("vkQueueSubmit"); fail {
		return r
	}
	if _, ok := d.queues[uintptr(q)]; !ok {
		d.violate("vkQueueSubmit: queue %#x was never fetched", q)
		return vulkan.VK_ERROR_DEVICE_LOST
	}
	for h, m := range d.memories {
		if m.mapped {
			d.violate("vkQueueSubmit: memory %#x is mapped during submit", h)
		}
	}
	for _, submit := range unsafe.Slice(pSubmits, submitCount) {
		for _, cbh := range unsafe.Slice(submit.PCommandBuffers, submit.CommandBufferCount) {
			cb, ok := d.cmdBuffers[uintptr(cbh)]
			if !ok || cb.state != cbExecutable {
				d.violate("vkQueueSubmit: command buffer %#x is not executable", cbh)
				continue
			}
			d.execute(cb)
			cb.state = cbSubmitted
			d.submits++
		}
	}
	return vulkan.VK_SUCCESS
}

func (d *Driver) execute(cb *commandBuffer) {
	var boundPipeline, boundSet uintptr
	for _, cmd := range cb.cmds {
		switch cmd.name {
		case "bind_pipeline":
			boundPipeline = cmd.pipeline
		case "bind_set":
			boundSet = cmd.set
			if p, ok := d.pipelines[boundPipeline]; ok && p.layout != cmd.layout {
				d.violate("vkCmdBindDescriptorSets: layout does not match the bound pipeline")
			}
		case "dispatch":
			p, ok := d.pipelines[boundPipeline]
			if !ok {
				d.violate("vkCmdDispatch: no live pipeline bound")
				continue
			}
			set, ok := d.sets[boundSet]
			if !ok {
				d.violate("vkCmdDispatch: no live descriptor set bound")
				continue
			}
			bindings := d.views(set)
			if d.Kernel != nil {
				d.Kernel(cmd.groups, bindings)
			}
			d.dispatches = append(d.dispatches, Dispatch{Groups: cmd.groups, EntryPoint: p.entry, Bindings: len(bindings)})
		}
	}
}

// views maps each written binding to a float32 view of its buffer range.
func (d *Driver) views(set *descriptorSet) [][]float32 {
	out := make([][]float32, set.layoutBindings)
	for binding := uint32(0); binding < set.layoutBindings; binding++ {
		info, ok := set.writes[binding]
		if !ok {
			d.violate("vkCmdDispatch: binding %d was never written", binding)
			continue
		}
		b, ok := d.buffers[uintptr(info.Buffer)]
		if !ok || !b.bound {
			d.violate("vkCmdDispatch: binding %d buffer is not live or unbound", binding)
			continue
		}
		m, ok := d.memories[b.memory]
		if !ok {
			d.violate("vkCmdDispatch: binding %d memory was freed", binding)
			continue
		}
		size := uint64(info.Range)
		if info.Range == vulkan.VK_WHOLE_SIZE {
			size = b.size - uint64(info.Offset)
		}
		start := b.offset + uint64(info.Offset)
		n := int(size / 4)
		if n == 0 {
			continue
		}
		out[binding] = unsafe.Slice((*float32)(unsafe.Pointer(&m.data[start])), n)
	}
	return out
}

func (d *Driver) QueueWaitIdle(q vulkan.VkQueue) vulkan.VkResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, fail := d.record("vkQueueWaitIdle"); fail {
		return r
	}
	if _, ok := d.queues[uintptr(q)]; !ok {
		d.violate("vkQueueWaitIdle: queue %#x was never fetched", q)
		return vulkan.VK_ERROR_DEVICE_LOST
	}
	return vulkan.VK_SUCCESS
}

// Submits returns the number of command buffers executed.
func (d *Driver) Submits() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.submits
}
