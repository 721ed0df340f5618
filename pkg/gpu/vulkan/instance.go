package vulkan

import (
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/orneryd/vkadd/pkg/logging"
)

// InstanceOptions configures NewInstance.
type InstanceOptions struct {
	ApplicationName    string
	EngineName         string
	ApplicationVersion uint32
	EngineVersion      uint32
	APIVersion         uint32

	// Layers and Extensions are requested best-effort: names the loader
	// does not offer are logged and left out.
	Layers     []string
	Extensions []string

	// Portability enables VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
	// and requests VK_KHR_portability_enumeration.
	Portability bool

	Logger *logrus.Entry
}

// DefaultInstanceOptions returns the options vkadd uses when none are configured.
func DefaultInstanceOptions() InstanceOptions {
	return InstanceOptions{
		ApplicationName:    "Hello Vulkan",
		EngineName:         "Vulkan Engine",
		ApplicationVersion: MakeVersion(1, 0, 0),
		EngineVersion:      MakeVersion(1, 0, 0),
		APIVersion:         MakeVersion(1, 0, 0),
		Layers:             []string{LayerKhronosValidation},
		Extensions:         []string{ExtDebugUtils, ExtPortabilityEnumeration, ExtGetPhysicalDeviceProperties2},
		Portability:        runtime.GOOS == "darwin",
	}
}

// Instance owns a VkInstance.
type Instance struct {
	drv        Driver
	handle     VkInstance
	log        *logrus.Entry
	layers     []string
	extensions []string
}

// NewInstance creates a Vulkan instance.
func NewInstance(drv Driver, opts InstanceOptions) (*Instance, error) {
	log := logging.OrDiscard(opts.Logger)

	requestedExt := append([]string(nil), opts.Extensions...)
	if opts.Portability && !contains(requestedExt, ExtPortabilityEnumeration) {
		requestedExt = append(requestedExt, ExtPortabilityEnumeration)
	}

	availableExt, err := InstanceExtensions(drv)
	if err != nil {
		return nil, err
	}
	extensions := reconcile(log, "instance extensions", requestedExt, availableExt)

	var layers []string
	if len(opts.Layers) > 0 {
		availableLayers, err := InstanceLayers(drv)
		if err != nil {
			return nil, err
		}
		layers = reconcile(log, "layers", opts.Layers, availableLayers)
	}

	appName := append([]byte(opts.ApplicationName), 0)
	engineName := append([]byte(opts.EngineName), 0)

	appInfo := VkApplicationInfo{
		SType:              VK_STRUCTURE_TYPE_APPLICATION_INFO,
		PApplicationName:   uintptrOf(&appName[0]),
		ApplicationVersion: opts.ApplicationVersion,
		PEngineName:        uintptrOf(&engineName[0]),
		EngineVersion:      opts.EngineVersion,
		ApiVersion:         opts.APIVersion,
	}

	layerNames := newCStrings(layers)
	extNames := newCStrings(extensions)

	createInfo := VkInstanceCreateInfo{
		SType:                   VK_STRUCTURE_TYPE_INSTANCE_CREATE_INFO,
		PApplicationInfo:        &appInfo,
		EnabledLayerCount:       layerNames.count(),
		PpEnabledLayerNames:     layerNames.array(),
		EnabledExtensionCount:   extNames.count(),
		PpEnabledExtensionNames: extNames.array(),
	}
	if opts.Portability && contains(extensions, ExtPortabilityEnumeration) {
		createInfo.Flags |= VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
	}

	var handle VkInstance
	result := drv.CreateInstance(&createInfo, &handle)
	runtime.KeepAlive(appName)
	runtime.KeepAlive(engineName)
	runtime.KeepAlive(layerNames)
	runtime.KeepAlive(extNames)
	if err := check("vkCreateInstance", result); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"api_version": VersionString(opts.APIVersion),
		"layers":      layers,
		"extensions":  extensions,
	}).Info("Vulkan instance created")

	return &Instance{
		drv:        drv,
		handle:     handle,
		log:        log,
		layers:     layers,
		extensions: extensions,
	}, nil
}

// Handle returns the raw VkInstance.
func (i *Instance) Handle() VkInstance {
	if i == nil {
		return 0
	}
	return i.handle
}

// Driver returns the driver the instance was created with.
func (i *Instance) Driver() Driver { return i.drv }

// EnabledLayers returns the layers the instance was created with.
func (i *Instance) EnabledLayers() []string { return i.layers }

// EnabledExtensions returns the extensions the instance was created with.
func (i *Instance) EnabledExtensions() []string { return i.extensions }

// PhysicalDevices enumerates the physical devices visible to the instance.
func (i *Instance) PhysicalDevices() ([]PhysicalDevice, error) {
	if i == nil || i.handle == 0 {
		return nil, ErrReleased
	}

	var count uint32
	if err := check("vkEnumeratePhysicalDevices", i.drv.EnumeratePhysicalDevices(i.handle, &count, nil)); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	handles := make([]VkPhysicalDevice, count)
	result := i.drv.EnumeratePhysicalDevices(i.handle, &count, &handles[0])
	if result != VK_INCOMPLETE {
		if err := check("vkEnumeratePhysicalDevices", result); err != nil {
			return nil, err
		}
	}

	devices := make([]PhysicalDevice, 0, count)
	for idx, h := range handles[:count] {
		devices = append(devices, PhysicalDevice{drv: i.drv, handle: h, index: idx})
	}
	return devices, nil
}

// Release destroys the instance. Safe to call on nil or twice.
func (i *Instance) Release() {
	if i == nil || i.handle == 0 {
		return
	}
	i.drv.DestroyInstance(i.handle)
	i.handle = 0
}

func contains(list []string, name string) bool {
	for _, s := range list {
		if s == name {
			return true
		}
	}
	return false
}
