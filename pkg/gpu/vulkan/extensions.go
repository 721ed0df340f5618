package vulkan

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// InstanceExtensions lists the instance extensions offered by the loader.
func InstanceExtensions(drv Driver) ([]string, error) {
	var count uint32
	if err := check("vkEnumerateInstanceExtensionProperties", drv.EnumerateInstanceExtensionProperties(nil, &count, nil)); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	props := make([]VkExtensionProperties, count)
	result := drv.EnumerateInstanceExtensionProperties(nil, &count, &props[0])
	if result != VK_INCOMPLETE {
		if err := check("vkEnumerateInstanceExtensionProperties", result); err != nil {
			return nil, err
		}
	}
	return extensionNames(props[:count]), nil
}

// InstanceLayers lists the instance layers installed on the system.
func InstanceLayers(drv Driver) ([]string, error) {
	var count uint32
	if err := check("vkEnumerateInstanceLayerProperties", drv.EnumerateInstanceLayerProperties(&count, nil)); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	props := make([]VkLayerProperties, count)
	result := drv.EnumerateInstanceLayerProperties(&count, &props[0])
	if result != VK_INCOMPLETE {
		if err := check("vkEnumerateInstanceLayerProperties", result); err != nil {
			return nil, err
		}
	}
	names := make([]string, 0, count)
	for i := range props[:count] {
		names = append(names, CString(props[i].LayerName[:]))
	}
	return names, nil
}

func deviceExtensions(drv Driver, pd VkPhysicalDevice) ([]string, error) {
	var count uint32
	if err := check("vkEnumerateDeviceExtensionProperties", drv.EnumerateDeviceExtensionProperties(pd, nil, &count, nil)); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	props := make([]VkExtensionProperties, count)
	result := drv.EnumerateDeviceExtensionProperties(pd, nil, &count, &props[0])
	if result != VK_INCOMPLETE {
		if err := check("vkEnumerateDeviceExtensionProperties", result); err != nil {
			return nil, err
		}
	}
	return extensionNames(props[:count]), nil
}

func extensionNames(props []VkExtensionProperties) []string {
	names := make([]string, 0, len(props))
	for i := range props {
		names = append(names, CString(props[i].ExtensionName[:]))
	}
	return names
}

// reconcile returns the subset of requested names that are available, in
// request order. Missing names are logged and dropped.
func reconcile(log *logrus.Entry, kind string, requested, available []string) []string {
	have := make(map[string]bool, len(available))
	for _, name := range available {
		have[name] = true
	}

	if log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		sorted := append([]string(nil), available...)
		sort.Strings(sorted)
		log.WithField(kind, sorted).Debugf("available %s", kind)
	}

	enabled := make([]string, 0, len(requested))
	seen := make(map[string]bool, len(requested))
	for _, name := range requested {
		if seen[name] {
			continue
		}
		seen[name] = true
		if !have[name] {
			log.WithField("name", name).Warnf("requested %s not available, skipping", kind)
			continue
		}
		enabled = append(enabled, name)
	}
	return enabled
}

// cstrings keeps NUL-terminated copies of a string list and the pointer
// array Vulkan expects. The value must stay reachable until the call that
// consumes it returns.
type cstrings struct {
	bufs [][]byte
	ptrs []uintptr
}

func newCStrings(names []string) *cstrings {
	c := &cstrings{
		bufs: make([][]byte, len(names)),
		ptrs: make([]uintptr, len(names)),
	}
	for i, name := range names {
		c.bufs[i] = append([]byte(name), 0)
		c.ptrs[i] = uintptrOf(&c.bufs[i][0])
	}
	return c
}

// count returns the number of strings.
func (c *cstrings) count() uint32 {
	return uint32(len(c.ptrs))
}

// array returns a pointer to the first element, or 0 for an empty list.
func (c *cstrings) array() uintptr {
	if len(c.ptrs) == 0 {
		return 0
	}
	return uintptrOf(&c.ptrs[0])
}
