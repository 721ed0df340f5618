// Package vulkan provides the Vulkan compute plumbing used by vkadd.
//
// The implementation uses purego for FFI to dynamically load the Vulkan
// loader, so no CGO toolchain is needed:
//   - Windows: vulkan-1.dll (shipped with NVIDIA/AMD/Intel drivers)
//   - Linux: libvulkan.so.1 (Vulkan SDK or mesa)
//   - macOS: libvulkan.1.dylib or libMoltenVK.dylib
//
// All native calls go through the Driver interface. Load returns the
// process-wide native driver; tests substitute vulkantest.Driver.
package vulkan

import (
	"fmt"
	"sync"
)

// Vulkan function pointers (set by registerFunctions)
var (
	vulkanLib  uintptr
	vulkanPath string
	vulkanMu   sync.Mutex
	// vulkanErrs caches load failures by requested path ("" is the default list).
	vulkanErrs = map[string]error{}

	vkEnumerateInstanceExtensionProperties   func(pLayerName *byte, pPropertyCount *uint32, pProperties *VkExtensionProperties) VkResult
	vkEnumerateInstanceLayerProperties       func(pPropertyCount *uint32, pProperties *VkLayerProperties) VkResult
	vkCreateInstance                         func(pCreateInfo *VkInstanceCreateInfo, pAllocator uintptr, pInstance *VkInstance) VkResult
	vkDestroyInstance                        func(instance VkInstance, pAllocator uintptr)
	vkEnumeratePhysicalDevices               func(instance VkInstance, pPhysicalDeviceCount *uint32, pPhysicalDevices *VkPhysicalDevice) VkResult
	vkGetPhysicalDeviceProperties            func(physicalDevice VkPhysicalDevice, pProperties *VkPhysicalDeviceProperties)
	vkGetPhysicalDeviceMemoryProperties      func(physicalDevice VkPhysicalDevice, pMemoryProperties *VkPhysicalDeviceMemoryProperties)
	vkGetPhysicalDeviceQueueFamilyProperties func(physicalDevice VkPhysicalDevice, pQueueFamilyPropertyCount *uint32, pQueueFamilyProperties *VkQueueFamilyProperties)
	vkEnumerateDeviceExtensionProperties     func(physicalDevice VkPhysicalDevice, pLayerName *byte, pPropertyCount *uint32, pProperties *VkExtensionProperties) VkResult
	vkCreateDevice                           func(physicalDevice VkPhysicalDevice, pCreateInfo *VkDeviceCreateInfo, pAllocator uintptr, pDevice *VkDevice) VkResult
	vkDestroyDevice                          func(device VkDevice, pAllocator uintptr)
	vkGetDeviceQueue                         func(device VkDevice, queueFamilyIndex uint32, queueIndex uint32, pQueue *VkQueue)
	vkDeviceWaitIdle                         func(device VkDevice) VkResult
	vkCreateBuffer                           func(device VkDevice, pCreateInfo *VkBufferCreateInfo, pAllocator uintptr, pBuffer *VkBuffer) VkResult
	vkDestroyBuffer                          func(device VkDevice, buffer VkBuffer, pAllocator uintptr)
	vkGetBufferMemoryRequirements            func(device VkDevice, buffer VkBuffer, pMemoryRequirements *VkMemoryRequirements)
	vkAllocateMemory                         func(device VkDevice, pAllocateInfo *VkMemoryAllocateInfo, pAllocator uintptr, pMemory *VkDeviceMemory) VkResult
	vkFreeMemory                             func(device VkDevice, memory VkDeviceMemory, pAllocator uintptr)
	vkBindBufferMemory                       func(device VkDevice, buffer VkBuffer, memory VkDeviceMemory, memoryOffset VkDeviceSize) VkResult
	vkMapMemory                              func(device VkDevice, memory VkDeviceMemory, offset VkDeviceSize, size VkDeviceSize, flags uint32, ppData *uintptr) VkResult
	vkUnmapMemory                            func(device VkDevice, memory VkDeviceMemory)
	vkCreateShaderModule                     func(device VkDevice, pCreateInfo *VkShaderModuleCreateInfo, pAllocator uintptr, pShaderModule *VkShaderModule) VkResult
	vkDestroyShaderModule                    func(device VkDevice, shaderModule VkShaderModule, pAllocator uintptr)
	vkCreateDescriptorSetLayout              func(device VkDevice, pCreateInfo *VkDescriptorSetLayoutCreateInfo, pAllocator uintptr, pSetLayout *VkDescriptorSetLayout) VkResult
	vkDestroyDescriptorSetLayout             func(device VkDevice, descriptorSetLayout VkDescriptorSetLayout, pAllocator uintptr)
	vkCreatePipelineLayout                   func(device VkDevice, pCreateInfo *VkPipelineLayoutCreateInfo, pAllocator uintptr, pPipelineLayout *VkPipelineLayout) VkResult
	vkDestroyPipelineLayout                  func(device VkDevice, pipelineLayout VkPipelineLayout, pAllocator uintptr)
	vkCreateComputePipelines                 func(device VkDevice, pipelineCache uintptr, createInfoCount uint32, pCreateInfos *VkComputePipelineCreateInfo, pAllocator uintptr, pPipelines *VkPipeline) VkResult
	vkDestroyPipeline                        func(device VkDevice, pipeline VkPipeline, pAllocator uintptr)
	vkCreateDescriptorPool                   func(device VkDevice, pCreateInfo *VkDescriptorPoolCreateInfo, pAllocator uintptr, pDescriptorPool *VkDescriptorPool) VkResult
	vkDestroyDescriptorPool                  func(device VkDevice, descriptorPool VkDescriptorPool, pAllocator uintptr)
	vkAllocateDescriptorSets                 func(device VkDevice, pAllocateInfo *VkDescriptorSetAllocateInfo, pDescriptorSets *VkDescriptorSet) VkResult
	vkUpdateDescriptorSets                   func(device VkDevice, descriptorWriteCount uint32, pDescriptorWrites *VkWriteDescriptorSet, descriptorCopyCount uint32, pDescriptorCopies uintptr)
	vkCreateCommandPool                      func(device VkDevice, pCreateInfo *VkCommandPoolCreateInfo, pAllocator uintptr, pCommandPool *VkCommandPool) VkResult
	vkDestroyCommandPool                     func(device VkDevice, commandPool VkCommandPool, pAllocator uintptr)
	vkAllocateCommandBuffers                 func(device VkDevice, pAllocateInfo *VkCommandBufferAllocateInfo, pCommandBuffers *VkCommandBuffer) VkResult
	vkBeginCommandBuffer                     func(commandBuffer VkCommandBuffer, pBeginInfo *VkCommandBufferBeginInfo) VkResult
	vkEndCommandBuffer                       func(commandBuffer VkCommandBuffer) VkResult
	vkCmdBindPipeline                        func(commandBuffer VkCommandBuffer, pipelineBindPoint uint32, pipeline VkPipeline)
	vkCmdBindDescriptorSets                  func(commandBuffer VkCommandBuffer, pipelineBindPoint uint32, layout VkPipelineLayout, firstSet uint32, descriptorSetCount uint32, pDescriptorSets *VkDescriptorSet, dynamicOffsetCount uint32, pDynamicOffsets uintptr)
	vkCmdDispatch                            func(commandBuffer VkCommandBuffer, groupCountX uint32, groupCountY uint32, groupCountZ uint32)
	vkQueueSubmit                            func(queue VkQueue, submitCount uint32, pSubmits *VkSubmitInfo, fence VkFence) VkResult
	vkQueueWaitIdle                          func(queue VkQueue) VkResult
)

// symbols maps every exported loader entry point to its function pointer.
func symbols() map[string]interface{} {
	return map[string]interface{}{
		"vkEnumerateInstanceExtensionProperties":   &vkEnumerateInstanceExtensionProperties,
		"vkEnumerateInstanceLayerProperties":       &vkEnumerateInstanceLayerProperties,
		"vkCreateInstance":                         &vkCreateInstance,
		"vkDestroyInstance":                        &vkDestroyInstance,
		"vkEnumeratePhysicalDevices":               &vkEnumeratePhysicalDevices,
		"vkGetPhysicalDeviceProperties":            &vkGetPhysicalDeviceProperties,
		"vkGetPhysicalDeviceMemoryProperties":      &vkGetPhysicalDeviceMemoryProperties,
		"vkGetPhysicalDeviceQueueFamilyProperties": &vkGetPhysicalDeviceQueueFamilyProperties,
		"vkEnumerateDeviceExtensionProperties":     &vkEnumerateDeviceExtensionProperties,
		"vkCreateDevice":                           &vkCreateDevice,
		"vkDestroyDevice":                          &vkDestroyDevice,
		"vkGetDeviceQueue":                         &vkGetDeviceQueue,
		"vkDeviceWaitIdle":                         &vkDeviceWaitIdle,
		"vkCreateBuffer":                           &vkCreateBuffer,
		"vkDestroyBuffer":                          &vkDestroyBuffer,
		"vkGetBufferMemoryRequirements":            &vkGetBufferMemoryRequirements,
		"vkAllocateMemory":                         &vkAllocateMemory,
		"vkFreeMemory":                             &vkFreeMemory,
		"vkBindBufferMemory":                       &vkBindBufferMemory,
		"vkMapMemory":                              &vkMapMemory,
		"vkUnmapMemory":                            &vkUnmapMemory,
		"vkCreateShaderModule":                     &vkCreateShaderModule,
		"vkDestroyShaderModule":                    &vkDestroyShaderModule,
		"vkCreateDescriptorSetLayout":              &vkCreateDescriptorSetLayout,
		"vkDestroyDescriptorSetLayout":             &vkDestroyDescriptorSetLayout,
		"vkCreatePipelineLayout":                   &vkCreatePipelineLayout,
		"vkDestroyPipelineLayout":                  &vkDestroyPipelineLayout,
		"vkCreateComputePipelines":                 &vkCreateComputePipelines,
		"vkDestroyPipeline":                        &vkDestroyPipeline,
		"vkCreateDescriptorPool":                   &vkCreateDescriptorPool,
		"vkDestroyDescriptorPool":                  &vkDestroyDescriptorPool,
		"vkAllocateDescriptorSets":                 &vkAllocateDescriptorSets,
		"vkUpdateDescriptorSets":                   &vkUpdateDescriptorSets,
		"vkCreateCommandPool":                      &vkCreateCommandPool,
		"vkDestroyCommandPool":                     &vkDestroyCommandPool,
		"vkAllocateCommandBuffers":                 &vkAllocateCommandBuffers,
		"vkBeginCommandBuffer":                     &vkBeginCommandBuffer,
		"vkEndCommandBuffer":                       &vkEndCommandBuffer,
		"vkCmdBindPipeline":                        &vkCmdBindPipeline,
		"vkCmdBindDescriptorSets":                  &vkCmdBindDescriptorSets,
		"vkCmdDispatch":                            &vkCmdDispatch,
		"vkQueueSubmit":                            &vkQueueSubmit,
		"vkQueueWaitIdle":                          &vkQueueWaitIdle,
	}
}

// initVulkan loads the Vulkan loader library once per process. An empty path
// tries the platform's default library names.
func initVulkan(path string) error {
	vulkanMu.Lock()
	defer vulkanMu.Unlock()

	if vulkanLib != 0 {
		if path != "" && path != vulkanPath {
			return fmt.Errorf("%w: %s already loaded, cannot switch to %s", ErrVulkanNotAvailable, vulkanPath, path)
		}
		return nil
	}

	if err, ok := vulkanErrs[path]; ok {
		return err // Previously failed
	}

	lib, loaded, err := loadLibrary(path)
	if err != nil {
		vulkanErrs[path] = err
		return err
	}

	if err := registerFunctions(lib); err != nil {
		closeLibrary(lib)
		vulkanErrs[path] = err
		return err
	}
	vulkanLib = lib
	vulkanPath = loaded

	return nil
}

// Load opens the Vulkan loader and returns the native driver.
func Load(path string) (Driver, error) {
	if err := initVulkan(path); err != nil {
		return nil, err
	}
	return nativeDriver{}, nil
}

// LoadedLibrary returns the path of the loaded Vulkan library, if any.
func LoadedLibrary() string {
	vulkanMu.Lock()
	defer vulkanMu.Unlock()
	return vulkanPath
}

// IsAvailable checks if a Vulkan loader can be opened on this system.
func IsAvailable() bool {
	return initVulkan("") == nil
}

// nativeDriver forwards every Driver call to the loaded library.
type nativeDriver struct{}

func (nativeDriver) EnumerateInstanceExtensionProperties(pLayerName *byte, pPropertyCount *uint32, pProperties *VkExtensionProperties) VkResult {
	return vkEnumerateInstanceExtensionProperties(pLayerName, pPropertyCount, pProperties)
}

func (nativeDriver) EnumerateInstanceLayerProperties(pPropertyCount *uint32, pProperties *VkLayerProperties) VkResult {
	return vkEnumerateInstanceLayerProperties(pPropertyCount, pProperties)
}

func (nativeDriver) CreateInstance(pCreateInfo *VkInstanceCreateInfo, pInstance *VkInstance) VkResult {
	return vkCreateInstance(pCreateInfo, 0, pInstance)
}

func (nativeDriver) DestroyInstance(instance VkInstance) {
	vkDestroyInstance(instance, 0)
}

func (nativeDriver) EnumeratePhysicalDevices(instance VkInstance, pPhysicalDeviceCount *uint32, pPhysicalDevices *VkPhysicalDevice) VkResult {
	return vkEnumeratePhysicalDevices(instance, pPhysicalDeviceCount, pPhysicalDevices)
}

func (nativeDriver) GetPhysicalDeviceProperties(physicalDevice VkPhysicalDevice, pProperties *VkPhysicalDeviceProperties) {
	vkGetPhysicalDeviceProperties(physicalDevice, pProperties)
}

func (nativeDriver) GetPhysicalDeviceMemoryProperties(physicalDevice VkPhysicalDevice, pMemoryProperties *VkPhysicalDeviceMemoryProperties) {
	vkGetPhysicalDeviceMemoryProperties(physicalDevice, pMemoryProperties)
}

func (nativeDriver) GetPhysicalDeviceQueueFamilyProperties(physicalDevice VkPhysicalDevice, pQueueFamilyPropertyCount *uint32, pQueueFamilyProperties *VkQueueFamilyProperties) {
	vkGetPhysicalDeviceQueueFamilyProperties(physicalDevice, pQueueFamilyPropertyCount, pQueueFamilyProperties)
}

func (nativeDriver) EnumerateDeviceExtensionProperties(physicalDevice VkPhysicalDevice, pLayerName *byte, pPropertyCount *uint32, pProperties *VkExtensionProperties) VkResult {
	return vkEnumerateDeviceExtensionProperties(physicalDevice, pLayerName, pPropertyCount, pProperties)
}

func (nativeDriver) CreateDevice(physicalDevice VkPhysicalDevice, pCreateInfo *VkDeviceCreateInfo, pDevice *VkDevice) VkResult {
	return vkCreateDevice(physicalDevice, pCreateInfo, 0, pDevice)
}

func (nativeDriver) DestroyDevice(device VkDevice) {
	vkDestroyDevice(device, 0)
}

func (nativeDriver) GetDeviceQueue(device VkDevice, queueFamilyIndex uint32, queueIndex uint32, pQueue *VkQueue) {
	vkGetDeviceQueue(device, queueFamilyIndex, queueIndex, pQueue)
}

func (nativeDriver) DeviceWaitIdle(device VkDevice) VkResult {
	return vkDeviceWaitIdle(device)
}

func (nativeDriver) CreateBuffer(device VkDevice, pCreateInfo *VkBufferCreateInfo, pBuffer *VkBuffer) VkResult {
	return vkCreateBuffer(device, pCreateInfo, 0, pBuffer)
}

func (nativeDriver) DestroyBuffer(device VkDevice, buffer VkBuffer) {
	vkDestroyBuffer(device, buffer, 0)
}

func (nativeDriver) GetBufferMemoryRequirements(device VkDevice, buffer VkBuffer, pMemoryRequirements *VkMemoryRequirements) {
	vkGetBufferMemoryRequirements(device, buffer, pMemoryRequirements)
}

func (nativeDriver) AllocateMemory(device VkDevice, pAllocateInfo *VkMemoryAllocateInfo, pMemory *VkDeviceMemory) VkResult {
	return vkAllocateMemory(device, pAllocateInfo, 0, pMemory)
}

func (nativeDriver) FreeMemory(device VkDevice, memory VkDeviceMemory) {
	vkFreeMemory(device, memory, 0)
}

func (nativeDriver) BindBufferMemory(device VkDevice, buffer VkBuffer, memory VkDeviceMemory, memoryOffset VkDeviceSize) VkResult {
	return vkBindBufferMemory(device, buffer, memory, memoryOffset)
}

func (nativeDriver) MapMemory(device VkDevice, memory VkDeviceMemory, offset VkDeviceSize, size VkDeviceSize, flags uint32, ppData *uintptr) VkResult {
	return vkMapMemory(device, memory, offset, size, flags, ppData)
}

func (nativeDriver) UnmapMemory(device VkDevice, memory VkDeviceMemory) {
	vkUnmapMemory(device, memory)
}

func (nativeDriver) CreateShaderModule(device VkDevice, pCreateInfo *VkShaderModuleCreateInfo, pShaderModule *VkShaderModule) VkResult {
	return vkCreateShaderModule(device, pCreateInfo, 0, pShaderModule)
}

func (nativeDriver) DestroyShaderModule(device VkDevice, shaderModule VkShaderModule) {
	vkDestroyShaderModule(device, shaderModule, 0)
}

func (nativeDriver) CreateDescriptorSetLayout(device VkDevice, pCreateInfo *VkDescriptorSetLayoutCreateInfo, pSetLayout *VkDescriptorSetLayout) VkResult {
	return vkCreateDescriptorSetLayout(device, pCreateInfo, 0, pSetLayout)
}

func (nativeDriver) DestroyDescriptorSetLayout(device VkDevice, descriptorSetLayout VkDescriptorSetLayout) {
	vkDestroyDescriptorSetLayout(device, descriptorSetLayout, 0)
}

func (nativeDriver) CreatePipelineLayout(device VkDevice, pCreateInfo *VkPipelineLayoutCreateInfo, pPipelineLayout *VkPipelineLayout) VkResult {
	return vkCreatePipelineLayout(device, pCreateInfo, 0, pPipelineLayout)
}

func (nativeDriver) DestroyPipelineLayout(device VkDevice, pipelineLayout VkPipelineLayout) {
	vkDestroyPipelineLayout(device, pipelineLayout, 0)
}

func (nativeDriver) CreateComputePipelines(device VkDevice, pipelineCache uintptr, createInfoCount uint32, pCreateInfos *VkComputePipelineCreateInfo, pPipelines *VkPipeline) VkResult {
	return vkCreateComputePipelines(device, pipelineCache, createInfoCount, pCreateInfos, 0, pPipelines)
}

func (nativeDriver) DestroyPipeline(device VkDevice, pipeline VkPipeline) {
	vkDestroyPipeline(device, pipeline, 0)
}

func (nativeDriver) CreateDescriptorPool(device VkDevice, pCreateInfo *VkDescriptorPoolCreateInfo, pDescriptorPool *VkDescriptorPool) VkResult {
	return vkCreateDescriptorPool(device, pCreateInfo, 0, pDescriptorPool)
}

func (nativeDriver) DestroyDescriptorPool(device VkDevice, descriptorPool VkDescriptorPool) {
	vkDestroyDescriptorPool(device, descriptorPool, 0)
}

func (nativeDriver) AllocateDescriptorSets(device VkDevice, pAllocateInfo *VkDescriptorSetAllocateInfo, pDescriptorSets *VkDescriptorSet) VkResult {
	return vkAllocateDescriptorSets(device, pAllocateInfo, pDescriptorSets)
}

func (nativeDriver) UpdateDescriptorSets(device VkDevice, descriptorWriteCount uint32, pDescriptorWrites *VkWriteDescriptorSet, descriptorCopyCount uint32, pDescriptorCopies uintptr) {
	vkUpdateDescriptorSets(device, descriptorWriteCount, pDescriptorWrites, descriptorCopyCount, pDescriptorCopies)
}

func (nativeDriver) CreateCommandPool(device VkDevice, pCreateInfo *VkCommandPoolCreateInfo, pCommandPool *VkCommandPool) VkResult {
	return vkCreateCommandPool(device, pCreateInfo, 0, pCommandPool)
}

func (nativeDriver) DestroyCommandPool(device VkDevice, commandPool VkCommandPool) {
	vkDestroyCommandPool(device, commandPool, 0)
}

func (nativeDriver) AllocateCommandBuffers(device VkDevice, pAllocateInfo *VkCommandBufferAllocateInfo, pCommandBuffers *VkCommandBuffer) VkResult {
	return vkAllocateCommandBuffers(device, pAllocateInfo, pCommandBuffers)
}

func (nativeDriver) BeginCommandBuffer(commandBuffer VkCommandBuffer, pBeginInfo *VkCommandBufferBeginInfo) VkResult {
	return vkBeginCommandBuffer(commandBuffer, pBeginInfo)
}

func (nativeDriver) EndCommandBuffer(commandBuffer VkCommandBuffer) VkResult {
	return vkEndCommandBuffer(commandBuffer)
}

func (nativeDriver) CmdBindPipeline(commandBuffer VkCommandBuffer, pipelineBindPoint uint32, pipeline VkPipeline) {
	vkCmdBindPipeline(commandBuffer, pipelineBindPoint, pipeline)
}

func (nativeDriver) CmdBindDescriptorSets(commandBuffer VkCommandBuffer, pipelineBindPoint uint32, layout VkPipelineLayout, firstSet uint32, descriptorSetCount uint32, pDescriptorSets *VkDescriptorSet, dynamicOffsetCount uint32, pDynamicOffsets uintptr) {
	vkCmdBindDescriptorSets(commandBuffer, pipelineBindPoint, layout, firstSet, descriptorSetCount, pDescriptorSets, dynamicOffsetCount, pDynamicOffsets)
}

func (nativeDriver) CmdDispatch(commandBuffer VkCommandBuffer, groupCountX uint32, groupCountY uint32, groupCountZ uint32) {
	vkCmdDispatch(commandBuffer, groupCountX, groupCountY, groupCountZ)
}

func (nativeDriver) QueueSubmit(queue VkQueue, submitCount uint32, pSubmits *VkSubmitInfo, fence VkFence) VkResult {
	return vkQueueSubmit(queue, submitCount, pSubmits, fence)
}

func (nativeDriver) QueueWaitIdle(queue VkQueue) VkResult {
	return vkQueueWaitIdle(queue)
}
