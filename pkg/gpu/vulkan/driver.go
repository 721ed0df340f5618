package vulkan

// Driver is the set of Vulkan entry points vkadd calls. The native
// implementation forwards each method to the loader via purego; tests use
// vulkantest.Driver. Allocation callbacks are always NULL and are therefore
// not part of the signatures.
type Driver interface {
	// Global and instance level
	EnumerateInstanceExtensionProperties(pLayerName *byte, pPropertyCount *uint32, pProperties *VkExtensionProperties) VkResult
	EnumerateInstanceLayerProperties(pPropertyCount *uint32, pProperties *VkLayerProperties) VkResult
	CreateInstance(pCreateInfo *VkInstanceCreateInfo, pInstance *VkInstance) VkResult
	DestroyInstance(instance VkInstance)
	EnumeratePhysicalDevices(instance VkInstance, pPhysicalDeviceCount *uint32, pPhysicalDevices *VkPhysicalDevice) VkResult

	// Physical device queries
	GetPhysicalDeviceProperties(physicalDevice VkPhysicalDevice, pProperties *VkPhysicalDeviceProperties)
	GetPhysicalDeviceMemoryProperties(physicalDevice VkPhysicalDevice, pMemoryProperties *VkPhysicalDeviceMemoryProperties)
	GetPhysicalDeviceQueueFamilyProperties(physicalDevice VkPhysicalDevice, pQueueFamilyPropertyCount *uint32, pQueueFamilyProperties *VkQueueFamilyProperties)
	EnumerateDeviceExtensionProperties(physicalDevice VkPhysicalDevice, pLayerName *byte, pPropertyCount *uint32, pProperties *VkExtensionProperties) VkResult

	// Logical device
	CreateDevice(physicalDevice VkPhysicalDevice, pCreateInfo *VkDeviceCreateInfo, pDevice *VkDevice) VkResult
	DestroyDevice(device VkDevice)
	GetDeviceQueue(device VkDevice, queueFamilyIndex uint32, queueIndex uint32, pQueue *VkQueue)
	DeviceWaitIdle(device VkDevice) VkResult

	// Buffers and memory
	CreateBuffer(device VkDevice, pCreateInfo *VkBufferCreateInfo, pBuffer *VkBuffer) VkResult
	DestroyBuffer(device VkDevice, buffer VkBuffer)
	GetBufferMemoryRequirements(device VkDevice, buffer VkBuffer, pMemoryRequirements *VkMemoryRequirements)
	AllocateMemory(device VkDevice, pAllocateInfo *VkMemoryAllocateInfo, pMemory *VkDeviceMemory) VkResult
	FreeMemory(device VkDevice, memory VkDeviceMemory)
	BindBufferMemory(device VkDevice, buffer VkBuffer, memory VkDeviceMemory, memoryOffset VkDeviceSize) VkResult
	MapMemory(device VkDevice, memory VkDeviceMemory, offset VkDeviceSize, size VkDeviceSize, flags uint32, ppData *uintptr) VkResult
	UnmapMemory(device VkDevice, memory VkDeviceMemory)

	// Pipeline objects
	CreateShaderModule(device VkDevice, pCreateInfo *VkShaderModuleCreateInfo, pShaderModule *VkShaderModule) VkResult
	DestroyShaderModule(device VkDevice, shaderModule VkShaderModule)
	CreateDescriptorSetLayout(device VkDevice, pCreateInfo *VkDescriptorSetLayoutCreateInfo, pSetLayout *VkDescriptorSetLayout) VkResult
	DestroyDescriptorSetLayout(device VkDevice, descriptorSetLayout VkDescriptorSetLayout)
	CreatePipelineLayout(device VkDevice, pCreateInfo *VkPipelineLayoutCreateInfo, pPipelineLayout *VkPipelineLayout) VkResult
	DestroyPipelineLayout(device VkDevice, pipelineLayout VkPipelineLayout)
	CreateComputePipelines(device VkDevice, pipelineCache uintptr, createInfoCount uint32, pCreateInfos *VkComputePipelineCreateInfo, pPipelines *VkPipeline) VkResult
	DestroyPipeline(device VkDevice, pipeline VkPipeline)

	// Descriptors
	CreateDescriptorPool(device VkDevice, pCreateInfo *VkDescriptorPoolCreateInfo, pDescriptorPool *VkDescriptorPool) VkResult
	DestroyDescriptorPool(device VkDevice, descriptorPool VkDescriptorPool)
	AllocateDescriptorSets(device VkDevice, pAllocateInfo *VkDescriptorSetAllocateInfo, pDescriptorSets *VkDescriptorSet) VkResult
	UpdateDescriptorSets(device VkDevice, descriptorWriteCount uint32, pDescriptorWrites *VkWriteDescriptorSet, descriptorCopyCount uint32, pDescriptorCopies uintptr)

	// Commands
	CreateCommandPool(device VkDevice, pCreateInfo *VkCommandPoolCreateInfo, pCommandPool *VkCommandPool) VkResult
	DestroyCommandPool(device VkDevice, commandPool VkCommandPool)
	AllocateCommandBuffers(device VkDevice, pAllocateInfo *VkCommandBufferAllocateInfo, pCommandBuffers *VkCommandBuffer) VkResult
	BeginCommandBuffer(commandBuffer VkCommandBuffer, pBeginInfo *VkCommandBufferBeginInfo) VkResult
	EndCommandBuffer(commandBuffer VkCommandBuffer) VkResult
	CmdBindPipeline(commandBuffer VkCommandBuffer, pipelineBindPoint uint32, pipeline VkPipeline)
	CmdBindDescriptorSets(commandBuffer VkCommandBuffer, pipelineBindPoint uint32, layout VkPipelineLayout, firstSet uint32, descriptorSetCount uint32, pDescriptorSets *VkDescriptorSet, dynamicOffsetCount uint32, pDynamicOffsets uintptr)
	CmdDispatch(commandBuffer VkCommandBuffer, groupCountX uint32, groupCountY uint32, groupCountZ uint32)
	QueueSubmit(queue VkQueue, submitCount uint32, pSubmits *VkSubmitInfo, fence VkFence) VkResult
	QueueWaitIdle(queue VkQueue) VkResult
}
