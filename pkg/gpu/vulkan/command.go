package vulkan

import (
	"runtime"
)

// CommandPool owns a VkCommandPool and the command buffers allocated from it.
type CommandPool struct {
	device *Device
	handle VkCommandPool
}

// CommandBuffer is a primary command buffer freed with its pool.
type CommandBuffer struct {
	device *Device
	handle VkCommandBuffer
}

// NewCommandPool creates a command pool on the device's compute queue family.
func NewCommandPool(d *Device) (*CommandPool, error) {
	if d == nil || d.handle == 0 {
		return nil, ErrReleased
	}

	poolInfo := VkCommandPoolCreateInfo{
		SType:            VK_STRUCTURE_TYPE_COMMAND_POOL_CREATE_INFO,
		QueueFamilyIndex: d.queueFamily,
	}

	var handle VkCommandPool
	if err := check("vkCreateCommandPool", d.drv.CreateCommandPool(d.handle, &poolInfo, &handle)); err != nil {
		return nil, err
	}
	return &CommandPool{device: d, handle: handle}, nil
}

// Handle returns the raw VkCommandPool.
func (p *CommandPool) Handle() VkCommandPool {
	if p == nil {
		return 0
	}
	return p.handle
}

// Allocate allocates one primary command buffer.
func (p *CommandPool) Allocate() (*CommandBuffer, error) {
	if p == nil || p.handle == 0 {
		return nil, ErrReleased
	}

	allocInfo := VkCommandBufferAllocateInfo{
		SType:              VK_STRUCTURE_TYPE_COMMAND_BUFFER_ALLOCATE_INFO,
		CommandPool:        p.handle,
		Level:              VK_COMMAND_BUFFER_LEVEL_PRIMARY,
		CommandBufferCount: 1,
	}

	var handle VkCommandBuffer
	if err := check("vkAllocateCommandBuffers", p.device.drv.AllocateCommandBuffers(p.device.handle, &allocInfo, &handle)); err != nil {
		return nil, err
	}
	return &CommandBuffer{device: p.device, handle: handle}, nil
}

// Release destroys the pool and its command buffers. Safe to call on nil or
// twice.
func (p *CommandPool) Release() {
	if p == nil || p.handle == 0 || p.device.handle == 0 {
		return
	}
	p.device.drv.DestroyCommandPool(p.device.handle, p.handle)
	p.handle = 0
}

// Handle returns the raw VkCommandBuffer.
func (c *CommandBuffer) Handle() VkCommandBuffer {
	if c == nil {
		return 0
	}
	return c.handle
}

// Begin starts recording for a single submission.
func (c *CommandBuffer) Begin() error {
	if c == nil || c.handle == 0 {
		return ErrReleased
	}
	beginInfo := VkCommandBufferBeginInfo{
		SType: VK_STRUCTURE_TYPE_COMMAND_BUFFER_BEGIN_INFO,
		Flags: VK_COMMAND_BUFFER_USAGE_ONE_TIME_SUBMIT_BIT,
	}
	return check("vkBeginCommandBuffer", c.device.drv.BeginCommandBuffer(c.handle, &beginInfo))
}

// BindPipeline records a compute pipeline bind.
func (c *CommandBuffer) BindPipeline(p *Pipeline) {
	c.device.drv.CmdBindPipeline(c.handle, VK_PIPELINE_BIND_POINT_COMPUTE, p.handle)
}

// BindDescriptorSet records binding set as set 0 of layout.
func (c *CommandBuffer) BindDescriptorSet(layout *PipelineLayout, set *DescriptorSet) {
	setHandle := set.handle
	c.device.drv.CmdBindDescriptorSets(c.handle, VK_PIPELINE_BIND_POINT_COMPUTE, layout.handle, 0, 1, &setHandle, 0, 0)
	runtime.KeepAlive(&setHandle)
}

// Dispatch records a dispatch of x*y*z workgroups.
func (c *CommandBuffer) Dispatch(x, y, z uint32) {
	c.device.drv.CmdDispatch(c.handle, x, y, z)
}

// End finishes recording.
func (c *CommandBuffer) End() error {
	if c == nil || c.handle == 0 {
		return ErrReleased
	}
	return check("vkEndCommandBuffer", c.device.drv.EndCommandBuffer(c.handle))
}

// RecordDispatch records begin, pipeline bind, descriptor set bind,
// dispatch (x, y, 1) and end.
func (c *CommandBuffer) RecordDispatch(p *Pipeline, set *DescriptorSet, x, y uint32) error {
	if p.Handle() == 0 || set.Handle() == 0 || p.layout.Handle() == 0 {
		return ErrReleased
	}
	if err := c.Begin(); err != nil {
		return err
	}
	c.BindPipeline(p)
	c.BindDescriptorSet(p.layout, set)
	c.Dispatch(x, y, 1)
	return c.End()
}

// SubmitAndWait submits cb to the queue and blocks until the queue is idle.
func (q Queue) SubmitAndWait(cb *CommandBuffer) error {
	if q.handle == 0 || cb.Handle() == 0 {
		return ErrReleased
	}

	cbHandle := cb.handle
	submitInfo := VkSubmitInfo{
		SType:              VK_STRUCTURE_TYPE_SUBMIT_INFO,
		CommandBufferCount: 1,
		PCommandBuffers:    &cbHandle,
	}
	result := q.drv.QueueSubmit(q.handle, 1, &submitInfo, 0)
	runtime.KeepAlive(&cbHandle)
	if err := check("vkQueueSubmit", result); err != nil {
		return err
	}
	return q.WaitIdle()
}
