package vulkan

import (
	"fmt"
	"runtime"
)

// DescriptorPool owns a VkDescriptorPool and the sets allocated from it.
type DescriptorPool struct {
	device *Device
	handle VkDescriptorPool
}

// DescriptorSet is allocated from a DescriptorPool and freed with it.
type DescriptorSet struct {
	device *Device
	handle VkDescriptorSet
	layout *DescriptorSetLayout
}

// NewDescriptorPool creates a pool for maxSets sets holding storageBuffers
// storage-buffer descriptors in total.
func NewDescriptorPool(d *Device, maxSets, storageBuffers uint32) (*DescriptorPool, error) {
	if d == nil || d.handle == 0 {
		return nil, ErrReleased
	}

	poolSize := VkDescriptorPoolSize{
		Type:            VK_DESCRIPTOR_TYPE_STORAGE_BUFFER,
		DescriptorCount: storageBuffers,
	}
	createInfo := VkDescriptorPoolCreateInfo{
		SType:         VK_STRUCTURE_TYPE_DESCRIPTOR_POOL_CREATE_INFO,
		MaxSets:       maxSets,
		PoolSizeCount: 1,
		PPoolSizes:    &poolSize,
	}

	var handle VkDescriptorPool
	if err := check("vkCreateDescriptorPool", d.drv.CreateDescriptorPool(d.handle, &createInfo, &handle)); err != nil {
		return nil, err
	}
	return &DescriptorPool{device: d, handle: handle}, nil
}

// Handle returns the raw VkDescriptorPool.
func (p *DescriptorPool) Handle() VkDescriptorPool {
	if p == nil {
		return 0
	}
	return p.handle
}

// Allocate allocates one descriptor set with the given layout.
func (p *DescriptorPool) Allocate(layout *DescriptorSetLayout) (*DescriptorSet, error) {
	if p == nil || p.handle == 0 || layout.Handle() == 0 {
		return nil, ErrReleased
	}

	layoutHandle := layout.handle
	allocInfo := VkDescriptorSetAllocateInfo{
		SType:              VK_STRUCTURE_TYPE_DESCRIPTOR_SET_ALLOCATE_INFO,
		DescriptorPool:     p.handle,
		DescriptorSetCount: 1,
		PSetLayouts:        &layoutHandle,
	}

	var handle VkDescriptorSet
	if err := check("vkAllocateDescriptorSets", p.device.drv.AllocateDescriptorSets(p.device.handle, &allocInfo, &handle)); err != nil {
		return nil, err
	}
	return &DescriptorSet{device: p.device, handle: handle, layout: layout}, nil
}

// Release destroys the pool and every set allocated from it. Safe to call
// on nil or twice.
func (p *DescriptorPool) Release() {
	if p == nil || p.handle == 0 || p.device.handle == 0 {
		return
	}
	p.device.drv.DestroyDescriptorPool(p.device.handle, p.handle)
	p.handle = 0
}

// Handle returns the raw VkDescriptorSet.
func (s *DescriptorSet) Handle() VkDescriptorSet {
	if s == nil {
		return 0
	}
	return s.handle
}

// WriteBuffers points binding i at buffers[i], covering each whole buffer,
// in a single vkUpdateDescriptorSets call.
func (s *DescriptorSet) WriteBuffers(buffers ...*Buffer) error {
	if s == nil || s.handle == 0 {
		return ErrReleased
	}
	if len(buffers) == 0 {
		return nil
	}
	if s.layout != nil && uint32(len(buffers)) > s.layout.bindings {
		return fmt.Errorf("vulkan: %d buffers for a layout with %d bindings", len(buffers), s.layout.bindings)
	}

	infos := make([]VkDescriptorBufferInfo, len(buffers))
	writes := make([]VkWriteDescriptorSet, len(buffers))
	for i, buf := range buffers {
		if buf.Handle() == 0 {
			return fmt.Errorf("%w: buffer for binding %d", ErrReleased, i)
		}
		infos[i] = VkDescriptorBufferInfo{
			Buffer: buf.buffer,
			Offset: 0,
			Range:  VkDeviceSize(buf.size),
		}
		writes[i] = VkWriteDescriptorSet{
			SType:           VK_STRUCTURE_TYPE_WRITE_DESCRIPTOR_SET,
			DstSet:          s.handle,
			DstBinding:      uint32(i),
			DescriptorCount: 1,
			DescriptorType:  VK_DESCRIPTOR_TYPE_STORAGE_BUFFER,
			PBufferInfo:     &infos[i],
		}
	}

	s.device.drv.UpdateDescriptorSets(s.device.handle, uint32(len(writes)), &writes[0], 0, 0)
	runtime.KeepAlive(infos)
	runtime.KeepAlive(writes)
	return nil
}
