package vulkan

import (
	"fmt"
	"unsafe"
)

const float32Size = 4

// Buffer owns a storage VkBuffer and the host-visible memory bound to it.
type Buffer struct {
	device *Device
	buffer VkBuffer
	memory VkDeviceMemory
	size   uint64
}

// NewBuffer creates a storage buffer of size bytes backed by host-visible,
// host-coherent memory. On failure everything created by the call is
// destroyed again.
func (d *Device) NewBuffer(size uint64) (*Buffer, error) {
	if d == nil || d.handle == 0 {
		return nil, ErrReleased
	}

	bufferInfo := VkBufferCreateInfo{
		SType:       VK_STRUCTURE_TYPE_BUFFER_CREATE_INFO,
		Size:        VkDeviceSize(size),
		Usage:       VK_BUFFER_USAGE_STORAGE_BUFFER_BIT,
		SharingMode: VK_SHARING_MODE_EXCLUSIVE,
	}

	var buffer VkBuffer
	if err := check("vkCreateBuffer", d.drv.CreateBuffer(d.handle, &bufferInfo, &buffer)); err != nil {
		return nil, err
	}

	var memReqs VkMemoryRequirements
	d.drv.GetBufferMemoryRequirements(d.handle, buffer, &memReqs)

	memTypeIndex, found := d.physical.FindMemoryType(
		memReqs.MemoryTypeBits,
		VK_MEMORY_PROPERTY_HOST_VISIBLE_BIT|VK_MEMORY_PROPERTY_HOST_COHERENT_BIT,
	)
	if !found {
		d.drv.DestroyBuffer(d.handle, buffer)
		return nil, ErrNoMemoryType
	}

	allocInfo := VkMemoryAllocateInfo{
		SType:           VK_STRUCTURE_TYPE_MEMORY_ALLOCATE_INFO,
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memTypeIndex,
	}

	var memory VkDeviceMemory
	if err := check("vkAllocateMemory", d.drv.AllocateMemory(d.handle, &allocInfo, &memory)); err != nil {
		d.drv.DestroyBuffer(d.handle, buffer)
		return nil, err
	}

	if err := check("vkBindBufferMemory", d.drv.BindBufferMemory(d.handle, buffer, memory, 0)); err != nil {
		d.drv.FreeMemory(d.handle, memory)
		d.drv.DestroyBuffer(d.handle, buffer)
		return nil, err
	}

	d.log.WithField("bytes", size).WithField("memory_type", memTypeIndex).Debug("Buffer created")

	return &Buffer{
		device: d,
		buffer: buffer,
		memory: memory,
		size:   size,
	}, nil
}

// Handle returns the raw VkBuffer.
func (b *Buffer) Handle() VkBuffer {
	if b == nil {
		return 0
	}
	return b.buffer
}

// Size returns the buffer size in bytes.
func (b *Buffer) Size() uint64 {
	if b == nil {
		return 0
	}
	return b.size
}

// Len returns the number of float32 elements the buffer holds.
func (b *Buffer) Len() int {
	return int(b.Size() / float32Size)
}

// withMapped maps the first n float32 elements, calls fn and unmaps. The
// unmap also runs when fn panics.
func (b *Buffer) withMapped(n int, fn func(data []float32)) error {
	if b == nil || b.buffer == 0 || b.memory == 0 {
		return ErrReleased
	}
	if n < 0 || uint64(n)*float32Size > b.size {
		return fmt.Errorf("%w: %d elements, buffer holds %d", ErrOutOfRange, n, b.Len())
	}
	if n == 0 {
		fn(nil)
		return nil
	}

	dev := b.device
	var mappedPtr uintptr
	result := dev.drv.MapMemory(dev.handle, b.memory, 0, VkDeviceSize(uint64(n)*float32Size), 0, &mappedPtr)
	if err := check("vkMapMemory", result); err != nil {
		return err
	}
	defer dev.drv.UnmapMemory(dev.handle, b.memory)

	fn(unsafe.Slice((*float32)(unsafe.Pointer(mappedPtr)), n))
	return nil
}

// Fill maps the first n elements and sets element i to gen(i).
func (b *Buffer) Fill(n int, gen func(i int) float32) error {
	return b.withMapped(n, func(data []float32) {
		for i := range data {
			data[i] = gen(i)
		}
	})
}

// WriteFloat32 copies values into the start of the buffer.
func (b *Buffer) WriteFloat32(values []float32) error {
	return b.withMapped(len(values), func(data []float32) {
		copy(data, values)
	})
}

// ReadFloat32 copies the first n elements out of the buffer.
func (b *Buffer) ReadFloat32(n int) ([]float32, error) {
	var out []float32
	err := b.withMapped(n, func(data []float32) {
		out = make([]float32, len(data))
		copy(out, data)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReleaseBuffer destroys the VkBuffer. Safe to call on nil or twice.
func (b *Buffer) ReleaseBuffer() {
	if b == nil || b.buffer == 0 || b.device.handle == 0 {
		return
	}
	b.device.drv.DestroyBuffer(b.device.handle, b.buffer)
	b.buffer = 0
}

// ReleaseMemory frees the backing memory. Safe to call on nil or twice.
func (b *Buffer) ReleaseMemory() {
	if b == nil || b.memory == 0 || b.device.handle == 0 {
		return
	}
	b.device.drv.FreeMemory(b.device.handle, b.memory)
	b.memory = 0
}

// Release destroys the buffer and then frees its memory.
func (b *Buffer) Release() {
	b.ReleaseBuffer()
	b.ReleaseMemory()
}
