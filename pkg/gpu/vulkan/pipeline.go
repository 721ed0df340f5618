package vulkan

import (
	"errors"
	"runtime"
)

// ShaderModule owns a VkShaderModule.
type ShaderModule struct {
	device *Device
	handle VkShaderModule
}

// NewShaderModule creates a shader module from SPIR-V words.
func NewShaderModule(d *Device, code []uint32) (*ShaderModule, error) {
	if d == nil || d.handle == 0 {
		return nil, ErrReleased
	}
	if len(code) == 0 {
		return nil, errors.New("vulkan: empty shader code")
	}

	createInfo := VkShaderModuleCreateInfo{
		SType:    VK_STRUCTURE_TYPE_SHADER_MODULE_CREATE_INFO,
		CodeSize: uintptr(len(code) * 4),
		PCode:    &code[0],
	}

	var handle VkShaderModule
	result := d.drv.CreateShaderModule(d.handle, &createInfo, &handle)
	runtime.KeepAlive(code)
	if err := check("vkCreateShaderModule", result); err != nil {
		return nil, err
	}
	d.log.WithField("bytes", len(code)*4).Debug("Shader module created")
	return &ShaderModule{device: d, handle: handle}, nil
}

// Handle returns the raw VkShaderModule.
func (s *ShaderModule) Handle() VkShaderModule {
	if s == nil {
		return 0
	}
	return s.handle
}

// Release destroys the shader module. Safe to call on nil or twice.
func (s *ShaderModule) Release() {
	if s == nil || s.handle == 0 || s.device.handle == 0 {
		return
	}
	s.device.drv.DestroyShaderModule(s.device.handle, s.handle)
	s.handle = 0
}

// DescriptorSetLayout owns a VkDescriptorSetLayout.
type DescriptorSetLayout struct {
	device   *Device
	handle   VkDescriptorSetLayout
	bindings uint32
}

// NewDescriptorSetLayout declares bindings 0..n-1, each one storage buffer
// visible to the compute stage.
func NewDescriptorSetLayout(d *Device, n uint32) (*DescriptorSetLayout, error) {
	if d == nil || d.handle == 0 {
		return nil, ErrReleased
	}
	if n == 0 {
		return nil, errors.New("vulkan: descriptor set layout needs at least one binding")
	}

	bindings := make([]VkDescriptorSetLayoutBinding, n)
	for i := uint32(0); i < n; i++ {
		bindings[i] = VkDescriptorSetLayoutBinding{
			Binding:         i,
			DescriptorType:  VK_DESCRIPTOR_TYPE_STORAGE_BUFFER,
			DescriptorCount: 1,
			StageFlags:      VK_SHADER_STAGE_COMPUTE_BIT,
		}
	}

	createInfo := VkDescriptorSetLayoutCreateInfo{
		SType:        VK_STRUCTURE_TYPE_DESCRIPTOR_SET_LAYOUT_CREATE_INFO,
		BindingCount: n,
		PBindings:    &bindings[0],
	}

	var handle VkDescriptorSetLayout
	result := d.drv.CreateDescriptorSetLayout(d.handle, &createInfo, &handle)
	runtime.KeepAlive(bindings)
	if err := check("vkCreateDescriptorSetLayout", result); err != nil {
		return nil, err
	}
	return &DescriptorSetLayout{device: d, handle: handle, bindings: n}, nil
}

// Handle returns the raw VkDescriptorSetLayout.
func (l *DescriptorSetLayout) Handle() VkDescriptorSetLayout {
	if l == nil {
		return 0
	}
	return l.handle
}

// Bindings returns the number of storage-buffer bindings in the layout.
func (l *DescriptorSetLayout) Bindings() uint32 { return l.bindings }

// Release destroys the layout. Safe to call on nil or twice.
func (l *DescriptorSetLayout) Release() {
	if l == nil || l.handle == 0 || l.device.handle == 0 {
		return
	}
	l.device.drv.DestroyDescriptorSetLayout(l.device.handle, l.handle)
	l.handle = 0
}

// PipelineLayout owns a VkPipelineLayout.
type PipelineLayout struct {
	device *Device
	handle VkPipelineLayout
}

// NewPipelineLayout creates a layout with one descriptor set layout and no
// push constants.
func NewPipelineLayout(d *Device, setLayout *DescriptorSetLayout) (*PipelineLayout, error) {
	if d == nil || d.handle == 0 || setLayout.Handle() == 0 {
		return nil, ErrReleased
	}

	setLayoutHandle := setLayout.handle
	createInfo := VkPipelineLayoutCreateInfo{
		SType:          VK_STRUCTURE_TYPE_PIPELINE_LAYOUT_CREATE_INFO,
		SetLayoutCount: 1,
		PSetLayouts:    &setLayoutHandle,
	}

	var handle VkPipelineLayout
	if err := check("vkCreatePipelineLayout", d.drv.CreatePipelineLayout(d.handle, &createInfo, &handle)); err != nil {
		return nil, err
	}
	return &PipelineLayout{device: d, handle: handle}, nil
}

// Handle returns the raw VkPipelineLayout.
func (l *PipelineLayout) Handle() VkPipelineLayout {
	if l == nil {
		return 0
	}
	return l.handle
}

// Release destroys the pipeline layout. Safe to call on nil or twice.
func (l *PipelineLayout) Release() {
	if l == nil || l.handle == 0 || l.device.handle == 0 {
		return
	}
	l.device.drv.DestroyPipelineLayout(l.device.handle, l.handle)
	l.handle = 0
}

// Pipeline owns a compute VkPipeline.
type Pipeline struct {
	device *Device
	handle VkPipeline
	layout *PipelineLayout
}

// NewComputePipeline compiles module's entryPoint into a compute pipeline.
func NewComputePipeline(d *Device, module *ShaderModule, layout *PipelineLayout, entryPoint string) (*Pipeline, error) {
	if d == nil || d.handle == 0 || module.Handle() == 0 || layout.Handle() == 0 {
		return nil, ErrReleased
	}

	entryName := append([]byte(entryPoint), 0)
	createInfo := VkComputePipelineCreateInfo{
		SType: VK_STRUCTURE_TYPE_COMPUTE_PIPELINE_CREATE_INFO,
		Stage: VkPipelineShaderStageCreateInfo{
			SType:  VK_STRUCTURE_TYPE_PIPELINE_SHADER_STAGE_CREATE_INFO,
			Stage:  VK_SHADER_STAGE_COMPUTE_BIT,
			Module: module.handle,
			PName:  uintptrOf(&entryName[0]),
		},
		Layout:            layout.handle,
		BasePipelineIndex: -1,
	}

	var handle VkPipeline
	result := d.drv.CreateComputePipelines(d.handle, 0, 1, &createInfo, &handle)
	runtime.KeepAlive(entryName)
	if err := check("vkCreateComputePipelines", result); err != nil {
		return nil, err
	}
	d.log.WithField("entry_point", entryPoint).Info("Compute pipeline created")
	return &Pipeline{device: d, handle: handle, layout: layout}, nil
}

// Handle returns the raw VkPipeline.
func (p *Pipeline) Handle() VkPipeline {
	if p == nil {
		return 0
	}
	return p.handle
}

// Layout returns the pipeline layout the pipeline was built with.
func (p *Pipeline) Layout() *PipelineLayout { return p.layout }

// Release destroys the pipeline. Safe to call on nil or twice.
func (p *Pipeline) Release() {
	if p == nil || p.handle == 0 || p.device.handle == 0 {
		return
	}
	p.device.drv.DestroyPipeline(p.device.handle, p.handle)
	p.handle = 0
}
