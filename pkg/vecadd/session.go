package vecadd

import (
	"github.com/sirupsen/logrus"

	"github.com/orneryd/vkadd/pkg/gpu/vulkan"
	"github.com/orneryd/vkadd/pkg/logging"
)

// Session owns every Vulkan object created during one run. Fields are filled
// in as setup progresses; any of them may be nil when setup stopped early.
type Session struct {
	Instance *vulkan.Instance
	Physical vulkan.PhysicalDevice
	Device   *vulkan.Device

	// Buffers holds A, B and the result, bound at 0, 1 and 2.
	Buffers [3]*vulkan.Buffer

	Shader         *vulkan.ShaderModule
	SetLayout      *vulkan.DescriptorSetLayout
	PipelineLayout *vulkan.PipelineLayout
	Pipeline       *vulkan.Pipeline
	DescriptorPool *vulkan.DescriptorPool
	DescriptorSet  *vulkan.DescriptorSet
	CommandPool    *vulkan.CommandPool
	CommandBuffer  *vulkan.CommandBuffer

	log    *logrus.Entry
	closed bool
}

// NewSession returns an empty session.
func NewSession(log *logrus.Entry) *Session {
	return &Session{log: logging.OrDiscard(log)}
}

// Close waits for the device to go idle and destroys everything the session
// holds: buffers, memory, pipeline, pipeline layout, shader module,
// descriptor set layout, descriptor pool, command pool, device, instance.
// Objects that were never created are skipped. Only the first call does
// anything; its error is the device wait-idle failure, if any. Destruction
// proceeds even when the wait fails.
func (s *Session) Close() error {
	if s == nil || s.closed {
		return nil
	}
	s.closed = true

	var waitErr error
	if s.Device != nil {
		if waitErr = s.Device.WaitIdle(); waitErr != nil {
			s.log.WithError(waitErr).Warn("Device wait-idle failed during teardown")
		}
	}

	for _, b := range s.Buffers {
		b.ReleaseBuffer()
	}
	for _, b := range s.Buffers {
		b.ReleaseMemory()
	}
	s.Pipeline.Release()
	s.PipelineLayout.Release()
	s.Shader.Release()
	s.SetLayout.Release()
	s.DescriptorPool.Release()
	s.CommandPool.Release()
	s.Device.Release()
	s.Instance.Release()

	s.log.Debug("Session torn down")
	return waitErr
}

// Closed reports whether Close has run.
func (s *Session) Closed() bool {
	return s.closed
}
