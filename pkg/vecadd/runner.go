// Package vecadd runs the vector-add compute job: it builds a Vulkan session,
// fills A[i]=i and B[i]=2i, dispatches the kernel once, reads the result
// back and tears the session down.
//
// A run is a fixed sequence of named steps. The first failing step stops
// the run; every error returned by Run is prefixed with that step's name:
//
//	runner := vecadd.NewRunner(drv, cfg, log, os.Stdout)
//	res, err := runner.Run(ctx)
//	if err != nil {
//		log.Fatalf("%s failed: %v", res.FailedStep, err)
//	}
package vecadd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/orneryd/vkadd/pkg/config"
	"github.com/orneryd/vkadd/pkg/gpu/vulkan"
	"github.com/orneryd/vkadd/pkg/journal"
	"github.com/orneryd/vkadd/pkg/logging"
	"github.com/orneryd/vkadd/pkg/simd"
)

const (
	// verifyTolerance is the relative tolerance used when checking results.
	verifyTolerance = 1e-6

	// maxLoggedMismatches caps the mismatches logged and kept in a Result.
	maxLoggedMismatches = 10
)

// Recorder stores a summary of each run. *journal.Journal implements it.
type Recorder interface {
	Record(e journal.Entry) error
}

// Result describes a finished run, successful or not.
type Result struct {
	RunID      uuid.UUID
	Device     string
	Length     int
	KernelPath string

	// Values is the read-back result buffer; nil if the run failed first.
	Values []float32

	// Mismatches counts elements that differ from the host reference.
	Mismatches     int
	MismatchDetail []simd.Mismatch

	// Reached is the last state reached before teardown.
	Reached State
	// State is TornDown once Run returns.
	State      State
	FailedStep string

	Started  time.Time
	Duration time.Duration
}

// Runner executes vector-add runs. It is not safe for concurrent Run calls.
type Runner struct {
	drv vulkan.Driver
	cfg *config.Config
	log *logrus.Entry
	out io.Writer

	// Journal, when set, receives an entry for every run.
	Journal Recorder
}

// NewRunner returns a runner using drv for every native call. Results are
// printed to out when cfg.Compute.PrintResults is set; out may be nil.
func NewRunner(drv vulkan.Driver, cfg *config.Config, log *logrus.Entry, out io.Writer) *Runner {
	if out == nil {
		out = io.Discard
	}
	return &Runner{
		drv: drv,
		cfg: cfg,
		log: logging.OrDiscard(log),
		out: out,
	}
}

// run carries the state of one Run call between steps.
type run struct {
	*Runner
	log     *logrus.Entry
	session *Session
	result  *Result
	kernel  *Kernel
	a, b    []float32
}

type step struct {
	name string
	// reaches is the state entered when the step succeeds; zero means none.
	reaches State
	fn      func(r *run) error
}

var steps = []step{
	{"create instance", ContextReady, (*run).createInstance},
	{"select physical device", 0, (*run).selectPhysicalDevice},
	{"create device", DeviceReady, (*run).createDevice},
	{"create buffers", 0, (*run).createBuffers},
	{"initialize inputs", ResourcesReady, (*run).initializeInputs},
	{"load kernel", 0, (*run).loadKernel},
	{"create shader module", 0, (*run).createShaderModule},
	{"create descriptor set layout", 0, (*run).createSetLayout},
	{"create pipeline layout", 0, (*run).createPipelineLayout},
	{"create pipeline", PipelineReady, (*run).createPipeline},
	{"create descriptor pool", 0, (*run).createDescriptorPool},
	{"allocate descriptor set", 0, (*run).allocateDescriptorSet},
	{"write descriptor set", 0, (*run).writeDescriptorSet},
	{"create command pool", 0, (*run).createCommandPool},
	{"record command buffer", 0, (*run).recordCommandBuffer},
	{"submit", Submitted, (*run).submit},
	{"read results", Completed, (*run).readResults},
	{"verify results", 0, (*run).verify},
	{"print results", 0, (*run).printResults},
}

// Run performs one complete run. The returned Result is never nil. The
// context is checked between steps only; it cannot interrupt a blocking
// queue wait.
func (r *Runner) Run(ctx context.Context) (res *Result, err error) {
	res = &Result{
		RunID:   uuid.New(),
		Length:  r.cfg.Compute.Length(),
		Started: time.Now(),
		Reached: Uninitialized,
		State:   Uninitialized,
	}
	log := r.log.WithField("run_id", res.RunID.String())
	rs := &run{
		Runner:  r,
		log:     log,
		session: NewSession(log),
		result:  res,
	}

	defer func() {
		if closeErr := rs.session.Close(); closeErr != nil {
			err = multierror.Append(err, fmt.Errorf("teardown: %w", closeErr))
		}
		res.State = TornDown
		res.Duration = time.Since(res.Started)
		r.record(log, res, err)
	}()

	// Nothing reaches the driver for a config that could size a buffer at zero.
	if cfgErr := r.cfg.Validate(); cfgErr != nil {
		res.FailedStep = "validate configuration"
		return res, fmt.Errorf("%s: %w: %w", res.FailedStep, ErrInvalidConfig, cfgErr)
	}

	log.WithFields(logrus.Fields{
		"width":  r.cfg.Compute.Width,
		"height": r.cfg.Compute.Height,
	}).Info("Starting vector-add run")

	for _, st := range steps {
		if ctxErr := ctx.Err(); ctxErr != nil {
			res.FailedStep = st.name
			return res, fmt.Errorf("%s: %w", st.name, ctxErr)
		}
		if stepErr := st.fn(rs); stepErr != nil {
			res.FailedStep = st.name
			log.WithField("step", st.name).WithError(stepErr).Debug("Step failed")
			return res, fmt.Errorf("%s: %w", st.name, stepErr)
		}
		if st.reaches != 0 {
			res.Reached = st.reaches
			res.State = st.reaches
		}
		log.WithField("step", st.name).Debug("Step complete")
	}

	log.WithFields(logrus.Fields{
		"device": res.Device,
		"length": res.Length,
	}).Info("Vector-add run complete")
	return res, nil
}

func (r *Runner) record(log *logrus.Entry, res *Result, runErr error) {
	if r.Journal == nil {
		return
	}
	entry := journal.Entry{
		ID:         res.RunID.String(),
		Started:    res.Started,
		Duration:   res.Duration,
		Device:     res.Device,
		Length:     res.Length,
		KernelPath: res.KernelPath,
		State:      res.Reached.String(),
		FailedStep: res.FailedStep,
		Mismatches: res.Mismatches,
		Sum:        simd.Sum(res.Values),
	}
	if runErr != nil {
		entry.Error = runErr.Error()
	}
	if err := r.Journal.Record(entry); err != nil {
		log.WithError(err).Warn("Failed to record run in journal")
	}
}

func (r *run) createInstance() error {
	apiVersion, err := r.cfg.APIVersion()
	if err != nil {
		return err
	}
	v := vulkan.MakeVersion(1, 0, 0)
	inst, err := vulkan.NewInstance(r.drv, vulkan.InstanceOptions{
		ApplicationName:    r.cfg.App.Name,
		EngineName:         r.cfg.App.EngineName,
		ApplicationVersion: v,
		EngineVersion:      v,
		APIVersion:         apiVersion,
		Layers:             r.cfg.EnabledLayers(),
		Extensions:         r.cfg.Vulkan.InstanceExtensions,
		Portability:        r.cfg.Vulkan.Portability,
		Logger:             r.log,
	})
	if err != nil {
		return err
	}
	r.session.Instance = inst
	return nil
}

func (r *run) selectPhysicalDevice() error {
	pd, err := vulkan.SelectPhysicalDevice(r.session.Instance, r.cfg.Vulkan.DeviceIndex)
	if err != nil {
		return err
	}
	r.session.Physical = pd
	r.result.Device = pd.Name()
	return nil
}

func (r *run) createDevice() error {
	dev, err := vulkan.NewDevice(r.session.Physical, vulkan.DeviceOptions{
		Extensions: r.cfg.Vulkan.DeviceExtensions,
		Logger:     r.log,
	})
	if err != nil {
		return err
	}
	r.session.Device = dev
	return nil
}

func (r *run) createBuffers() error {
	size := uint64(r.result.Length) * 4
	for i := range r.session.Buffers {
		buf, err := r.session.Device.NewBuffer(size)
		if err != nil {
			return fmt.Errorf("buffer %d: %w", i, err)
		}
		r.session.Buffers[i] = buf
	}
	return nil
}

func (r *run) initializeInputs() error {
	n := r.result.Length
	r.a = make([]float32, n)
	r.b = make([]float32, n)
	for i := 0; i < n; i++ {
		r.a[i] = float32(i)
		r.b[i] = float32(2 * i)
	}
	if err := r.session.Buffers[0].WriteFloat32(r.a); err != nil {
		return fmt.Errorf("buffer A: %w", err)
	}
	if err := r.session.Buffers[1].WriteFloat32(r.b); err != nil {
		return fmt.Errorf("buffer B: %w", err)
	}
	return nil
}

func (r *run) loadKernel() error {
	k, err := LoadKernel(r.cfg.Kernel.Paths)
	if err != nil {
		return err
	}
	r.kernel = k
	r.result.KernelPath = k.Path
	r.log.WithFields(logrus.Fields{
		"path":  k.Path,
		"words": len(k.Code),
	}).Debug("Loaded kernel")
	return nil
}

func (r *run) createShaderModule() error {
	m, err := vulkan.NewShaderModule(r.session.Device, r.kernel.Code)
	if err != nil {
		return err
	}
	r.session.Shader = m
	return nil
}

func (r *run) createSetLayout() error {
	l, err := vulkan.NewDescriptorSetLayout(r.session.Device, uint32(len(r.session.Buffers)))
	if err != nil {
		return err
	}
	r.session.SetLayout = l
	return nil
}

func (r *run) createPipelineLayout() error {
	l, err := vulkan.NewPipelineLayout(r.session.Device, r.session.SetLayout)
	if err != nil {
		return err
	}
	r.session.PipelineLayout = l
	return nil
}

func (r *run) createPipeline() error {
	p, err := vulkan.NewComputePipeline(r.session.Device, r.session.Shader, r.session.PipelineLayout, r.cfg.Kernel.EntryPoint)
	if err != nil {
		return err
	}
	r.session.Pipeline = p
	return nil
}

func (r *run) createDescriptorPool() error {
	p, err := vulkan.NewDescriptorPool(r.session.Device, 1, uint32(len(r.session.Buffers)))
	if err != nil {
		return err
	}
	r.session.DescriptorPool = p
	return nil
}

func (r *run) allocateDescriptorSet() error {
	set, err := r.session.DescriptorPool.Allocate(r.session.SetLayout)
	if err != nil {
		return err
	}
	r.session.DescriptorSet = set
	return nil
}

func (r *run) writeDescriptorSet() error {
	b := r.session.Buffers
	return r.session.DescriptorSet.WriteBuffers(b[0], b[1], b[2])
}

func (r *run) createCommandPool() error {
	p, err := vulkan.NewCommandPool(r.session.Device)
	if err != nil {
		return err
	}
	r.session.CommandPool = p
	return nil
}

func (r *run) recordCommandBuffer() error {
	cb, err := r.session.CommandPool.Allocate()
	if err != nil {
		return err
	}
	r.session.CommandBuffer = cb
	return cb.RecordDispatch(
		r.session.Pipeline,
		r.session.DescriptorSet,
		uint32(r.cfg.Compute.Width),
		uint32(r.cfg.Compute.Height),
	)
}

func (r *run) submit() error {
	return r.session.Device.Queue().SubmitAndWait(r.session.CommandBuffer)
}

func (r *run) readResults() error {
	values, err := r.session.Buffers[2].ReadFloat32(r.result.Length)
	if err != nil {
		return err
	}
	r.result.Values = values
	return nil
}

func (r *run) verify() error {
	if !r.cfg.Compute.Verify {
		return nil
	}
	want := simd.Add(r.a, r.b)
	n, mismatches := simd.Compare(r.result.Values, want, verifyTolerance, maxLoggedMismatches)
	r.result.Mismatches = n
	r.result.MismatchDetail = mismatches
	if n == 0 {
		r.log.WithField("max_abs_diff", simd.MaxAbsDiff(r.result.Values, want)).Debug("Results verified")
		return nil
	}
	for _, m := range mismatches {
		r.log.WithFields(logrus.Fields{
			"index": m.Index,
			"got":   m.Got,
			"want":  m.Want,
		}).Warn("Result mismatch")
	}
	return fmt.Errorf("%w: %d of %d elements differ", ErrVerification, n, len(want))
}

func (r *run) printResults() error {
	if !r.cfg.Compute.PrintResults {
		return nil
	}
	return WriteValues(r.out, r.result.Values)
}
