package main

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/vkadd/pkg/gpu/vulkan"
	"github.com/orneryd/vkadd/pkg/gpu/vulkan/vulkantest"
	"github.com/orneryd/vkadd/pkg/vecadd"
)

// useFakeDriver routes every loadDriver call to drv for the test.
func useFakeDriver(t *testing.T, drv *vulkantest.Driver) {
	t.Helper()
	orig := loadDriver
	loadDriver = func(string) (vulkan.Driver, error) { return drv, nil }
	t.Cleanup(func() { loadDriver = orig })
}

func writeKernel(t *testing.T) string {
	t.Helper()
	words := []uint32{vecadd.SPIRVMagic, 0x00010000, 0, 16, 0}
	data := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(data[i*4:], w)
	}
	path := filepath.Join(t.TempDir(), "vector_add.comp.spv")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// execute runs the CLI with a config path that does not exist, so only
// defaults and args apply.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	t.Setenv("VKADD_WIDTH", "")
	t.Setenv("VKADD_JOURNAL_DIR", "")
	t.Setenv("VKADD_LOG_LEVEL", "")

	var out, errOut bytes.Buffer
	cmd := newRootCmd(&app{}, &out, &errOut)
	cfgPath := filepath.Join(t.TempDir(), "none.yaml")
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRunCommand(t *testing.T) {
	drv := vulkantest.New()
	useFakeDriver(t, drv)

	stdout, stderr, err := execute(t, "run", "--kernel", writeKernel(t), "--width", "8")
	require.NoError(t, err)
	assert.Equal(t, "0 3 6 9 12 15 18 21 \n", stdout)
	assert.Contains(t, stderr, "Vector-add run complete")
	assert.Empty(t, drv.Violations())
	assert.Zero(t, drv.Live())
}

func TestRunCommandFlags(t *testing.T) {
	drv := vulkantest.New()
	useFakeDriver(t, drv)

	stdout, _, err := execute(t, "run", "--kernel", writeKernel(t),
		"--width", "4", "--height", "2", "--quiet", "--no-validation", "--log-format", "json")
	require.NoError(t, err)
	assert.Empty(t, stdout)
	require.Len(t, drv.Dispatches(), 1)
	assert.Equal(t, [3]uint32{4, 2, 1}, drv.Dispatches()[0].Groups)
	require.Len(t, drv.Instances(), 1)
	assert.Empty(t, drv.Instances()[0].Layers)
}

func TestRunCommandFailure(t *testing.T) {
	drv := vulkantest.New()
	useFakeDriver(t, drv)

	missing := filepath.Join(t.TempDir(), "missing.spv")
	_, _, err := execute(t, "run", "--kernel", missing)
	require.Error(t, err)
	assert.ErrorIs(t, err, vecadd.ErrKernelRead)
	assert.Zero(t, drv.Live())
}

func TestRunCommandInvalidConfig(t *testing.T) {
	useFakeDriver(t, vulkantest.New())

	_, _, err := execute(t, "run", "--width", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")

	_, _, err = execute(t, "run", "--log-level", "loud")
	require.Error(t, err)
}

func TestDevicesCommand(t *testing.T) {
	drv := vulkantest.New()
	useFakeDriver(t, drv)

	stdout, _, err := execute(t, "devices", "--extensions")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Instance extensions (4):")
	assert.Contains(t, stdout, vulkan.LayerKhronosValidation)
	assert.Contains(t, stdout, "[0] Fake GPU (discrete) Vulkan 1.3.0, 8.0 GiB device-local, compute family 0")
	assert.Contains(t, stdout, "extensions: "+vulkan.ExtPortabilitySubset)
	assert.Zero(t, drv.Live())
}

func TestDevicesCommandNoDevices(t *testing.T) {
	drv := vulkantest.New()
	drv.Devices = nil
	useFakeDriver(t, drv)

	_, _, err := execute(t, "devices")
	assert.ErrorIs(t, err, vulkan.ErrNoPhysicalDevice)
	assert.Zero(t, drv.Live())
}

func TestHistoryCommand(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "journal")
	kernel := writeKernel(t)

	useFakeDriver(t, vulkantest.New())
	t.Setenv("VKADD_JOURNAL_DIR", dir)
	t.Setenv("VKADD_WIDTH", "")
	var out, errOut bytes.Buffer
	run := func(args ...string) error {
		out.Reset()
		errOut.Reset()
		cmd := newRootCmd(&app{}, &out, &errOut)
		cmd.SetArgs(append([]string{"--config", filepath.Join(dir, "none.yaml")}, args...))
		return cmd.Execute()
	}

	require.NoError(t, run("history"))
	assert.Equal(t, "No runs recorded.\n", out.String())

	require.NoError(t, run("run", "--kernel", kernel, "--width", "4", "--quiet", "--journal"))

	failing := vulkantest.New()
	failing.FailOn("vkCreateDevice", vulkan.VK_ERROR_INITIALIZATION_FAILED)
	useFakeDriver(t, failing)
	require.Error(t, run("run", "--kernel", kernel, "--journal"))

	require.NoError(t, run("history", "--limit", "5"))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3, out.String())
	assert.Contains(t, lines[0], "FAILED at create device")
	assert.Contains(t, lines[1], "vkCreateDevice")
	assert.Contains(t, lines[2], "n=4")
	assert.Contains(t, lines[2], "Fake GPU")
	assert.True(t, strings.HasSuffix(lines[2], "ok"), lines[2])
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "vkadd v"+version)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "2.0 MiB", formatBytes(2<<20))
	assert.Equal(t, "8.0 GiB", formatBytes(8<<30))
}
