package vulkan_test

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/vkadd/pkg/gpu/vulkan"
)

func TestLoadFailureIsCachedPerPath(t *testing.T) {
	switch runtime.GOOS {
	case "linux", "darwin", "freebsd", "windows":
	default:
		t.Skip("no dynamic loader on " + runtime.GOOS)
	}
	if vulkan.LoadedLibrary() != "" {
		t.Skip("a Vulkan loader is already open in this process")
	}

	dir := t.TempDir()
	first := filepath.Join(dir, "first-vulkan.so")
	second := filepath.Join(dir, "second-vulkan.so")

	_, err := vulkan.Load(first)
	require.ErrorIs(t, err, vulkan.ErrVulkanNotAvailable)
	assert.Contains(t, err.Error(), first)

	// Same path: the cached error comes back.
	_, again := vulkan.Load(first)
	assert.Equal(t, err, again)

	// Another path is still attempted.
	_, err = vulkan.Load(second)
	require.ErrorIs(t, err, vulkan.ErrVulkanNotAvailable)
	assert.Contains(t, err.Error(), second)
	assert.NotContains(t, err.Error(), first)
	assert.Empty(t, vulkan.LoadedLibrary())
}

func TestLoadLibraryWithoutVulkanSymbols(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("uses the glibc shared object")
	}
	if vulkan.LoadedLibrary() != "" {
		t.Skip("a Vulkan loader is already open in this process")
	}

	_, err := vulkan.Load("libc.so.6")
	require.ErrorIs(t, err, vulkan.ErrVulkanNotAvailable)
	assert.Empty(t, vulkan.LoadedLibrary())

	missing := filepath.Join(t.TempDir(), "libvulkan.so.1")
	_, err = vulkan.Load(missing)
	require.ErrorIs(t, err, vulkan.ErrVulkanNotAvailable)
	assert.Contains(t, err.Error(), missing)
}
