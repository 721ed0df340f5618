// Package config handles vkadd configuration via YAML files and environment variables.
//
// Configuration Precedence (highest to lowest):
//  1. Command-line flags (--width, --kernel, --device, etc.)
//  2. Environment variables (VKADD_*)
//  3. Config file (vkadd.yaml)
//  4. Built-in defaults
//
// Example Usage:
//
//	cfg, err := config.LoadFromFile(config.FindConfigFile())
//	if err != nil {
//		log.Fatalf("Invalid config: %v", err)
//	}
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Configuration error: %v", err)
//	}
//
// Environment Variables (all use VKADD_ prefix):
//
// Vulkan:
//   - VKADD_VULKAN_LIBRARY="/usr/lib/libvulkan.so.1"
//   - VKADD_DEVICE_INDEX=0
//   - VKADD_API_VERSION="1.0"
//   - VKADD_VALIDATION=true
//   - VKADD_VALIDATION_LAYERS="VK_LAYER_KHRONOS_validation"
//   - VKADD_INSTANCE_EXTENSIONS="VK_EXT_debug_utils,VK_KHR_get_physical_device_properties2"
//   - VKADD_DEVICE_EXTENSIONS="VK_KHR_portability_subset"
//   - VKADD_PORTABILITY=false
//
// Kernel and compute:
//   - VKADD_KERNEL_PATHS="./kernels/vector_add.comp.spv,vector_add.comp.spv"
//   - VKADD_KERNEL_ENTRY_POINT="main"
//   - VKADD_WIDTH=1024
//   - VKADD_HEIGHT=1
//   - VKADD_VERIFY=true
//   - VKADD_PRINT_RESULTS=true
//
// Logging and journal:
//   - VKADD_LOG_LEVEL="info"
//   - VKADD_LOG_FORMAT="text" or "json"
//   - VKADD_JOURNAL_ENABLED=false
//   - VKADD_JOURNAL_DIR="./data/journal"
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// MaxLength is the largest vector length (width*height) accepted.
const MaxLength = 1 << 26

// Config holds all vkadd configuration.
type Config struct {
	App     AppConfig     `yaml:"app"`
	Vulkan  VulkanConfig  `yaml:"vulkan"`
	Kernel  KernelConfig  `yaml:"kernel"`
	Compute ComputeConfig `yaml:"compute"`
	Logging LoggingConfig `yaml:"logging"`
	Journal JournalConfig `yaml:"journal"`
}

// AppConfig holds the names reported to the Vulkan driver.
type AppConfig struct {
	Name       string `yaml:"name"`
	EngineName string `yaml:"engine_name"`
}

// VulkanConfig controls instance and device creation.
type VulkanConfig struct {
	// LibraryPath overrides the Vulkan loader library; empty uses the
	// platform default names.
	LibraryPath string `yaml:"library_path"`

	// DeviceIndex selects the physical device (0 = first enumerated).
	DeviceIndex int `yaml:"device_index"`

	// APIVersion is "major.minor" or "major.minor.patch".
	APIVersion string `yaml:"api_version"`

	// Validation enables ValidationLayers.
	Validation       bool     `yaml:"validation"`
	ValidationLayers []string `yaml:"validation_layers"`

	InstanceExtensions []string `yaml:"instance_extensions"`
	DeviceExtensions   []string `yaml:"device_extensions"`

	// Portability enumerates portability (non-conformant) implementations
	// such as MoltenVK.
	Portability bool `yaml:"portability"`
}

// KernelConfig locates the SPIR-V compute kernel.
type KernelConfig struct {
	// Paths are tried in order; the first readable file wins.
	Paths      []string `yaml:"paths"`
	EntryPoint string   `yaml:"entry_point"`
}

// ComputeConfig sizes the dispatch.
type ComputeConfig struct {
	Width        int  `yaml:"width"`
	Height       int  `yaml:"height"`
	Verify       bool `yaml:"verify"`
	PrintResults bool `yaml:"print_results"`
}

// LoggingConfig configures logrus.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// JournalConfig configures the badger-backed run journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// Length returns the number of vector elements (width*height).
func (c ComputeConfig) Length() int {
	return c.Width * c.Height
}

// LoadDefaults returns the built-in configuration.
func LoadDefaults() *Config {
	config := &Config{}
	darwin := runtime.GOOS == "darwin"

	config.App.Name = "Hello Vulkan"
	config.App.EngineName = "Vulkan Engine"

	config.Vulkan.DeviceIndex = 0
	config.Vulkan.APIVersion = "1.0"
	config.Vulkan.Validation = true
	config.Vulkan.ValidationLayers = []string{"VK_LAYER_KHRONOS_validation"}
	config.Vulkan.InstanceExtensions = []string{
		"VK_EXT_debug_utils",
		"VK_KHR_portability_enumeration",
		"VK_KHR_get_physical_device_properties2",
	}
	if darwin {
		config.Vulkan.DeviceExtensions = []string{"VK_KHR_portability_subset"}
	}
	config.Vulkan.Portability = darwin

	config.Kernel.Paths = []string{"./kernels/vector_add.comp.spv", "vector_add.comp.spv"}
	config.Kernel.EntryPoint = "main"

	config.Compute.Width = 1024
	config.Compute.Height = 1
	config.Compute.Verify = true
	config.Compute.PrintResults = true

	config.Logging.Level = "info"
	config.Logging.Format = "text"

	config.Journal.Enabled = false
	config.Journal.Dir = "./data/journal"

	return config
}

func applyEnvVars(config *Config) {
	config.App.Name = getEnv("VKADD_APP_NAME", config.App.Name)
	config.App.EngineName = getEnv("VKADD_ENGINE_NAME", config.App.EngineName)

	config.Vulkan.LibraryPath = getEnv("VKADD_VULKAN_LIBRARY", config.Vulkan.LibraryPath)
	config.Vulkan.DeviceIndex = getEnvInt("VKADD_DEVICE_INDEX", config.Vulkan.DeviceIndex)
	config.Vulkan.APIVersion = getEnv("VKADD_API_VERSION", config.Vulkan.APIVersion)
	config.Vulkan.Validation = getEnvBool("VKADD_VALIDATION", config.Vulkan.Validation)
	config.Vulkan.ValidationLayers = getEnvStringSlice("VKADD_VALIDATION_LAYERS", config.Vulkan.ValidationLayers)
	config.Vulkan.InstanceExtensions = getEnvStringSlice("VKADD_INSTANCE_EXTENSIONS", config.Vulkan.InstanceExtensions)
	config.Vulkan.DeviceExtensions = getEnvStringSlice("VKADD_DEVICE_EXTENSIONS", config.Vulkan.DeviceExtensions)
	config.Vulkan.Portability = getEnvBool("VKADD_PORTABILITY", config.Vulkan.Portability)

	config.Kernel.Paths = getEnvStringSlice("VKADD_KERNEL_PATHS", config.Kernel.Paths)
	config.Kernel.EntryPoint = getEnv("VKADD_KERNEL_ENTRY_POINT", config.Kernel.EntryPoint)

	config.Compute.Width = getEnvInt("VKADD_WIDTH", config.Compute.Width)
	config.Compute.Height = getEnvInt("VKADD_HEIGHT", config.Compute.Height)
	config.Compute.Verify = getEnvBool("VKADD_VERIFY", config.Compute.Verify)
	config.Compute.PrintResults = getEnvBool("VKADD_PRINT_RESULTS", config.Compute.PrintResults)

	config.Logging.Level = getEnv("VKADD_LOG_LEVEL", config.Logging.Level)
	config.Logging.Format = getEnv("VKADD_LOG_FORMAT", config.Logging.Format)

	config.Journal.Enabled = getEnvBool("VKADD_JOURNAL_ENABLED", config.Journal.Enabled)
	config.Journal.Dir = getEnv("VKADD_JOURNAL_DIR", config.Journal.Dir)
}

// LoadFromFile loads configuration with proper precedence:
//  1. Built-in defaults (lowest priority)
//  2. YAML config file
//  3. Environment variables (highest priority before CLI args)
//
// Command-line flags are applied by the caller after this. A missing file
// (or an empty path) is not an error.
//
// Example YAML:
//
//	vulkan:
//	  device_index: 1
//	  validation: false
//	compute:
//	  width: 4096
//	logging:
//	  format: json
func LoadFromFile(configPath string) (*Config, error) {
	config := LoadDefaults()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case os.IsNotExist(err):
			// defaults + env
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	applyEnvVars(config)
	return config, nil
}

// Validate checks the configuration for values vkadd cannot run with.
func (c *Config) Validate() error {
	if c.Compute.Width <= 0 {
		return fmt.Errorf("invalid compute width: %d", c.Compute.Width)
	}
	if c.Compute.Height <= 0 {
		return fmt.Errorf("invalid compute height: %d", c.Compute.Height)
	}
	if n := int64(c.Compute.Width) * int64(c.Compute.Height); n > MaxLength {
		return fmt.Errorf("vector length %d exceeds maximum %d", n, MaxLength)
	}
	if c.Vulkan.DeviceIndex < 0 {
		return fmt.Errorf("invalid device index: %d", c.Vulkan.DeviceIndex)
	}
	if _, err := c.APIVersion(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Kernel.EntryPoint) == "" {
		return fmt.Errorf("kernel entry point must not be empty")
	}
	if len(c.Kernel.Paths) == 0 {
		return fmt.Errorf("no kernel paths configured")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic":
	default:
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %q", c.Logging.Format)
	}
	if c.Journal.Enabled && c.Journal.Dir == "" {
		return fmt.Errorf("journal enabled but no directory configured")
	}
	return nil
}

// APIVersion parses Vulkan.APIVersion into a packed Vulkan version number.
func (c *Config) APIVersion() (uint32, error) {
	parts := strings.Split(strings.TrimSpace(c.Vulkan.APIVersion), ".")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid api version: %q", c.Vulkan.APIVersion)
	}
	var nums [3]uint64
	limits := [3]uint64{0x7f, 0x3ff, 0xfff}
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil || n > limits[i] {
			return 0, fmt.Errorf("invalid api version: %q", c.Vulkan.APIVersion)
		}
		nums[i] = n
	}
	return uint32(nums[0]<<22 | nums[1]<<12 | nums[2]), nil
}

// EnabledLayers returns the validation layers when validation is on.
func (c *Config) EnabledLayers() []string {
	if !c.Vulkan.Validation {
		return nil
	}
	return c.Vulkan.ValidationLayers
}

// String returns a short summary of the Config suitable for logging.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Device: %d, API: %s, Validation: %v, Grid: %dx%d, Kernel: %v, Journal: %v}",
		c.Vulkan.DeviceIndex, c.Vulkan.APIVersion, c.Vulkan.Validation,
		c.Compute.Width, c.Compute.Height, c.Kernel.Paths, c.Journal.Enabled,
	)
}

// FindConfigFile searches for a config file in standard locations.
// Returns the path to the first config file found, or empty string if none found.
// Search order:
//  1. Current working directory (vkadd.yaml)
//  2. ~/.vkadd/config.yaml
//  3. ~/.config/vkadd/config.yaml (XDG)
func FindConfigFile() string {
	candidates := []string{"vkadd.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, ".vkadd", "config.yaml"),
			filepath.Join(home, ".config", "vkadd", "config.yaml"),
		)
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// Helper functions for environment variable parsing

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}

func getEnvStringSlice(key string, defaultVal []string) []string {
	if val := os.Getenv(key); val != "" {
		// Split by comma, trim whitespace
		parts := strings.Split(val, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultVal
}
