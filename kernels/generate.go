// Package kernels holds the GLSL source of the vkadd compute kernel.
//
// The SPIR-V binary is not checked in. Build it with the Vulkan SDK's
// glslangValidator:
//
//	go generate ./kernels
package kernels

//go:generate glslangValidator -V vector_add.comp -o vector_add.comp.spv
