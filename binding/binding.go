// Copyright 2025 The psoarchive Authors. All rights reserved.

// Package binding implements the per-backend binding assignment
// algorithm (spec.md §4.5, component C5): given an ordered set of
// resource signatures, compute each resource's concrete
// register/space/binding triple according to the rules of D3D11,
// D3D12, OpenGL/ES, Vulkan and Metal.
//
// Design note (spec.md §9): backend rules are expressed as strategy
// functions selected by a switch on device.Backend, composition
// rather than a class hierarchy, the way the teacher expresses
// backend-specific behavior as a concrete driver.Driver/driver.GPU
// pair instead of an inheritance chain.
package binding

import (
	"errors"
	"sort"

	"github.com/kestrelgfx/psoarchive/device"
)

// ErrInvalidSignatureLayout is returned when the binding indices of
// the input signatures do not densely fill [0, N) after sorting
// (spec.md §4.5 "Error conditions").
var ErrInvalidSignatureLayout = errors.New("binding: signature binding indices do not densely fill [0, N)")

// NoSet is the sentinel reported-size value meaning a Vulkan
// descriptor set layout was not contributed by a signature (spec.md
// §4.5 Vulkan rule: "each present iff its reported size ≠ sentinel").
const NoSet = -1

// stageOrder fixes the per-stage iteration order used by the D3D11
// and GL rules (spec.md §4.5 "maintain baseBindings[range][stageIndex]").
var stageOrder = [6]device.Stage{
	device.StageVertex,
	device.StagePixel,
	device.StageGeometry,
	device.StageHull,
	device.StageDomain,
	device.StageCompute,
}

const (
	stageVertexIdx = iota
	stagePixelIdx
	stageGeometryIdx
	stageHullIdx
	stageDomainIdx
	stageComputeIdx
	numStages
)

// register range a resource type belongs to, for the D3D11/GL rules.
type resRange int

const (
	rangeCBV resRange = iota
	rangeSRV
	rangeSampler
	rangeUAV
	numRanges
)

func rangeOf(t device.ResourceType) resRange {
	switch t {
	case device.ResConstantBuffer:
		return rangeCBV
	case device.ResRWTexture, device.ResRWBuffer:
		return rangeUAV
	case device.ResSampler:
		return rangeSampler
	default:
		return rangeSRV
	}
}

func arraySizeOf(d device.PipelineResourceDesc) int {
	if d.Flags&device.FlagRuntimeArray != 0 {
		return 0
	}
	return d.ArraySize
}

// BackendAttrs carries the raw, per-backend attributes a signature
// declared at creation time, before cross-signature offset
// accumulation (spec.md §3 "Per-backend attributes ... are stored in
// the backend block").
type BackendAttrs struct {
	D3D11BindPoint  [numStages]int
	D3D12Register   int
	D3D12Space      int
	GLCacheOffset   int
	VulkanSet       int
	VulkanBinding   int
	MetalArgIndex   int
}

// ResourceInput is one resource declaration plus its raw per-backend
// attributes.
type ResourceInput struct {
	Desc  device.PipelineResourceDesc
	Attrs BackendAttrs
}

// SamplerInput is one immutable sampler declaration plus its raw
// per-backend attributes.
type SamplerInput struct {
	Sampler device.ImmutableSampler
	Attrs   BackendAttrs
}

// SignatureInput is one resource signature as seen by binding
// assignment: its resources and immutable samplers, in declared
// order, plus the two Vulkan-specific descriptor-set sizes used to
// advance descSetLayoutCount.
type SignatureInput struct {
	Name                 string
	BindingIndex         int
	Resources            []ResourceInput
	Samplers             []SamplerInput
	VulkanStaticMutSize  int // NoSet if this signature has no static/mutable set
	VulkanDynamicSize    int // NoSet if this signature has no dynamic set
}

// sortedByBindingIndex validates that indices densely fill [0, N)
// and returns the inputs in that order (spec.md §4.5 "Input").
func sortedByBindingIndex(sigs []SignatureInput) ([]SignatureInput, error) {
	out := make([]SignatureInput, len(sigs))
	copy(out, sigs)
	sort.Slice(out, func(i, j int) bool { return out[i].BindingIndex < out[j].BindingIndex })
	for i, s := range out {
		if s.BindingIndex != i {
			return nil, ErrInvalidSignatureLayout
		}
	}
	return out, nil
}

// Assign computes the flat list of PipelineResourceBinding for sigs
// against the given backend (spec.md §4.5 "Output"). stageMask
// restricts which shader stages are considered (used by D3D11, D3D12
// and GL; Vulkan and Metal ignore it); numRenderTargets only matters for D3D11, whose UAV range
// shares register space with render targets.
//
// An unknown or undefined backend returns an empty, non-nil slice and
// a nil error, per spec.md's error conditions.
func Assign(sigs []SignatureInput, backend device.Backend, stageMask device.Stage, numRenderTargets int) ([]device.PipelineResourceBinding, error) {
	ordered, err := sortedByBindingIndex(sigs)
	if err != nil {
		return nil, err
	}
	switch backend {
	case device.Direct3D11:
		return assignD3D11(ordered, stageMask, numRenderTargets), nil
	case device.Direct3D12:
		return assignD3D12(ordered, stageMask), nil
	case device.OpenGL:
		return assignGL(ordered, stageMask), nil
	case device.Vulkan:
		return assignVulkan(ordered), nil
	case device.MetalIOS, device.MetalMacOS:
		return assignMetal(ordered, defaultMaxArgBuffers), nil
	default:
		return []device.PipelineResourceBinding{}, nil
	}
}
