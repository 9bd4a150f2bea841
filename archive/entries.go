// Copyright 2025 The psoarchive Authors. All rights reserved.

package archive

import (
	"github.com/kestrelgfx/psoarchive/device"
	"github.com/kestrelgfx/psoarchive/internal/serial"
)

// The structs and (en|de)code pairs below are the "serialized create-
// info tail" spec.md §6 describes following each entry's common
// header: the backend-independent half of a resource, built from the
// same device.*Desc fields a caller passed to the serialization
// device (spec.md §4.8), minus anything backend-specific (which lives
// in that entry's per-backend block, decoded separately).

func encodeResourceDesc(e *serial.Encoder, r device.PipelineResourceDesc) {
	e.CString(r.Name)
	e.Uint32(uint32(r.Type))
	e.Uint32(uint32(r.ShaderStages))
	e.Uint32(uint32(r.ArraySize))
	e.Uint32(uint32(r.Flags))
}

func decodeResourceDesc(d *serial.Decoder) (device.PipelineResourceDesc, error) {
	var r device.PipelineResourceDesc
	var err error
	if r.Name, err = d.CString(); err != nil {
		return r, err
	}
	t, err := d.Uint32()
	if err != nil {
		return r, err
	}
	r.Type = device.ResourceType(t)
	st, err := d.Uint32()
	if err != nil {
		return r, err
	}
	r.ShaderStages = device.Stage(st)
	sz, err := d.Uint32()
	if err != nil {
		return r, err
	}
	r.ArraySize = int(sz)
	fl, err := d.Uint32()
	if err != nil {
		return r, err
	}
	r.Flags = device.ResourceFlags(fl)
	return r, nil
}

func encodeImmutableSampler(e *serial.Encoder, s device.ImmutableSampler) {
	e.CString(s.Name)
	e.Uint32(uint32(s.ShaderStages))
}

func decodeImmutableSampler(d *serial.Decoder) (device.ImmutableSampler, error) {
	var s device.ImmutableSampler
	var err error
	if s.Name, err = d.CString(); err != nil {
		return s, err
	}
	st, err := d.Uint32()
	if err != nil {
		return s, err
	}
	s.ShaderStages = device.Stage(st)
	return s, nil
}

// signatureCommon is the common tail of a resource-signature entry
// (spec.md §3 "Resource signature descriptor").
type signatureCommon struct {
	BindingIndex int
	Resources    []device.PipelineResourceDesc
	Samplers     []device.ImmutableSampler
}

func encodeSignatureCommon(e *serial.Encoder, c signatureCommon) {
	e.Uint32(uint32(c.BindingIndex))
	e.Uint32(uint32(len(c.Resources)))
	for _, r := range c.Resources {
		encodeResourceDesc(e, r)
	}
	e.Uint32(uint32(len(c.Samplers)))
	for _, s := range c.Samplers {
		encodeImmutableSampler(e, s)
	}
}

func decodeSignatureCommon(d *serial.Decoder) (signatureCommon, error) {
	var c signatureCommon
	bi, err := d.Uint32()
	if err != nil {
		return c, err
	}
	c.BindingIndex = int(bi)
	n, err := d.Uint32()
	if err != nil {
		return c, err
	}
	c.Resources = make([]device.PipelineResourceDesc, n)
	for i := range c.Resources {
		if c.Resources[i], err = decodeResourceDesc(d); err != nil {
			return c, err
		}
	}
	n, err = d.Uint32()
	if err != nil {
		return c, err
	}
	c.Samplers = make([]device.ImmutableSampler, n)
	for i := range c.Samplers {
		if c.Samplers[i], err = decodeImmutableSampler(d); err != nil {
			return c, err
		}
	}
	return c, nil
}

// bindingsBlock is a signature's per-backend block: the bindings the
// offline binding-assignment pass (component C5) computed for it
// (spec.md §3 "Per-backend attributes ... are stored in the backend
// block").
type bindingsBlock struct {
	Bindings []device.PipelineResourceBinding
}

func encodeBindingsBlock(e *serial.Encoder, b bindingsBlock) {
	e.Uint32(uint32(len(b.Bindings)))
	for _, bnd := range b.Bindings {
		e.CString(bnd.Name)
		e.Uint32(uint32(bnd.ResourceType))
		e.Int32(int32(bnd.Register))
		e.Int32(int32(bnd.Space))
		e.Int32(int32(bnd.ArraySize))
		e.Uint32(uint32(bnd.ShaderStages))
	}
}

func decodeBindingsBlock(d *serial.Decoder) (bindingsBlock, error) {
	var b bindingsBlock
	n, err := d.Uint32()
	if err != nil {
		return b, err
	}
	b.Bindings = make([]device.PipelineResourceBinding, n)
	for i := range b.Bindings {
		name, err := d.CString()
		if err != nil {
			return b, err
		}
		rt, err := d.Uint32()
		if err != nil {
			return b, err
		}
		reg, err := d.Int32()
		if err != nil {
			return b, err
		}
		sp, err := d.Int32()
		if err != nil {
			return b, err
		}
		as, err := d.Int32()
		if err != nil {
			return b, err
		}
		stages, err := d.Uint32()
		if err != nil {
			return b, err
		}
		b.Bindings[i] = device.PipelineResourceBinding{
			Name: name, ResourceType: device.ResourceType(rt),
			Register: int(reg), Space: int(sp), ArraySize: int(as),
			ShaderStages: device.Stage(stages),
		}
	}
	return b, nil
}

// renderPassCommon is the common tail of a render-pass entry.
type renderPassCommon struct {
	Attachments []device.AttachmentDesc
	Subpasses   []device.SubpassDesc
}

func encodeRenderPassCommon(e *serial.Encoder, c renderPassCommon) {
	e.Uint32(uint32(len(c.Attachments)))
	for _, a := range c.Attachments {
		e.Uint32(uint32(a.Format))
		e.Uint32(uint32(a.Samples))
	}
	e.Uint32(uint32(len(c.Subpasses)))
	for _, s := range c.Subpasses {
		e.Uint32(uint32(len(s.Color)))
		for _, c := range s.Color {
			e.Int32(int32(c))
		}
		e.Int32(int32(s.DS))
	}
}

func decodeRenderPassCommon(d *serial.Decoder) (renderPassCommon, error) {
	var c renderPassCommon
	n, err := d.Uint32()
	if err != nil {
		return c, err
	}
	c.Attachments = make([]device.AttachmentDesc, n)
	for i := range c.Attachments {
		f, err := d.Uint32()
		if err != nil {
			return c, err
		}
		s, err := d.Uint32()
		if err != nil {
			return c, err
		}
		c.Attachments[i] = device.AttachmentDesc{Format: int(f), Samples: int(s)}
	}
	n, err = d.Uint32()
	if err != nil {
		return c, err
	}
	c.Subpasses = make([]device.SubpassDesc, n)
	for i := range c.Subpasses {
		cn, err := d.Uint32()
		if err != nil {
			return c, err
		}
		color := make([]int, cn)
		for j := range color {
			v, err := d.Int32()
			if err != nil {
				return c, err
			}
			color[j] = int(v)
		}
		ds, err := d.Int32()
		if err != nil {
			return c, err
		}
		c.Subpasses[i] = device.SubpassDesc{Color: color, DS: int(ds)}
	}
	return c, nil
}

func encodeNameList(e *serial.Encoder, names []string) {
	e.Uint32(uint32(len(names)))
	for _, n := range names {
		e.CString(n)
	}
}

func decodeNameList(d *serial.Decoder) ([]string, error) {
	n, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	out := make([]string, n)
	for i := range out {
		if out[i], err = d.CString(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// graphicsCommon is a graphics PSO's backend-independent tail.
type graphicsCommon struct {
	SignatureNames   []string
	RenderPassName   string
	Subpass          int
	NumRenderTargets int
}

func encodeGraphicsCommon(e *serial.Encoder, c graphicsCommon) {
	encodeNameList(e, c.SignatureNames)
	e.CString(c.RenderPassName)
	e.Int32(int32(c.Subpass))
	e.Int32(int32(c.NumRenderTargets))
}

func decodeGraphicsCommon(d *serial.Decoder) (graphicsCommon, error) {
	var c graphicsCommon
	var err error
	if c.SignatureNames, err = decodeNameList(d); err != nil {
		return c, err
	}
	if c.RenderPassName, err = d.CString(); err != nil {
		return c, err
	}
	sp, err := d.Int32()
	if err != nil {
		return c, err
	}
	c.Subpass = int(sp)
	nrt, err := d.Int32()
	if err != nil {
		return c, err
	}
	c.NumRenderTargets = int(nrt)
	return c, nil
}

// graphicsShaders is a graphics PSO's backend block: its shader-index
// list (spec.md §3 "The backend block contains a shader-index list").
type graphicsShaders struct {
	Vertex, Pixel, Geometry, Hull, Domain uint32
}

func encodeGraphicsShaders(e *serial.Encoder, s graphicsShaders) {
	e.Uint32(s.Vertex)
	e.Uint32(s.Pixel)
	e.Uint32(s.Geometry)
	e.Uint32(s.Hull)
	e.Uint32(s.Domain)
}

func decodeGraphicsShaders(d *serial.Decoder) (graphicsShaders, error) {
	var s graphicsShaders
	var err error
	if s.Vertex, err = d.Uint32(); err != nil {
		return s, err
	}
	if s.Pixel, err = d.Uint32(); err != nil {
		return s, err
	}
	if s.Geometry, err = d.Uint32(); err != nil {
		return s, err
	}
	if s.Hull, err = d.Uint32(); err != nil {
		return s, err
	}
	if s.Domain, err = d.Uint32(); err != nil {
		return s, err
	}
	return s, nil
}

// computeCommon is a compute PSO's backend-independent tail.
type computeCommon struct {
	SignatureNames []string
}

func encodeComputeCommon(e *serial.Encoder, c computeCommon) { encodeNameList(e, c.SignatureNames) }

func decodeComputeCommon(d *serial.Decoder) (computeCommon, error) {
	var c computeCommon
	var err error
	c.SignatureNames, err = decodeNameList(d)
	return c, err
}

// tileCommon is a tile (programmable blending) PSO's backend-
// independent tail; it shares compute's shape.
type tileCommon = computeCommon

func encodeTileCommon(e *serial.Encoder, c tileCommon) { encodeComputeCommon(e, c) }
func decodeTileCommon(d *serial.Decoder) (tileCommon, error) { return decodeComputeCommon(d) }

// rayTracingCommon is a ray-tracing PSO's backend-independent tail:
// signature names, the recursion limit, and the shader-group names
// (the indices each group's shader fields resolve to live in the
// backend block, see rayTracingShaders).
type rayTracingCommon struct {
	SignatureNames    []string
	MaxRecursionDepth int
	GeneralNames      []string
	TriangleNames     []string
	ProceduralNames   []string
}

func encodeRayTracingCommon(e *serial.Encoder, c rayTracingCommon) {
	encodeNameList(e, c.SignatureNames)
	e.Int32(int32(c.MaxRecursionDepth))
	encodeNameList(e, c.GeneralNames)
	encodeNameList(e, c.TriangleNames)
	encodeNameList(e, c.ProceduralNames)
}

func decodeRayTracingCommon(d *serial.Decoder) (rayTracingCommon, error) {
	var c rayTracingCommon
	var err error
	if c.SignatureNames, err = decodeNameList(d); err != nil {
		return c, err
	}
	depth, err := d.Int32()
	if err != nil {
		return c, err
	}
	c.MaxRecursionDepth = int(depth)
	if c.GeneralNames, err = decodeNameList(d); err != nil {
		return c, err
	}
	if c.TriangleNames, err = decodeNameList(d); err != nil {
		return c, err
	}
	if c.ProceduralNames, err = decodeNameList(d); err != nil {
		return c, err
	}
	return c, nil
}

// rayTracingShaders is the backend block for a ray-tracing PSO: one
// shader-index triple (general | closestHit/anyHit |
// intersection/closestHit/anyHit) per declared group, in the same
// order as rayTracingCommon's name lists (spec.md §3, §4.6 step 7 —
// "each shader field carries an integer index masquerading as a
// pointer").
type rayTracingShaders struct {
	General    []uint32
	Triangle   [][2]uint32 // {closestHit, anyHit}
	Procedural [][3]uint32 // {intersection, closestHit, anyHit}
}

func encodeRayTracingShaders(e *serial.Encoder, s rayTracingShaders) {
	e.Uint32(uint32(len(s.General)))
	for _, g := range s.General {
		e.Uint32(g)
	}
	e.Uint32(uint32(len(s.Triangle)))
	for _, t := range s.Triangle {
		e.Uint32(t[0])
		e.Uint32(t[1])
	}
	e.Uint32(uint32(len(s.Procedural)))
	for _, p := range s.Procedural {
		e.Uint32(p[0])
		e.Uint32(p[1])
		e.Uint32(p[2])
	}
}

func decodeRayTracingShaders(d *serial.Decoder) (rayTracingShaders, error) {
	var s rayTracingShaders
	n, err := d.Uint32()
	if err != nil {
		return s, err
	}
	s.General = make([]uint32, n)
	for i := range s.General {
		if s.General[i], err = d.Uint32(); err != nil {
			return s, err
		}
	}
	n, err = d.Uint32()
	if err != nil {
		return s, err
	}
	s.Triangle = make([][2]uint32, n)
	for i := range s.Triangle {
		if s.Triangle[i][0], err = d.Uint32(); err != nil {
			return s, err
		}
		if s.Triangle[i][1], err = d.Uint32(); err != nil {
			return s, err
		}
	}
	n, err = d.Uint32()
	if err != nil {
		return s, err
	}
	s.Procedural = make([][3]uint32, n)
	for i := range s.Procedural {
		if s.Procedural[i][0], err = d.Uint32(); err != nil {
			return s, err
		}
		if s.Procedural[i][1], err = d.Uint32(); err != nil {
			return s, err
		}
		if s.Procedural[i][2], err = d.Uint32(); err != nil {
			return s, err
		}
	}
	return s, nil
}

// debugInfo is the ArchiveDebugInfo chunk body (spec.md §4.3 step 5,
// supplemented per SPEC_FULL.md §3 with a build ID).
type debugInfo struct {
	APIVersion string
	Commit     string
	BuildID    string
}

func encodeDebugInfo(e *serial.Encoder, d debugInfo) {
	e.CString(d.APIVersion)
	e.CString(d.Commit)
	e.CString(d.BuildID)
}

func decodeDebugInfo(d *serial.Decoder) (debugInfo, error) {
	var info debugInfo
	var err error
	if info.APIVersion, err = d.CString(); err != nil {
		return info, err
	}
	if info.Commit, err = d.CString(); err != nil {
		return info, err
	}
	if info.BuildID, err = d.CString(); err != nil {
		return info, err
	}
	return info, nil
}
