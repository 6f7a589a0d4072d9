package gpubatch

import (
	"github.com/cogentcore/webgpu/wgpu"

	"broadphase/algebra"
	"broadphase/bv"
)

// BatchOverlap runs a brute-force O(n^2) sphere-overlap pass entirely on
// the GPU: one invocation per object, each checking every higher-indexed
// object. It trades the DBVT's incremental O(log n) precision for raw
// throughput on a single one-shot population, which is the shape a
// just-spawned or just-woken batch of bodies takes before the broad phase
// has had a chance to build any tree structure for them at all.
type BatchOverlap struct {
	system   *System
	pipeline *Pipeline

	sphereBuffer *Buffer
	pairBuffer   *Buffer
	countBuffer  *Buffer

	maxObjects uint32
	maxPairs   uint32
}

// Pair is a candidate overlapping pair reported by index into the slice
// passed to DetectOverlaps.
type Pair struct {
	A, B uint32
}

type packedSphere struct {
	X, Y, Z, Radius float32
}

const overlapShader = `
struct Sphere {
    pos: vec3<f32>,
    radius: f32,
}

struct Pair {
    a: u32,
    b: u32,
}

@group(0) @binding(0) var<storage, read> spheres: array<Sphere>;
@group(0) @binding(1) var<storage, read_write> pairs: array<Pair>;
@group(0) @binding(2) var<storage, read_write> pairCount: atomic<u32>;
@group(0) @binding(3) var<uniform> objectCount: u32;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let i = global_id.x;
    if (i >= objectCount) {
        return;
    }

    let a = spheres[i];
    for (var j = i + 1u; j < objectCount; j = j + 1u) {
        let b = spheres[j];
        let diff = a.pos - b.pos;
        let distSq = dot(diff, diff);
        let radiusSum = a.radius + b.radius;

        if (distSq < radiusSum * radiusSum) {
            let idx = atomicAdd(&pairCount, 1u);
            if (idx < arrayLength(&pairs)) {
                pairs[idx] = Pair(i, j);
            }
        }
    }
}
`

// NewBatchOverlap allocates GPU buffers sized for up to maxObjects input
// spheres and maxPairs reported candidate pairs (a generous multiple of
// maxObjects is typical, since worst case is maxObjects*(maxObjects-1)/2).
func NewBatchOverlap(maxObjects, maxPairs uint32) (*BatchOverlap, error) {
	sys := Get()
	if sys == nil {
		return nil, nil
	}

	pipeline, err := sys.createPipeline("overlap", overlapShader, "main")
	if err != nil {
		return nil, err
	}

	sphereBuffer, err := sys.createBuffer("spheres", uint64(maxObjects)*16,
		wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	pairBuffer, err := sys.createBuffer("pairs", uint64(maxPairs)*8,
		wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
	if err != nil {
		sphereBuffer.Release()
		return nil, err
	}
	countBuffer, err := sys.createBuffer("pairCount", 4,
		wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc|wgpu.BufferUsageCopyDst)
	if err != nil {
		sphereBuffer.Release()
		pairBuffer.Release()
		return nil, err
	}

	return &BatchOverlap{
		system:       sys,
		pipeline:     pipeline,
		sphereBuffer: sphereBuffer,
		pairBuffer:   pairBuffer,
		countBuffer:  countBuffer,
		maxObjects:   maxObjects,
		maxPairs:     maxPairs,
	}, nil
}

// DetectOverlaps uploads spheres and returns the candidate pairs the GPU
// pass found. Spheres beyond maxObjects are ignored, and at most maxPairs
// pairs are returned. The GPU kernel always runs in float32 regardless of
// the broad phase's own scalar type.
func (o *BatchOverlap) DetectOverlaps(spheres []bv.Sphere[float32]) ([]Pair, error) {
	if len(spheres) == 0 {
		return nil, nil
	}
	if uint32(len(spheres)) > o.maxObjects {
		spheres = spheres[:o.maxObjects]
	}

	packed := make([]packedSphere, len(spheres))
	for i, s := range spheres {
		packed[i] = packedSphere{X: s.Center[0], Y: s.Center[1], Z: s.Center[2], Radius: s.Radius}
	}

	o.system.writeBuffer(o.sphereBuffer, 0, toBytes(packed))
	o.system.writeBuffer(o.countBuffer, 0, toBytes([]uint32{0}))

	objectCount := uint32(len(spheres))
	uniformBuffer, err := o.system.createBufferWithData("objectCount",
		toBytes([]uint32{objectCount}), wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	defer uniformBuffer.Release()

	if err := o.dispatch(objectCount, uniformBuffer); err != nil {
		return nil, err
	}

	countData, err := o.system.readBuffer(o.countBuffer)
	if err != nil {
		return nil, err
	}
	pairCount := fromBytes[uint32](countData)[0]
	if pairCount == 0 {
		return nil, nil
	}
	if pairCount > o.maxPairs {
		pairCount = o.maxPairs
	}

	pairData, err := o.system.readBuffer(o.pairBuffer)
	if err != nil {
		return nil, err
	}
	raw := fromBytes[Pair](pairData)
	pairs := make([]Pair, pairCount)
	copy(pairs, raw[:pairCount])
	return pairs, nil
}

// dispatch binds the four buffers this shader needs (three storage plus
// the object-count uniform) against the pipeline's cached layout and
// submits one compute pass.
func (o *BatchOverlap) dispatch(objectCount uint32, uniformBuffer *Buffer) error {
	device := o.system.device

	bindGroup, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "overlap_bindgroup",
		Layout: o.pipeline.layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: o.sphereBuffer.buffer, Size: o.sphereBuffer.size},
			{Binding: 1, Buffer: o.pairBuffer.buffer, Size: o.pairBuffer.size},
			{Binding: 2, Buffer: o.countBuffer.buffer, Size: o.countBuffer.size},
			{Binding: 3, Buffer: uniformBuffer.buffer, Size: uniformBuffer.size},
		},
	})
	if err != nil {
		return err
	}
	defer bindGroup.Release()

	encoder, err := device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(o.pipeline.pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DispatchWorkgroups((objectCount+255)/256, 1, 1)
	pass.End()
	pass.Release()

	commands, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	defer commands.Release()

	o.system.queue.Submit(commands)
	return nil
}

// Release frees the GPU buffers this accelerator owns. The shared System
// and its compiled pipeline cache are left alone.
func (o *BatchOverlap) Release() {
	if o.sphereBuffer != nil {
		o.sphereBuffer.Release()
	}
	if o.pairBuffer != nil {
		o.pairBuffer.Release()
	}
	if o.countBuffer != nil {
		o.countBuffer.Release()
	}
}

// FromPoints is a convenience for building the float32 sphere slice
// DetectOverlaps expects out of parallel center/radius data.
func FromPoints(centers []algebra.Point[float32], radii []float32) []bv.Sphere[float32] {
	spheres := make([]bv.Sphere[float32], len(centers))
	for i := range centers {
		spheres[i] = bv.NewSphere(centers[i], radii[i])
	}
	return spheres
}
