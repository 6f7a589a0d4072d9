// Package gpubatch is an optional GPU-accelerated batch sphere-overlap
// accelerator for very large populations. It is a standalone utility: the
// core broadphase package never calls into it (the broad phase is
// single-threaded and synchronous by design). It exists so a caller with,
// say, tens of thousands of sleeping or newly-spawned bodies can get a
// coarse first-pass candidate set from the GPU before handing the result
// to the DBVT broad phase for the real incremental maintenance.
package gpubatch

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// System manages the WebGPU compute pipeline. Initialize once at startup.
type System struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	pipelines map[string]*Pipeline
	mu        sync.RWMutex
}

// Pipeline is a compiled compute shader ready to dispatch.
type Pipeline struct {
	shader   *wgpu.ShaderModule
	pipeline *wgpu.ComputePipeline
	layout   *wgpu.BindGroupLayout
}

// Buffer wraps a GPU buffer used by a pipeline.
type Buffer struct {
	buffer *wgpu.Buffer
	size   uint64
}

var (
	globalSystem *System
	initOnce     sync.Once
	initErr      error
)

// AdapterInfo describes the GPU backing the compute system.
type AdapterInfo struct {
	Name       string
	Backend    string
	DeviceType string
}

// Initialize sets up the global compute system. Safe to call more than
// once; only the first call does any work.
func Initialize() (AdapterInfo, error) {
	initOnce.Do(func() {
		globalSystem, initErr = newSystem()
	})
	if initErr != nil {
		return AdapterInfo{}, initErr
	}
	info := globalSystem.adapter.GetInfo()
	return AdapterInfo{
		Name:       info.Name,
		Backend:    info.BackendType.String(),
		DeviceType: info.AdapterType.String(),
	}, nil
}

// Get returns the global compute system, or nil if Initialize has not
// succeeded yet.
func Get() *System {
	return globalSystem
}

func newSystem() (*System, error) {
	instance := wgpu.CreateInstance(nil)

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("gpubatch: request adapter: %w", err)
	}

	device, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("gpubatch: request device: %w", err)
	}

	return &System{
		instance:  instance,
		adapter:   adapter,
		device:    device,
		queue:     device.GetQueue(),
		pipelines: make(map[string]*Pipeline),
	}, nil
}

// createPipeline compiles wgslCode and caches it under name.
func (s *System) createPipeline(name, wgslCode, entryPoint string) (*Pipeline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.pipelines[name]; ok {
		return p, nil
	}

	shader, err := s.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: wgslCode},
	})
	if err != nil {
		return nil, fmt.Errorf("gpubatch: compile shader %q: %w", name, err)
	}

	pipeline, err := s.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:   name,
		Compute: wgpu.ProgrammableStageDescriptor{Module: shader, EntryPoint: entryPoint},
	})
	if err != nil {
		shader.Release()
		return nil, fmt.Errorf("gpubatch: create pipeline %q: %w", name, err)
	}

	p := &Pipeline{shader: shader, pipeline: pipeline, layout: pipeline.GetBindGroupLayout(0)}
	s.pipelines[name] = p
	return p, nil
}

func (s *System) createBuffer(label string, size uint64, usage wgpu.BufferUsage) (*Buffer, error) {
	buf, err := s.device.CreateBuffer(&wgpu.BufferDescriptor{Label: label, Size: size, Usage: usage})
	if err != nil {
		return nil, fmt.Errorf("gpubatch: create buffer %q: %w", label, err)
	}
	return &Buffer{buffer: buf, size: size}, nil
}

func (s *System) createBufferWithData(label string, data []byte, usage wgpu.BufferUsage) (*Buffer, error) {
	buf, err := s.device.CreateBufferInit(&wgpu.BufferInitDescriptor{Label: label, Contents: data, Usage: usage})
	if err != nil {
		return nil, fmt.Errorf("gpubatch: create initialized buffer %q: %w", label, err)
	}
	return &Buffer{buffer: buf, size: uint64(len(data))}, nil
}

func (s *System) writeBuffer(buf *Buffer, offset uint64, data []byte) {
	s.queue.WriteBuffer(buf.buffer, offset, data)
}

// readBuffer copies buf's GPU contents back to the CPU. buf must have been
// created with wgpu.BufferUsageCopySrc.
func (s *System) readBuffer(buf *Buffer) ([]byte, error) {
	staging, err := s.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "gpubatch_staging",
		Size:  buf.size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpubatch: create staging buffer: %w", err)
	}
	defer staging.Release()

	encoder, err := s.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("gpubatch: create command encoder: %w", err)
	}
	encoder.CopyBufferToBuffer(buf.buffer, 0, staging, 0, buf.size)
	commands, err := encoder.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("gpubatch: finish command encoder: %w", err)
	}
	s.queue.Submit(commands)
	commands.Release()

	done := make(chan error, 1)
	err = staging.MapAsync(wgpu.MapModeRead, 0, buf.size, func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			done <- fmt.Errorf("gpubatch: map buffer: %v", status)
			return
		}
		done <- nil
	})
	if err != nil {
		return nil, err
	}

	s.device.Poll(true, nil)
	if err := <-done; err != nil {
		return nil, err
	}

	mapped := staging.GetMappedRange(0, uint(buf.size))
	result := make([]byte, len(mapped))
	copy(result, mapped)
	staging.Unmap()
	return result, nil
}

// Release frees every GPU resource owned by the system.
func (s *System) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pipelines {
		p.layout.Release()
		p.pipeline.Release()
		p.shader.Release()
	}
	s.pipelines = nil
	s.queue.Release()
	s.device.Release()
	s.adapter.Release()
	s.instance.Release()
}

func toBytes[T any](data []T) []byte {
	return wgpu.ToBytes(data)
}

func fromBytes[T any](data []byte) []T {
	return wgpu.FromBytes[T](data)
}
