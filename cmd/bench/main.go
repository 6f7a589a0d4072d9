// Command bench compares the CPU DBVT broad phase against the optional
// GPU batch accelerator across a range of population sizes.
package main

import (
	"flag"
	"log"
	"math/rand"
	"time"

	"broadphase/algebra"
	"broadphase/broadphase"
	"broadphase/bv"
	"broadphase/gpubatch"
)

type body struct {
	uid    uint64
	center algebra.Point[float64]
	radius float64
}

func (b *body) UID() uint64 { return b.uid }
func (b *body) BoundingVolume() bv.Sphere[float64] {
	return bv.NewSphere(b.center, b.radius)
}

func main() {
	var (
		margin     = flag.Float64("margin", 0.1, "loose-BV margin added on every axis")
		iterations = flag.Int("iterations", 10, "timed iterations per object count")
		maxCount   = flag.Int("max-objects", 20000, "largest population size to benchmark")
	)
	flag.Parse()

	info, err := gpubatch.Initialize()
	gpuAvailable := err == nil
	if !gpuAvailable {
		log.Printf("gpubatch unavailable, CPU-only run: %v", err)
	} else {
		log.Printf("GPU: %s | %s | %s", info.Backend, info.DeviceType, info.Name)
	}

	counts := []int{100, 500, 1000, 2000, 5000, 10000, 20000}
	for _, count := range counts {
		if count > *maxCount {
			break
		}
		runBench(count, *margin, *iterations, gpuAvailable)
	}
}

func runBench(count int, margin float64, iterations int, gpuAvailable bool) {
	rng := rand.New(rand.NewSource(42))
	spawnSize := 50.0 + float64(count)/100.0

	bodies := make([]*body, count)
	for i := range bodies {
		bodies[i] = &body{
			uid: uint64(i),
			center: algebra.Point[float64]{
				rng.Float64()*spawnSize - spawnSize/2,
				rng.Float64()*spawnSize - spawnSize/2,
				rng.Float64()*spawnSize - spawnSize/2,
			},
			radius: 0.5 + rng.Float64()*0.5,
		}
	}

	cpuStart := time.Now()
	var cpuPairs int
	for iter := 0; iter < iterations; iter++ {
		bp := broadphase.New[float64, bv.Sphere[float64], *body, struct{}](nil, margin)
		for _, b := range bodies {
			bp.Add(b)
		}
		cpuPairs = bp.NumPairs()
	}
	cpuTime := time.Since(cpuStart) / time.Duration(iterations)

	if !gpuAvailable {
		log.Printf("%6d objects: CPU %10v (%5d pairs)", count, cpuTime.Round(time.Microsecond), cpuPairs)
		return
	}

	maxPairs := uint32(count * 20)
	batch, err := gpubatch.NewBatchOverlap(uint32(count), maxPairs)
	if err != nil {
		log.Printf("%6d objects: gpubatch setup failed: %v", count, err)
		return
	}
	defer batch.Release()

	centers := make([]algebra.Point[float32], count)
	radii := make([]float32, count)
	for i, b := range bodies {
		centers[i] = algebra.Point[float32]{float32(b.center[0]), float32(b.center[1]), float32(b.center[2])}
		radii[i] = float32(b.radius)
	}
	spheres := gpubatch.FromPoints(centers, radii)

	// warm up
	if _, err := batch.DetectOverlaps(spheres); err != nil {
		log.Printf("%6d objects: gpubatch detect failed: %v", count, err)
		return
	}

	gpuStart := time.Now()
	var gpuPairs []gpubatch.Pair
	for iter := 0; iter < iterations; iter++ {
		gpuPairs, err = batch.DetectOverlaps(spheres)
		if err != nil {
			log.Printf("%6d objects: gpubatch detect failed: %v", count, err)
			return
		}
	}
	gpuTime := time.Since(gpuStart) / time.Duration(iterations)

	speedup := float64(cpuTime) / float64(gpuTime)
	log.Printf("%6d objects: CPU %10v (%5d pairs) | GPU %10v (%5d pairs) | %.1fx",
		count, cpuTime.Round(time.Microsecond), cpuPairs,
		gpuTime.Round(time.Microsecond), len(gpuPairs), speedup)
}
