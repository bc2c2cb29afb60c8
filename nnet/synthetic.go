package nnet

import (
	"math"
	"math/rand"
)

// Circles returns n samples from two interleaved circles in 2 dimensions.
// The outer ring has unit radius and label 0, the inner ring is scaled by
// factor and has label 1. Gaussian noise with the given standard deviation
// is added to each coordinate.
func Circles(n int, factor, noise float64, rng *rand.Rand) Data {
	labels := make([]int32, n)
	inputs := make([]float32, 2*n)
	for i := 0; i < n; i++ {
		angle := 2 * math.Pi * rng.Float64()
		radius := 1.0
		if i%2 == 1 {
			radius = factor
			labels[i] = 1
		}
		inputs[2*i] = float32(radius*math.Cos(angle) + noise*rng.NormFloat64())
		inputs[2*i+1] = float32(radius*math.Sin(angle) + noise*rng.NormFloat64())
	}
	return NewData(2, []int{2}, labels, inputs)
}

// XOR returns the 4 sample exclusive or dataset.
func XOR() Data {
	return NewData(2, []int{2},
		[]int32{0, 1, 1, 0},
		[]float32{0, 0, 0, 1, 1, 0, 1, 1},
	)
}

// Spiral returns n samples from two interleaved spiral arms with the given
// coordinate noise, arm 0 has label 0 and arm 1 label 1.
func Spiral(n int, noise float64, rng *rand.Rand) Data {
	labels := make([]int32, n)
	inputs := make([]float32, 2*n)
	for i := 0; i < n; i++ {
		t := 3 * math.Pi * float64(i/2) / float64(n/2)
		r := t / (3 * math.Pi)
		phase := 0.0
		if i%2 == 1 {
			phase = math.Pi
			labels[i] = 1
		}
		inputs[2*i] = float32(r*math.Sin(t+phase) + noise*rng.NormFloat64())
		inputs[2*i+1] = float32(r*math.Cos(t+phase) + noise*rng.NormFloat64())
	}
	return NewData(2, []int{2}, labels, inputs)
}

// Bounds returns the bounding box of a 2 dimensional dataset with a margin added.
func Bounds(d Data, margin float32) (xmin, ymin, xmax, ymax float32) {
	buf := make([]float32, 2)
	xmin, ymin = math.MaxFloat32, math.MaxFloat32
	xmax, ymax = -math.MaxFloat32, -math.MaxFloat32
	for i := 0; i < d.Len(); i++ {
		d.Input([]int{i}, buf)
		xmin, xmax = min32(xmin, buf[0]), max32(xmax, buf[0])
		ymin, ymax = min32(ymin, buf[1]), max32(ymax, buf[1])
	}
	return xmin - margin, ymin - margin, xmax + margin, ymax + margin
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
