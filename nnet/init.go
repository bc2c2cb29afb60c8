package nnet

import (
	"fmt"
	"math"
	"math/rand"
)

// InitType selects the distribution used to sample the initial layer weights.
type InitType int

const (
	RandomNormal InitType = iota
	RandomUniform
	GlorotUniform
	HeNormal
	LecunNormal
)

var initNames = []string{"randomNormal", "randomUniform", "glorotUniform", "heNormal", "lecunNormal"}

// InitTypes lists all supported weight initializers.
func InitTypes() []InitType {
	return []InitType{RandomNormal, RandomUniform, GlorotUniform, HeNormal, LecunNormal}
}

// InitByName looks up the initializer with the given name.
func InitByName(name string) (InitType, error) {
	for i, n := range initNames {
		if n == name {
			return InitType(i), nil
		}
	}
	return 0, fmt.Errorf("invalid weight init type: %s", name)
}

func (t InitType) String() string {
	if t < 0 || int(t) >= len(initNames) {
		return fmt.Sprintf("InitType(%d)", int(t))
	}
	return initNames[t]
}

func (t InitType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *InitType) UnmarshalText(text []byte) error {
	typ, err := InitByName(string(text))
	if err != nil {
		return err
	}
	*t = typ
	return nil
}

// WeightFunc returns a sampling function for a weight matrix with the
// given fan in and fan out.
func (t InitType) WeightFunc(nin, nout int, rng *rand.Rand) func() float32 {
	switch t {
	case RandomNormal:
		return func() float32 { return float32(rng.NormFloat64()) * 0.05 }
	case RandomUniform:
		return func() float32 { return float32(2*rng.Float64()-1) * 0.05 }
	case GlorotUniform:
		limit := math.Sqrt(6 / float64(nin+nout))
		return func() float32 { return float32((2*rng.Float64() - 1) * limit) }
	case HeNormal:
		scale := math.Sqrt(2 / float64(nin))
		return func() float32 { return float32(rng.NormFloat64() * scale) }
	case LecunNormal:
		scale := math.Sqrt(1 / float64(nin))
		return func() float32 { return float32(rng.NormFloat64() * scale) }
	}
	panic(fmt.Sprintf("invalid weight init type: %d", int(t)))
}
