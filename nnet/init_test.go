package nnet

import (
	"encoding/json"
	"math"
	"testing"
)

func sampleStats(t InitType, nin, nout, n int) (mean, stddev, maxAbs float64) {
	sample := t.WeightFunc(nin, nout, SetSeed(42))
	var sum, sum2 float64
	for i := 0; i < n; i++ {
		x := float64(sample())
		sum += x
		sum2 += x * x
		if math.Abs(x) > maxAbs {
			maxAbs = math.Abs(x)
		}
	}
	mean = sum / float64(n)
	stddev = math.Sqrt(sum2/float64(n) - mean*mean)
	return
}

func TestWeightFunc(t *testing.T) {
	const n = 20000
	tests := []struct {
		init    InitType
		nin     int
		nout    int
		stddev  float64
		bounded bool
	}{
		{RandomNormal, 50, 20, 0.05, false},
		{RandomUniform, 50, 20, 0.05 / math.Sqrt(3), true},
		{GlorotUniform, 100, 50, math.Sqrt(6.0/150.0) / math.Sqrt(3), true},
		{HeNormal, 200, 10, 0.1, false},
		{LecunNormal, 100, 10, 0.1, false},
	}
	for _, test := range tests {
		mean, stddev, maxAbs := sampleStats(test.init, test.nin, test.nout, n)
		t.Logf("%-14s mean=%8.5f stddev=%.5f max=%.5f", test.init, mean, stddev, maxAbs)
		if math.Abs(mean) > 0.05*test.stddev {
			t.Errorf("%s: mean %g too far from 0", test.init, mean)
		}
		if math.Abs(stddev-test.stddev) > 0.05*test.stddev {
			t.Errorf("%s: stddev %g expect %g", test.init, stddev, test.stddev)
		}
		if test.bounded && maxAbs > test.stddev*math.Sqrt(3)+1e-7 {
			t.Errorf("%s: sample %g outside range", test.init, maxAbs)
		}
	}
}

func TestInitByName(t *testing.T) {
	for _, typ := range InitTypes() {
		got, err := InitByName(typ.String())
		if err != nil || got != typ {
			t.Errorf("%s: got %v err=%v", typ, got, err)
		}
	}
	if _, err := InitByName("bogus"); err == nil {
		t.Error("expected error for unknown name")
	}
}

func TestInitTypeJSON(t *testing.T) {
	data, err := json.Marshal(HeNormal)
	if err != nil || string(data) != `"heNormal"` {
		t.Errorf("marshal: got %s err=%v", data, err)
	}
	var typ InitType
	if err = json.Unmarshal([]byte(`"glorotUniform"`), &typ); err != nil || typ != GlorotUniform {
		t.Errorf("unmarshal: got %v err=%v", typ, err)
	}
}
