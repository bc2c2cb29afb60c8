package nnet

import (
	"strings"
	"testing"

	"gradplay/num"
)

func circlesConfig() Config {
	return Config{
		DataSet:    "circles",
		Eta:        0.5,
		MaxEpoch:   30,
		WeightInit: GlorotUniform,
		RandSeed:   42,
	}.AddLayers(
		Linear{Nout: 8},
		Activation{Atype: "tanh"},
		Linear{Nout: 1},
		Logistic{},
	)
}

func TestNumParams(t *testing.T) {
	q := num.NewDevice().NewQueue()
	defer q.Shutdown()
	net := New(q, circlesConfig(), 10, []int{2})
	if n := net.NumParams(); n != 33 {
		t.Errorf("got %d params, expect 33", n)
	}
	t.Log(net)
}

func TestWeightLayers(t *testing.T) {
	q := num.NewDevice().NewQueue()
	defer q.Shutdown()
	net := New(q, circlesConfig(), 10, []int{2})
	names := net.WeightLayers()
	if len(names) != 2 || names[0] != "layer 0 linear" || names[1] != "layer 2 linear" {
		t.Errorf("got %v", names)
	}
}

func TestPredictShape(t *testing.T) {
	dev := num.NewDevice()
	q := dev.NewQueue()
	defer q.Shutdown()
	rng := SetSeed(42)
	dset := NewDataset(dev, Circles(40, 0.5, 0.05, rng), 0, 0, rng)
	net := New(q, circlesConfig(), dset.BatchSize, dset.Shape())
	net.InitWeights(rng)
	x, _, _ := dset.GetBatch(q, 0)
	classes := q.NewArray(num.Int32, dset.BatchSize)
	yPred := net.Predict(x, classes)
	if !num.SameShape(yPred.Dims(), []int{40, 1}) {
		t.Errorf("yPred shape: %v", yPred.Dims())
	}
	out := make([]int32, 40)
	q.Call(num.Read(classes, out)).Finish()
	for i, c := range out {
		if c != 0 && c != 1 {
			t.Errorf("class %d: got %d", i, c)
		}
	}
}

func TestConfigSetString(t *testing.T) {
	conf := circlesConfig()
	conf, err := conf.SetString("Eta", "0.9")
	if err != nil || conf.Eta != 0.9 {
		t.Errorf("got eta=%g err=%v", conf.Eta, err)
	}
	conf, err = conf.SetString("WeightInit", "heNormal")
	if err != nil || conf.WeightInit != HeNormal {
		t.Errorf("got init=%s err=%v", conf.WeightInit, err)
	}
	if _, err = conf.SetString("WeightInit", "bogus"); err == nil {
		t.Error("expected error for unknown init type")
	}
	str := conf.String()
	if !strings.Contains(str, "heNormal") || !strings.Contains(str, "linear") {
		t.Errorf("config string:\n%s", str)
	}
}
