package web

import (
	"testing"

	"gradplay/nnet"
)

func TestRunConfig(t *testing.T) {
	conf := nnet.Config{DataSet: "circles", Eta: 0.5, MaxEpoch: 10}.AddLayers(
		nnet.Linear{Nout: 8},
		nnet.Activation{Atype: "tanh"},
		nnet.Linear{Nout: 1},
		nnet.Logistic{},
	)
	param := []TuneParams{
		{Name: "Eta", Values: []string{"0.1", "0.05", "0.15"}},
		{Name: "Lambda", Values: []string{"0", "1"}},
		{Name: "WeightInit", Values: []string{"glorotUniform", "heNormal"}},
	}
	runs := getRunConfig(conf, param)
	if len(runs) != 12 {
		t.Errorf("got %d runs expect 12", len(runs))
	}
	inits := map[nnet.InitType]bool{}
	for _, run := range runs {
		inits[run.WeightInit] = true
	}
	if !inits[nnet.GlorotUniform] || !inits[nnet.HeNormal] {
		t.Errorf("weight init not permuted: %v", inits)
	}
}

func TestMapColor(t *testing.T) {
	low := mapColor(-1, 0, 1)
	if low.R != 0 || low.G != 0 || low.B != 127 {
		t.Errorf("low: got %v", low)
	}
	high := mapColor(2, 0, 1)
	if high.R != 127 || high.G != 0 || high.B != 0 {
		t.Errorf("high: got %v", high)
	}
	mid := mapColor(0.5, 0, 1)
	if mid.R != 255 || mid.G != 255 || mid.B != 255 {
		t.Errorf("mid: got %v", mid)
	}
}

func TestActivationCurve(t *testing.T) {
	y, dy := activationCurve("sigmoid", 0)
	if y != 0.5 || dy != 0.25 {
		t.Errorf("sigmoid: got %g %g", y, dy)
	}
	y, dy = activationCurve("relu", -1)
	if y != 0 || dy != 0 {
		t.Errorf("relu: got %g %g", y, dy)
	}
	y, dy = activationCurve("leakyRelu", -1)
	if y != -nnet.DefaultLeak || dy != nnet.DefaultLeak {
		t.Errorf("leakyRelu: got %g %g", y, dy)
	}
}
