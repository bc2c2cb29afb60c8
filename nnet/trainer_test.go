package nnet

import (
	"math"
	"testing"

	"gradplay/num"
)

func setupTrain(conf Config, samples int) (net *Network, dset *Dataset, test *TestBase) {
	dev := num.NewDevice()
	q := dev.NewQueue()
	rng := SetSeed(conf.RandSeed)
	data := map[string]Data{"train": Circles(samples, 0.5, 0.05, rng)}
	dset = NewDataset(dev, data["train"], conf.TrainBatch, conf.MaxSamples, rng)
	net = New(q, conf, dset.BatchSize, dset.Shape())
	net.InitWeights(rng)
	test = NewTestBase().Init(q, conf, data, rng)
	return
}

func TestGradientLog(t *testing.T) {
	conf := circlesConfig()
	conf.Eta = 0.1
	conf.MaxEpoch = 3
	conf.TrainBatch = 25
	net, dset, test := setupTrain(conf, 100)
	defer net.Queue().Shutdown()

	grads := Train(net, dset, test)
	// one record per batch for the full run
	if want := dset.Batches() * conf.MaxEpoch; len(grads.Norms) != want {
		t.Fatalf("log length: got %d expect %d", len(grads.Norms), want)
	}
	if len(grads.Names) != 2 {
		t.Fatalf("log names: got %v", grads.Names)
	}
	for i, rec := range grads.Norms {
		if len(rec) != 2 {
			t.Fatalf("record %d: got %v", i, rec)
		}
		for j, norm := range rec {
			if norm <= 0 || math.IsNaN(float64(norm)) || math.IsInf(float64(norm), 0) {
				t.Errorf("record %d norm %d: got %g", i, j, norm)
			}
		}
	}
	means := grads.EpochMeans(dset.Batches())
	if len(means) != conf.MaxEpoch || len(means[0]) != 2 {
		t.Errorf("epoch means: got %d x %d", len(means), len(means[0]))
	}
	for _, avg := range grads.Summary() {
		if avg.Count != float64(len(grads.Norms)) {
			t.Errorf("summary count: got %g", avg.Count)
		}
	}
}

func TestTrainLoss(t *testing.T) {
	conf := circlesConfig()
	net, dset, test := setupTrain(conf, 100)
	defer net.Queue().Shutdown()

	Train(net, dset, test)
	if len(test.Stats) == 0 {
		t.Fatal("no stats recorded")
	}
	first := test.Stats[0].Values[0]
	last := test.Stats[len(test.Stats)-1].Values[0]
	t.Logf("loss: %.4f => %.4f", first, last)
	if last >= first {
		t.Errorf("loss did not decrease: %g => %g", first, last)
	}
	if errVal := test.Stats[len(test.Stats)-1].Values[1]; errVal > 0.5 {
		t.Errorf("train error: got %g", errVal)
	}
}

func TestTrainEpochLoss(t *testing.T) {
	conf := circlesConfig()
	conf.MaxEpoch = 1
	net, dset, _ := setupTrain(conf, 100)
	defer net.Queue().Shutdown()

	acc := net.Queue().NewArray(num.Float32)
	loss := TrainEpoch(net, dset, acc, nil)
	// binary cross entropy with random weights starts near ln(2)
	if loss < 0.1 || loss > 2 {
		t.Errorf("initial loss: got %g", loss)
	}
}
