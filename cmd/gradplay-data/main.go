// Command gradplay-data generates the synthetic datasets and default model configs.
package main

import (
	"flag"
	"fmt"

	"gradplay/nnet"
)

var (
	samples = flag.Int("n", 500, "number of samples per dataset")
	factor  = flag.Float64("factor", 0.5, "radius of the inner circle")
	noise   = flag.Float64("noise", 0.1, "stddev of gaussian coordinate noise")
	seed    = flag.Int64("seed", 42, "random number seed")
)

func saveData(name string, train, test nnet.Data) {
	err := nnet.SaveDataFile(train, name+"_train")
	nnet.CheckErr(err)
	err = nnet.SaveDataFile(test, name+"_test")
	nnet.CheckErr(err)
}

func circlesConfig() nnet.Config {
	return nnet.Config{
		DataSet:    "circles",
		Eta:        0.5,
		MaxEpoch:   200,
		TrainBatch: 50,
		LogEvery:   10,
		Shuffle:    true,
		WeightInit: nnet.GlorotUniform,
		RandSeed:   42,
	}.AddLayers(
		nnet.Linear{Nout: 16},
		nnet.Activation{Atype: "tanh"},
		nnet.Linear{Nout: 16},
		nnet.Activation{Atype: "tanh"},
		nnet.Linear{Nout: 1},
		nnet.Logistic{},
	)
}

func spiralConfig() nnet.Config {
	return nnet.Config{
		DataSet:    "spiral",
		Eta:        0.2,
		MaxEpoch:   1000,
		TrainBatch: 50,
		LogEvery:   50,
		Shuffle:    true,
		WeightInit: nnet.HeNormal,
		RandSeed:   42,
	}.AddLayers(
		nnet.Linear{Nout: 32},
		nnet.Activation{Atype: "relu"},
		nnet.Linear{Nout: 32},
		nnet.Activation{Atype: "relu"},
		nnet.Linear{Nout: 1},
		nnet.Logistic{},
	)
}

func xorConfig() nnet.Config {
	return nnet.Config{
		DataSet:    "xor",
		Eta:        10,
		MaxEpoch:   500,
		LogEvery:   25,
		MinLoss:    0.05,
		WeightInit: nnet.RandomUniform,
		RandSeed:   42,
	}.AddLayers(
		nnet.Linear{Nout: 2},
		nnet.Activation{Atype: "sigmoid"},
		nnet.Linear{Nout: 1},
		nnet.Logistic{},
	)
}

func main() {
	flag.Parse()
	rng := nnet.SetSeed(*seed)

	saveData("circles",
		nnet.Circles(*samples, *factor, *noise, rng),
		nnet.Circles(*samples/2, *factor, *noise, rng),
	)
	saveData("spiral",
		nnet.Spiral(*samples, *noise/2, rng),
		nnet.Spiral(*samples/2, *noise/2, rng),
	)
	err := nnet.SaveDataFile(nnet.XOR(), "xor_train")
	nnet.CheckErr(err)

	for _, conf := range []nnet.Config{circlesConfig(), spiralConfig(), xorConfig()} {
		fmt.Println(conf)
		err = conf.SaveDefault(conf.DataSet)
		nnet.CheckErr(err)
	}
}
