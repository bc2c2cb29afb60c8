// Command gradplay-train trains a model from the command line and reports
// the weight gradient norms for each layer.
package main

import (
	"flag"
	"fmt"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gradplay/nnet"
	"gradplay/num"
)

func predict(q num.Queue, net *nnet.Network, dset *nnet.Dataset) {
	x, y, _ := dset.GetBatch(q, 0)
	classes := q.NewArray(num.Int32, y.Dims()[0])
	yPred := net.Predict(x, classes)
	fmt.Print("predict:", yPred.String())
	fmt.Println("classes:", classes.String())
	fmt.Println("labels: ", y.String())
}

func gradientReport(grads *nnet.GradientLog, batches int) {
	fmt.Println("== Gradient norms ==")
	for i, avg := range grads.Summary() {
		fmt.Printf("%-16s %s\n", grads.Names[i], avg.String())
	}
	means := grads.EpochMeans(batches)
	if len(means) > 1 {
		first, last := means[0], means[len(means)-1]
		for i, name := range grads.Names {
			fmt.Printf("%-16s epoch 1: %.4g => epoch %d: %.4g\n", name, first[i], len(means), last[i])
		}
	}
}

func plotGradients(name string, grads *nnet.GradientLog, batches int) error {
	p := plot.New()
	p.X.Label.Text = "epoch"
	p.Y.Label.Text = "gradient norm"
	means := grads.EpochMeans(batches)
	for i, layer := range grads.Names {
		pts := make(plotter.XYs, len(means))
		for epoch, rec := range means {
			pts[epoch].X = float64(epoch + 1)
			pts[epoch].Y = rec[i]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Width = 2
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(layer, line)
	}
	return p.Save(8*vg.Inch, 6*vg.Inch, name)
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: gradplay-train [opts] <model>")
		os.Exit(1)
	}
	model := os.Args[len(os.Args)-1]
	fmt.Println("load model:", model)
	conf, err := nnet.LoadConfig(model + ".conf")
	nnet.CheckErr(err)

	// override config settings from command line
	flag.Float64Var(&conf.Eta, "eta", conf.Eta, "learning rate")
	flag.Float64Var(&conf.Lambda, "lambda", conf.Lambda, "weight decay parameter")
	flag.Int64Var(&conf.RandSeed, "seed", conf.RandSeed, "random number seed")
	flag.IntVar(&conf.MaxEpoch, "epochs", conf.MaxEpoch, "max epochs")
	flag.IntVar(&conf.MaxSamples, "samples", conf.MaxSamples, "max samples")
	flag.IntVar(&conf.TrainBatch, "batch", conf.TrainBatch, "train batch size")
	flag.IntVar(&conf.TestBatch, "testbatch", conf.TestBatch, "test batch size")
	flag.IntVar(&conf.DebugLevel, "debug", conf.DebugLevel, "debug logging level")
	weightInit := flag.String("init", conf.WeightInit.String(), "weight initializer")
	plotFile := flag.String("plot", "", "write gradient norm plot to svg file")
	profile := flag.Bool("profile", false, "print op profiling info")
	flag.Parse()
	conf.WeightInit, err = nnet.InitByName(*weightInit)
	nnet.CheckErr(err)

	dev := num.NewDevice()
	q := dev.NewQueue()
	q.Profiling(*profile)
	rng := nnet.SetSeed(conf.RandSeed)

	// load training and test data
	data, err := nnet.LoadData(conf.DataSet)
	nnet.CheckErr(err)
	trainData := nnet.NewDataset(dev, data["train"], conf.TrainBatch, conf.MaxSamples, rng)

	// initialise weights
	net := nnet.New(q, conf, trainData.BatchSize, trainData.Shape())
	fmt.Println(net)
	net.InitWeights(rng)
	if conf.DebugLevel >= 1 {
		fmt.Println("== Before ==")
		predict(q, net, trainData)
	}

	// train the network
	tester := nnet.NewTestLogger(q, conf, data, nnet.SetSeed(conf.RandSeed))
	grads := nnet.Train(net, trainData, tester)

	if conf.DebugLevel >= 1 {
		fmt.Println("== After ==")
		predict(q, net, trainData)
	}
	gradientReport(grads, trainData.Batches())
	if *plotFile != "" {
		err = plotGradients(*plotFile, grads, trainData.Batches())
		nnet.CheckErr(err)
	}
	q.Shutdown()
}
