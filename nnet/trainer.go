package nnet

import (
	"fmt"
	"math/rand"
	"time"

	"gradplay/num"
	"gradplay/stats"
)

// smoothing span for the average validation error
const emaSpan = 20

// Training statistics for one epoch
type Stats struct {
	Epoch     int
	Values    []float64
	BestSince int
	Elapsed   time.Duration
}

func StatsHeaders(d map[string]Data) []string {
	h := []string{"loss"}
	for _, key := range DataTypes {
		if _, ok := d[key]; ok {
			h = append(h, key+" error")
			if key == "valid" {
				h = append(h, "valid avg")
			}
		}
	}
	return h
}

func (s Stats) Copy() Stats {
	stat := s
	stat.Values = append([]float64{}, s.Values...)
	return stat
}

func (s Stats) Format() []string {
	str := []string{fmt.Sprintf("%7.4f", s.Values[0])}
	for _, v := range s.Values[1:] {
		str = append(str, fmt.Sprintf("%6.2f%%", v*100))
	}
	return str
}

func (s Stats) String(headers []string) string {
	msg := fmt.Sprintf("epoch %3d:", s.Epoch)
	for i, val := range s.Format() {
		msg += fmt.Sprintf("  %s =%s", headers[i], val)
	}
	if s.BestSince >= 0 {
		msg += fmt.Sprintf(" [%d]", s.BestSince)
	}
	return msg
}

// GradientLog records the L2 norm of the gradient of each weight matrix,
// one record per batch processed. Bias gradients are excluded.
type GradientLog struct {
	Names []string
	Norms [][]float32
	norm  num.Array
}

// Create a new log for the weight layers in the given network.
func NewGradientLog(net *Network) *GradientLog {
	return &GradientLog{
		Names: net.WeightLayers(),
		norm:  net.queue.NewArray(num.Float32),
	}
}

// Append the current weight gradient norms as a new record.
func (g *GradientLog) LogBatch(net *Network) {
	q := net.queue
	rec := make([]float32, 0, len(g.Names))
	val := []float32{0}
	for _, layer := range net.Layers {
		if l, ok := layer.(ParamLayer); ok {
			dW, _ := l.ParamGrads()
			q.Call(
				num.Nrm2(dW, g.norm),
				num.Read(g.norm, val),
			).Finish()
			rec = append(rec, val[0])
		}
	}
	g.Norms = append(g.Norms, rec)
}

// EpochMeans averages the per batch norms over each epoch for plotting.
func (g *GradientLog) EpochMeans(batches int) [][]float64 {
	if batches < 1 || len(g.Norms) == 0 {
		return nil
	}
	epochs := len(g.Norms) / batches
	res := make([][]float64, epochs)
	for e := 0; e < epochs; e++ {
		avg := make([]stats.Average, len(g.Names))
		for b := 0; b < batches; b++ {
			for i, norm := range g.Norms[e*batches+b] {
				avg[i].Add(float64(norm))
			}
		}
		res[e] = make([]float64, len(g.Names))
		for i := range avg {
			res[e][i] = avg[i].Mean
		}
	}
	return res
}

// Summary returns the mean and stddev of the logged norms for each weight layer.
func (g *GradientLog) Summary() []stats.Average {
	avg := make([]stats.Average, len(g.Names))
	for _, rec := range g.Norms {
		for i, norm := range rec {
			avg[i].Add(float64(norm))
		}
	}
	return avg
}

// Tester interface to evaluate the performance after each epoch, Test method returns true if training should stop.
type Tester interface {
	Test(net *Network, epoch int, loss float64, start time.Time) bool
}

// Tester which evaluates the loss and error for each of the data sets and updates the stats.
type TestBase struct {
	Net     *Network
	Data    map[string]*Dataset
	Pred    map[string][]int32
	Stats   []Stats
	Headers []string
	Samples int
}

// Create a new base class which implements the Tester interface.
func NewTestBase() *TestBase {
	return &TestBase{Stats: []Stats{}}
}

// Initialise the test datasets, network and other configuration.
func (t *TestBase) Init(queue num.Queue, conf Config, data map[string]Data, rng *rand.Rand) *TestBase {
	t.Data = make(map[string]*Dataset)
	t.Headers = StatsHeaders(data)
	t.Samples = data["train"].Len()
	if conf.MaxSamples > 0 && t.Samples > conf.MaxSamples {
		t.Samples = conf.MaxSamples
	}
	t.Pred = nil
	if conf.DebugLevel >= 1 {
		fmt.Printf("init tester: samples=%d batch size=%d\n", t.Samples, conf.TestBatch)
	}
	for key, d := range data {
		if conf.DebugLevel >= 1 {
			fmt.Println("dataset =>", key)
		}
		t.Data[key] = NewDataset(queue.Dev(), d, conf.TestBatch, t.Samples, rng)
	}
	t.Net = New(queue, conf, t.Data["train"].BatchSize, t.Data["train"].Shape())
	return t
}

// Generate the predicted results when test is next run.
func (t *TestBase) Predict() *TestBase {
	t.Pred = make(map[string][]int32)
	for key, dset := range t.Data {
		t.Pred[key] = make([]int32, dset.Samples)
	}
	return t
}

// Reset stats prior to new run
func (t *TestBase) Reset() {
	t.Stats = t.Stats[:0]
}

// Test performance of the network, called from the Train function on completion of each epoch.
func (t *TestBase) Test(net *Network, epoch int, loss float64, start time.Time) bool {
	net.CopyTo(t.Net)
	if net.DebugLevel >= 1 {
		fmt.Printf("== TEST EPOCH %d ==\n", epoch)
	}
	s := Stats{Epoch: epoch, Values: []float64{loss}, BestSince: -1}
	for _, key := range DataTypes {
		if dset, ok := t.Data[key]; ok {
			if dset.Samples < dset.Len() {
				dset.Shuffle()
			}
			var pred []int32
			if t.Pred != nil {
				pred = t.Pred[key]
			}
			errVal := t.Net.Error(dset, pred)
			s.Values = append(s.Values, errVal)
			if key == "valid" {
				// save average validation error
				avgIx := len(s.Values)
				avgVal := 0.0
				if epoch > 1 {
					avgVal = t.Stats[epoch-2].Values[avgIx]
				}
				avgVal = stats.EMA(avgVal).Add(errVal, emaSpan)
				s.Values = append(s.Values, avgVal)
				// get number of epochs where average validation error has increased
				for ep := epoch - 1; ep >= 1; ep-- {
					prevErr := t.Stats[ep-1].Values[avgIx]
					if prevErr > avgVal {
						s.BestSince = epoch - ep - 1
						break
					}
				}
			}
		}
	}
	s.Elapsed = time.Since(start)
	t.Stats = append(t.Stats, s)
	return epoch >= net.MaxEpoch || loss <= net.MinLoss || (net.StopAfter > 0 && s.BestSince >= net.StopAfter)
}

type testLogger struct {
	*TestBase
}

// Create a new tester which logs stats to stdout.
func NewTestLogger(queue num.Queue, conf Config, data map[string]Data, rng *rand.Rand) Tester {
	return testLogger{TestBase: NewTestBase().Init(queue, conf, data, rng)}
}

func (t testLogger) Test(net *Network, epoch int, loss float64, start time.Time) bool {
	done := t.TestBase.Test(net, epoch, loss, start)
	s := t.Stats[len(t.Stats)-1]
	if done || net.LogEvery == 0 || epoch%net.LogEvery == 0 {
		fmt.Println(s.String(t.Headers))
	}
	if done {
		fmt.Printf("run time: %s\n", s.Elapsed.Round(10*time.Millisecond))
	}
	return done
}

// Train the network on the given training set by updating the weights.
// Returns the log of weight gradient norms covering every batch in every epoch.
func Train(net *Network, dset *Dataset, test Tester) *GradientLog {
	grads := NewGradientLog(net)
	acc := net.queue.NewArray(num.Float32)
	done := false
	start := time.Now()
	for epoch := 1; epoch <= net.MaxEpoch && !done; epoch++ {
		loss := TrainEpoch(net, dset, acc, grads)
		done = test.Test(net, epoch, loss, start)
	}
	return grads
}

// Perform one training epoch on dataset, returns the mean loss prior to updating the weights.
// If grads is not nil then the gradient norms are appended for each batch.
func TrainEpoch(net *Network, dset *Dataset, acc num.Array, grads *GradientLog) float64 {
	q := net.queue
	net.allocArrays(dset.BatchSize)
	if net.inputGrad == nil {
		net.inputGrad = q.NewArray(num.Float32, dset.BatchSize, dset.ClassCols())
	}
	if net.Shuffle {
		dset.Shuffle()
	}
	weightDecay := float32(net.Eta*net.Lambda) / float32(dset.Samples)
	q.Call(num.Fill(acc, 0))
	for batch := 0; batch < dset.Batches(); batch++ {
		if net.DebugLevel >= 2 || (net.DebugLevel == 1 && batch == 0) {
			fmt.Printf("== train batch %d ==\n", batch)
		}
		x, _, yOneHot := dset.GetBatch(q, batch)
		yPred := net.Fprop(x)
		if net.DebugLevel >= 2 {
			fmt.Printf("yOneHot:\n%s", yOneHot.String())
			fmt.Printf("yPred:\n%s", yPred.String())
		}
		// sum average loss over batches
		losses := net.OutLayer().Loss(q, yOneHot, yPred)
		q.Call(
			num.Sum(losses, net.batchLoss, 1),
			num.Axpy(1, net.batchLoss, acc),
		)
		// get difference at output
		q.Call(
			num.Copy(net.inputGrad, yPred),
			num.Axpy(-1, yOneHot, net.inputGrad),
		)
		if net.DebugLevel >= 2 || (net.DebugLevel == 1 && batch == 0) {
			fmt.Printf("input grad:\n%s", net.inputGrad.String())
		}
		// back propagate gradient
		grad := net.inputGrad
		for i := len(net.Layers) - 1; i >= 0; i-- {
			grad = net.Layers[i].Bprop(q, grad)
			if net.DebugLevel >= 3 && grad != nil {
				fmt.Printf("layer %d bprop output:\n%s", i, grad.String())
			}
		}
		if grads != nil {
			grads.LogBatch(net)
		}
		// update weights
		for _, layer := range net.Layers {
			if l, ok := layer.(ParamLayer); ok {
				l.UpdateParams(q, float32(net.Eta), weightDecay)
			}
		}
		if net.DebugLevel >= 2 || (batch == dset.Batches()-1 && net.DebugLevel >= 1) {
			net.PrintWeights()
		}
	}
	lossVal := make([]float32, 1)
	q.Call(num.Read(acc, lossVal)).Finish()
	return float64(lossVal[0]) / float64(dset.Batches()*dset.BatchSize)
}
