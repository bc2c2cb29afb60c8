// Package nnet contains routines for constructing, training and testing neural networks.
package nnet

import (
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"gradplay/num"
)

// Network type represents a multilayer neural network model.
type Network struct {
	Config
	Layers    []Layer
	classes   num.Array
	diffs     num.Array
	total     num.Array
	batchLoss num.Array
	inputGrad num.Array
	queue     num.Queue
	inShape   []int
}

// New function creates a new network with the given layers.
func New(queue num.Queue, conf Config, batchSize int, inShape []int) *Network {
	n := &Network{Config: conf, queue: queue}
	n.inShape = append([]int{batchSize}, inShape...)
	shape := n.inShape
	for _, l := range conf.Layers {
		layer := l.Unmarshal()
		layer.Init(queue, shape)
		n.Layers = append(n.Layers, layer)
		shape = layer.OutShape(shape)
	}
	return n
}

// Initialise network weights using the configured distribution.
func (n *Network) InitWeights(rng *rand.Rand) {
	for _, layer := range n.Layers {
		if l, ok := layer.(ParamLayer); ok {
			l.InitParams(n.queue, n.WeightInit, float32(n.Bias), rng)
		}
	}
	if n.DebugLevel >= 2 {
		n.PrintWeights()
	}
}

// Copy weights and bias arrays to destination net
func (n *Network) CopyTo(net *Network) {
	for i, layer := range n.Layers {
		if l, ok := layer.(ParamLayer); ok {
			W, B := l.Params()
			net.Layers[i].(ParamLayer).SetParams(net.queue, W, B)
		}
	}
}

// NumParams returns the total number of weight and bias parameters
func (n *Network) NumParams() int {
	count := 0
	for _, layer := range n.Layers {
		if l, ok := layer.(ParamLayer); ok {
			W, B := l.Params()
			count += W.Size() + B.Size()
		}
	}
	return count
}

// WeightLayers returns the name and index of each layer with weight parameters
func (n *Network) WeightLayers() []string {
	var names []string
	for i, layer := range n.Layers {
		if _, ok := layer.(ParamLayer); ok {
			names = append(names, fmt.Sprintf("layer %d %s", i, layer.Type()))
		}
	}
	return names
}

// Accessor for output layer
func (n *Network) OutLayer() OutputLayer {
	return n.Layers[len(n.Layers)-1].(OutputLayer)
}

// Queue accessor
func (n *Network) Queue() num.Queue { return n.queue }

// Feed forward the input to get the predicted output
func (n *Network) Fprop(input num.Array) num.Array {
	pred := input
	for i, layer := range n.Layers {
		if n.DebugLevel >= 2 && pred != nil {
			fmt.Printf("layer %d input\n%s", i, pred.String())
		}
		pred = layer.Fprop(n.queue, pred)
	}
	return pred
}

// Predict output given input data
func (n *Network) Predict(input, classes num.Array) num.Array {
	yPred := n.Fprop(input)
	if n.DebugLevel >= 2 {
		fmt.Printf("yPred\n%s", yPred.String())
	}
	n.queue.Call(num.Unhot(yPred, classes))
	return yPred
}

// Calculate the error from the predicted versus actual values
// if pred slice is not nil then also return the predicted output classes.
func (n *Network) Error(dset *Dataset, pred []int32) float64 {
	q := n.queue
	n.allocArrays(dset.BatchSize)
	q.Call(num.Fill(n.total, 0))
	for batch := 0; batch < dset.Batches(); batch++ {
		x, y, _ := dset.GetBatch(q, batch)
		n.Predict(x, n.classes)
		q.Call(
			num.Neq(n.classes, y, n.diffs),
			num.Sum(n.diffs, n.batchLoss, 1),
			num.Axpy(1, n.batchLoss, n.total),
		)
		if pred != nil {
			start := batch * dset.BatchSize
			q.Call(num.Read(n.classes, pred[start:start+dset.BatchSize]))
		}
		if n.DebugLevel >= 2 || (n.DebugLevel >= 1 && batch == 0) {
			fmt.Printf("batch %d error =%s\n", batch, n.batchLoss.String())
			fmt.Println(y.String())
			fmt.Println(n.classes.String())
		}
	}
	err := []float32{0}
	q.Call(num.Read(n.total, err)).Finish()
	return float64(err[0]) / float64(dset.Batches()*dset.BatchSize)
}

// Print network description
func (n *Network) String() string {
	s := make([]string, len(n.Layers))
	shape := n.inShape
	for i, layer := range n.Layers {
		s[i] = fmt.Sprintf("%2d: %-25s %v", i, layer.ToString(), shape)
		shape = layer.OutShape(shape)
	}
	return fmt.Sprintf("%s\n== Network ==\n%s", n.Config, strings.Join(s, "\n"))
}

// Print network weights
func (n *Network) PrintWeights() {
	for i, layer := range n.Layers {
		if l, ok := layer.(ParamLayer); ok {
			W, B := l.Params()
			fmt.Printf("== Layer %d weights ==\n%s %s\n", i, W.String(), B.String())
		}
	}
}

func (n *Network) allocArrays(size int) {
	if n.classes == nil || n.classes.Dims()[0] != size {
		n.classes = n.queue.NewArray(num.Int32, size)
		n.diffs = n.queue.NewArray(num.Int32, size)
		n.batchLoss = n.queue.NewArray(num.Float32)
		n.total = n.queue.NewArray(num.Float32)
	}
}

// SetSeed initialises a new random number generator, using a random seed if seed <= 0
func SetSeed(seed int64) *rand.Rand {
	if seed <= 0 {
		seed = time.Now().UTC().UnixNano()
	}
	fmt.Println("random seed =", seed)
	return rand.New(rand.NewSource(seed))
}

// Exit in case of error
func CheckErr(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
