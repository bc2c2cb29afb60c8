package nnet

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"gradplay/num"
)

// ActivationNames lists the supported activation layer types.
var ActivationNames = []string{"sigmoid", "tanh", "relu", "leakyRelu"}

// Default slope for the negative part of the leakyRelu activation.
const DefaultLeak = 0.1

// Layer interface type represents one layer of the neural net.
type Layer interface {
	Init(q num.Queue, inShape []int) Layer
	OutShape(inShape []int) []int
	Fprop(q num.Queue, in num.Array) num.Array
	Bprop(q num.Queue, grad num.Array) num.Array
	Output() num.Array
	Type() string
	IsActiv() bool
	ToString() string
}

// ParamLayer is a layer with weight and bias parameters
type ParamLayer interface {
	Layer
	InitParams(q num.Queue, init InitType, bias float32, rng *rand.Rand)
	Params() (W, B num.Array)
	ParamGrads() (dW, dB num.Array)
	SetParams(q num.Queue, W, B num.Array)
	UpdateParams(q num.Queue, learningRate, weightDecay float32)
}

// OutputLayer is the final layer in the stack
type OutputLayer interface {
	Layer
	Loss(q num.Queue, yOneHot, yPred num.Array) num.Array
}

// Layer configuration details
type LayerConfig struct {
	Type string
	Data json.RawMessage
}

type ConfigLayer interface {
	Marshal() LayerConfig
}

// Unmarshal JSON data and construct new layer
func (l LayerConfig) Unmarshal() Layer {
	switch l.Type {
	case "linear":
		cfg := new(Linear)
		return cfg.unmarshal(l.Data)
	case "activation":
		cfg := new(Activation)
		return cfg.unmarshal(l.Data)
	case "logistic":
		return &logistic{}
	case "logRegression":
		return &logRegression{}
	default:
		panic("invalid layer type: " + l.Type)
	}
}

func (l LayerConfig) String() string {
	return l.Unmarshal().ToString()
}

// Linear fully connected layer, implements ParamLayer interface.
type Linear struct {
	Nout int
}

func (c Linear) Marshal() LayerConfig {
	return LayerConfig{Type: "linear", Data: marshal(c)}
}

func (c Linear) ToString() string {
	return fmt.Sprintf("linear %+v", c)
}

func (c *Linear) unmarshal(data json.RawMessage) Layer {
	unmarshal(data, c)
	return &linear{Linear: *c}
}

// Sigmoid, tanh, relu or leakyRelu activation layer.
type Activation struct {
	Atype string
	Alpha float64 `json:",omitempty"`
}

func (c Activation) Marshal() LayerConfig {
	if c.Atype == "leakyRelu" && c.Alpha == 0 {
		c.Alpha = DefaultLeak
	}
	return LayerConfig{Type: "activation", Data: marshal(c)}
}

func (c Activation) ToString() string {
	return fmt.Sprintf("activation %+v", c)
}

func (c *Activation) unmarshal(data json.RawMessage) Layer {
	unmarshal(data, c)
	layer := &activation{Activation: *c}
	alpha := float32(c.Alpha)
	if alpha == 0 {
		alpha = DefaultLeak
	}
	switch c.Atype {
	case "sigmoid":
		layer.activ = num.Sigmoid
		layer.deriv = num.SigmoidD
	case "tanh":
		layer.activ = num.Tanh
		layer.deriv = num.TanhD
	case "relu":
		layer.activ = num.Relu
		layer.deriv = num.ReluD
	case "leakyRelu":
		layer.activ = func(x, y num.Array) num.Function { return num.LeakyRelu(x, y, alpha) }
		layer.deriv = func(x, g, y num.Array) num.Function { return num.LeakyReluD(x, g, y, alpha) }
	default:
		panic(fmt.Sprintf("activation type %s invalid", c.Atype))
	}
	return layer
}

// Logistic output layer: sigmoid activation with binary cross entropy loss.
type Logistic struct{}

func (c Logistic) Marshal() LayerConfig {
	return LayerConfig{Type: "logistic"}
}

// LogRegression output layer with soft max activation.
type LogRegression struct{}

func (c LogRegression) Marshal() LayerConfig {
	return LayerConfig{Type: "logRegression"}
}

// linear layer implementation
type linear struct {
	Linear
	layerBase
	paramBase
	ones num.Array
}

func (l *linear) Type() string { return "linear" }

func (l *linear) IsActiv() bool { return false }

func (l *linear) OutShape(inShape []int) []int {
	return []int{inShape[0], l.Nout}
}

func (l *linear) Init(q num.Queue, inShape []int) Layer {
	if len(inShape) != 2 {
		panic("Linear: expect 2 dimensional input")
	}
	nBatch, nIn := inShape[0], inShape[1]
	l.layerBase = newLayerBase(q, inShape, l.OutShape(inShape))
	l.paramBase = newParams(q, []int{nIn, l.Nout}, []int{l.Nout}, nBatch)
	l.ones = q.NewArray(num.Float32, nBatch)
	q.Call(num.Fill(l.ones, 1))
	return l
}

func (l *linear) Fprop(q num.Queue, in num.Array) num.Array {
	l.src = in
	q.Call(
		num.Copy(l.dst, l.b),
		num.Gemm(1, 1, l.src, l.w, l.dst, num.NoTrans, num.NoTrans),
	)
	return l.dst
}

func (l *linear) Bprop(q num.Queue, grad num.Array) num.Array {
	q.Call(
		num.Gemv(1, 0, grad, l.ones, l.db, num.Trans),
		num.Gemm(1, 0, l.src, grad, l.dw, num.Trans, num.NoTrans),
		num.Gemm(1, 0, grad, l.w, l.dsrc, num.NoTrans, num.Trans),
	)
	return l.dsrc
}

// activation layers
type activation struct {
	Activation
	layerBase
	activ func(x, y num.Array) num.Function
	deriv func(x, grad, y num.Array) num.Function
	loss  num.Array
}

func (l *activation) Type() string { return l.Atype }

func (l *activation) IsActiv() bool { return true }

func (l *activation) Init(q num.Queue, inShape []int) Layer {
	l.layerBase = newLayerBase(q, inShape, inShape)
	l.loss = q.NewArray(num.Float32, inShape...)
	return l
}

func (l *activation) Fprop(q num.Queue, in num.Array) num.Array {
	l.src = in
	q.Call(l.activ(l.src, l.dst))
	return l.dst
}

func (l *activation) Bprop(q num.Queue, grad num.Array) num.Array {
	q.Call(l.deriv(l.src, grad, l.dsrc))
	return l.dsrc
}

func (l *activation) Loss(q num.Queue, yOneHot, yPred num.Array) num.Array {
	q.Call(num.QuadraticLoss(yOneHot, yPred, l.loss))
	return l.loss
}

// logistic output layer: must be the final layer when trained with the
// difference at the output as the input gradient.
type logistic struct {
	layerBase
	loss num.Array
}

func (l *logistic) Type() string { return "logistic" }

func (l *logistic) IsActiv() bool { return true }

func (l *logistic) ToString() string { return "logistic" }

func (l *logistic) Init(q num.Queue, inShape []int) Layer {
	if len(inShape) != 2 || inShape[1] != 1 {
		panic("Logistic: expect single output unit")
	}
	l.layerBase = newLayerBase(q, inShape, inShape)
	l.loss = q.NewArray(num.Float32, inShape...)
	return l
}

func (l *logistic) Fprop(q num.Queue, in num.Array) num.Array {
	l.src = in
	q.Call(num.Sigmoid(l.src, l.dst))
	return l.dst
}

func (l *logistic) Bprop(q num.Queue, grad num.Array) num.Array {
	q.Call(num.Copy(l.dsrc, grad))
	return l.dsrc
}

func (l *logistic) Loss(q num.Queue, yOneHot, yPred num.Array) num.Array {
	q.Call(num.CrossEntropyLoss(yOneHot, yPred, l.loss))
	return l.loss
}

// log regression output layer
type logRegression struct {
	layerBase
	loss num.Array
}

func (l *logRegression) Type() string { return "logRegression" }

func (l *logRegression) IsActiv() bool { return true }

func (l *logRegression) ToString() string { return "logRegression" }

func (l *logRegression) Init(q num.Queue, inShape []int) Layer {
	l.layerBase = newLayerBase(q, inShape, inShape)
	l.loss = q.NewArray(num.Float32, inShape...)
	return l
}

func (l *logRegression) Fprop(q num.Queue, in num.Array) num.Array {
	l.src = in
	q.Call(num.Softmax(l.src, l.dst))
	return l.dst
}

func (l *logRegression) Bprop(q num.Queue, grad num.Array) num.Array {
	q.Call(num.Copy(l.dsrc, grad))
	return l.dsrc
}

func (l *logRegression) Loss(q num.Queue, yOneHot, yPred num.Array) num.Array {
	q.Call(num.SoftmaxLoss(yOneHot, yPred, l.loss))
	return l.loss
}

// base layer type
type layerBase struct {
	src  num.Array
	dst  num.Array
	dsrc num.Array
}

func newLayerBase(q num.Queue, inShape, outShape []int) layerBase {
	return layerBase{
		dst:  q.NewArray(num.Float32, outShape...),
		dsrc: q.NewArray(num.Float32, inShape...),
	}
}

func (l layerBase) OutShape(inShape []int) []int { return inShape }

func (l layerBase) Output() num.Array { return l.dst }

// weight and bias parameters
type paramBase struct {
	w, b   num.Array
	dw, db num.Array
	nBatch float32
}

func newParams(q num.Queue, wShape, bShape []int, nBatch int) paramBase {
	return paramBase{
		w:      q.NewArray(num.Float32, wShape...),
		b:      q.NewArray(num.Float32, bShape...),
		dw:     q.NewArray(num.Float32, wShape...),
		db:     q.NewArray(num.Float32, bShape...),
		nBatch: float32(nBatch),
	}
}

func (p paramBase) Params() (W, B num.Array) {
	return p.w, p.b
}

func (p paramBase) ParamGrads() (dW, dB num.Array) {
	return p.dw, p.db
}

func (p paramBase) InitParams(q num.Queue, init InitType, bias float32, rng *rand.Rand) {
	dims := p.w.Dims()
	sample := init.WeightFunc(dims[0], dims[1], rng)
	weights := make([]float32, num.Prod(dims))
	for i := range weights {
		weights[i] = sample()
	}
	q.Call(
		num.Write(p.w, weights),
		num.Fill(p.b, bias),
	)
}

func (p paramBase) SetParams(q num.Queue, W, B num.Array) {
	q.Call(num.Copy(p.w, W), num.Copy(p.b, B))
}

func (p paramBase) UpdateParams(q num.Queue, learningRate, weightDecay float32) {
	if weightDecay != 0 {
		q.Call(num.Axpy(weightDecay*p.nBatch, p.w, p.dw))
	}
	q.Call(
		num.Axpy(-learningRate/p.nBatch, p.dw, p.w),
		num.Axpy(-learningRate/p.nBatch, p.db, p.b),
	)
}

func marshal(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

func unmarshal(data json.RawMessage, v interface{}) {
	err := json.Unmarshal(data, v)
	if err != nil {
		panic(err)
	}
}
