package nnet

import (
	"math"
	"testing"

	"gradplay/num"
)

const eps = 1e-6

func abs(x float32) float32 {
	if x >= 0 {
		return x
	}
	return -x
}

func compareArray(t *testing.T, q num.Queue, title string, a num.Array, expect []float32) {
	t.Helper()
	t.Logf("== %s ==\n%s", title, a.String())
	arr := make([]float32, num.Prod(a.Dims()))
	q.Call(num.Read(a, arr)).Finish()
	if len(arr) != len(expect) {
		t.Fatal(title, "length mismatch!")
	}
	for i := range arr {
		if abs(arr[i]-expect[i]) > eps {
			t.Errorf("%s mismatch! got %v expect %v", title, arr, expect)
			return
		}
	}
}

// 2 samples, 3 inputs, 2 outputs with fixed weights
func setupLinear(q num.Queue) (lin *linear, input num.Array) {
	input = q.NewArray(num.Float32, 2, 3)
	lin = &linear{Linear: Linear{Nout: 2}}
	lin.Init(q, []int{2, 3})
	q.Call(
		num.Write(input, []float32{1, 2, 3, 0.5, -1, 2}),
		num.Write(lin.w, []float32{0.1, -0.2, 0.3, 0.4, -0.5, 0.6}),
		num.Write(lin.b, []float32{0.1, -0.1}),
	)
	return
}

func TestLinearFprop(t *testing.T) {
	q := num.NewDevice().NewQueue()
	defer q.Shutdown()
	lin, input := setupLinear(q)
	output := lin.Fprop(q, input)
	compareArray(t, q, "output", output, []float32{-0.7, 2.3, -1.15, 0.6})
}

func TestReluFprop(t *testing.T) {
	q := num.NewDevice().NewQueue()
	defer q.Shutdown()
	lin, input := setupLinear(q)
	relu := Activation{Atype: "relu"}.Marshal().Unmarshal().Init(q, []int{2, 2})
	output := relu.Fprop(q, lin.Fprop(q, input))
	compareArray(t, q, "output", output, []float32{0, 2.3, 0, 0.6})
}

func TestBprop(t *testing.T) {
	q := num.NewDevice().NewQueue()
	defer q.Shutdown()
	lin, input := setupLinear(q)
	relu := Activation{Atype: "relu"}.Marshal().Unmarshal().Init(q, []int{2, 2})
	relu.Fprop(q, lin.Fprop(q, input))

	grad := q.NewArray(num.Float32, 2, 2)
	q.Call(num.Write(grad, []float32{1, -1, 0.5, 2}))
	// relu derivative masks the columns where the linear output was negative
	grad2 := relu.Bprop(q, grad)
	compareArray(t, q, "relu grad", grad2, []float32{0, -1, 0, 2})

	dsrc := lin.Bprop(q, grad2)
	dW, dB := lin.ParamGrads()
	compareArray(t, q, "dW", dW, []float32{0, 0, 0, -4, 0, 1})
	compareArray(t, q, "dB", dB, []float32{0, 1})
	compareArray(t, q, "dsrc", dsrc, []float32{0.2, -0.4, -0.6, -0.4, 0.8, 1.2})
}

func TestLogistic(t *testing.T) {
	q := num.NewDevice().NewQueue()
	defer q.Shutdown()
	out := Logistic{}.Marshal().Unmarshal().(OutputLayer)
	out.Init(q, []int{2, 1})
	input := q.NewArray(num.Float32, 2, 1)
	y := q.NewArray(num.Float32, 2, 1)
	q.Call(
		num.Write(input, []float32{0, 2}),
		num.Write(y, []float32{1, 0}),
	)
	yPred := out.Fprop(q, input)
	sig2 := float32(1 / (1 + math.Exp(-2)))
	compareArray(t, q, "yPred", yPred, []float32{0.5, sig2})

	loss := out.Loss(q, y, yPred)
	ln2 := float32(math.Log(2))
	loss2 := float32(math.Log(1 + math.Exp(2)))
	compareArray(t, q, "loss", loss, []float32{ln2, loss2})
}

func TestActivationGradients(t *testing.T) {
	q := num.NewDevice().NewQueue()
	defer q.Shutdown()
	input := q.NewArray(num.Float32, 1, 3)
	grad := q.NewArray(num.Float32, 1, 3)
	q.Call(
		num.Write(input, []float32{-1, 0, 2}),
		num.Write(grad, []float32{1, 1, 1}),
	)
	sig := float32(1 / (1 + math.Exp(1)))
	tanh2 := float32(math.Tanh(2))
	tests := []struct {
		atype  string
		expect []float32
	}{
		{"sigmoid", []float32{sig * (1 - sig), 0.25, float32(math.Exp(-2)) / ((1 + float32(math.Exp(-2))) * (1 + float32(math.Exp(-2))))}},
		{"tanh", []float32{1 - float32(math.Tanh(1))*float32(math.Tanh(1)), 1, 1 - tanh2*tanh2}},
		{"relu", []float32{0, 0, 1}},
		{"leakyRelu", []float32{DefaultLeak, DefaultLeak, 1}},
	}
	for _, test := range tests {
		layer := Activation{Atype: test.atype}.Marshal().Unmarshal().Init(q, []int{1, 3})
		layer.Fprop(q, input)
		dsrc := layer.Bprop(q, grad)
		compareArray(t, q, test.atype, dsrc, test.expect)
	}
}
