package num

import (
	"math"
	"math/rand"
	"reflect"
	"testing"
)

func TestArray(t *testing.T) {
	xd := []float32{1, 1, 2, 2, 3, 3}
	dev := NewDevice()
	q := dev.NewQueue()
	x := dev.NewArray(Float32, 6)
	if typ := x.Dtype(); typ != Float32 {
		t.Error("dtype invalid: got", typ)
	}
	x = x.Reshape(2, 3)
	if dim := x.Dims(); !reflect.DeepEqual(dim, []int{2, 3}) {
		t.Error("dims invalid: got", dim)
	}
	res := make([]float32, 6)
	q.Call(
		Write(x, xd),
		Read(x, res),
	).Finish()
	if !reflect.DeepEqual(res, xd) {
		t.Error("got", res, "expect", xd)
	}
	x = x.Reshape(3, -1)
	if dim := x.Dims(); !reflect.DeepEqual(dim, []int{3, 2}) {
		t.Error("reshape dims invalid: got", dim)
	}
}

func TestCopy(t *testing.T) {
	dev := NewDevice()
	q := dev.NewQueue()
	x := dev.NewArray(Float32, 2, 3)
	// tile bias vector over the rows
	y := dev.NewArray(Float32, 3)
	res := make([]float32, 6)
	q.Call(
		Write(y, []float32{3, 2, 1}),
		Copy(x, y),
		Read(x, res),
	).Finish()
	expect := []float32{3, 2, 1, 3, 2, 1}
	if !reflect.DeepEqual(res, expect) {
		t.Error("got", res, "expect", expect)
	}
}

func TestOnehot(t *testing.T) {
	dev := NewDevice()
	q := dev.NewQueue()
	y := dev.NewArray(Int32, 4)
	y1h := dev.NewArray(Float32, 4, 3)
	res := make([]float32, 12)
	labels := []int32{2, 1, 0, 2}
	q.Call(
		Write(y, labels),
		Onehot(y, y1h, 3),
		Read(y1h, res),
	).Finish()
	t.Logf("y1hot %s\n%s", y.String(), y1h.String())
	expect := []float32{0, 0, 1, 0, 1, 0, 1, 0, 0, 0, 0, 1}
	if !reflect.DeepEqual(res, expect) {
		t.Error("got", res, "expect", expect)
	}
	res2 := make([]int32, 4)
	q.Call(
		Unhot(y1h, y),
		Read(y, res2),
	).Finish()
	if !reflect.DeepEqual(res2, labels) {
		t.Error("got", res2, "expect", labels)
	}
}

func TestOnehotBinary(t *testing.T) {
	dev := NewDevice()
	q := dev.NewQueue()
	y := dev.NewArray(Int32, 4)
	y1h := dev.NewArray(Float32, 4, 1)
	res := make([]float32, 4)
	labels := []int32{1, 0, 0, 1}
	q.Call(
		Write(y, labels),
		Onehot(y, y1h, 2),
		Read(y1h, res),
	).Finish()
	expect := []float32{1, 0, 0, 1}
	if !reflect.DeepEqual(res, expect) {
		t.Error("got", res, "expect", expect)
	}
	res2 := make([]int32, 4)
	q.Call(
		Write(y1h, []float32{0.9, 0.2, 0.49, 0.51}),
		Unhot(y1h, y),
		Read(y, res2),
	).Finish()
	if !reflect.DeepEqual(res2, labels) {
		t.Error("got", res2, "expect", labels)
	}
}

func TestAxpy(t *testing.T) {
	dev := NewDevice()
	q := dev.NewQueue()
	x := dev.NewArray(Float32, 2, 3)
	y := dev.NewArray(Float32, 2, 3)
	res := make([]float32, 6)
	q.Call(
		Write(x, []float32{1, 1, 2, 2, 3, 3}),
		Write(y, []float32{0.5, 0.5, 0.5, 0.5, 0.5, 0.5}),
		Axpy(2, x, y),
		Read(y, res),
	).Finish()
	expect := []float32{2.5, 2.5, 4.5, 4.5, 6.5, 6.5}
	if !reflect.DeepEqual(res, expect) {
		t.Error("got", res, "expect", expect)
	}
}

func TestSum(t *testing.T) {
	dev := NewDevice()
	q := dev.NewQueue()
	x := dev.NewArray(Float32, 2, 3)
	sum := dev.NewArray(Float32)
	res := make([]float32, 1)
	// scalar mean
	q.Call(
		Write(x, []float32{1, 2, 3, 4, 5, 6}),
		Sum(x, sum, 1.0/6.0),
		Read(sum, res),
	).Finish()
	if res[0] != 3.5 {
		t.Error("got", res[0], "expect", 3.5)
	}
	// sum for each column
	colSum := dev.NewArray(Float32, 3)
	res = make([]float32, 3)
	ones := dev.NewArray(Float32, 2)
	q.Call(
		Fill(ones, 1),
		Gemv(1, 0, x, ones, colSum, Trans),
		Read(colSum, res),
	).Finish()
	expect := []float32{5, 7, 9}
	if !reflect.DeepEqual(res, expect) {
		t.Error("got", res, "expect", expect)
	}
}

func TestNrm2(t *testing.T) {
	dev := NewDevice()
	q := dev.NewQueue()
	x := dev.NewArray(Float32, 2, 2)
	norm := dev.NewArray(Float32)
	res := make([]float32, 1)
	q.Call(
		Write(x, []float32{1, 2, 2, 4}),
		Nrm2(x, norm),
		Read(norm, res),
	).Finish()
	if res[0] != 5 {
		t.Error("got", res[0], "expect", 5)
	}
}

func TestGemm(t *testing.T) {
	dev := NewDevice()
	q := dev.NewQueue()
	x := dev.NewArray(Float32, 2, 3)
	y := dev.NewArray(Float32, 3, 2)
	z := dev.NewArray(Float32, 2, 2)
	q.Call(Write(x, []float32{1, 2, 3, 4, 5, 6}))
	res := make([]float32, 4)
	for _, trans := range []TransType{NoTrans, Trans} {
		if trans == Trans {
			y = y.Reshape(2, 3)
			q.Call(Write(y, []float32{7, 9, 11, 8, 10, 12}))
		} else {
			q.Call(Write(y, []float32{7, 8, 9, 10, 11, 12}))
		}
		q.Call(
			Gemm(1, 0, x, y, z, NoTrans, trans),
			Read(z, res),
		).Finish()
		expect := []float32{58, 64, 139, 154}
		if !reflect.DeepEqual(res, expect) {
			t.Error("got", res, "expect", expect)
		}
	}
}

func TestActivations(t *testing.T) {
	dev := NewDevice()
	q := dev.NewQueue()
	x := dev.NewArray(Float32, 4)
	y := dev.NewArray(Float32, 4)
	q.Call(Write(x, []float32{-2, -0.5, 0, 2}))
	res := make([]float32, 4)

	q.Call(Relu(x, y), Read(y, res)).Finish()
	if !reflect.DeepEqual(res, []float32{0, 0, 0, 2}) {
		t.Error("relu: got", res)
	}
	q.Call(LeakyRelu(x, y, 0.1), Read(y, res)).Finish()
	expect := []float32{-0.2, -0.05, 0, 2}
	for i := range res {
		if math.Abs(float64(res[i]-expect[i])) > 1e-6 {
			t.Error("leakyRelu: got", res, "expect", expect)
			break
		}
	}
	q.Call(Sigmoid(x, y), Read(y, res)).Finish()
	if math.Abs(float64(res[2]-0.5)) > 1e-6 || res[0] >= res[1] {
		t.Error("sigmoid: got", res)
	}
	q.Call(Tanh(x, y), Read(y, res)).Finish()
	if res[2] != 0 || math.Abs(float64(res[3]-0.9640276)) > 1e-6 {
		t.Error("tanh: got", res)
	}
}

func TestCrossEntropyLoss(t *testing.T) {
	dev := NewDevice()
	q := dev.NewQueue()
	y := dev.NewArray(Float32, 3, 1)
	p := dev.NewArray(Float32, 3, 1)
	loss := dev.NewArray(Float32, 3, 1)
	res := make([]float32, 3)
	q.Call(
		Write(y, []float32{1, 0, 1}),
		Write(p, []float32{0.9, 0.1, 0.5}),
		CrossEntropyLoss(y, p, loss),
		Read(loss, res),
	).Finish()
	expect := []float32{0.105360545, 0.105360545, 0.6931472}
	for i := range res {
		if math.Abs(float64(res[i]-expect[i])) > 1e-5 {
			t.Error("got", res, "expect", expect)
			break
		}
	}
}

func randSlice(n int) []float32 {
	res := make([]float32, n)
	for i := range res {
		res[i] = float32(rand.Intn(20))
	}
	return res
}

func BenchmarkGemm(b *testing.B) {
	size := 100
	dev := NewDevice()
	q := dev.NewQueue()
	x := dev.NewArray(Float32, size, size)
	y := dev.NewArray(Float32, size, size)
	z := dev.NewArray(Float32, size, size)
	q.Call(
		Write(x, randSlice(size*size)),
		Write(y, randSlice(size*size)),
	).Finish()
	for i := 0; i < b.N; i++ {
		q.Call(Gemm(1, 0, x, y, z, NoTrans, NoTrans)).Finish()
	}
}
