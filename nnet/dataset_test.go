package nnet

import (
	"math"
	"testing"

	"gradplay/num"
)

func TestCircles(t *testing.T) {
	rng := SetSeed(42)
	d := Circles(200, 0.5, 0, rng)
	if d.Len() != 200 || len(d.Classes()) != 2 {
		t.Fatalf("got len=%d classes=%v", d.Len(), d.Classes())
	}
	buf := make([]float32, 2)
	label := make([]int32, 1)
	count := [2]int{}
	for i := 0; i < d.Len(); i++ {
		d.Label([]int{i}, label)
		d.Input([]int{i}, buf)
		count[label[0]]++
		radius := math.Sqrt(float64(buf[0]*buf[0] + buf[1]*buf[1]))
		expect := 1.0
		if label[0] == 1 {
			expect = 0.5
		}
		if math.Abs(radius-expect) > 1e-5 {
			t.Errorf("sample %d: label=%d radius=%g", i, label[0], radius)
		}
	}
	if count[0] != 100 || count[1] != 100 {
		t.Errorf("class balance: %v", count)
	}
}

func TestCirclesDeterministic(t *testing.T) {
	d1 := Circles(10, 0.5, 0.1, SetSeed(1))
	d2 := Circles(10, 0.5, 0.1, SetSeed(1))
	b1 := make([]float32, 2)
	b2 := make([]float32, 2)
	for i := 0; i < 10; i++ {
		d1.Input([]int{i}, b1)
		d2.Input([]int{i}, b2)
		if b1[0] != b2[0] || b1[1] != b2[1] {
			t.Fatalf("sample %d: %v != %v", i, b1, b2)
		}
	}
}

func TestBatches(t *testing.T) {
	dev := num.NewDevice()
	q := dev.NewQueue()
	defer q.Shutdown()
	rng := SetSeed(42)
	dset := NewDataset(dev, Circles(100, 0.5, 0.05, rng), 32, 0, rng)
	if dset.Batches() != 3 {
		t.Errorf("batches: got %d expect 3", dset.Batches())
	}
	if dset.ClassCols() != 1 {
		t.Errorf("class cols: got %d expect 1", dset.ClassCols())
	}
	x, y, y1H := dset.GetBatch(q, 1)
	if !num.SameShape(x.Dims(), []int{32, 2}) || !num.SameShape(y1H.Dims(), []int{32, 1}) {
		t.Errorf("batch shapes: x=%v y1H=%v", x.Dims(), y1H.Dims())
	}
	// one hot output for binary labels is the label itself
	labels := make([]int32, 32)
	onehot := make([]float32, 32)
	q.Call(
		num.Read(y, labels),
		num.Read(y1H, onehot),
	).Finish()
	for i, l := range labels {
		if float32(l) != onehot[i] {
			t.Errorf("batch entry %d: label=%d onehot=%g", i, l, onehot[i])
		}
	}
}

func TestXOR(t *testing.T) {
	d := XOR()
	if d.Len() != 4 {
		t.Errorf("got len=%d", d.Len())
	}
	label := make([]int32, 4)
	d.Label([]int{0, 1, 2, 3}, label)
	for i, expect := range []int32{0, 1, 1, 0} {
		if label[i] != expect {
			t.Errorf("label %d: got %d expect %d", i, label[i], expect)
		}
	}
}

func TestBounds(t *testing.T) {
	d := XOR()
	xmin, ymin, xmax, ymax := Bounds(d, 0.5)
	if xmin != -0.5 || ymin != -0.5 || xmax != 1.5 || ymax != 1.5 {
		t.Errorf("got %g %g %g %g", xmin, ymin, xmax, ymax)
	}
}
