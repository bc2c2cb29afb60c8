// Package num contains numeric Array processing routines such as optimised matrix multiplication.
package num

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

const epsilon = 1e-7

// TransType flag indicates if matrix is transposed
type TransType int

const (
	NoTrans TransType = iota
	Trans
)

func (t TransType) blas() blas.Transpose {
	if t == Trans {
		return blas.Trans
	}
	return blas.NoTrans
}

// Read data from array into a slice.
func Read(a Array, data interface{}) Function {
	return Function{name: "copy", fn: func() {
		switch d := data.(type) {
		case []float32:
			copy(d, a.Float32s())
		case []int32:
			copy(d, a.Int32s())
		default:
			panic(fmt.Sprintf("Read: invalid data type %T", data))
		}
	}}
}

// Write data from a slice into the given array.
func Write(a Array, data interface{}) Function {
	return Function{name: "copy", fn: func() {
		switch d := data.(type) {
		case []float32:
			copy(a.Float32s(), d)
		case []int32:
			copy(a.Int32s(), d)
		default:
			panic(fmt.Sprintf("Write: invalid data type %T", data))
		}
	}}
}

// Fill array with a scalar value
func Fill(a Array, scalar float32) Function {
	return Function{name: "fill", fn: func() {
		if a.Dtype() == Int32 {
			val := int32(scalar)
			data := a.Int32s()
			for i := range data {
				data[i] = val
			}
		} else {
			data := a.Float32s()
			for i := range data {
				data[i] = scalar
			}
		}
	}}
}

// Copy from src to dst, broadcast vector to matrix if needed, vector is tiled over the rows
func Copy(dst, src Array) Function {
	if src.Dtype() != dst.Dtype() {
		panic("Copy: arguments must be same type")
	}
	ddim, sdim := dst.Dims(), src.Dims()
	if SameShape(ddim, sdim) {
		return Function{name: "copy", fn: func() {
			if dst.Dtype() == Int32 {
				copy(dst.Int32s(), src.Int32s())
			} else {
				copy(dst.Float32s(), src.Float32s())
			}
		}}
	}
	if len(sdim) == 1 && len(ddim) == 2 && sdim[0] == ddim[1] {
		return Function{name: "tile", fn: func() {
			d, s := dst.Float32s(), src.Float32s()
			for row := 0; row < ddim[0]; row++ {
				copy(d[row*ddim[1]:(row+1)*ddim[1]], s)
			}
		}}
	}
	panic(fmt.Sprintf("Copy: cannot copy from %v to %v shape", sdim, ddim))
}

// Element wise != comparison
func Neq(x, y, res Array) Function {
	if x.Dtype() != Int32 || y.Dtype() != Int32 || res.Dtype() != Int32 {
		panic("Neq: incorrect datatype")
	}
	if !SameShape(x.Dims(), res.Dims()) || !SameShape(y.Dims(), res.Dims()) {
		panic("Neq: arrays must be same shape")
	}
	return Function{name: "neq", fn: func() {
		xd, yd, rd := x.Int32s(), y.Int32s(), res.Int32s()
		for i := range rd {
			if xd[i] != yd[i] {
				rd[i] = 1
			} else {
				rd[i] = 0
			}
		}
	}}
}

// Convert to one hot representation, or to a single column of 0/1 values if y has one column
func Onehot(x, y Array, classes int) Function {
	if x.Dtype() != Int32 || y.Dtype() != Float32 {
		panic("Onehot: incorrect datatype")
	}
	xdim, ydim := x.Dims(), y.Dims()
	if len(xdim) != 1 || len(ydim) != 2 || xdim[0] != ydim[0] {
		panic("Onehot: invalid array shape")
	}
	if ydim[1] != classes && !(ydim[1] == 1 && classes == 2) {
		panic("Onehot: invalid number of columns")
	}
	return Function{name: "onehot", fn: func() {
		xd, yd := x.Int32s(), y.Float32s()
		cols := ydim[1]
		for i := range yd {
			yd[i] = 0
		}
		for i, label := range xd {
			if cols == 1 {
				yd[i] = float32(label)
			} else {
				yd[i*cols+int(label)] = 1
			}
		}
	}}
}

// Convert from one hot or probability format back to labels
func Unhot(x, y Array) Function {
	if x.Dtype() != Float32 || y.Dtype() != Int32 {
		panic("Unhot: incorrect datatype")
	}
	xdim, ydim := x.Dims(), y.Dims()
	if len(xdim) != 2 || len(ydim) != 1 || xdim[0] != ydim[0] {
		panic("Unhot: invalid array shape")
	}
	return Function{name: "unhot", fn: func() {
		xd, yd := x.Float32s(), y.Int32s()
		cols := xdim[1]
		for row := range yd {
			if cols == 1 {
				if xd[row] >= 0.5 {
					yd[row] = 1
				} else {
					yd[row] = 0
				}
			} else {
				max, ix := xd[row*cols], 0
				for col := 1; col < cols; col++ {
					if v := xd[row*cols+col]; v > max {
						max, ix = v, col
					}
				}
				yd[row] = int32(ix)
			}
		}
	}}
}

// Scale array: x <- alpha*x
func Scale(alpha float32, x Array) Function {
	if x.Dtype() != Float32 {
		panic("Scale: dtype must by Float32")
	}
	return Function{name: "scale", fn: func() {
		blas32.Scal(alpha, vec(x))
	}}
}

// Array addition and scaling: y <- alpha*x + y
func Axpy(alpha float32, x, y Array) Function {
	if x.Dtype() != Float32 || y.Dtype() != Float32 {
		panic("Axpy: dtype must by Float32")
	}
	if !SameShape(x.Dims(), y.Dims()) {
		panic("Axpy: arrays must be same shape")
	}
	return Function{name: "axpy", fn: func() {
		blas32.Axpy(alpha, vec(x), vec(y))
	}}
}

// Calculate the scalar sum of the values in the array. Multiplies the result by scale.
func Sum(a, total Array, scale float32) Function {
	if len(total.Dims()) != 0 || total.Dtype() != Float32 {
		panic("Sum: result type should be float32 scalar")
	}
	return Function{name: "sum", fn: func() {
		var sum float32
		if a.Dtype() == Int32 {
			for _, v := range a.Int32s() {
				sum += float32(v)
			}
		} else {
			for _, v := range a.Float32s() {
				sum += v
			}
		}
		total.Float32s()[0] = sum * scale
	}}
}

// Calculate the L2 norm of the array: res <- sqrt(sum(a**2))
func Nrm2(a, res Array) Function {
	if a.Dtype() != Float32 {
		panic("Nrm2: dtype must by Float32")
	}
	if len(res.Dims()) != 0 || res.Dtype() != Float32 {
		panic("Nrm2: result type should be float32 scalar")
	}
	return Function{name: "nrm2", fn: func() {
		res.Float32s()[0] = blas32.Nrm2(vec(a))
	}}
}

// Matrix vector multiplication: y <- alpha*dot(mA,x) + beta*y
func Gemv(alpha, beta float32, mA, x, y Array, aTrans TransType) Function {
	if mA.Dtype() != Float32 || x.Dtype() != Float32 || y.Dtype() != Float32 {
		panic("Gemv: dtype must by Float32")
	}
	adim, xdim, ydim := mA.Dims(), x.Dims(), y.Dims()
	if len(adim) != 2 || len(xdim) != 1 || len(ydim) != 1 {
		panic("Gemv: must have matrix and vector inputs")
	}
	m, n := adim[0], adim[1]
	if aTrans == Trans {
		if xdim[0] != m || ydim[0] != n {
			panic("Gemv: incorrect vector size")
		}
	} else {
		if xdim[0] != n || ydim[0] != m {
			panic("Gemv: incorrect vector size")
		}
	}
	return Function{name: "gemv", fn: func() {
		blas32.Gemv(aTrans.blas(), alpha, gen(mA), vec(x), beta, vec(y))
	}}
}

// Matrix matrix multiplication: mC <- alpha*dot(mA, mB) + beta*mC
func Gemm(alpha, beta float32, mA, mB, mC Array, aTrans, bTrans TransType) Function {
	if mA.Dtype() != Float32 || mB.Dtype() != Float32 || mC.Dtype() != Float32 {
		panic("Gemm: dtype must by Float32")
	}
	adim, bdim, cdim := mA.Dims(), mB.Dims(), mC.Dims()
	if len(adim) != 2 || len(bdim) != 2 || len(cdim) != 2 {
		panic("Gemm: must have 2 dimensional arrays")
	}
	m, k := adim[0], adim[1]
	k2, n := bdim[0], bdim[1]
	if aTrans == Trans {
		m, k = k, m
	}
	if bTrans == Trans {
		k2, n = n, k2
	}
	if k2 != k {
		panic(fmt.Sprintf("Gemm: invalid input shape %v x %v", adim, bdim))
	}
	if cdim[0] != m || cdim[1] != n {
		panic(fmt.Sprintf("Gemm: invalid output shape %v expecting [%d %d]", cdim, m, n))
	}
	return Function{name: "gemm", fn: func() {
		blas32.Gemm(aTrans.blas(), bTrans.blas(), alpha, gen(mA), gen(mB), beta, gen(mC))
	}}
}

// Sigmoid activation function: y = 1/(1+e**(-x))
func Sigmoid(x, y Array) Function {
	return unaryFunc("sigmoid", x, y, sigmoid)
}

func SigmoidD(x, grad, y Array) Function {
	return binaryFunc("sigmoid_d", x, grad, y, func(x, g float32) float32 {
		s := sigmoid(x)
		return g * s * (1 - s)
	})
}

// Tanh activation function: y = tanh(x)
func Tanh(x, y Array) Function {
	return unaryFunc("tanh", x, y, func(x float32) float32 {
		return float32(math.Tanh(float64(x)))
	})
}

func TanhD(x, grad, y Array) Function {
	return binaryFunc("tanh_d", x, grad, y, func(x, g float32) float32 {
		t := float32(math.Tanh(float64(x)))
		return g * (1 - t*t)
	})
}

// Relu rectified linear activation function: y = max(x, 0)
func Relu(x, y Array) Function {
	return unaryFunc("relu", x, y, func(x float32) float32 {
		if x > 0 {
			return x
		}
		return 0
	})
}

func ReluD(x, grad, y Array) Function {
	return binaryFunc("relu_d", x, grad, y, func(x, g float32) float32 {
		if x > 0 {
			return g
		}
		return 0
	})
}

// LeakyRelu activation function: y = max(x, alpha*x)
func LeakyRelu(x, y Array, alpha float32) Function {
	return unaryFunc("leaky_relu", x, y, func(x float32) float32 {
		if x > 0 {
			return x
		}
		return alpha * x
	})
}

func LeakyReluD(x, grad, y Array, alpha float32) Function {
	return binaryFunc("leaky_relu_d", x, grad, y, func(x, g float32) float32 {
		if x > 0 {
			return g
		}
		return alpha * g
	})
}

// Quadratic loss function: res = (y-p)**2
func QuadraticLoss(y, p, res Array) Function {
	return binaryFunc("quad_loss", y, p, res, func(y, p float32) float32 {
		return (p - y) * (p - y)
	})
}

// Binary cross entropy loss function: res = -y*log(p) - (1-y)*log(1-p)
func CrossEntropyLoss(y, p, res Array) Function {
	return binaryFunc("xent_loss", y, p, res, func(y, p float32) float32 {
		p = clamp(p)
		return -y*float32(math.Log(float64(p))) - (1-y)*float32(math.Log(float64(1-p)))
	})
}

// Softmax activation function, applied to each row
func Softmax(x, res Array) Function {
	if x.Dtype() != Float32 || res.Dtype() != Float32 {
		panic("Softmax: dtype must by Float32")
	}
	xdim, rdim := x.Dims(), res.Dims()
	if len(xdim) != 2 || !SameShape(xdim, rdim) {
		panic("Softmax: arrays must be 2d and same shape")
	}
	return Function{name: "softmax", fn: func() {
		xd, rd := x.Float32s(), res.Float32s()
		cols := xdim[1]
		for row := 0; row < xdim[0]; row++ {
			xrow, rrow := xd[row*cols:(row+1)*cols], rd[row*cols:(row+1)*cols]
			max := xrow[0]
			for _, v := range xrow[1:] {
				if v > max {
					max = v
				}
			}
			var sum float32
			for i, v := range xrow {
				rrow[i] = float32(math.Exp(float64(v - max)))
				sum += rrow[i]
			}
			for i := range rrow {
				rrow[i] /= sum
			}
		}
	}}
}

// Softmax loss function: res = -y*log(p)
func SoftmaxLoss(y, p, res Array) Function {
	return binaryFunc("softmax_loss", y, p, res, func(y, p float32) float32 {
		if y == 0 {
			return 0
		}
		return -y * float32(math.Log(float64(clamp(p))))
	})
}

func sigmoid(x float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(x))))
}

func clamp(p float32) float32 {
	if p < epsilon {
		return epsilon
	}
	if p > 1-epsilon {
		return 1 - epsilon
	}
	return p
}

func unaryFunc(name string, x, y Array, f func(x float32) float32) Function {
	if x.Dtype() != Float32 || y.Dtype() != Float32 {
		panic("UnaryFunc: dtype must by Float32")
	}
	if !SameShape(x.Dims(), y.Dims()) {
		panic("UnaryFunc: arrays must be same shape")
	}
	return Function{name: name, fn: func() {
		xd, yd := x.Float32s(), y.Float32s()
		for i, v := range xd {
			yd[i] = f(v)
		}
	}}
}

func binaryFunc(name string, x, y, z Array, f func(x, y float32) float32) Function {
	if x.Dtype() != Float32 || y.Dtype() != Float32 || z.Dtype() != Float32 {
		panic("BinaryFunc: dtype must by Float32")
	}
	if !SameShape(x.Dims(), z.Dims()) || !SameShape(y.Dims(), z.Dims()) {
		panic("BinaryFunc: arrays must be same shape")
	}
	return Function{name: name, fn: func() {
		xd, yd, zd := x.Float32s(), y.Float32s(), z.Float32s()
		for i := range zd {
			zd[i] = f(xd[i], yd[i])
		}
	}}
}

func vec(a Array) blas32.Vector {
	return blas32.Vector{N: a.Size(), Inc: 1, Data: a.Float32s()}
}

func gen(a Array) blas32.General {
	dims := a.Dims()
	return blas32.General{Rows: dims[0], Cols: dims[1], Stride: dims[1], Data: a.Float32s()}
}
