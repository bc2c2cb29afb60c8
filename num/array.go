package num

import (
	"fmt"
)

// Parameters for array printing
var (
	PrintThreshold = 12
	PrintEdgeitems = 4
)

// Data type of an element of the array
type DataType int

const (
	Int32 DataType = iota
	Float32
)

// Array interface is an n dimensional tensor similar to a numpy ndarray.
// Data is stored in row major order in main memory.
type Array interface {
	// Dims returns the shape of the array in rows, cols, ... order
	Dims() []int
	// Size is total number of elements
	Size() int
	// Dtype returns the data type of the elements in the array
	Dtype() DataType
	// Reshape returns a new array of the same size with a view on the same data but with a different shape
	Reshape(dims ...int) Array
	// Float32s returns the backing slice for a Float32 array
	Float32s() []float32
	// Int32s returns the backing slice for an Int32 array
	Int32s() []int32
	// Formatted output
	String() string
}

type array struct {
	arrayBase
	f32 []float32
	i32 []int32
}

func (d cpuDevice) NewArray(dtype DataType, dims ...int) Array {
	return newArray(dtype, dims)
}

func (d cpuDevice) NewArrayLike(a Array) Array {
	return newArray(a.Dtype(), a.Dims())
}

func newArray(dtype DataType, dims []int) *array {
	a := &array{arrayBase: arrayBase{size: Prod(dims), dims: dims, dtype: dtype}}
	if dtype == Int32 {
		a.i32 = make([]int32, a.size)
	} else {
		a.f32 = make([]float32, a.size)
	}
	return a
}

func (a *array) Float32s() []float32 {
	if a.dtype != Float32 {
		panic("Array: not a Float32 array")
	}
	return a.f32
}

func (a *array) Int32s() []int32 {
	if a.dtype != Int32 {
		panic("Array: not an Int32 array")
	}
	return a.i32
}

func (a *array) Reshape(dims ...int) Array {
	return &array{arrayBase: a.reshape(dims), f32: a.f32, i32: a.i32}
}

func (a *array) String() string {
	if a.dtype == Int32 {
		return format(a.dims, a.i32, 0, 1, "", false)
	}
	return format(a.dims, a.f32, 0, 1, "", false)
}

// common array functions
type arrayBase struct {
	size  int
	dims  []int
	dtype DataType
}

func (a arrayBase) Size() int { return a.size }

func (a arrayBase) Dims() []int { return a.dims }

func (a arrayBase) Dtype() DataType { return a.dtype }

func (a arrayBase) reshape(dims []int) arrayBase {
	n := a.size
	for i := range dims {
		if dims[i] == -1 {
			other := 1
			for j, dim := range dims {
				if i != j {
					if dim == -1 {
						panic("Reshape: can only have single -1 value")
					}
					other *= dim
				}
			}
			dims[i] = n / other
		}
	}
	if Prod(dims) != n {
		panic("reshape must be to array of same size")
	}
	return arrayBase{size: n, dims: dims, dtype: a.dtype}
}

func format(dims []int, data interface{}, at, stride int, indent string, dots bool) string {
	var s string
	switch len(dims) {
	case 0:
		if dots {
			s = "    ... "
		} else {
			switch d := data.(type) {
			case []int32:
				s = fmt.Sprintf("%5d ", d[at])
			case []float32:
				val := d[at]
				if abs(val) < 1 {
					val = float32(int(10000*val+0.5)) / 10000
				}
				s = fmt.Sprintf("%7.5g ", val)
			}
		}
	case 1:
		s = "["
		for i := 0; i < dims[0]; i++ {
			dots2 := dims[0] > PrintThreshold+1 && i == PrintEdgeitems
			s += format([]int{}, data, at+i*stride, 1, "", dots || dots2)
			if dots2 {
				i = dims[0] - PrintEdgeitems - 1
			}
		}
		s += "]"
	case 2:
		var pre, post string
		for i := 0; i < dims[0]; i++ {
			if i == 0 {
				pre = "["
			} else {
				pre = " "
			}
			if i < dims[0]-1 {
				post = "\n"
			} else {
				post = "]\n"
			}
			dots := dims[0] > PrintThreshold+1 && i == PrintEdgeitems
			s += indent + pre + format(dims[1:], data, at+i*dims[1], 1, "", dots) + post
			if dots {
				i = dims[0] - PrintEdgeitems - 1
			}
		}
	default:
		bsize := Prod(dims[1:])
		s = indent + "[\n"
		for i := 0; i < dims[0]; i++ {
			if dims[0] > PrintThreshold+1 && i == PrintEdgeitems {
				s += "   ...  ...   \n"
				i = dims[0] - PrintEdgeitems - 1
			} else {
				s += format(dims[1:], data, at+bsize*i, 1, indent+" ", false)
			}
		}
		s += indent + "]\n"
	}
	return s
}

func abs(x float32) float32 {
	if x >= 0 {
		return x
	}
	return -x
}

// Product of elements of an integer array. Zero dimension array (scalar) has size 1.
func Prod(arr []int) int {
	prod := 1
	for _, v := range arr {
		prod *= v
	}
	return prod
}

// Check if two arrays are the same shape
func SameShape(xd, yd []int) bool {
	if len(xd) != len(yd) {
		return false
	}
	for i := range xd {
		if xd[i] != yd[i] {
			return false
		}
	}
	return true
}
