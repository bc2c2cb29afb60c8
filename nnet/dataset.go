package nnet

import (
	"encoding/gob"
	"fmt"
	"math/rand"
	"os"
	"path"
	"strconv"

	"gradplay/num"
)

var DataTypes = []string{"train", "test", "valid"}

// DataDir is the directory where datasets and model configs are stored.
var DataDir = dataDir()

func dataDir() string {
	if dir := os.Getenv("GRADPLAY_DATA"); dir != "" {
		return dir
	}
	return "data"
}

func init() {
	gob.Register(data{})
}

// Data interface type represents the raw data for a training or test set
type Data interface {
	Len() int
	Classes() []string
	Shape() []int
	Label(index []int, label []int32)
	Input(index []int, buf []float32)
}

// Dataset type encapsulates a set of training, test or validation data.
type Dataset struct {
	Data
	Samples   int
	BatchSize int
	batches   int
	xBuffer   []float32
	yBuffer   []int32
	x, y, y1H num.Array
	indexes   []int
	rng       *rand.Rand
}

// Create a new Dataset struct, allocate array buffers and set the batch size and maxSamples
func NewDataset(dev num.Device, data Data, batchSize, maxSamples int, rng *rand.Rand) *Dataset {
	d := &Dataset{Data: data, Samples: data.Len(), rng: rng}
	if maxSamples > 0 && d.Samples > maxSamples {
		d.Samples = maxSamples
	}
	if batchSize == 0 || batchSize > d.Samples {
		d.BatchSize = d.Samples
	} else {
		d.BatchSize = batchSize
	}
	d.batches = d.Samples / d.BatchSize
	nfeat := num.Prod(data.Shape())
	d.xBuffer = make([]float32, nfeat*d.BatchSize)
	d.yBuffer = make([]int32, d.BatchSize)
	d.x = dev.NewArray(num.Float32, d.BatchSize, nfeat)
	d.y = dev.NewArray(num.Int32, d.BatchSize)
	d.y1H = dev.NewArray(num.Float32, d.BatchSize, d.ClassCols())
	d.indexes = make([]int, d.Samples)
	for i := range d.indexes {
		d.indexes[i] = i
	}
	return d
}

// Batches returns the number of complete batches per epoch
func (d *Dataset) Batches() int { return d.batches }

// ClassCols is the width of the one hot encoded output: a single column for binary labels
func (d *Dataset) ClassCols() int {
	if classes := len(d.Classes()); classes > 2 {
		return classes
	}
	return 1
}

// Get batch b of data
func (d *Dataset) GetBatch(q num.Queue, b int) (x, y, yOneHot num.Array) {
	start := b * d.BatchSize
	d.Input(d.indexes[start:start+d.BatchSize], d.xBuffer)
	d.Label(d.indexes[start:start+d.BatchSize], d.yBuffer)
	q.Call(
		num.Write(d.x, d.xBuffer),
		num.Write(d.y, d.yBuffer),
		num.Onehot(d.y, d.y1H, len(d.Classes())),
	)
	return d.x, d.y, d.y1H
}

// Shuffle the data set
func (d *Dataset) Shuffle() {
	d.indexes = d.rng.Perm(d.Samples)
}

// Load data from disk given the model name.
func LoadData(model string) (d map[string]Data, err error) {
	var data Data
	d = make(map[string]Data)
	for _, key := range DataTypes {
		name := model + "_" + key
		if FileExists(name + ".dat") {
			if data, err = LoadDataFile(name); err != nil {
				return
			}
			d[key] = data
		}
	}
	return d, nil
}

// Decode data from file in gob format under DataDir
func LoadDataFile(name string) (Data, error) {
	filePath := path.Join(DataDir, name+".dat")
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	fmt.Printf("loading data from %s.dat:\t", name)
	var d Data
	if err = gob.NewDecoder(f).Decode(&d); err != nil {
		return nil, err
	}
	fmt.Println(append(d.Shape(), d.Len()))
	return d, nil
}

// Encode in gob format and save to file under DataDir
func SaveDataFile(d Data, name string) error {
	filePath := path.Join(DataDir, name+".dat")
	f, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer f.Close()
	fmt.Println("saving data to", name+".dat")
	return gob.NewEncoder(f).Encode(&d)
}

// Check if file exists under DataDir
func FileExists(name string) bool {
	filePath := path.Join(DataDir, name)
	_, err := os.Stat(filePath)
	return err == nil
}

type data struct {
	Class  []string
	Dims   []int
	Labels []int32
	Inputs []float32
}

// NewData function creates a new data set which implements the Data interface
func NewData(nclasses int, shape []int, labels []int32, inputs []float32) Data {
	classes := make([]string, nclasses)
	for i := range classes {
		classes[i] = strconv.Itoa(i)
	}
	return data{Class: classes, Dims: shape, Labels: labels, Inputs: inputs}
}

func (d data) Len() int { return len(d.Labels) }

func (d data) Classes() []string { return d.Class }

func (d data) Shape() []int { return d.Dims }

func (d data) Label(index []int, label []int32) {
	for i, ix := range index {
		label[i] = d.Labels[ix]
	}
}

func (d data) Input(index []int, buf []float32) {
	nfeat := num.Prod(d.Dims)
	for i, ix := range index {
		copy(buf[i*nfeat:], d.Inputs[ix*nfeat:(ix+1)*nfeat])
	}
}
