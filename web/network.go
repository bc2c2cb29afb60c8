package web

import (
	"encoding/gob"
	"fmt"
	"html/template"
	"log"
	"math/rand"
	"os"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"gradplay/nnet"
	"gradplay/num"
)

var tuneOpts = []string{"Eta", "Lambda", "WeightInit"}
var tuneOptHtml = []string{"&eta;", "&lambda;", "init"}

// Network and associated training / test data and configuration
type Network struct {
	*NetworkData
	*nnet.Network
	Data      map[string]nnet.Data
	test      *nnet.TestBase
	grads     *nnet.GradientLog
	conn      *websocket.Conn
	trainData *nnet.Dataset
	queue     num.Queue
	rng       *rand.Rand
	testRng   *rand.Rand
	view      *viewData
	updated   bool
	running   bool
	stop      bool
	tuneMode  bool
	sync.Mutex
}

// Embedded structs used to persist state to file
type NetworkData struct {
	Model     string
	Conf      nnet.Config
	MaxRun    int
	Run       int
	Epoch     int
	Stats     []nnet.Stats
	Pred      map[string][]int32
	Params    []LayerData
	GradNames []string
	GradNorms [][]float32
	History   []HistoryData
	Tuners    []TuneParams
}

type LayerData struct {
	Layer   int
	Weights []float32
	Biases  []float32
}

type HistoryData struct {
	Stats nnet.Stats
	Conf  nnet.Config
}

type TuneParams struct {
	Name   string
	Values []string
}

// Create a new network and load config from data given model name
func NewNetwork(model string) (*Network, error) {
	n := &Network{test: nnet.NewTestBase()}
	log.Println("load model:", model)
	var err error
	n.NetworkData, err = LoadNetwork(model, false)
	if err != nil {
		return nil, err
	}
	if err := n.Init(n.Conf); err != nil {
		return nil, err
	}
	if err := n.Import(); err != nil {
		return nil, err
	}
	return n, nil
}

// Initialise the network
func (n *Network) Init(conf nnet.Config) error {
	log.Printf("init network: dataSet=%s\n", conf.DataSet)
	var err error
	if n.Data, err = nnet.LoadData(conf.DataSet); err != nil {
		return err
	}
	dev := num.NewDevice()
	n.queue = dev.NewQueue()
	n.rng = nnet.SetSeed(conf.RandSeed)
	n.testRng = nnet.SetSeed(conf.RandSeed)
	n.trainData = nnet.NewDataset(dev, n.Data["train"], conf.TrainBatch, conf.MaxSamples, n.rng)
	n.Network = nnet.New(n.queue, conf, n.trainData.BatchSize, n.trainData.Shape())
	if n.DebugLevel >= 1 {
		fmt.Println(n.Network)
	}
	n.test.Init(n.queue, conf, n.Data, n.testRng).Predict()
	n.grads = nnet.NewGradientLog(n.Network)
	n.view = newViewData(dev, n.Data, conf)
	return nil
}

// Initialise for new training run
func (n *Network) Start(conf nnet.Config, lock bool) error {
	if lock {
		n.Lock()
		defer n.Unlock()
	}
	if err := n.Init(conf); err != nil {
		return err
	}
	n.test.Reset()
	log.Println("init weights")
	n.InitWeights(n.rng)
	n.view.loadWeights(n.Network)
	n.Epoch = 0
	n.updated = false
	return nil
}

// Perform training run
func (n *Network) Train(restart bool) error {
	log.Printf("train %s: restart=%v\n", n.Model, restart)
	runs := []nnet.Config{n.Conf}
	if n.tuneMode {
		runs = getRunConfig(n.Conf, n.Tuners)
	}
	n.MaxRun = len(runs)
	if restart {
		if n.Epoch != 0 || n.Run != 0 || n.updated {
			n.Run = 0
			if err := n.Start(runs[0], false); err != nil {
				return err
			}
		}
		n.Epoch = 1
	} else if n.Epoch > 0 {
		n.Epoch++
	}
	if n.Epoch == 0 || n.Epoch > n.MaxEpoch {
		return nil
	}
	n.running = true
	n.stop = false
	go func() {
		acc := n.queue.NewArray(num.Float32)
		quit := false
		for n.Run < n.MaxRun && !quit {
			if n.Run > 0 {
				if err := n.Start(runs[n.Run], true); err != nil {
					log.Println(err)
					return
				}
				n.Epoch = 1
			}
			log.Printf("train run %d / %d epoch=%d\n", n.Run+1, len(runs), n.Epoch)
			epoch := n.Epoch
			done := false
			for !done && !quit {
				start := time.Now()
				loss := nnet.TrainEpoch(n.Network, n.trainData, acc, n.grads)
				done = n.test.Test(n.Network, epoch, loss, start)
				epoch, quit = n.nextEpoch(epoch, done)
			}
			if last := len(n.test.Stats) - 1; last > 0 {
				log.Println(n.test.Stats[last].String(n.test.Headers))
			}
			if !quit {
				n.Run++
			}
		}
		n.Lock()
		n.running = false
		n.stop = false
		n.Unlock()
		log.Println("train: end - quit =", quit)
	}()
	return nil
}

func (n *Network) nextEpoch(epoch int, done bool) (int, bool) {
	quit := false
	n.Lock()
	n.Epoch = epoch
	// check for interrupt
	if n.stop {
		n.stop = false
		n.running = false
		quit = true
	}
	// update predictions for each point
	for key, pred := range n.test.Pred {
		if arr, ok := n.Pred[key]; !ok || len(arr) != len(pred) {
			n.Pred[key] = make([]int32, len(pred))
		}
		copy(n.Pred[key], pred)
	}
	// update decision boundary visualisation
	n.view.loadWeights(n.Network)
	// update history
	if done && !quit && len(n.test.Stats) > 0 {
		n.History = append(n.History, HistoryData{
			Stats: n.test.Stats[len(n.test.Stats)-1].Copy(),
			Conf:  n.Config.Copy(),
		})
	}
	n.Unlock()
	// notify via websocket
	if n.conn != nil {
		msg := []byte(strconv.Itoa(n.Run+1) + ":" + strconv.Itoa(epoch))
		err := n.conn.WriteMessage(websocket.TextMessage, msg)
		if err != nil {
			log.Println("nextEpoch: error writing to websocket", err)
		}
	}
	// save state to disk
	n.Lock()
	n.Export()
	err := SaveNetwork(n.NetworkData, false)
	n.Unlock()
	if err != nil {
		log.Println("nextEpoch: error saving network:", err)
	}
	return epoch + 1, quit
}

func (n *Network) heading() template.HTML {
	s := fmt.Sprintf(`%s: run <span id="run">%d</span>/%d  epoch <span id="epoch">%d</span>/%d`,
		n.Model, n.Run+1, n.MaxRun, n.Epoch, n.MaxEpoch)
	return template.HTML(s)
}

// Export current state prior to saving to file
func (n *Network) Export() {
	n.Stats = n.test.Stats
	n.GradNames = n.grads.Names
	n.GradNorms = n.grads.Norms
	n.Params = []LayerData{}
	if n.test.Net == nil || n.test.Net.Layers == nil {
		return
	}
	for i, layer := range n.test.Net.Layers {
		if l, ok := layer.(nnet.ParamLayer); ok {
			W, B := l.Params()
			d := LayerData{
				Layer:   i,
				Weights: make([]float32, W.Size()),
				Biases:  make([]float32, B.Size()),
			}
			n.queue.Call(
				num.Read(W, d.Weights),
				num.Read(B, d.Biases),
			).Finish()
			n.Params = append(n.Params, d)
		}
	}
}

// Import current state after loading from file
func (n *Network) Import() error {
	n.test.Stats = n.Stats
	if len(n.GradNames) > 0 {
		n.grads.Names = n.GradNames
		n.grads.Norms = n.GradNorms
	}
	if n.Epoch == 0 {
		log.Println("init weights")
		n.InitWeights(n.rng)
	} else if len(n.Params) > 0 {
		log.Println("import weights")
		nlayers := len(n.Network.Layers)
		for _, p := range n.Params {
			if p.Layer >= nlayers {
				return fmt.Errorf("layer %d import error: network has %d layers total", p.Layer, nlayers)
			}
			layer, ok := n.Network.Layers[p.Layer].(nnet.ParamLayer)
			if !ok {
				return fmt.Errorf("layer %d import error: not a ParamLayer", p.Layer)
			}
			W, B := layer.Params()
			if W.Size() != len(p.Weights) || B.Size() != len(p.Biases) {
				return fmt.Errorf("layer %d import error: size mismatch - have %d %d - expect %d %d",
					p.Layer, len(p.Weights), len(p.Biases), W.Size(), B.Size())
			}
			n.queue.Call(
				num.Write(W, p.Weights),
				num.Write(B, p.Biases),
			)
		}
		n.view.loadWeights(n.Network)
	}
	return nil
}

// Encode data in gob format and save to file under nnet.DataDir
func SaveNetwork(data *NetworkData, reset bool) error {
	model := data.Model
	filePath := path.Join(nnet.DataDir, model+".net")
	if reset {
		if err := data.Conf.Save(model + ".conf"); err != nil {
			return err
		}
		os.Remove(filePath)
		return nil
	}
	f, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(*data)
}

// Read back gob encoded data file, if not found or reset is set then load default config.
func LoadNetwork(model string, reset bool) (data *NetworkData, err error) {
	data = &NetworkData{
		Model:  model,
		MaxRun: 1,
		Stats:  []nnet.Stats{},
		Pred:   map[string][]int32{},
		Params: []LayerData{},
	}
	if !reset {
		if err = loadGob(model+".net", data); err != nil {
			reset = true
		}
	}
	if reset {
		data.Conf, err = nnet.LoadConfig(model + ".conf")
	}
	if data.Tuners == nil {
		for _, opt := range tuneOpts {
			data.Tuners = append(data.Tuners, TuneParams{
				Name:   opt,
				Values: []string{fmt.Sprint(data.Conf.Get(opt))},
			})
		}
	}
	return data, err
}

func loadGob(name string, data *NetworkData) error {
	filePath := path.Join(nnet.DataDir, name)
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()
	log.Println("loading network state from", name)
	return gob.NewDecoder(f).Decode(data)
}

// For hyperparameter tuning, get config per run
func getRunConfig(conf nnet.Config, params []TuneParams) []nnet.Config {
	for _, p := range params {
		conf = setConfig(conf, p.Name, p.Values[0])
	}
	logConfig(conf)
	list := permute(conf, params, len(params)-1, []nnet.Config{conf})
	log.Printf("getRunConfig: cases=%d\n", len(list))
	return list
}

func permute(conf nnet.Config, params []TuneParams, n int, list []nnet.Config) []nnet.Config {
	if n < 0 {
		return list
	}
	for i, val := range params[n].Values {
		if i > 0 {
			conf = setConfig(conf, params[n].Name, val)
			logConfig(conf)
			list = append(list, conf)
		}
		list = permute(conf, params, n-1, list)
	}
	return list
}

func setConfig(c nnet.Config, name string, val string) nnet.Config {
	var err error
	c, err = c.SetString(name, val)
	if err != nil {
		panic(err)
	}
	return c
}

func logConfig(c nnet.Config) {
	var s string
	for _, name := range tuneOpts {
		s += fmt.Sprintf("%s=%v ", name, c.Get(name))
	}
	log.Println("getRunConfig:", s)
}

func tuneParams(h HistoryData) string {
	plist := make([]string, len(tuneOpts))
	for i, p := range tuneOpts {
		plist[i] = fmt.Sprintf("%s=%v", tuneOptHtml[i], h.Conf.Get(p))
	}
	return strings.Join(plist, " ")
}

func seq(n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = i
	}
	return s
}
