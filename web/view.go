package web

import (
	"fmt"
	"html/template"
	"image"
	"image/color"
	"image/png"
	"log"
	"math"
	"net/http"

	"github.com/gorilla/mux"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gradplay/nnet"
	"gradplay/num"
)

const (
	gridSize = 50
	cellPix  = 6
	margin   = 0.2
)

// color map from class 0 to class 1
var cmap = [][3]float32{{0, 0, .5}, {0, .5, 1}, {1, 1, 1}, {1, .5, 0}, {.5, 0, 0}}

type ViewPage struct {
	*Templates
	Page string
	net  *Network
}

// Base data for handler functions to view the decision boundary and activations
func NewViewPage(t *Templates, net *Network) *ViewPage {
	p := &ViewPage{net: net, Templates: t}
	p.Templates = t.Select("/view")
	return p
}

// Handler function for the main view page
func (p *ViewPage) Base() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		p.net.Lock()
		defer p.net.Unlock()
		p.Page = mux.Vars(r)["page"]
		if p.Page == "" {
			p.Page = p.SessionGet(r, "viewPage", "boundary")
		}
		p.SessionSet(w, r, "viewPage", p.Page)
		if err := p.ExecuteTemplate(w, "view", p); err != nil {
			logError(w, err)
		}
	}
}

// Handler function to generate the decision boundary image
func (p *ViewPage) Image() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		p.net.Lock()
		defer p.net.Unlock()
		p.net.view.update()
		w.Header().Set("Content-type", "image/png")
		if err := png.Encode(w, p.net.view.img); err != nil {
			logError(w, err)
		}
	}
}

// Activation curve plot for each activation layer in the network
func (p *ViewPage) Activations() []template.HTML {
	var plots []template.HTML
	seen := map[string]bool{}
	for _, layer := range p.net.Network.Layers {
		if layer.IsActiv() && !seen[layer.Type()] {
			seen[layer.Type()] = true
			plots = append(plots, activationPlot(layer.Type(), 250, 250))
		}
	}
	return plots
}

// ScatterPlot shows the dataset points colored by class label.
func (p *ViewPage) ScatterPlot(width, height int) template.HTML {
	v := p.net.view
	plt := newPlot()
	plt.Title.Text = v.dset + " data"
	series := make([]plotter.XYs, 2)
	for i, label := range v.labels {
		series[int(label)] = append(series[int(label)], plotter.XY{
			X: float64(v.points[2*i]),
			Y: float64(v.points[2*i+1]),
		})
	}
	for i, pts := range series {
		s, err := plotter.NewScatter(pts)
		if err != nil {
			log.Println("ScatterPlot:", err)
			continue
		}
		s.GlyphStyle.Color = plotutil.Color(i)
		s.GlyphStyle.Radius = 2
		plt.Add(s)
		plt.Legend.Add(fmt.Sprintf("class %d ", i), s)
	}
	return writePlot(plt, width, height)
}

// Data used to render the decision boundary over the input space
type viewData struct {
	net     *nnet.Network
	queue   num.Queue
	dset    string
	data    nnet.Data
	labels  []int32
	points  []float32
	input   num.Array
	probs   []float32
	img     *image.NRGBA
	xmin    float32
	ymin    float32
	xmax    float32
	ymax    float32
}

func newViewData(dev num.Device, data map[string]nnet.Data, conf nnet.Config) *viewData {
	v := &viewData{queue: dev.NewQueue()}
	if d, ok := data["test"]; ok {
		v.dset, v.data = "test", d
	} else {
		v.dset, v.data = "train", data["train"]
	}
	v.net = nnet.New(v.queue, conf, gridSize*gridSize, v.data.Shape())
	v.xmin, v.ymin, v.xmax, v.ymax = nnet.Bounds(v.data, margin)

	// fixed grid of sample points over the input space
	grid := make([]float32, 2*gridSize*gridSize)
	for iy := 0; iy < gridSize; iy++ {
		y := v.ymin + (v.ymax-v.ymin)*float32(iy)/float32(gridSize-1)
		for ix := 0; ix < gridSize; ix++ {
			x := v.xmin + (v.xmax-v.xmin)*float32(ix)/float32(gridSize-1)
			grid[2*(iy*gridSize+ix)] = x
			grid[2*(iy*gridSize+ix)+1] = y
		}
	}
	v.input = dev.NewArray(num.Float32, gridSize*gridSize, 2)
	v.queue.Call(num.Write(v.input, grid))
	v.probs = make([]float32, gridSize*gridSize)

	n := v.data.Len()
	v.labels = make([]int32, n)
	v.points = make([]float32, 2*n)
	v.data.Label(seq(n), v.labels)
	v.data.Input(seq(n), v.points)
	v.img = image.NewNRGBA(image.Rect(0, 0, gridSize*cellPix, gridSize*cellPix))
	return v
}

func (v *viewData) loadWeights(net *nnet.Network) {
	net.CopyTo(v.net)
}

// update the decision boundary image from the current weights
func (v *viewData) update() {
	yPred := v.net.Fprop(v.input)
	v.queue.Call(num.Read(yPred, v.probs)).Finish()
	// grid cells colored by predicted probability
	for iy := 0; iy < gridSize; iy++ {
		for ix := 0; ix < gridSize; ix++ {
			col := mapColor(v.probs[iy*gridSize+ix], 0, 1)
			for py := 0; py < cellPix; py++ {
				for px := 0; px < cellPix; px++ {
					v.img.Set(ix*cellPix+px, (gridSize-1-iy)*cellPix+py, col)
				}
			}
		}
	}
	// overlay the dataset points
	for i, label := range v.labels {
		px := int(float32(gridSize*cellPix-1) * (v.points[2*i] - v.xmin) / (v.xmax - v.xmin))
		py := int(float32(gridSize*cellPix-1) * (v.points[2*i+1] - v.ymin) / (v.ymax - v.ymin))
		drawPoint(v.img, px, gridSize*cellPix-1-py, label)
	}
}

// dataset points are drawn as a 3x3 square with a black border
func drawPoint(img *image.NRGBA, x, y int, label int32) {
	col := color.NRGBA{255, 255, 255, 255}
	if label == 1 {
		col = color.NRGBA{40, 40, 40, 255}
	}
	border := color.NRGBA{0, 0, 0, 255}
	bounds := img.Bounds()
	for dy := -2; dy <= 2; dy++ {
		for dx := -2; dx <= 2; dx++ {
			px, py := x+dx, y+dy
			if px < 0 || py < 0 || px >= bounds.Dx() || py >= bounds.Dy() {
				continue
			}
			if dx > -2 && dx < 2 && dy > -2 && dy < 2 {
				img.Set(px, py, col)
			} else {
				img.Set(px, py, border)
			}
		}
	}
}

// convert value in range cmin:cmax to interpolated color from cmap
func mapColor(val float32, cmin, cmax float32) color.NRGBA {
	var col [3]float32
	ncol := len(cmap)
	switch {
	case val <= cmin:
		col = cmap[0]
	case val >= cmax:
		col = cmap[ncol-1]
	default:
		vsc := float32(ncol-1) * (val - cmin) / (cmax - cmin)
		ix := int(vsc)
		fx := vsc - float32(ix)
		for i := range col {
			col[i] = cmap[ix][i]*(1-fx) + cmap[ix+1][i]*fx
		}
	}
	return color.NRGBA{uint8(col[0] * 255), uint8(col[1] * 255), uint8(col[2] * 255), 255}
}

// sample the activation function and its derivative for plotting
func activationCurve(atype string, x float64) (y, dy float64) {
	switch atype {
	case "sigmoid", "logistic":
		y = 1 / (1 + math.Exp(-x))
		dy = y * (1 - y)
	case "tanh":
		y = math.Tanh(x)
		dy = 1 - y*y
	case "relu":
		if x > 0 {
			y, dy = x, 1
		}
	case "leakyRelu":
		if x > 0 {
			y, dy = x, 1
		} else {
			y, dy = nnet.DefaultLeak*x, nnet.DefaultLeak
		}
	default:
		log.Println("activationCurve: unknown type", atype)
	}
	return y, dy
}
