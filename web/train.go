package web

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gradplay/nnet"
)

const dpi = 96

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type TrainPage struct {
	*Templates
	net *Network
}

// Base data for handler functions to perform network training and display the stats
func NewTrainPage(t *Templates, net *Network) *TrainPage {
	p := &TrainPage{net: net}
	p.Templates = t.Select("/train")
	p.AddOption(Link{Name: "start", Url: "/train/start"})
	p.AddOption(Link{Name: "stop", Url: "/train/stop"})
	p.AddOption(Link{Name: "continue", Url: "/train/continue"})
	p.AddOption(Link{Name: "tune", Url: "/train/tune"})
	return p
}

// Handler function for the train template
func (p *TrainPage) Base() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		cmd := mux.Vars(r)["cmd"]
		p.net.Lock()
		defer p.net.Unlock()
		switch cmd {
		case "start", "continue":
			if p.net.running {
				log.Println("skip start - already running")
			} else if err := p.net.Train(cmd == "start"); err != nil {
				logError(w, err)
				return
			}
			http.Redirect(w, r, "/train/stats", http.StatusFound)
		case "stop":
			p.net.stop = true
			http.Redirect(w, r, "/train/stats", http.StatusFound)
		case "tune":
			p.net.tuneMode = !p.net.tuneMode
			http.Redirect(w, r, "/train/stats", http.StatusFound)
		default:
			if err := p.ExecuteTemplate(w, "train", p); err != nil {
				logError(w, err)
			}
		}
	}
}

// Handler function for the stats frame
func (p *TrainPage) Stats() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		p.net.Lock()
		defer p.net.Unlock()
		if err := p.ExecuteTemplate(w, "stats", p); err != nil {
			logError(w, err)
		}
	}
}

// Handler function for websocket connection
func (p *TrainPage) Websocket() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		p.net.conn, err = upgrader.Upgrade(w, r, nil)
		if err != nil {
			logError(w, err)
		}
	}
}

func (p *TrainPage) Heading() template.HTML {
	return p.net.heading()
}

func (p *TrainPage) Headers() []string {
	return p.net.test.Headers
}

func (p *TrainPage) LatestStats(n int) []nnet.Stats {
	last := len(p.net.test.Stats) - 1
	res := []nnet.Stats{}
	for i := last; i >= 0 && i > last-n; i-- {
		res = append(res, p.net.test.Stats[i])
	}
	return res
}

func (p *TrainPage) History() []HistoryEntry {
	var entries []HistoryEntry
	for _, h := range p.net.History {
		entries = append(entries, HistoryEntry{
			Stats:  h.Stats,
			Params: template.HTML(tuneParams(h)),
		})
	}
	return entries
}

type HistoryEntry struct {
	Stats  nnet.Stats
	Params template.HTML
}

func (p *TrainPage) RunTime() string {
	if len(p.net.test.Stats) == 0 {
		return ""
	}
	elapsed := p.net.test.Stats[len(p.net.test.Stats)-1].Elapsed
	return fmt.Sprintf("run time: %s", elapsed.Round(10*time.Millisecond))
}

func (p *TrainPage) LossPlot(width, height int) template.HTML {
	plt := newPlot()
	plt.X.Label.Text = "epoch"
	line := newLinePlot(p.net.test.Stats, 0, 1)
	plt.Add(line)
	plt.Legend.Add("training loss ", line)
	return writePlot(plt, width, height)
}

func (p *TrainPage) ErrorPlot(width, height int) template.HTML {
	plt := newPlot()
	plt.X.Label.Text = "epoch"
	for i, name := range p.Headers()[1:] {
		line := newLinePlot(p.net.test.Stats, i+1, 100)
		plt.Add(line)
		plt.Legend.Add(name+" % ", line)
	}
	return writePlot(plt, width, height)
}

// GradientPlot shows the gradient norm per weight layer averaged over each epoch.
func (p *TrainPage) GradientPlot(width, height int) template.HTML {
	plt := newPlot()
	plt.X.Label.Text = "epoch"
	plt.Y.Label.Text = "gradient norm"
	grads := p.net.grads
	batches := p.net.trainData.Batches()
	means := grads.EpochMeans(batches)
	for i, name := range grads.Names {
		pts := make(plotter.XYs, len(means))
		for epoch, rec := range means {
			pts[epoch].X = float64(epoch + 1)
			pts[epoch].Y = rec[i]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			log.Println("GradientPlot:", err)
			continue
		}
		line.Width = 2
		line.Color = plotutil.Color(i)
		plt.Add(line)
		plt.Legend.Add(name+" ", line)
	}
	return writePlot(plt, width, height)
}

func newPlot() *plot.Plot {
	p := plot.New()
	p.X.Padding, p.Y.Padding = 0, 0
	p.X.Tick.Label.Font.Size = 10
	p.Y.Tick.Label.Font.Size = 10
	p.Legend.Top = true
	p.Legend.TextStyle.Font.Size = 12
	p.Add(plotter.NewGrid())
	return p
}

func writePlot(p *plot.Plot, w, h int) template.HTML {
	var buf bytes.Buffer
	writer, err := p.WriterTo(vg.Inch*vg.Length(w)/dpi, vg.Inch*vg.Length(h)/dpi, "svg")
	if err != nil {
		log.Println("error writing plot:", err)
		return ""
	}
	writer.WriteTo(&buf)
	return template.HTML(buf.String())
}

// plot of an activation function and its derivative
func activationPlot(atype string, width, height int) template.HTML {
	plt := newPlot()
	plt.Title.Text = atype
	const points = 101
	fn := make(plotter.XYs, points)
	deriv := make(plotter.XYs, points)
	for i := 0; i < points; i++ {
		x := -4 + 8*float64(i)/float64(points-1)
		y, dy := activationCurve(atype, x)
		fn[i].X, fn[i].Y = x, y
		deriv[i].X, deriv[i].Y = x, dy
	}
	l1, err := plotter.NewLine(fn)
	if err != nil {
		log.Println("activationPlot:", err)
		return ""
	}
	l1.Width = 2
	l1.Color = plotutil.Color(0)
	l2, err := plotter.NewLine(deriv)
	if err != nil {
		log.Println("activationPlot:", err)
		return ""
	}
	l2.Width = 2
	l2.Color = plotutil.Color(1)
	l2.Dashes = plotutil.Dashes(1)
	plt.Add(l1, l2)
	plt.Legend.Add("f(x) ", l1)
	plt.Legend.Add("f'(x) ", l2)
	return writePlot(plt, width, height)
}

func newLinePlot(stats []nnet.Stats, ix int, scale float64) linePlot {
	var pt struct{ X, Y float64 }
	var pts plotter.XYs
	xmax, ymax := 1.0, 0.0
	for _, s := range stats {
		pt.X, pt.Y = float64(s.Epoch), s.Values[ix]*scale
		pts = append(pts, pt)
		if pt.X > xmax {
			xmax = pt.X
		}
		if pt.Y > ymax {
			ymax = pt.Y
		}
	}
	l, _ := plotter.NewLine(pts)
	l.Width = 2
	l.Color = plotutil.Color(ix)
	return linePlot{Line: l, xmin: 1, xmax: xmax, ymin: 0, ymax: ymax}
}

// modified plotter.Line with a fixed scale
type linePlot struct {
	*plotter.Line
	xmin, xmax, ymin, ymax float64
}

func (l linePlot) DataRange() (xmin, xmax, ymin, ymax float64) {
	return l.xmin, l.xmax, l.ymin, l.ymax
}
