// Command gradplay-web serves the training dashboard.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"gradplay/nnet"
	"gradplay/web"
)

func main() {
	log.SetFlags(0)
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Println("usage: gradplay-web [opts] <model>")
		os.Exit(1)
	}
	model := flag.Arg(0)

	net, err := web.NewNetwork(model)
	nnet.CheckErr(err)

	t, err := web.NewTemplates()
	nnet.CheckErr(err)
	t.AddMenuItem(web.Link{Url: "/train", Name: "train"})
	t.AddMenuItem(web.Link{Url: "/view", Name: "view"})
	t.AddMenuItem(web.Link{Url: "/config", Name: "config"})

	trainPage := web.NewTrainPage(t.Clone(), net)
	viewPage := web.NewViewPage(t.Clone(), net)
	configPage := web.NewConfigPage(t.Clone(), net)

	r := mux.NewRouter()
	r.Handle("/", http.RedirectHandler("/train/stats", http.StatusFound))
	r.PathPrefix("/static/").Handler(http.FileServer(http.Dir(web.AssetDir)))

	r.Handle("/train", http.RedirectHandler("/train/stats", http.StatusFound))
	r.HandleFunc("/train/{cmd:(?:stats|start|stop|continue|tune)}", trainPage.Base())
	r.HandleFunc("/stats", trainPage.Stats())
	r.HandleFunc("/ws", trainPage.Websocket())

	r.HandleFunc("/view", viewPage.Base())
	r.HandleFunc("/view/{page:(?:boundary|scatter|activations)}", viewPage.Base())
	r.HandleFunc("/img/boundary", viewPage.Image())

	r.HandleFunc("/config", configPage.Base())
	r.HandleFunc("/config/load", configPage.Load())
	r.HandleFunc("/config/save", configPage.Save()).Methods("POST")
	r.HandleFunc("/config/reset", configPage.Reset())

	auth := web.NewAuthMiddleware()
	fmt.Printf("serving web page at http://localhost%s\n", *addr)
	err = http.ListenAndServe(*addr, auth.Middleware(r))
	nnet.CheckErr(err)
}
