// Package web has a web based interface for network training and visualisation.
package web

import (
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/sessions"
)

// AssetDir is the directory holding the html templates and static files.
var AssetDir = assetDir()

func assetDir() string {
	if dir := os.Getenv("GRADPLAY_ASSETS"); dir != "" {
		return dir
	}
	return "assets"
}

var sessionKey = []byte("ooRie0wiephe2chu")

const sessionName = "gradplay"

// Template and main menu definition
type Templates struct {
	*template.Template
	Menu    []Link
	Options []Link
	store   sessions.Store
}

type Link struct {
	Url      string
	Name     string
	Selected bool
	Submit   bool
}

// Load and parse templates and initialise main menu
func NewTemplates() (*Templates, error) {
	var err error
	t := &Templates{Menu: []Link{}, Options: []Link{}}
	t.Template, err = template.ParseGlob(AssetDir + "/*.html")
	if err != nil {
		return nil, err
	}
	t.store = sessions.NewCookieStore(sessionKey)
	return t, err
}

func (t *Templates) Clone() *Templates {
	return &Templates{
		Template: t.Template,
		Menu:     append([]Link{}, t.Menu...),
		Options:  append([]Link{}, t.Options...),
		store:    t.store,
	}
}

func (t *Templates) Select(url string) *Templates {
	for i, key := range t.Menu {
		t.Menu[i].Selected = strings.HasPrefix(key.Url, url)
	}
	return t
}

func (t *Templates) AddMenuItem(l Link) *Templates {
	t.Menu = append(t.Menu, l)
	return t
}

func (t *Templates) AddOption(l Link) *Templates {
	t.Options = append(t.Options, l)
	return t
}

// Get a session value with the given default.
func (t *Templates) SessionGet(r *http.Request, key, def string) string {
	session, err := t.store.Get(r, sessionName)
	if err != nil {
		return def
	}
	if val, ok := session.Values[key].(string); ok {
		return val
	}
	return def
}

// Store a session value in the response cookie.
func (t *Templates) SessionSet(w http.ResponseWriter, r *http.Request, key, val string) {
	session, _ := t.store.Get(r, sessionName)
	session.Values[key] = val
	if err := session.Save(r, w); err != nil {
		log.Println("error saving session:", err)
	}
}

func logError(w http.ResponseWriter, err error) {
	log.Println(err)
	http.Error(w, fmt.Sprint(err), http.StatusInternalServerError)
}
