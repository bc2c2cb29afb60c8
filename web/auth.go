package web

import (
	"crypto/subtle"
	"log"
	"net/http"
	"os"

	"github.com/goji/httpauth"
	"github.com/gorilla/securecookie"
)

const (
	cookieName  = "gradplay-auth"
	cookieValue = "authenticated"
)

type AuthMiddleware struct {
	sc   *securecookie.SecureCookie
	opts httpauth.AuthOptions
	user string
	pass string
}

// Setup new middleware for authenticating requests. Credentials are read from
// the GRADPLAY_USER and GRADPLAY_PASS environment variables, if these are not
// set then authentication is disabled.
func NewAuthMiddleware() AuthMiddleware {
	mw := AuthMiddleware{
		sc:   securecookie.New(securecookie.GenerateRandomKey(32), securecookie.GenerateRandomKey(32)),
		user: os.Getenv("GRADPLAY_USER"),
		pass: os.Getenv("GRADPLAY_PASS"),
	}
	mw.opts = httpauth.AuthOptions{Realm: "Restricted", AuthFunc: mw.authUser}
	return mw
}

// If session cookie is not present then use basic auth to login and set a cookie.
func (mw AuthMiddleware) Middleware(next http.Handler) http.Handler {
	if mw.user == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(cookieName); err == nil {
			var value string
			if err = mw.sc.Decode(cookieName, cookie.Value, &value); err == nil && value == cookieValue {
				next.ServeHTTP(w, r)
				return
			}
		}
		httpauth.BasicAuth(mw.opts)(mw.setCookie(next)).ServeHTTP(w, r)
	})
}

func (mw AuthMiddleware) setCookie(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if encoded, err := mw.sc.Encode(cookieName, cookieValue); err == nil {
			cookie := &http.Cookie{Name: cookieName, Value: encoded, Path: "/"}
			http.SetCookie(w, cookie)
		} else {
			log.Println("error encoding cookie:", err)
		}
		h.ServeHTTP(w, r)
	})
}

func (mw AuthMiddleware) authUser(user, pass string, r *http.Request) bool {
	ok := subtle.ConstantTimeCompare([]byte(user), []byte(mw.user)) == 1 &&
		subtle.ConstantTimeCompare([]byte(pass), []byte(mw.pass)) == 1
	log.Println("auth", user, ok)
	return ok
}
