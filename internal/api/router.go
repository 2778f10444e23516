package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
)

// RouterDeps are the collaborators shared by both router variants.
type RouterDeps struct {
	Auth *AuthHandler
	// Guard protects /private, normally auth.RequireSession.
	Guard func(http.Handler) http.Handler
	// Metrics instruments every route; nil disables it.
	Metrics *HTTPMetrics
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
	AllowedOrigins []string
}

type route struct {
	label   string
	path    string
	methods []string
	handler http.Handler
}

// routes lists every endpoint. Login flow endpoints are served under the canonical
// paths and, as aliases, under the other variant's paths.
func (d RouterDeps) routes(canonical, alias Paths) []route {
	h := d.Auth
	get := []string{http.MethodGet}

	flow := []struct {
		canonical, alias string
		methods          []string
		handler          http.HandlerFunc
	}{
		{canonical.Login, alias.Login, get, h.login},
		{canonical.Callback, alias.Callback, get, h.callback},
		{canonical.Logout, alias.Logout, []string{http.MethodGet, http.MethodPost}, h.logout},
	}

	var rs []route
	for _, f := range flow {
		rs = append(rs,
			route{f.canonical, f.canonical, f.methods, f.handler},
			route{f.canonical, f.alias, f.methods, f.handler},
		)
	}

	rs = append(rs,
		route{"/session", "/session", get, http.HandlerFunc(h.session)},
		route{"/profile", "/profile", get, http.HandlerFunc(h.profile)},
		route{"/health", "/health", get, http.HandlerFunc(HealthCheckHandler)},
		route{"/", "/", get, http.HandlerFunc(h.loginStatus)},
		route{"/public", "/public", get, http.HandlerFunc(h.loginStatus)},
	)
	if d.Guard != nil {
		rs = append(rs, route{"/private", "/private", get, d.Guard(http.HandlerFunc(h.private))})
	}
	for i := range rs {
		rs[i].handler = d.Metrics.wrap(rs[i].label, rs[i].handler)
	}
	if d.MetricsHandler != nil {
		rs = append(rs, route{"/metrics", "/metrics", get, d.MetricsHandler})
	}
	return rs
}

// NewRouter 创建 gorilla/mux 路由（/login, /callback, /logout）
func NewRouter(d RouterDeps) http.Handler {
	r := mux.NewRouter()
	for _, rt := range d.routes(MuxPaths, ChiPaths) {
		r.Handle(rt.path, rt.handler).Methods(rt.methods...)
	}
	// CORS wraps the router so preflights are answered before method matching.
	return NewCORSMiddleware(d.AllowedOrigins)(r)
}

// NewChiRouter 创建 chi 路由（/auth/login, /auth/callback, /auth/logout）
func NewChiRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(NewCORSMiddleware(d.AllowedOrigins))
	for _, rt := range d.routes(ChiPaths, MuxPaths) {
		for _, m := range rt.methods {
			r.Method(m, rt.path, rt.handler)
		}
	}
	return r
}
