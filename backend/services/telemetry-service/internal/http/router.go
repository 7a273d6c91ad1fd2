package httpserver

import (
	"net/http"

	"github.com/rs/cors"
)

// Routes defines HTTP endpoints. Nil handlers are not mounted.
type Routes struct {
	Ingest      http.Handler
	State       http.HandlerFunc
	Transitions http.HandlerFunc
	Redirect    http.HandlerFunc
	Health      http.HandlerFunc
	Metrics     http.Handler

	DashboardPath  string
	DashboardPage  http.HandlerFunc
	DashboardView  http.HandlerFunc
	TrendChart     http.HandlerFunc
	StatusChart    http.HandlerFunc
	DashboardWS    http.HandlerFunc
	AllowedOrigins []string
}

// NewRouter sets up HTTP routing.
func NewRouter(routes Routes) http.Handler {
	mux := http.NewServeMux()
	if routes.Ingest != nil {
		mux.Handle("/api/data", method(http.MethodPost, routes.Ingest.ServeHTTP))
	}
	if routes.State != nil {
		mux.Handle("/api/state", method(http.MethodGet, routes.State))
	}
	if routes.Transitions != nil {
		mux.Handle("/api/transitions", method(http.MethodGet, routes.Transitions))
	}
	if routes.Health != nil {
		mux.Handle("/health", method(http.MethodGet, routes.Health))
	}
	if routes.Metrics != nil {
		mux.Handle("/metrics", method(http.MethodGet, routes.Metrics.ServeHTTP))
	}
	if routes.Redirect != nil {
		mux.Handle("/", exactPath("/", method(http.MethodGet, routes.Redirect)))
	}

	base := routes.DashboardPath
	if base == "" {
		base = "/dashboard/"
	}
	if routes.DashboardPage != nil {
		mux.Handle(base, exactPath(base, method(http.MethodGet, routes.DashboardPage)))
	}
	if routes.DashboardView != nil {
		mux.Handle(base+"api/view", method(http.MethodGet, routes.DashboardView))
	}
	if routes.TrendChart != nil {
		mux.Handle(base+"charts/temperature-humidity.svg", method(http.MethodGet, routes.TrendChart))
	}
	if routes.StatusChart != nil {
		mux.Handle(base+"charts/device-state.svg", method(http.MethodGet, routes.StatusChart))
	}
	if routes.DashboardWS != nil {
		mux.Handle(base+"ws", method(http.MethodGet, routes.DashboardWS))
	}

	return withCORS(mux, routes.AllowedOrigins)
}

func withCORS(handler http.Handler, origins []string) http.Handler {
	if len(origins) == 0 {
		return handler
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(handler)
}

// exactPath answers 404 for everything a subtree pattern catches except path itself,
// so unknown paths never reach the method check.
func exactPath(path string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path {
			http.NotFound(w, r)
			return
		}
		handler(w, r)
	}
}

func method(expected string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	}
}
