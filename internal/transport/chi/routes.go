package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/metrics"
)

// ServerInterface lists the API operations.
type ServerInterface interface {
	// (POST /sessions)
	CreateSession(w http.ResponseWriter, r *http.Request)
	// (POST /sessions/{sessionID}/query)
	QuerySession(w http.ResponseWriter, r *http.Request, sessionID string)
	// (GET /sessions/{sessionID}/history)
	GetHistory(w http.ResponseWriter, r *http.Request, sessionID string, params HistoryParams)
	// (POST /products)
	IngestProducts(w http.ResponseWriter, r *http.Request)
	// (POST /products/search)
	SearchProducts(w http.ResponseWriter, r *http.Request)
	// (GET /products/{productID})
	GetProduct(w http.ResponseWriter, r *http.Request, productID string)
	// (GET /health)
	HealthCheck(w http.ResponseWriter, r *http.Request)
}

// ParamError reports a path or query parameter that failed to bind.
type ParamError struct {
	ParamName string
	Err       error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid format for parameter %s: %v", e.ParamName, e.Err)
}

func (e *ParamError) Unwrap() error { return e.Err }

// RouterOptions configure Handler.
type RouterOptions struct {
	BaseRouter       chi.Router
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// Handler mounts si onto opts.BaseRouter (a new router when nil), plus
// the Prometheus /metrics endpoint.
func Handler(si ServerInterface, opts RouterOptions) http.Handler {
	r := opts.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if opts.ErrorHandlerFunc == nil {
		opts.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		}
	}
	w := &wrapper{handler: si, onError: opts.ErrorHandlerFunc}

	r.Post("/sessions", si.CreateSession)
	r.Post("/sessions/{sessionID}/query", w.querySession)
	r.Get("/sessions/{sessionID}/history", w.getHistory)
	r.Post("/products", si.IngestProducts)
	r.Post("/products/search", si.SearchProducts)
	r.Get("/products/{productID}", w.getProduct)
	r.Get("/health", si.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

// wrapper binds parameters before calling the typed handler.
type wrapper struct {
	handler ServerInterface
	onError func(w http.ResponseWriter, r *http.Request, err error)
}

func (w *wrapper) pathParam(r *http.Request, name string) (string, error) {
	var v string
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &v,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return "", &ParamError{ParamName: name, Err: err}
	}
	return v, nil
}

func (w *wrapper) querySession(rw http.ResponseWriter, r *http.Request) {
	sessionID, err := w.pathParam(r, "sessionID")
	if err != nil {
		w.onError(rw, r, err)
		return
	}
	w.handler.QuerySession(rw, r, sessionID)
}

func (w *wrapper) getHistory(rw http.ResponseWriter, r *http.Request) {
	sessionID, err := w.pathParam(r, "sessionID")
	if err != nil {
		w.onError(rw, r, err)
		return
	}
	var params HistoryParams
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &params.Limit); err != nil {
		w.onError(rw, r, &ParamError{ParamName: "limit", Err: err})
		return
	}
	w.handler.GetHistory(rw, r, sessionID, params)
}

func (w *wrapper) getProduct(rw http.ResponseWriter, r *http.Request) {
	productID, err := w.pathParam(r, "productID")
	if err != nil {
		w.onError(rw, r, err)
		return
	}
	w.handler.GetProduct(rw, r, productID)
}

// NewRouter builds the full middleware stack around s.
func NewRouter(s ServerInterface, apiKeys []string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware("/metrics"))
	return Handler(s, RouterOptions{
		BaseRouter: r,
		ErrorHandlerFunc: func(w http.ResponseWriter, _ *http.Request, err error) {
			writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid request: "+err.Error())
		},
	})
}
