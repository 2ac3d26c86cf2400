// Package chi is the HTTP transport: JSON handlers over the chat, catalog,
// retrieval and health use cases.
package chi

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/domain"
	dombatch "github.com/kailas-cloud/shopsearch/internal/domain/batch"
	"github.com/kailas-cloud/shopsearch/internal/domain/candidate"
	"github.com/kailas-cloud/shopsearch/internal/domain/conversation"
	"github.com/kailas-cloud/shopsearch/internal/domain/product"
	"github.com/kailas-cloud/shopsearch/internal/domain/query"
	"github.com/kailas-cloud/shopsearch/internal/logger"
	cataloguc "github.com/kailas-cloud/shopsearch/internal/usecase/catalog"
	chatuc "github.com/kailas-cloud/shopsearch/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/shopsearch/internal/usecase/health"
)

const (
	defaultMaxUploadBytes = 12 << 20
	multipartMemory       = 4 << 20
)

// allowedImageTypes are the sniffed content types accepted for uploads.
var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server implements ServerInterface.
type Server struct {
	chat           ChatService
	catalog        CatalogService
	search         SearchService
	health         HealthService
	maxUploadBytes int64
	logger         *zap.Logger
	errorHandlers  []errorHandler
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates an HTTP API server. maxUploadBytes caps request
// bodies; zero selects the default.
func NewServer(
	chat ChatService,
	catalog CatalogService,
	search SearchService,
	health HealthService,
	maxUploadBytes int64,
	logger *zap.Logger,
) *Server {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	s := &Server{
		chat:           chat,
		catalog:        catalog,
		search:         search,
		health:         health,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
	// Order matters: the first match wins.
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, ErrorCodeInvalidInput),
		sentinelHandler(domain.ErrEmbeddingFailure, http.StatusServiceUnavailable, ErrorCodeEmbeddingUnavailable),
		sentinelHandler(domain.ErrIndexUnavailable, http.StatusServiceUnavailable, ErrorCodeIndexUnavailable),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound),
	}
	return s
}

// CreateSession handles POST /sessions.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	id, err := s.chat.StartSession(r.Context(), req.OwnerID)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateSessionResponse{SessionID: id})
}

// QuerySession handles POST /sessions/{sessionID}/query. The body is JSON
// or multipart/form-data with an optional "image" file part.
func (s *Server) QuerySession(w http.ResponseWriter, r *http.Request, sessionID string) {
	req, err := s.queryRequest(w, r)
	if err != nil {
		s.rejectRequest(w, r, err)
		return
	}
	req.SessionID = sessionID

	resp, err := s.chat.HandleQuery(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	products := make([]ScoredProduct, len(resp.Products))
	for i := range resp.Products {
		products[i] = scoredToAPI(&resp.Products[i])
	}
	writeJSON(w, http.StatusOK, QueryResponse{
		Response:  resp.Text,
		Products:  products,
		NoResults: resp.NoResults,
		Category:  resp.Category,
		Tiers:     resp.Tiers,
		Degraded:  resp.Degraded,
	})
}

// GetHistory handles GET /sessions/{sessionID}/history.
func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request, sessionID string, params HistoryParams) {
	n := 0
	if params.Limit != nil {
		if *params.Limit < 0 {
			writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "limit must be non-negative")
			return
		}
		n = *params.Limit
	}

	turns, err := s.chat.History(r.Context(), sessionID, n)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	out := make([]Turn, len(turns))
	for i, t := range turns {
		out[i] = turnToAPI(t)
	}
	writeJSON(w, http.StatusOK, HistoryResponse{SessionID: sessionID, Turns: out})
}

// IngestProducts handles POST /products.
func (s *Server) IngestProducts(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	items := make([]cataloguc.Item, len(req.Products))
	for i, p := range req.Products {
		item, err := itemFromAPI(p)
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, fmt.Sprintf("products[%d]: %v", i, err))
			return
		}
		items[i] = item
	}

	report, err := s.catalog.Ingest(r.Context(), req.OwnerID, items)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	results := make([]IngestResult, len(report.Results))
	for i, res := range report.Results {
		results[i] = ingestResultToAPI(res)
	}
	status := http.StatusCreated
	if report.Failed > 0 {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, IngestResponse{
		Inserted: report.Inserted,
		Failed:   report.Failed,
		Results:  results,
	})
}

// GetProduct handles GET /products/{productID}.
func (s *Server) GetProduct(w http.ResponseWriter, r *http.Request, productID string) {
	p, err := s.catalog.Get(r.Context(), productID)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, productToAPI(&p))
}

// SearchProducts handles POST /products/search: one stateless retrieval
// with no session, history or composed reply.
func (s *Server) SearchProducts(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	params := query.Params{
		Owner:        req.OwnerID,
		Text:         req.Text,
		CategoryHint: req.Category,
		Limit:        req.Limit,
		MinScore:     req.MinScore,
	}
	if req.ImageBase64 != "" {
		img, err := decodeImage(req.ImageBase64)
		if err != nil {
			s.rejectRequest(w, r, err)
			return
		}
		params.Image = img
	}
	sort, err := query.ParseSort(req.Sort)
	if err != nil {
		s.handleDomainError(w, r, domain.NewStageError(domain.StageValidate, err))
		return
	}
	params.Sort = sort

	q, err := query.New(params)
	if err != nil {
		s.handleDomainError(w, r, domain.NewStageError(domain.StageValidate, err))
		return
	}

	res, err := s.search.Retrieve(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	products := make([]ScoredProduct, len(res.Products))
	for i := range res.Products {
		products[i] = scoredToAPI(&res.Products[i])
	}
	writeJSON(w, http.StatusOK, SearchResponse{
		Products:  products,
		NoResults: len(products) == 0,
		Category:  res.Category,
		Tiers:     res.Tiers,
		Degraded:  res.Degraded,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func (s *Server) queryRequest(w http.ResponseWriter, r *http.Request) (chatuc.Request, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return s.multipartQuery(w, r)
	}

	var body QueryRequest
	if err := s.decodeJSON(w, r, &body); err != nil {
		return chatuc.Request{}, err
	}
	req := chatuc.Request{
		Text:         body.Text,
		CategoryHint: body.Category,
		Limit:        body.Limit,
		MinScore:     body.MinScore,
		Sort:         body.Sort,
	}
	if body.ImageBase64 != "" {
		img, err := decodeImage(body.ImageBase64)
		if err != nil {
			return chatuc.Request{}, err
		}
		req.Image = img
	}
	return req, nil
}

func (s *Server) multipartQuery(w http.ResponseWriter, r *http.Request) (chatuc.Request, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return chatuc.Request{}, fmt.Errorf("invalid multipart form: %w", err)
	}
	req := chatuc.Request{
		Text:         r.FormValue("text"),
		CategoryHint: r.FormValue("category"),
		Sort:         r.FormValue("sort"),
	}
	if v := r.FormValue("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return chatuc.Request{}, fmt.Errorf("limit must be an integer")
		}
		req.Limit = n
	}
	if v := r.FormValue("min_score"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return chatuc.Request{}, fmt.Errorf("min_score must be a number")
		}
		req.MinScore = f
	}

	file, _, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		return chatuc.Request{}, fmt.Errorf("read image: %w", err)
	default:
		defer func() { _ = file.Close() }()
		img, err := io.ReadAll(file)
		if err != nil {
			return chatuc.Request{}, fmt.Errorf("read image: %w", err)
		}
		if err := checkImageType(img); err != nil {
			return chatuc.Request{}, err
		}
		req.Image = img
	}
	return req, nil
}

// decodeImage accepts raw base64 or a data URI. The declared data URI type
// is ignored; the bytes themselves must sniff as an allowed image.
func decodeImage(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	img, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("image_base64 is not valid base64")
	}
	if err := checkImageType(img); err != nil {
		return nil, err
	}
	return img, nil
}

func checkImageType(img []byte) error {
	ct := http.DetectContentType(img)
	if _, ok := allowedImageTypes[ct]; !ok {
		return domain.InvalidInputf("unsupported image type %q, want JPEG, PNG or WebP", ct)
	}
	return nil
}

// rejectRequest answers a request that failed to parse. Invalid input
// goes through the domain mapping; anything else is a plain bad request.
func (s *Server) rejectRequest(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrInvalidInput) {
		s.handleDomainError(w, r, domain.NewStageError(domain.StageValidate, err))
		return
	}
	writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request: "+err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a client-facing message without exposing
// internals. Invalid input detail is safe to echo; everything else is
// reduced to its sentinel text.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidInput) {
		var se *domain.StageError
		if errors.As(err, &se) {
			return se.Err.Error()
		}
		return err.Error()
	}
	for _, s := range []error{
		domain.ErrEmbeddingFailure,
		domain.ErrIndexUnavailable,
		domain.ErrNotFound,
	} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeJSON(w, status, ErrorResponse{
			Code:    code,
			Message: msg,
			Stage:   domain.StageOf(err),
		})
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.String("stage", domain.StageOf(err)), zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Code:    ErrorCodeInternalError,
		Message: "internal error",
		Stage:   domain.StageOf(err),
	})
}

func productToAPI(p *product.Product) Product {
	return Product{
		ID:          p.ID(),
		OwnerID:     p.OwnerID(),
		Name:        p.Name(),
		Description: p.Description(),
		Price:       p.Price(),
		Category:    p.Category(),
		ImageURL:    p.ImageURL(),
		InStock:     p.InStock(),
		CreatedAt:   p.CreatedAt(),
	}
}

func scoredToAPI(sp *candidate.ScoredProduct) ScoredProduct {
	return ScoredProduct{
		Product:   productToAPI(&sp.Product),
		Relevance: sp.Relevance,
		Source:    string(sp.Source),
		Breakdown: sp.Breakdown,
	}
}

func turnToAPI(t conversation.Turn) Turn {
	return Turn{
		Role:       string(t.Role),
		Text:       t.Text,
		ProductIDs: t.ProductIDs,
		Timestamp:  t.Timestamp,
	}
}

func itemFromAPI(p IngestItem) (cataloguc.Item, error) {
	item := cataloguc.Item{
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Category:    p.Category,
		ImageURL:    p.ImageURL,
		InStock:     p.InStock,
	}
	if p.ImageBase64 != "" {
		img, err := decodeImage(p.ImageBase64)
		if err != nil {
			return cataloguc.Item{}, err
		}
		item.Image = img
	}
	return item, nil
}

func ingestResultToAPI(r dombatch.Result) IngestResult {
	out := IngestResult{
		Index:  r.Index(),
		ID:     r.ID(),
		Name:   r.Name(),
		Status: string(r.Status()),
	}
	if r.Status() == dombatch.StatusError {
		out.Error = &ErrorBody{Code: itemErrorCode(r.Err()), Message: safeDomainMessage(r.Err())}
	}
	return out
}

func itemErrorCode(err error) ErrorCode {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return ErrorCodeInvalidInput
	case errors.Is(err, domain.ErrEmbeddingFailure):
		return ErrorCodeEmbeddingUnavailable
	case errors.Is(err, domain.ErrIndexUnavailable):
		return ErrorCodeIndexUnavailable
	default:
		return ErrorCodeInternalError
	}
}
