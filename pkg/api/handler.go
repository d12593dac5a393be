// Package api exposes text analysis and the study workflow over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pierrefittel/okura/pkg/analysis"
	"github.com/pierrefittel/okura/pkg/db"
	"github.com/pierrefittel/okura/pkg/logger"
	"github.com/pierrefittel/okura/pkg/study"
	"github.com/pierrefittel/okura/pkg/textfile"
	"github.com/pierrefittel/okura/pkg/tokenize"
)

// Analyzer is the analysis engine as seen by the handlers.
type Analyzer interface {
	Supports(lang string) bool
	Analyze(text, lang string) (*analysis.Result, error)
	AnalyzeFile(data []byte, filename, lang string) (*analysis.Result, error)
}

// StudyService is the card workflow as seen by the handlers.
type StudyService interface {
	CreateList(ctx context.Context, title, lang string) (db.List, error)
	Lists(ctx context.Context) ([]db.List, error)
	ImportCards(ctx context.Context, listID uuid.UUID, cards []db.NewCard) ([]db.Card, error)
	DeleteCard(ctx context.Context, id uuid.UUID) error
	DueCards(ctx context.Context, listID *uuid.UUID) ([]db.Card, error)
	SubmitReview(ctx context.Context, cardID uuid.UUID, quality int) (db.Card, error)
	Dashboard(ctx context.Context) (study.Dashboard, error)
}

// DefaultCandidateLang is used when a candidates request names no language.
const DefaultCandidateLang = tokenize.Japanese

// Handler serves the HTTP API.
type Handler struct {
	analyzer  Analyzer
	study     StudyService
	log       *slog.Logger
	maxUpload int64
	languages []string
	validate  *validator.Validate
}

// Options configures a Handler.
type Options struct {
	// MaxUploadBytes limits analyzed files. Zero means 5 MiB.
	MaxUploadBytes int64
	// Languages is reported by the health check.
	Languages []string
}

func NewHandler(log *slog.Logger, analyzer Analyzer, svc StudyService, opts Options) *Handler {
	if log == nil {
		log = slog.Default()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 5 << 20
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{
		analyzer:  analyzer,
		study:     svc,
		log:       log.With("component", "api"),
		maxUpload: opts.MaxUploadBytes,
		languages: opts.Languages,
		validate:  v,
	}
}

// Routes builds the router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(h.log))
	r.Use(middleware.Recoverer)

	r.Get("/health", h.Health)

	r.Route("/lists", func(r chi.Router) {
		r.Get("/", h.GetLists)
		r.Post("/", h.CreateList)

		r.Post("/analyze", h.Analyze)
		r.Post("/analyze/file", h.AnalyzeFile)
		r.Post("/analyze/candidates", h.Candidates)

		r.Post("/{listID}/cards/bulk", h.BulkCreateCards)
		r.Delete("/cards/{cardID}", h.DeleteCard)
		r.Post("/cards/{cardID}/review", h.ReviewCard)

		r.Get("/training/due", h.DueCards)
		r.Get("/dashboard/stats", h.DashboardStats)
	})

	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, HealthResponse{Status: "ok", Languages: h.languages})
}

// Analyze handles POST /lists/analyze.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	res, err := h.analyzer.Analyze(req.Text, req.Lang)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, NewAnalyzeResponse(res))
}

// AnalyzeFile handles POST /lists/analyze/file with a multipart "file"
// part and a "lang" field. The response carries the decoded text.
func (h *Handler) AnalyzeFile(w http.ResponseWriter, r *http.Request) {
	// Leave room for the multipart envelope and the lang field.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+64<<10)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			h.respondError(w, r, err)
			return
		}
		h.respondError(w, r, &ValidationError{Field: "file", Message: "expected multipart form data"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	lang := r.FormValue("lang")
	if lang == "" {
		h.respondError(w, r, &ValidationError{Field: "lang", Message: "required field"})
		return
	}
	f, fh, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, r, &ValidationError{Field: "file", Message: "required field"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUpload+1))
	if err != nil {
		h.respondError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}
	if int64(len(data)) > h.maxUpload {
		h.respondError(w, r, &analysis.DecodeError{Filename: fh.Filename, Err: textfile.ErrTooLarge})
		return
	}

	res, err := h.analyzer.AnalyzeFile(data, fh.Filename, lang)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	logger.FromContext(r.Context(), h.log).InfoContext(r.Context(), "file analyzed",
		"filename", fh.Filename, "bytes", len(data), "sentences", len(res.Sentences))
	respondJSON(w, r, http.StatusOK, NewAnalyzeResponse(res))
}

// Candidates handles POST /lists/analyze/candidates.
func (h *Handler) Candidates(w http.ResponseWriter, r *http.Request) {
	var req candidatesRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if req.Lang == "" {
		req.Lang = DefaultCandidateLang
	}
	res, err := h.analyzer.Analyze(req.Text, req.Lang)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	cands := res.Candidates
	if req.ContentOnly {
		cands = analysis.ContentWords(cands, res.Language)
	}
	respondJSON(w, r, http.StatusOK, NewCandidatesResponse(res.Language, cands))
}

// GetLists handles GET /lists/.
func (h *Handler) GetLists(w http.ResponseWriter, r *http.Request) {
	lists, err := h.study.Lists(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	out := make([]ListResponse, 0, len(lists))
	for _, l := range lists {
		out = append(out, listToResponse(l))
	}
	respondJSON(w, r, http.StatusOK, out)
}

// CreateList handles POST /lists/.
func (h *Handler) CreateList(w http.ResponseWriter, r *http.Request) {
	var req createListRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if !h.analyzer.Supports(req.Lang) {
		h.respondError(w, r, fmt.Errorf("%w: %q", analysis.ErrUnsupportedLanguage, req.Lang))
		return
	}
	l, err := h.study.CreateList(r.Context(), req.Title, req.Lang)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, listToResponse(l))
}

// BulkCreateCards handles POST /lists/{listID}/cards/bulk.
func (h *Handler) BulkCreateCards(w http.ResponseWriter, r *http.Request) {
	listID, err := pathUUID(r, "listID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req []newCardRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	cards := make([]db.NewCard, 0, len(req))
	for _, c := range req {
		cards = append(cards, c.toNewCard())
	}
	created, err := h.study.ImportCards(r.Context(), listID, cards)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, cardsToResponse(created))
}

// DeleteCard handles DELETE /lists/cards/{cardID}.
func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	cardID, err := pathUUID(r, "cardID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.study.DeleteCard(r.Context(), cardID); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReviewCard handles POST /lists/cards/{cardID}/review.
func (h *Handler) ReviewCard(w http.ResponseWriter, r *http.Request) {
	cardID, err := pathUUID(r, "cardID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req reviewRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if _, err := h.study.SubmitReview(r.Context(), cardID, *req.Quality); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DueCards handles GET /lists/training/due?list_id=.
func (h *Handler) DueCards(w http.ResponseWriter, r *http.Request) {
	var listID *uuid.UUID
	if raw := r.URL.Query().Get("list_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.respondError(w, r, &ValidationError{Field: "list_id", Message: "has invalid format"})
			return
		}
		listID = &id
	}
	cards, err := h.study.DueCards(r.Context(), listID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, cardsToResponse(cards))
}

// DashboardStats handles GET /lists/dashboard/stats.
func (h *Handler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	d, err := h.study.Dashboard(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, dashboardToResponse(d))
}

// decode reads a JSON body into v and validates it.
func (h *Handler) decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return &ValidationError{Message: "malformed JSON body"}
	}
	var err error
	if rv := reflect.Indirect(reflect.ValueOf(v)); rv.Kind() == reflect.Slice {
		err = h.validate.Var(rv.Interface(), "dive")
	} else {
		err = h.validate.Struct(v)
	}
	if err != nil {
		return newValidationError(err)
	}
	return nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, &ValidationError{Field: name, Message: "has invalid format"}
	}
	return id, nil
}
