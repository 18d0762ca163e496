package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/kjayal/clientvault"
)

// Service is the client-record surface the handler depends on.
type Service interface {
	Create(ctx context.Context, nc clientvault.NewClient) (clientvault.ClientRecord, error)
	Get(ctx context.Context, id uuid.UUID) (clientvault.ClientRecord, error)
	List(ctx context.Context, q clientvault.ListQuery) (clientvault.ListResult, error)
	AppendFile(ctx context.Context, id uuid.UUID, f clientvault.FileUpload) (clientvault.ClientRecord, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Broker is the grant-issuing surface the handler depends on.
type Broker interface {
	RequestUploadGrant(ctx context.Context, filename string, category clientvault.FileCategory) (clientvault.UploadGrant, error)
	RequestDownloadGrant(ctx context.Context, key string) (clientvault.UploadGrant, error)
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type HandlerConfig struct {
	CORS CORSConfig
}

// Handler provides HTTP handlers for the client record API.
type Handler struct {
	config  HandlerConfig
	service Service
	broker  Broker
}

// NewHandler creates a new Handler with the given configuration, service, and broker.
func NewHandler(config *HandlerConfig, service Service, broker Broker) *Handler {
	return &Handler{
		config:  *config,
		service: service,
		broker:  broker,
	}
}

// Router returns an http.Handler with all API routes configured.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestLogger)

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Get("/health", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/get-upload-url", h.handleUploadURL)
		r.Post("/get-download-url", h.handleDownloadURL)
		r.Route("/clients", func(r chi.Router) {
			r.Get("/", h.handleList)
			r.Post("/", h.handleCreate)
			r.Get("/{id}", h.handleGet)
			r.Delete("/{id}", h.handleDelete)
			r.Post("/{id}/files", h.handleAppendFile)
		})
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

type uploadURLRequest struct {
	FileName string `json:"filename"`
	Category string `json:"category"`
}

type grantResponse struct {
	Grant clientvault.UploadGrant `json:"grant"`
}

func (h *Handler) handleUploadURL(w http.ResponseWriter, r *http.Request) {
	var req uploadURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "Request body must be valid JSON")
		return
	}

	grant, err := h.broker.RequestUploadGrant(r.Context(), req.FileName, clientvault.FileCategory(req.Category))
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, grantResponse{Grant: grant})
}

type downloadURLRequest struct {
	Key string `json:"key"`
}

func (h *Handler) handleDownloadURL(w http.ResponseWriter, r *http.Request) {
	var req downloadURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "Request body must be valid JSON")
		return
	}

	grant, err := h.broker.RequestDownloadGrant(r.Context(), req.Key)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, grantResponse{Grant: grant})
}

type fileKeyPayload struct {
	Key       string `json:"key"`
	FileName  string `json:"file_name"`
	Category  string `json:"category"`
	SizeBytes int64  `json:"size_bytes"`
}

type createClientRequest struct {
	Name       string           `json:"name"`
	ExternalID string           `json:"external_id"`
	Address    string           `json:"address"`
	Email      string           `json:"email"`
	Phone      string           `json:"phone"`
	Notes      string           `json:"notes"`
	FileKeys   []fileKeyPayload `json:"file_keys"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "Request body must be valid JSON")
		return
	}

	nc := clientvault.NewClient{
		Name:       req.Name,
		ExternalID: req.ExternalID,
		Address:    req.Address,
		Email:      req.Email,
		Phone:      req.Phone,
		Notes:      req.Notes,
		Files:      make([]clientvault.FileUpload, 0, len(req.FileKeys)),
	}
	for _, f := range req.FileKeys {
		nc.Files = append(nc.Files, clientvault.FileUpload{
			Key:       f.Key,
			FileName:  f.FileName,
			Category:  clientvault.FileCategory(f.Category),
			SizeBytes: f.SizeBytes,
		})
	}

	rec, err := h.service.Create(r.Context(), nc)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusCreated, rec)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limitStr := r.URL.Query().Get("limit")
	cursor := r.URL.Query().Get("cursor")

	limit := 100
	if limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil {
			limit = max(1, min(1000, parsed))
		}
	}

	result, err := h.service.List(r.Context(), clientvault.ListQuery{Limit: limit, Cursor: cursor})
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleAppendFile(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req fileKeyPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "Request body must be valid JSON")
		return
	}

	rec, err := h.service.AppendFile(r.Context(), id, clientvault.FileUpload{
		Key:       req.Key,
		FileName:  req.FileName,
		Category:  clientvault.FileCategory(req.Category),
		SizeBytes: req.SizeBytes,
	})
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_id", "Client id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
