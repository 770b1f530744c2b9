package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	appfiles "github.com/bryanwahyu/fileguard/internal/application/files"
	appsec "github.com/bryanwahyu/fileguard/internal/application/security"
	"github.com/bryanwahyu/fileguard/internal/domain/activity"
	domai "github.com/bryanwahyu/fileguard/internal/domain/ai"
	domfiles "github.com/bryanwahyu/fileguard/internal/domain/files"
	domsec "github.com/bryanwahyu/fileguard/internal/domain/security"
	"github.com/bryanwahyu/fileguard/internal/domain/threats"
	"github.com/bryanwahyu/fileguard/internal/middleware"
)

// maxMultipartMemory bounds the in-memory part of multipart parsing; larger
// bodies spill to temp files.
const maxMultipartMemory = 32 << 20

type Router struct {
	filesSvc *appfiles.Service
	secSvc   *appsec.Service
	log      *zap.Logger
}

func NewRouter(filesSvc *appfiles.Service, secSvc *appsec.Service, health http.HandlerFunc, log *zap.Logger) http.Handler {
	r := &Router{filesSvc: filesSvc, secSvc: secSvc, log: log}
	mux := chi.NewRouter()

	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	mux.Get("/health", health)
	mux.Get("/ready", middleware.ReadinessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/api", func(rt chi.Router) {
		rt.Post("/files/upload", r.wrap(r.handleUpload))
		rt.Get("/files", r.wrap(r.handleListFiles))
		rt.Get("/files/{id}", r.wrap(r.handleGetFile))
		rt.Get("/files/{id}/download", r.wrap(r.handleDownload))
		rt.Delete("/files/{id}", r.wrap(r.handleDeleteFile))
		rt.Post("/ai/analyze/{id}", r.wrap(r.handleReanalyze))
		rt.Get("/security/threats", r.wrap(r.handleThreats))
		rt.Patch("/security/threats/{id}", r.wrap(r.handleTransitionThreat))
		rt.Get("/security/audit", r.wrap(r.handleAuditLog))
	})

	return mux
}

// NewInternalRouter serves the service-to-service surface. The identity
// provider reports login outcomes here so the anomaly rules see them; callers
// authenticate with API keys, not user tokens.
func NewInternalRouter(secSvc *appsec.Service, log *zap.Logger) http.Handler {
	r := &Router{secSvc: secSvc, log: log}
	mux := chi.NewRouter()
	mux.Post("/activity", r.wrap(r.handleInternalActivity))
	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// statusError carries an explicit HTTP status through wrap
type statusError struct {
	code int
	err  error
}

func (e *statusError) Error() string { return e.err.Error() }

func badRequest(err error) error {
	return &statusError{code: http.StatusBadRequest, err: err}
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}

		var se *statusError
		switch {
		case errors.As(err, &se):
			http.Error(w, se.Error(), se.code)
		case errors.Is(err, domfiles.ErrNotFound),
			errors.Is(err, threats.ErrNotFound),
			errors.Is(err, sql.ErrNoRows):
			http.Error(w, "not found", http.StatusNotFound)
		case errors.Is(err, domai.ErrQuotaExceeded):
			http.Error(w, "ai quota exceeded", http.StatusTooManyRequests)
		case errors.Is(err, domsec.ErrFileTooLarge):
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		case errors.Is(err, domsec.ErrInvalidFile),
			errors.Is(err, threats.ErrInvalidStatus):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			r.log.Error("request failed",
				zap.Error(err),
				zap.String("path", req.URL.Path),
			)
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

func (r *Router) currentUser(req *http.Request) (string, error) {
	user := middleware.GetUserFromContext(req.Context())
	if user == "" {
		return "", &statusError{code: http.StatusUnauthorized, err: fmt.Errorf("authentication required")}
	}
	return user, nil
}

// POST /api/files/upload (multipart, field "file")
func (r *Router) handleUpload(w http.ResponseWriter, req *http.Request) error {
	user, err := r.currentUser(req)
	if err != nil {
		return err
	}

	if err := req.ParseMultipartForm(maxMultipartMemory); err != nil {
		return badRequest(fmt.Errorf("invalid multipart body: %w", err))
	}
	file, header, err := req.FormFile("file")
	if err != nil {
		return badRequest(fmt.Errorf("file field is required"))
	}
	defer file.Close()

	if err := middleware.ValidateFilename(header.Filename); err != nil {
		return badRequest(err)
	}

	middleware.IncrementUploads()

	result, err := r.filesSvc.Upload(req.Context(), appfiles.UploadCommand{
		OwnerID:     user,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     file,
		IPAddress:   req.RemoteAddr,
		UserAgent:   req.UserAgent(),
	})
	if errors.Is(err, domsec.ErrRejected) {
		middleware.IncrementUploadsRejected()
		// The verdict's details and recommendations go back to the end user.
		return writeJSON(w, http.StatusUnprocessableEntity, result)
	}
	if err != nil {
		return err
	}

	middleware.AddFindings(len(result.Findings))
	return writeJSON(w, http.StatusCreated, result)
}

// GET /api/files
func (r *Router) handleListFiles(w http.ResponseWriter, req *http.Request) error {
	user, err := r.currentUser(req)
	if err != nil {
		return err
	}

	list, err := r.filesSvc.List(req.Context(), user)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"files": list, "count": len(list)})
}

// GET /api/files/{id}
func (r *Router) handleGetFile(w http.ResponseWriter, req *http.Request) error {
	user, err := r.currentUser(req)
	if err != nil {
		return err
	}
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateFileID(id); err != nil {
		return badRequest(err)
	}

	f, err := r.filesSvc.Get(req.Context(), user, domfiles.FileID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, f)
}

// GET /api/files/{id}/download
func (r *Router) handleDownload(w http.ResponseWriter, req *http.Request) error {
	user, err := r.currentUser(req)
	if err != nil {
		return err
	}
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateFileID(id); err != nil {
		return badRequest(err)
	}

	res, err := r.filesSvc.Download(req.Context(), user, domfiles.FileID(id), req.RemoteAddr, req.UserAgent())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, res)
}

// DELETE /api/files/{id}
func (r *Router) handleDeleteFile(w http.ResponseWriter, req *http.Request) error {
	user, err := r.currentUser(req)
	if err != nil {
		return err
	}
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateFileID(id); err != nil {
		return badRequest(err)
	}

	if err := r.filesSvc.Delete(req.Context(), user, domfiles.FileID(id), req.RemoteAddr, req.UserAgent()); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"message": "file deleted"})
}

// POST /api/ai/analyze/{id}
func (r *Router) handleReanalyze(w http.ResponseWriter, req *http.Request) error {
	user, err := r.currentUser(req)
	if err != nil {
		return err
	}
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateFileID(id); err != nil {
		return badRequest(err)
	}

	analysis, err := r.filesSvc.Reanalyze(req.Context(), user, domfiles.FileID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, analysis)
}

// GET /api/security/threats
func (r *Router) handleThreats(w http.ResponseWriter, req *http.Request) error {
	user, err := r.currentUser(req)
	if err != nil {
		return err
	}

	records, err := r.secSvc.GetThreats(req.Context(), user)
	if err != nil {
		return err
	}
	summary, err := r.secSvc.ThreatSummary(req.Context(), user)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{
		"threats": records,
		"summary": summary,
	})
}

// PATCH /api/security/threats/{id}
// Body: {"status": "resolved" | "false_positive" | "active"}
func (r *Router) handleTransitionThreat(w http.ResponseWriter, req *http.Request) error {
	if _, err := r.currentUser(req); err != nil {
		return err
	}
	id := chi.URLParam(req, "id")

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest(fmt.Errorf("invalid body: %w", err))
	}

	if err := r.secSvc.TransitionThreat(req.Context(), id, threats.Status(body.Status)); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": body.Status})
}

// POST /internal/activity
// Body: {"user_id", "activity_type", "ip_address", "user_agent", "details"}
func (r *Router) handleInternalActivity(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		UserID    string         `json:"user_id"`
		Type      string         `json:"activity_type"`
		IPAddress string         `json:"ip_address"`
		UserAgent string         `json:"user_agent"`
		Details   map[string]any `json:"details"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest(fmt.Errorf("invalid body: %w", err))
	}
	if err := middleware.ValidateUserID(body.UserID); err != nil {
		return badRequest(err)
	}
	typ := activity.Type(body.Type)
	if !activity.ValidType(typ) {
		return badRequest(fmt.Errorf("unknown activity type %q", body.Type))
	}

	details := body.Details
	if details == nil {
		details = map[string]any{}
	}
	if body.IPAddress != "" {
		details["ip_address"] = body.IPAddress
	}
	if body.UserAgent != "" {
		details["user_agent"] = body.UserAgent
	}

	findings := r.secSvc.RecordActivity(req.Context(), body.UserID, typ, details)
	middleware.AddFindings(len(findings))
	return writeJSON(w, http.StatusOK, map[string]any{
		"recorded": true,
		"findings": findings,
	})
}

// GET /api/security/audit?limit=100
func (r *Router) handleAuditLog(w http.ResponseWriter, req *http.Request) error {
	user, err := r.currentUser(req)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	limit = middleware.ValidateLimit(limit)

	events := r.secSvc.GetAuditLog(user, limit)
	return writeJSON(w, http.StatusOK, map[string]any{"audit_log": events, "count": len(events)})
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
