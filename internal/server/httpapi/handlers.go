// Package httpapi exposes the intake pipeline over HTTP: upload credentials,
// record reads and the storage event trigger.
package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/fileintake/internal/common"
	"github.com/dmitrijs2005/fileintake/internal/logging"
	"github.com/dmitrijs2005/fileintake/internal/server/models"
	"github.com/dmitrijs2005/fileintake/internal/server/services"
	"github.com/go-chi/chi/v5"
)

// maxEventBytes bounds the storage event payload.
const maxEventBytes = 1 << 20

type CredentialIssuer interface {
	Issue(ctx context.Context, req services.UploadURLRequest) (*services.UploadCredential, error)
}

type RecordReader interface {
	Get(ctx context.Context, fileID string) (*models.FileRecord, error)
	History(ctx context.Context, fileID string) ([]models.StatusChange, error)
}

type EventIntake interface {
	HandleRaw(ctx context.Context, body []byte) (*services.IntakeResult, error)
}

// Handler implements the API endpoints.
type Handler struct {
	credentials CredentialIssuer
	records     RecordReader
	intake      EventIntake
	logger      logging.Logger
}

func NewHandler(c CredentialIssuer, r RecordReader, i EventIntake, l logging.Logger) *Handler {
	return &Handler{credentials: c, records: r, intake: i, logger: l.With("module", "httpapi")}
}

type intakeResponse struct {
	Message        string   `json:"message"`
	ProcessedFiles int      `json:"processed_files"`
	FailedFiles    int      `json:"failed_files"`
	FileIDs        []string `json:"file_ids,omitempty"`
}

type historyResponse struct {
	FileID  string                `json:"fileId"`
	History []models.StatusChange `json:"history"`
}

// UploadURL handles GET /api/v1/upload-url?filename=&content_type=&size=.
func (h *Handler) UploadURL(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := services.UploadURLRequest{
		Filename:    q.Get("filename"),
		ContentType: q.Get("content_type"),
	}

	if req.Filename == "" {
		writeError(w, http.StatusBadRequest, "filename parameter is required")
		return
	}

	if s := q.Get("size"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "size must be an integer number of bytes")
			return
		}
		req.Size = n
	}

	cred, err := h.credentials.Issue(r.Context(), req)
	if err != nil {
		var ve *services.ValidationError
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusBadRequest, errorBody{
				Error: ve.Message, Timestamp: timestamp(), Extension: ve.Extension, Allowed: ve.Allowed,
			})
			return
		}
		h.logger.Error(r.Context(), "issue upload url failed", "filename", req.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, cred)
}

// GetFile handles GET /api/v1/files/{fileId}.
func (h *Handler) GetFile(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileId")

	rec, err := h.records.Get(r.Context(), fileID)
	if err != nil {
		h.readError(w, r, fileID, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetFileHistory handles GET /api/v1/files/{fileId}/history.
func (h *Handler) GetFileHistory(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileId")

	hist, err := h.records.History(r.Context(), fileID)
	if err != nil {
		h.readError(w, r, fileID, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{FileID: fileID, History: hist})
}

func (h *Handler) readError(w http.ResponseWriter, r *http.Request, fileID string, err error) {
	if errors.Is(err, common.ErrorNotFound) {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	h.logger.Error(r.Context(), "read file failed", "fileId", fileID, "error", err)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

// StorageEvent handles POST /api/v1/events/s3. Processing continues even if
// the caller disconnects, so polling and quarantine are never cut short.
func (h *Handler) StorageEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read request body")
		return
	}

	res, err := h.intake.HandleRaw(context.WithoutCancel(r.Context()), body)
	if err != nil {
		if errors.Is(err, common.ErrorMalformedEvent) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error(r.Context(), "storage event failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, intakeResponse{
		Message:        "Successfully processed S3 upload event",
		ProcessedFiles: res.Processed,
		FailedFiles:    res.Failed,
		FileIDs:        res.FileIDs,
	})
}

// HealthLive reports that the process is serving requests.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "timestamp": timestamp()})
}
