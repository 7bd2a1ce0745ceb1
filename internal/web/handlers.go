package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/RepRech/internal/core"
)

// uploadField is the multipart field carrying report files.
const uploadField = "files"

const healthTimeout = 3 * time.Second

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := staticFiles.ReadFile("static/index.html")
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

// handleHealth pings the store and reports upload slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	body := map[string]any{
		"status":  "ok",
		"uploads": s.service.UploadLimiterStatus(),
	}
	status := http.StatusOK
	if err := s.service.Ready(ctx); err != nil {
		body["status"] = "unavailable"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, r, status, body)
}

// handleRows serves GET /api/rows?from=&to=&detail=&page=&page_size=.
func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := core.QueryParams{
		DateFrom: q.Get("from"),
		DateTo:   q.Get("to"),
		Detail:   q.Get("detail"),
		Page:     intParam(q.Get("page")),
		PageSize: intParam(q.Get("page_size")),
	}

	res, err := s.service.Query(r.Context(), params)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// intParam parses a paging parameter. Absent or malformed values yield 0,
// which the service replaces with its default. Parsed values below 1
// become 1.
func intParam(raw string) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return max(v, 1)
}

// handleUpload serves POST /api/upload with one or more "files" parts.
// Each file name becomes the source label of the rows it contributes.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)

	uploads, err := readUploads(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			respondError(w, r, err, http.StatusRequestEntityTooLarge)
		case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
			respondError(w, r, core.ErrNoFiles, http.StatusBadRequest)
		default:
			respondError(w, r, err, http.StatusBadRequest)
		}
		return
	}

	res, err := s.service.Ingest(r.Context(), uploads)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// readUploads streams the multipart body and collects every uploadField
// part in order. Parts sent without a filename are kept with an empty
// name.
func readUploads(r *http.Request) ([]core.Upload, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, err
	}

	var uploads []core.Upload
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return uploads, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read multipart form: %w", err)
		}

		if part.FormName() != uploadField {
			_ = part.Close()
			continue
		}
		data, err := io.ReadAll(part)
		_ = part.Close()
		if err != nil {
			return nil, fmt.Errorf("read multipart file %q: %w", part.FileName(), err)
		}
		uploads = append(uploads, core.Upload{Name: part.FileName(), Data: data})
	}
}

// handleToggle serves POST /api/rows/{id}/toggle where id may itself
// contain slashes.
func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/rows/")
	key, ok := strings.CutSuffix(rest, "/toggle")
	if !ok || key == "" {
		respondError(w, r, core.ErrRowNotFound, http.StatusNotFound)
		return
	}

	res, err := s.service.Toggle(r.Context(), key)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// handleClearResolved serves DELETE /api/rows/resolved.
func (s *Server) handleClearResolved(w http.ResponseWriter, r *http.Request) {
	n, err := s.service.ClearResolved(r.Context())
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]int64{"deleted": n})
}
