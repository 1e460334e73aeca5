package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/TobiSchelling/catalysts/internal/extract"
	"github.com/TobiSchelling/catalysts/internal/pipeline"
	"github.com/TobiSchelling/catalysts/internal/store"
)

// maxJSONBytes bounds JSON request bodies.
const maxJSONBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "image too large")
			return
		}
		writeError(w, http.StatusBadRequest, "expected a multipart form with an image")
		return
	}

	file, _, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		file, _, err = r.FormFile("file")
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "No image file provided")
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading image: "+err.Error())
		return
	}

	res, err := s.p.ProcessUpload(r.Context(), image)
	switch {
	case errors.Is(err, pipeline.ErrEmptyImage):
		writeError(w, http.StatusBadRequest, "No image file provided")
		return
	case err != nil:
		log.Printf("Upload failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to process image: "+err.Error())
		return
	}
	log.Println(res.Message)

	writeJSON(w, http.StatusOK, res)
}

type bulkRequest struct {
	BulkPaste   string `json:"bulkPaste"`
	DefaultDate string `json:"defaultDate"`
}

func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.BulkPaste) == "" {
		writeError(w, http.StatusBadRequest, "bulkPaste is required")
		return
	}

	res, err := s.p.ProcessBulk(req.BulkPaste, req.DefaultDate)
	switch {
	case errors.Is(err, extract.ErrInvalidDefaultDate):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		log.Printf("Bulk paste failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to save events: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, res)
}

type saveRequest struct {
	Events []extract.Event `json:"events"`
}

type saveResponse struct {
	Success bool     `json:"success"`
	Added   int      `json:"added"`
	IDs     []string `json:"ids"`
}

func (s *Server) handleSaveEvents(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Events) == 0 {
		writeError(w, http.StatusBadRequest, "events is required")
		return
	}

	records, err := s.p.SaveEvents(req.Events)
	switch {
	case errors.Is(err, pipeline.ErrInvalidEvent):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		log.Printf("Saving events failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to save events: "+err.Error())
		return
	}

	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	writeJSON(w, http.StatusCreated, saveResponse{Success: true, Added: len(records), IDs: ids})
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusInternalServerError, pipeline.ErrNoStore.Error())
		return
	}

	q := r.URL.Query()
	f := store.Filter{
		Ticker: strings.ToUpper(strings.TrimSpace(q.Get("ticker"))),
		From:   q.Get("from"),
	}
	if f.From != "" {
		if _, err := time.Parse("2006-01-02", f.From); err != nil {
			writeError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
			return
		}
	}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		f.Limit = n
	}

	records, err := s.store.ListEvents(f)
	if err != nil {
		log.Printf("Listing events failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}
	if records == nil {
		records = []store.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": records})
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusInternalServerError, pipeline.ErrNoStore.Error())
		return
	}

	rec, err := s.store.GetEvent(r.PathValue("id"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "event not found")
		return
	case err != nil:
		log.Printf("Getting event failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to get event")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	dir := s.p.Extractor().Directory()
	res, ok := dir.Resolve(q)
	if !ok {
		writeError(w, http.StatusNotFound, "no company matches "+strconv.Quote(q))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"companyName": res.CompanyName,
		"ticker":      res.Ticker,
		"synthesized": res.Synthesized,
		"fullName":    dir.CompanyName(q),
	})
}

// decodeJSON reads a bounded JSON body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "request body is required")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}
