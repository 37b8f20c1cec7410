package web

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/JonMunkholm/leadpipe/internal/core"
	"github.com/JonMunkholm/leadpipe/internal/logging"
)

const (
	// multipartMemory is how much of a form is held in memory before
	// spilling to temp files.
	multipartMemory = 8 << 20
	// multipartOverhead allows for form boundaries and headers on top of
	// the file itself.
	multipartOverhead = 1 << 20
)

// handleImport reads the multipart "file" field and imports it for the
// operator. The file name's extension selects the decoder.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, fmt.Errorf("%w: limit is %d bytes", core.ErrFileTooLarge, maxSize))
			return
		}
		s.respondError(w, r, core.ValidationError{Field: "file", Message: "invalid multipart form"})
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck // temp files

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, core.ValidationError{Field: "file", Message: "no file provided"})
		return
	}
	defer file.Close()

	logging.FromContext(r.Context()).Info("import received", "file", header.Filename, "size", header.Size)

	res, err := s.service.Import(r.Context(), operator(r), header.Filename, file)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleExport serializes the operator's leads as csv (default) or xlsx.
// The file is built in memory first so a failure can still be reported as
// an error response.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := core.ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := s.service.Export(r.Context(), operator(r), format, &buf); err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s"`, core.ExportFileName(format, time.Now())))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Warn("export write failed", "error", err)
	}
}
