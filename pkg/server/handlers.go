package server

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/procmeta/pkg/bpmn"
	"github.com/matzehuels/procmeta/pkg/errors"
	"github.com/matzehuels/procmeta/pkg/observability"
	"github.com/matzehuels/procmeta/pkg/pipeline"
	"github.com/matzehuels/procmeta/pkg/store"
)

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Node      string `json:"node,omitempty"`
	Element   string `json:"element,omitempty"`
	Filename  string `json:"filename,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCreate resolves the request body as a BPMN document.
// Query parameters: filename, process, vendor.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, pipeline.MaxDocumentSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "document exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "read body"))
		return
	}
	if len(body) == 0 {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "request body is empty"))
		return
	}

	q := r.URL.Query()
	opts := pipeline.Options{
		Source:          body,
		Filename:        q.Get("filename"),
		Process:         q.Get("process"),
		VendorNamespace: q.Get("vendor"),
		Workers:         s.opts.Workers,
		Logger:          s.logger.With("request", RequestID(r.Context())),
	}
	if opts.VendorNamespace == "" {
		opts.VendorNamespace = s.opts.VendorNamespace
	}

	meta, err := s.runner.Resolve(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	rec := store.NewRecord(meta)
	if err := s.store.Save(r.Context(), rec); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("stored document", "id", rec.ID, "file", rec.Filename, "nodes", rec.NodeCount)

	w.Header().Set("Location", "/v1/documents/"+rec.ID)
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.record(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := store.ValidateID(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeID")
	if err := errors.ValidateNodeID(nodeID); err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.record(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	node, ok := rec.Metadata.Node(nodeID)
	if !ok {
		s.writeError(w, r, errors.New(errors.ErrCodeNodeNotFound, "node %q not found in %s", nodeID, rec.Filename))
		return
	}
	writeJSON(w, http.StatusOK, node)
}

// handleDiagram renders a stored record. Query parameters: format (dot or
// svg, default svg), lanes, groups, data.
func (s *Server) handleDiagram(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = pipeline.FormatSVG
	}
	if format == pipeline.FormatJSON {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "use GET /v1/documents/{id} for json"))
		return
	}
	if err := pipeline.ValidateFormat(format); err != nil {
		s.writeError(w, r, err)
		return
	}

	rec, err := s.record(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	artifacts, err := s.runner.Render(r.Context(), rec.Metadata, pipeline.Options{
		Formats: []string{format},
		Lanes:   flag(q.Get("lanes")),
		Groups:  flag(q.Get("groups")),
		Data:    flag(q.Get("data")),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	switch format {
	case pipeline.FormatSVG:
		w.Header().Set("Content-Type", "image/svg+xml")
	default:
		w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifacts[format])
}

// record loads the record named by the {id} URL parameter.
func (s *Server) record(r *http.Request) (*store.Record, error) {
	id := chi.URLParam(r, "id")
	if err := store.ValidateID(id); err != nil {
		return nil, err
	}
	return s.store.Get(r.Context(), id)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	status := statusFor(err)
	observability.HTTP().OnError(r.Context(), r.Method, routePattern(r), string(code))

	msg := errors.UserMessage(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "id", RequestID(r.Context()), "code", code, "err", err)
		if code == errors.ErrCodeInternal {
			msg = "internal error"
		}
	}
	resp := errorResponse{
		Code:      string(code),
		Message:   msg,
		RequestID: RequestID(r.Context()),
	}
	var verr *bpmn.ValidationError
	if stderrors.As(err, &verr) {
		resp.Node, resp.Element, resp.Filename = verr.NodeID, verr.Tag, verr.Filename
	}
	writeJSON(w, status, resp)
}

// statusFor maps an error code to an HTTP status.
func statusFor(err error) int {
	if errors.IsIntegrity(err) {
		return http.StatusUnprocessableEntity
	}
	switch errors.GetCode(err) {
	case errors.ErrCodeNotFound, errors.ErrCodeNodeNotFound, errors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidFormat, errors.ErrCodeInvalidPath,
		errors.ErrCodeInvalidConfig, errors.ErrCodeUnsupported:
		return http.StatusBadRequest
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrCodeNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func flag(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
