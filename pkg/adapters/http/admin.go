package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/aretw0/youvisa/pkg/domain"
	"github.com/aretw0/youvisa/pkg/runner"
)

// CountryRequest is the body of POST /v1/countries.
type CountryRequest struct {
	Name         string   `json:"name"`
	RequiredDocs []string `json:"required_docs"`
}

type createdResponse struct {
	ID int64 `json:"id"`
}

// ListUsers handles GET /v1/users.
func (s *Server) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.Store.ListUsers(r.Context())
	if err != nil {
		s.internalError(w, "ListUsers", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(users))
}

// ListCountries handles GET /v1/countries.
func (s *Server) ListCountries(w http.ResponseWriter, r *http.Request) {
	countries, err := s.Store.GetCountries(r.Context())
	if err != nil {
		s.internalError(w, "ListCountries", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(countries))
}

// AddCountry handles POST /v1/countries. A taken name answers 409.
func (s *Server) AddCountry(w http.ResponseWriter, r *http.Request) {
	var body CountryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	id, err := s.Store.AddCountry(r.Context(), name, domain.NewLabels(body.RequiredDocs...))
	if errors.Is(err, domain.ErrAlreadyExists) {
		writeError(w, http.StatusConflict, fmt.Sprintf("country %q already exists", name))
		return
	}
	if err != nil {
		s.internalError(w, "AddCountry", err)
		return
	}
	s.logger.Info("Country added", "country", name, "required_docs", body.RequiredDocs)
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

// ListTasks handles GET /v1/tasks, optionally filtered by ?status=.
func (s *Server) ListTasks(w http.ResponseWriter, r *http.Request) {
	var filter domain.TaskStatus
	raw, ok := queryParam(w, r, "status")
	if !ok {
		return
	}
	if raw != "" {
		st, err := domain.ParseTaskStatus(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter = st
	}

	details, err := s.Store.GetAllTaskDetails(r.Context())
	if err != nil {
		s.internalError(w, "ListTasks", err)
		return
	}
	out := make([]domain.TaskDetails, 0, len(details))
	for _, d := range details {
		if filter == "" || d.Task.Status == filter {
			out = append(out, d)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// ListTaskDocuments handles GET /v1/tasks/{id}/documents.
func (s *Server) ListTaskDocuments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	docs, err := s.Store.GetTaskDocuments(r.Context(), id)
	if err != nil {
		s.internalError(w, "ListTaskDocuments", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(docs))
}

// CompleteTask handles POST /v1/tasks/{id}/complete, the external approval
// that moves a READY task to COMPLETED.
func (s *Server) CompleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	err := s.Store.TransitionTaskStatus(r.Context(), id, domain.TaskReady, domain.TaskCompleted)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, fmt.Sprintf("task %d not found", id))
		return
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, fmt.Sprintf("only READY tasks can be completed: %v", err))
		return
	case err != nil:
		s.internalError(w, "CompleteTask", err)
		return
	}
	s.logger.Info("Task completed", "task_id", id)

	details, err := s.Store.GetTaskDetails(r.Context(), id)
	if err != nil {
		s.internalError(w, "CompleteTask", err)
		return
	}
	s.Streams.Publish(domain.TaskEvent{
		UserID: details.User.ExternalID,
		TaskID: id,
		Status: domain.TaskCompleted,
	})
	writeJSON(w, http.StatusOK, details.Task)
}

// GetDocumentContent handles GET /v1/documents/{id}/content.
func (s *Server) GetDocumentContent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	doc, err := s.Store.GetDocument(r.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("document %d not found", id))
		return
	}
	if err != nil {
		s.internalError(w, "GetDocumentContent", err)
		return
	}

	rc, err := s.Docs.Open(r.Context(), doc.Locator)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("content of document %d is gone", id))
		return
	}
	if err != nil {
		s.internalError(w, "GetDocumentContent", err)
		return
	}
	defer rc.Close()

	name := path.Base(doc.Locator)
	w.Header().Set("Content-Type", runner.DetectMIMEType(name, nil))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.DocType+path.Ext(name)))
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Warn("GetDocumentContent: Copy failed", "document_id", id, "err", err)
	}
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Error(op+" failed", "err", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

// nonNil keeps empty lists encoded as [] instead of null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
