package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aretw0/youvisa/pkg/domain"
	"github.com/aretw0/youvisa/pkg/runner"
	"github.com/aretw0/youvisa/pkg/workflow"
)

// PostEvent handles POST /v1/events: one inbound message from the
// messaging transport, answered with the engine's reply.
func (s *Server) PostEvent(w http.ResponseWriter, r *http.Request) {
	var ev domain.Event
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestBody))
	if err := dec.Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		s.logger.Warn("PostEvent: Invalid request body", "err", err)
		return
	}
	if ev.Kind == domain.EventAttachment && ev.Attachment != nil && ev.Attachment.MIMEType == "" {
		ev.Attachment.MIMEType = runner.DetectMIMEType(ev.Attachment.FileName, ev.Attachment.Content)
	}

	reply, err := s.Events.Handle(r.Context(), ev)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, reply)
	case errors.Is(err, workflow.ErrInvalidEvent):
		writeError(w, http.StatusBadRequest, err.Error())
	case runner.IsInputRejected(err):
		// The user sent it, so the user gets told; the session is untouched.
		s.logger.Warn("PostEvent: Input rejected", "user_id", ev.UserID, "err", err)
		writeJSON(w, http.StatusOK, domain.Reply{
			UserID:   ev.UserID,
			Messages: []string{runner.MsgInputRejected},
		})
	default:
		// Infrastructure failures stay in the logs; the transport gets a
		// message it can relay to the user as is.
		s.logger.Error("PostEvent: Event failed", "user_id", ev.UserID, "kind", ev.Kind, "err", err)
		writeJSON(w, http.StatusInternalServerError, domain.Reply{
			UserID:   ev.UserID,
			Messages: []string{runner.MsgEventFailed},
		})
	}
}
