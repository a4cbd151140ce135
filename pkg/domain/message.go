package domain

// EventKind is the category of an inbound event.
type EventKind string

const (
	EventStart      EventKind = "start"
	EventText       EventKind = "text"
	EventAttachment EventKind = "attachment"
	EventCancel     EventKind = "cancel"
)

// Valid reports whether k is one of the known event kinds.
func (k EventKind) Valid() bool {
	switch k {
	case EventStart, EventText, EventAttachment, EventCancel:
		return true
	}
	return false
}

// Attachment is a file sent by the user.
type Attachment struct {
	FileName string `json:"file_name"`
	MIMEType string `json:"mime_type"`
	Content  []byte `json:"content"`
}

// Event is an inbound message from the transport, keyed by the external user id.
type Event struct {
	UserID      string      `json:"user_id"`
	DisplayName string      `json:"display_name,omitempty"`
	Kind        EventKind   `json:"kind"`
	Text        string      `json:"text,omitempty"`
	Attachment  *Attachment `json:"attachment,omitempty"`
}

// Reply is what the engine hands back to the transport for one event.
type Reply struct {
	UserID   string   `json:"user_id"`
	Messages []string `json:"messages"`
	Step     Step     `json:"step"`
	// TaskID and TaskStatus describe the active task after the event, if any.
	TaskID     int64      `json:"task_id,omitempty"`
	TaskStatus TaskStatus `json:"task_status,omitempty"`
	Terminal   bool       `json:"terminal"`
}

// Say appends a message to the reply.
func (r *Reply) Say(msg string) {
	r.Messages = append(r.Messages, msg)
}

// ChatContext is what the assistant is told about the user's application.
type ChatContext struct {
	CountryName  string `json:"country_name"`
	RequiredDocs Labels `json:"required_docs"`
	UploadedDocs Labels `json:"uploaded_docs"`
}

// Missing returns the required labels not yet uploaded.
func (c ChatContext) Missing() Labels {
	return c.RequiredDocs.Minus(c.UploadedDocs)
}
