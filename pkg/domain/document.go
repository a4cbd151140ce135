package domain

import "time"

// Document is an uploaded file accepted under one of the task's required labels.
// Several documents may share a label; completion only looks at distinct labels.
type Document struct {
	ID         int64     `json:"id"`
	TaskID     int64     `json:"task_id"`
	DocType    string    `json:"doc_type"`
	Locator    string    `json:"locator"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// DocTypes returns the distinct labels present in docs, in upload order.
func DocTypes(docs []Document) Labels {
	out := make(Labels, 0, len(docs))
	for _, d := range docs {
		out = out.Add(d.DocType)
	}
	return out
}
