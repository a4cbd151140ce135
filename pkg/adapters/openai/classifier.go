package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/aretw0/youvisa/pkg/domain"
	"github.com/aretw0/youvisa/pkg/ports"
)

// Classifier asks a vision model which of the allowed labels an upload is.
type Classifier struct {
	client *Client
}

// NewClassifier wraps a client as a ports.Classifier.
func NewClassifier(client *Client) *Classifier {
	return &Classifier{client: client}
}

// Classify returns the model's answer verbatim (trimmed and unquoted). The
// caller checks it against allowed; this adapter does not coerce it.
func (c *Classifier) Classify(ctx context.Context, doc ports.Upload, allowed domain.Labels) (string, error) {
	mimeType := doc.MIMEType
	if mimeType == "" {
		mimeType = http.DetectContentType(doc.Content)
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(doc.Content))

	prompt := fmt.Sprintf(
		"Você classifica documentos de um pedido de visto.\n"+
			"Tipos aceitos: %s.\n"+
			"Responda SOMENTE com o nome exato de um dos tipos aceitos, "+
			"ou %s se o documento não corresponder a nenhum ou estiver ilegível.",
		allowed.Display(), domain.ClassUnknown,
	)

	parts := []contentPart{{Type: "text", Text: prompt}}
	if strings.HasPrefix(mimeType, "image/") {
		parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: dataURL}})
	} else {
		name := doc.FileName
		if name == "" {
			name = "document"
		}
		parts = append(parts, contentPart{Type: "file", File: &filePart{FileName: name, FileData: dataURL}})
	}

	answer, err := c.client.complete(ctx, []message{{Role: "user", Content: parts}})
	if err != nil {
		return domain.ClassError, err
	}
	return strings.Trim(answer, "\"'` .\n"), nil
}

var _ ports.Classifier = (*Classifier)(nil)
