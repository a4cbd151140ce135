package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/youvisa/pkg/domain"
)

func TestJSONHandler_Output(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := NewJSONHandler(strings.NewReader(""), buf)

	reply := &domain.Reply{
		UserID:   "u1",
		Messages: []string{"Recebido: passport!", "Ainda falta: photo"},
		Step:     domain.StepAwaitingDocuments,
		TaskID:   7,
	}
	require.NoError(t, handler.Output(context.Background(), reply))
	require.NoError(t, handler.SystemOutput(context.Background(), "note"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var decoded domain.Reply
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &decoded))
	assert.Equal(t, *reply, decoded)
	assert.JSONEq(t, `{"system":"note"}`, lines[1])
}

func TestJSONHandler_Input(t *testing.T) {
	handler := NewJSONHandler(strings.NewReader("\"/attach a.pdf\"\nplain text\n\"unterminated"), nil)

	val, err := handler.Input(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/attach a.pdf", val)

	val, err = handler.Input(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "plain text", val)

	val, err = handler.Input(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "\"unterminated", val)

	_, err = handler.Input(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}
