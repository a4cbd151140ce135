package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/youvisa/pkg/domain"
	"github.com/aretw0/youvisa/pkg/ports"
)

const baseInstructions = "Você é o assistente da YOUVISA, uma plataforma de solicitação de vistos. " +
	"Seu papel é apenas ajudar o usuário a concluir o pedido nesta plataforma; " +
	"não dê orientações sobre formulários, taxas ou agendamentos externos. " +
	"Responda em português, com educação e de forma breve."

// Assistant answers free-form text with a chat model.
type Assistant struct {
	client *Client
}

// NewAssistant wraps a client as a ports.Assistant.
func NewAssistant(client *Client) *Assistant {
	return &Assistant{client: client}
}

func (a *Assistant) Reply(ctx context.Context, text string, chat *domain.ChatContext) (string, error) {
	answer, err := a.client.complete(ctx, []message{
		{Role: "system", Content: systemPrompt(chat)},
		{Role: "user", Content: text},
	})
	if err != nil {
		return "", err
	}
	if answer == "" {
		return "", fmt.Errorf("empty assistant reply")
	}
	return answer, nil
}

func systemPrompt(chat *domain.ChatContext) string {
	var b strings.Builder
	b.WriteString(baseInstructions)
	if chat == nil {
		b.WriteString("\nO usuário ainda não tem um pedido ativo. Oriente-o a digitar /start para começar.")
		return b.String()
	}
	fmt.Fprintf(&b, "\n\nPedido atual:\n- País: %s\n- Documentos necessários: %s\n- Já enviados: %s\n- Faltando: %s\n",
		chat.CountryName,
		orNone(chat.RequiredDocs),
		orNone(chat.UploadedDocs),
		orNone(chat.Missing()),
	)
	b.WriteString("Ajude o usuário a enviar o que falta (foto ou PDF) e a entender o status do pedido.")
	return b.String()
}

func orNone(l domain.Labels) string {
	if len(l) == 0 {
		return "nenhum"
	}
	return l.Display()
}

var _ ports.Assistant = (*Assistant)(nil)
