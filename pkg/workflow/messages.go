package workflow

import (
	"fmt"
	"strings"

	"github.com/aretw0/youvisa/pkg/domain"
)

// User-facing texts. The product speaks Brazilian Portuguese.
const (
	msgWelcome          = "Bem-vindo à YOUVISA! Sou seu assistente inteligente.\nPara começar, por favor me diga seu nome completo."
	msgAskName          = "Por favor me diga seu nome completo."
	msgAskNationalID    = "Prazer em te conhecer! Agora, por favor digite seu CPF (apenas números)."
	msgRegistered       = "Cadastro concluído! Agora, vamos iniciar sua solicitação de visto."
	msgNoCountries      = "Desculpe, não temos países configurados ainda. Por favor contate o administrador."
	msgUnknownCountry   = "Ainda não trabalhamos com esse país. Por favor escolha um da lista abaixo:"
	msgCancelled        = "Operação cancelada."
	msgAnalyzing        = "Analisando seu documento... Por favor aguarde."
	msgAllReceived      = "Parabéns! Recebemos todos os seus documentos. Sua solicitação está pronta para análise."
	msgNoActiveTask     = "Você não tem uma solicitação ativa. Digite /start para começar."
	msgRestart          = "Não encontrei seu cadastro. Digite /start para começar novamente."
	msgAssistantDown    = "Desculpe, estou tendo problemas técnicos no momento. Por favor, tente novamente ou use /start para reiniciar."
	msgTooManyAttempts  = "Não foi possível identificar seus documentos após várias tentativas. Digite /start quando quiser tentar novamente."
	msgTextOnly         = "Por favor responda com texto."
	msgEmptyAttachment  = "O arquivo enviado está vazio. Por favor envie uma foto ou PDF do documento."
	msgStatusHint       = "Digite o nome de um país para iniciar uma nova solicitação ou \"meu status\" para acompanhar a atual."
	statusCommand       = "meu status"
	countryListHeader   = "Por favor selecione o país para o qual deseja o visto:\n\nPaíses disponíveis:\n"
	countryListItemMark = "- "
)

// welcome greets a new user, by the transport's display name when there is one.
func welcome(displayName string) string {
	if name := strings.TrimSpace(displayName); name != "" {
		return fmt.Sprintf("Olá, %s! %s", name, msgWelcome)
	}
	return msgWelcome
}

func welcomeBack(name string) string {
	return fmt.Sprintf("Bem-vindo de volta, %s!", name)
}

func countryList(countries []domain.Country) string {
	var b strings.Builder
	for i, c := range countries {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(countryListItemMark)
		b.WriteString(c.Name)
	}
	return b.String()
}

func taskOpened(country string, required domain.Labels) string {
	return fmt.Sprintf("Ótimo! Você está solicitando para %s.\nVocê precisa enviar os seguintes documentos: %s.\nPor favor envie uma foto ou PDF de um dos documentos.",
		country, required.Display())
}

func taskResumed(country string, missing domain.Labels) string {
	return fmt.Sprintf("Você já tem uma solicitação em andamento para %s.\nAinda falta: %s\nPor favor envie uma foto ou PDF de um dos documentos.",
		country, missing.Display())
}

func taskBlocked(country string) string {
	return fmt.Sprintf("Você já tem uma solicitação ativa para %s. Conclua-a antes de iniciar outra.", country)
}

func documentRejected(required domain.Labels) string {
	return fmt.Sprintf("Não consegui identificar este documento como um dos necessários. Por favor certifique-se que é um de: %s e tente novamente.",
		required.Display())
}

func documentReceived(label string) string {
	return fmt.Sprintf("Recebido: %s!", label)
}

func stillMissing(missing domain.Labels) string {
	return "Ainda falta: " + missing.Display()
}

func statusSummary(task domain.ActiveTask, missing domain.Labels) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sua solicitação para %s está com status %s.", task.CountryName, task.Status)
	if len(missing) == 0 {
		b.WriteString("\nTodos os documentos foram recebidos.")
	} else {
		fmt.Fprintf(&b, "\nAinda falta: %s", missing.Display())
	}
	return b.String()
}
