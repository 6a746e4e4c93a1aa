package conversation

import (
	"fmt"
	"strings"

	"github.com/Vovarama1992/trivia-mel-bridge/internal/session"
)

// Script holds every canned line the assistant can send without the model.
type Script struct {
	Brand   string
	Persona string
	Contact string

	Opening      string
	AskKnows     string
	KnowsYes     string
	KnowsNo      string
	KnowsUnclear string
	Segment      string
	Identity     string
	OutOfScope   string
	NonText      string

	HandoffAsk      string
	HandoffContact  string
	HandoffReminder string

	EmptyReply    string
	Offline       string
	Apology       string
	QuotaExceeded string
	Varied        []string
}

// NewScript renders the Portuguese lines for a persona of a brand. contact is
// what the user is told to reach the commercial team with; it may be empty.
func NewScript(persona, brand, contact string) Script {
	s := Script{
		Brand:   brand,
		Persona: persona,
		Contact: contact,

		Opening:  fmt.Sprintf("Oi 🙂\n%s aqui.\nComo você tá hoje?", persona),
		AskKnows: fmt.Sprintf("Que bom te ver por aqui.\nVocê já conhecia a %s ou é sua primeira vez conversando com a gente?", brand),
		KnowsYes: fmt.Sprintf("Ah, que legal 🙂\nE o que mais te chamou atenção quando você ouviu falar da %s?", brand),
		KnowsNo: fmt.Sprintf("Perfeito 🙂\nA %s existe pra deixar o atendimento com clientes mais leve e organizado, principalmente no WhatsApp.\n\n"+
			"Me conta: você trabalha com que tipo de negócio?", brand),
		KnowsUnclear: fmt.Sprintf("Entendi 🙂\nSó pra eu me situar direitinho:\nvocê já conhecia a %s ou tá descobrindo agora?", brand),
		Segment: "Entendi 🙂\nEsse tipo de negócio costuma ter bastante troca de mensagem no dia a dia.\n\n" +
			"Hoje, o que pesa mais pra você: *volume* de mensagens ou *organização* das respostas?",
		Identity: fmt.Sprintf("Boa pergunta 🙂\n\nEu sou a %s, faço parte da %s.\n"+
			"Sou uma assistente criada com tecnologia pra conversar de um jeito natural.\n\n"+
			"Mas vamos no que importa: como tá sua rotina com clientes hoje?", persona, brand),
		OutOfScope: "Boa 😄\nEu até iria nessa… mas aqui eu fico no universo de atendimento e rotina com clientes.\n\n" +
			"Me diz: seu dia tá mais tranquilo ou mais correria?",
		NonText: "Recebi 🙂\nPor enquanto eu entendo melhor mensagens em texto.\n\nComo você tá hoje?",

		HandoffAsk: "Perfeito 🙂\nPra eu te conectar com a pessoa certa do nosso time, me conta: " +
			"qual o nome da sua empresa e de qual cidade vocês são?",

		EmptyReply:    "Tô aqui 🙂 Como você tá hoje, de verdade?",
		Offline:       "Entendi 🙂\n\nMe conta só um detalhe: você atende clientes mais por WhatsApp, Instagram… ou os dois?",
		Apology:       "Opa, me enrolei aqui por um instante 😅\nPode me mandar sua mensagem de novo?",
		QuotaExceeded: "Tô com muita conversa ao mesmo tempo agora 🙈\nMe dá uns minutinhos e me chama de novo?",
		Varied: []string{
			"Te entendi 🙂\n\nMe ajuda com um detalhe só: hoje sua rotina com clientes te cansa mais por *responder rápido* ou por *manter tudo organizado*?",
			"Faz sentido 🙂\n\nE no dia a dia, quem responde os clientes aí: você mesmo ou alguém da equipe?",
			"Anotado por aqui.\n\nQual horário costuma ser o mais corrido pra responder mensagem?",
		},
	}

	if contact != "" {
		s.HandoffContact = fmt.Sprintf("Combinado 🙂\nJá passei seus dados pro nosso time comercial.\n\n"+
			"Se quiser adiantar, é só chamar: %s", contact)
		s.HandoffReminder = fmt.Sprintf("Já avisei nosso time comercial 🙂\nSe preferir, o contato direto é: %s", contact)
	} else {
		s.HandoffContact = "Combinado 🙂\nJá passei seus dados pro nosso time comercial.\n\n" +
			"Alguém vai te chamar por aqui em breve."
		s.HandoffReminder = "Já avisei nosso time comercial 🙂\nLogo alguém te chama por aqui."
	}
	return s
}

// LeadSummary is the note sent to the commercial recipient.
func (s Script) LeadSummary(senderID string, lead session.Lead, lastText string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Novo lead %s (%s)\n", s.Brand, s.Persona)
	fmt.Fprintf(&b, "WhatsApp: %s\n", senderID)
	fmt.Fprintf(&b, "Empresa: %s\n", orUnknown(lead.Company))
	fmt.Fprintf(&b, "Cidade: %s\n", orUnknown(lead.City))
	fmt.Fprintf(&b, "Última mensagem: %s", lastText)
	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "não informado"
	}
	return s
}
