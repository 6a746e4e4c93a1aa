package classify

import "sort"

// Lexicon is the keyword data behind every predicate. Entries are written in
// plain Portuguese and folded on load, so accents and case do not matter.
type Lexicon struct {
	Greetings        []string
	QuestionStarters []string
	Scope            []string
	Identity         []string
	Commercial       []string
	BusinessNouns    []string
	KnowsYes         []string
	KnowsNo          []string
	CompanyMarkers   []string
	LocalityMarkers  []string
	ResetCommands    []string
	StateCodes       []string
}

// DefaultLexicon is the TRÍVIA vocabulary.
var DefaultLexicon = Lexicon{
	Greetings: []string{
		"oi", "ola", "olá", "oie", "bom dia", "boa tarde", "boa noite",
		"eai", "e aí", "opa", "hey", "salve",
	},
	QuestionStarters: []string{
		"como", "o que", "oq", "qual", "quais", "quanto", "quanta", "onde",
		"quando", "por que", "porque", "pq", "pra que", "para que",
		"me explica", "explica", "pode", "vc pode", "você pode", "tem como",
		"dá pra", "da pra", "é possível", "quem", "será que",
	},
	Scope: []string{
		// brand
		"trívia", "trivia", "mel", "tecnologia que responde",
		// customer service / whatsapp
		"atendimento", "atender", "cliente", "clientes", "whatsapp", "wpp", "zap",
		"mensagem", "mensagens", "responder", "resposta", "respostas", "suporte",
		"sac", "fila", "triagem", "humanizado", "humano", "equipe", "encaminhar",
		"automação", "automatizar", "automático",
		// modules
		"agendamento", "agendamentos", "agenda", "pedido", "pedidos",
		"orçamento", "orçamentos", "relatório", "relatórios", "crm", "lead", "leads",
		"vendas", "venda", "negócio", "empresa",
		// commercial
		"plano", "planos", "preço", "precos", "valor", "valores", "mensalidade",
		"custa", "custo", "contratar", "implantar", "implantação", "funciona",
		// tech
		"api", "meta", "cloud", "business", "webhook", "token", "nuvem",
		"integração", "integrar",
		// marketing tied to the service
		"marketing", "instagram", "facebook", "anúncio", "anúncios", "direct", "dm",
	},
	Identity: []string{
		"você é ia", "vc é ia", "isso é ia", "é ia", "é uma ia",
		"você é robô", "vc é robô", "você é um robô", "vc é um robô", "é um robô",
		"você é um bot", "vc é bot", "é um bot", "chatbot",
		"inteligência artificial", "quem é você", "quem é vc",
		"quem tá falando", "quem está falando",
		"você é humano", "vc é humano", "é uma pessoa", "é humano", "é real",
		"é de verdade",
	},
	Commercial: []string{
		"quero contratar", "contratar", "quero assinar", "quero comprar",
		"quero fechar", "fechar negócio", "fechar contrato",
		"falar com vendedor", "falar com um vendedor", "falar com o vendedor",
		"falar com consultor", "falar com um consultor",
		"falar com o comercial", "falar com comercial", "time comercial",
		"setor comercial", "equipe comercial",
		"quero uma proposta", "manda uma proposta", "mandar uma proposta",
		"quero o plano", "quero a trívia",
	},
	BusinessNouns: []string{
		"empresa", "loja", "salão", "clínica", "consultório", "restaurante",
		"lanchonete", "padaria", "mercado", "farmácia", "academia", "studio",
		"estúdio", "barbearia", "pet", "petshop", "oficina", "escritório",
		"escola", "imobiliária", "hotel", "pousada", "distribuidora", "agência",
	},
	KnowsYes: []string{
		"sim", "já", "conheço", "conhecia", "sei", "claro", "ouvi falar",
	},
	KnowsNo: []string{
		"não", "nao", "primeira vez", "nunca", "não conheço", "cheguei agora",
		"tô conhecendo", "to conhecendo", "conhecendo agora",
	},
	CompanyMarkers: []string{
		"minha empresa é", "minha empresa se chama", "a empresa é",
		"empresa é", "empresa se chama", "empresa chamada", "nome da empresa é",
		"nome da empresa", "empresa", "minha loja é", "minha loja se chama",
		"loja chamada", "sou da", "sou do", "trabalho na", "trabalho no",
	},
	LocalityMarkers: []string{
		"cidade de", "cidade é", "cidade", "sou de", "somos de", "fico em",
		"fica em", "ficamos em", "estamos em", "localizada em", "localizado em",
		"aqui em", "moro em", "de", "em",
	},
	ResetCommands: []string{"reset", "/reset", "reiniciar", "recomeçar"},
	StateCodes: []string{
		"AC", "AL", "AP", "AM", "BA", "CE", "DF", "ES", "GO", "MA", "MT", "MS",
		"MG", "PA", "PB", "PR", "PE", "PI", "RJ", "RN", "RS", "RO", "RR", "SC",
		"SP", "SE", "TO",
	},
}

// phraseSet is a list of folded word sequences, longest first.
type phraseSet [][]string

func newPhraseSet(items []string) phraseSet {
	out := make(phraseSet, 0, len(items))
	for _, it := range items {
		w := words(tokenize(it))
		if len(w) > 0 {
			out = append(out, w)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

func seqAt(ws []string, at int, p []string) bool {
	if at+len(p) > len(ws) {
		return false
	}
	for k := range p {
		if ws[at+k] != p[k] {
			return false
		}
	}
	return true
}

// find returns the word index where some phrase starts and that phrase's
// length, or -1.
func (ps phraseSet) find(ws []string) (int, int) {
	for i := range ws {
		for _, p := range ps {
			if seqAt(ws, i, p) {
				return i, len(p)
			}
		}
	}
	return -1, 0
}

func (ps phraseSet) contains(ws []string) bool {
	i, _ := ps.find(ws)
	return i >= 0
}

func (ps phraseSet) prefix(ws []string) (int, bool) {
	for _, p := range ps {
		if seqAt(ws, 0, p) {
			return len(p), true
		}
	}
	return 0, false
}

func (ps phraseSet) exact(ws []string) bool {
	for _, p := range ps {
		if len(p) == len(ws) && seqAt(ws, 0, p) {
			return true
		}
	}
	return false
}
