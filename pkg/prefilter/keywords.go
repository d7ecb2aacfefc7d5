package prefilter

// Fixed vocabulary tables driving the heuristic stages. Terms are mixed
// Portuguese/English because company descriptions come in both.

// sectorKeywords maps a normalized sector name to synonyms that may appear
// in a company's CAE label.
var sectorKeywords = map[string][]string{
	"industria":   {"manufacturing", "production", "industrial", "factory", "fabricação", "produção", "indústria"},
	"tecnologia":  {"technology", "software", "digital", "IT", "tech", "tecnologia", "informática"},
	"turismo":     {"tourism", "hotel", "restaurant", "travel", "turismo", "hospitalidade"},
	"agricultura": {"agriculture", "farming", "agro", "agricultura", "pecuária"},
	"energia":     {"energy", "renewable", "solar", "wind", "energia", "renovável"},
	"comercio":    {"retail", "commerce", "trading", "comércio", "vendas"},
	"servicos":    {"services", "consulting", "serviços", "consultoria"},
	"construcao":  {"construction", "building", "construção", "obra"},
	"saude":       {"health", "medical", "healthcare", "saúde", "medicina"},
	"educacao":    {"education", "training", "educação", "formação"},
}

var innovationKeywords = []string{
	"inovação", "innovation", "I&D", "R&D", "research", "desenvolvimento",
	"tecnologia", "technology", "digital", "automatização", "automation",
	"inteligência artificial", "artificial intelligence", "AI", "machine learning",
	"startup", "patente", "patent", "laboratório", "laboratory",
}

var sustainabilityKeywords = []string{
	"sustentável", "sustainable", "verde", "green", "eco", "ambiente",
	"environment", "renewable", "renovável", "eficiência energética",
	"energy efficiency", "carbon", "carbono", "reciclagem", "recycling",
}

var digitalKeywords = []string{
	"digital", "digitalization", "digitalização", "online", "e-commerce",
	"plataforma", "platform", "software", "app", "website", "sistema",
	"automatização", "automation", "cloud", "nuvem",
}

// stopWords are dropped before frequency-based keyword extraction.
var stopWords = map[string]struct{}{
	"para": {}, "com": {}, "por": {}, "em": {}, "de": {}, "da": {}, "do": {},
	"das": {}, "dos": {}, "na": {}, "no": {}, "nas": {}, "nos": {},
	"que": {}, "como": {}, "mais": {}, "ser": {}, "ter": {}, "estar": {},
	"fazer": {}, "dizer": {}, "mesmo": {}, "outro": {},
	"the": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {}, "at": {},
	"to": {}, "for": {}, "of": {}, "with": {}, "by": {},
}

// broadenedTerms are the domain-agnostic funding/business words used when
// the funnel comes up short and needs to widen the pool.
var broadenedTerms = []string{
	"apoio", "incentivo", "fundo", "financiamento", "subsídio",
	"modernização", "inovação", "desenvolvimento", "crescimento",
	"competitividade", "exportação", "internacionalização",
	"support", "funding", "grant", "development", "innovation",
}

// genericBusinessTerms are sector-agnostic words appended to every broadened
// scan so the widened pass always has something to match on.
var genericBusinessTerms = []string{"empresa", "negócio", "atividade", "projeto", "investimento"}
