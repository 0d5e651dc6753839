package core

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"localagent.ro/sme-agent/internal/store"
)

const (
	// maxSMEMatches bounds the verified-company block in the prompt.
	maxSMEMatches = 10

	systemPromptPreamble = `Ești un agent de comerț agentic pentru România, specializat în sprijinirea afacerilor mici și mijlocii (IMM-uri).

🎯 MISIUNEA TA: Să ajuți utilizatorii să găsească produse de la AFACERI MICI ȘI MIJLOCII românești, nu de la retaileri mari.

📊 CRITERII IMM (definiția EU):
- Mai puțin de 250 de angajați
- Cifra de afaceri ≤ 50 milioane EUR
- Total bilanț ≤ 43 milioane EUR

Personalitate:
- Prietenos și susținător al economiei locale
- Răspunzi în română
- Folosești emoji-uri moderat
- Expert în produse artizanale, locale și de la producători mici

🚫 REGULI CRITICE:
1. PRIORITIZEAZĂ magazinele mici și producătorii locali
2. EVITĂ să recomanzi retaileri mari (eMAG, Altex, Carrefour, IKEA, Dedeman etc.)
3. Menționează beneficiile cumpărăturilor de la afaceri locale:
   - Sprijini economia locală
   - Produse mai personalizate
   - Contact direct cu producătorul
   - Susții antreprenoriatul românesc

📝 Format răspuns pentru produse (OBLIGATORIU):
1. **Nume produs** 🛍️
   🖼️ Imagine: [URL-ul EXACT al imaginii dacă este disponibil]
   🔗 Link: [URL-ul EXACT din rezultatele furnizate]
   💰 Preț: [dacă este disponibil]
   📝 Descriere: [scurtă descriere]
   ✅ De ce să cumperi de aici: [beneficii afacere locală]

IMPORTANT: Dacă rezultatele conțin o linie "Imagine:", INCLUDE întotdeauna acea linie în răspunsul tău exact cum este!
FOLOSEȘTE DOAR linkurile exacte furnizate în rezultatele web - NU INVENTA niciodată URL-uri!
Răspunde concis dar informativ. Maximum 200 cuvinte pe răspuns.`
)

// smeFinder is the SME Registry slice the orchestrator needs.
type smeFinder interface {
	SearchSME(ctx context.Context, query string, limit int) ([]store.Company, error)
}

type candidateSearcher interface {
	Search(ctx context.Context, query string) ([]Candidate, error)
}

type candidateEnricher interface {
	EnrichCandidates(ctx context.Context, candidates []Candidate) []Candidate
}

// ChatService assembles the discovery context for a user message and opens
// the streamed completion. Partial failure of any one enrichment source never
// aborts the request; the prompt is built from whatever subset succeeded.
type ChatService struct {
	registry smeFinder
	search   candidateSearcher
	places   candidateEnricher
	ranking  RankingConfig
	llm      *LLMService
	logger   *zap.Logger
}

func NewChatService(registry smeFinder, search candidateSearcher, places candidateEnricher, ranking RankingConfig, llm *LLMService, logger *zap.Logger) *ChatService {
	return &ChatService{
		registry: registry,
		search:   search,
		places:   places,
		ranking:  ranking,
		llm:      llm,
		logger:   logger.Named("chat"),
	}
}

// Stream builds the context for the last user message and opens the
// completion stream. The caller forwards frames to the client and closes the
// stream; ctx cancellation (client disconnect) tears down the provider side.
func (s *ChatService) Stream(ctx context.Context, messages []ChatMessage) (*openai.ChatCompletionStream, error) {
	query := lastUserMessage(messages)

	systemPrompt := systemPromptPreamble
	if query != "" {
		smeBlock, webBlock := s.buildContext(ctx, query)
		systemPrompt += smeBlock + webBlock
	}

	return s.llm.StreamCompletion(ctx, systemPrompt, messages)
}

// buildContext gathers SME matches and the search→enrich→rank pipeline
// concurrently, so request latency is bounded by the slower of the two, and
// formats each into its prompt block. Either block may come back empty.
func (s *ChatService) buildContext(ctx context.Context, query string) (smeBlock, webBlock string) {
	var companies []store.Company
	var ranked []Candidate

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		companies, err = s.registry.SearchSME(gctx, query, maxSMEMatches)
		if err != nil {
			s.logger.Warn("SME lookup failed, proceeding without it", zap.Error(err))
			companies = nil
		}
		return nil
	})
	g.Go(func() error {
		candidates, err := s.search.Search(gctx, query)
		if err != nil {
			s.logger.Warn("web search degraded", zap.Error(err))
		}
		if len(candidates) > 0 {
			candidates = s.places.EnrichCandidates(gctx, candidates)
		}
		ranked = s.ranking.Rank(candidates)
		return nil
	})
	// Enrichment goroutines swallow their own failures.
	_ = g.Wait()

	if len(companies) > 0 {
		smeBlock = fmt.Sprintf("\n\n🏢 FIRME IMM VERIFICATE (conform criteriilor: <250 angajați, ≤50M EUR cifră afaceri, ≤43M EUR bilanț):\n%s\n\nAcestea sunt firme mici și mijlocii verificate din baza de date ANAF.",
			FormatSMECompanies(companies))
	}
	if len(ranked) > 0 {
		webBlock = fmt.Sprintf("\n\n🔍 REZULTATE CĂUTARE WEB (PRIORITATE MAGAZINE MICI LOCALE):\n%s\n\nACESTEA SUNT LINKURI REALE ȘI FUNCȚIONALE de la magazine locale. Folosește-le direct în răspunsul tău!",
			FormatWebResults(ranked))
	}

	s.logger.Info("context assembled",
		zap.Int("sme_matches", len(companies)),
		zap.Int("ranked_candidates", len(ranked)))
	return smeBlock, webBlock
}

func lastUserMessage(messages []ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

// FormatSMECompanies renders verified registry matches for the prompt.
func FormatSMECompanies(companies []store.Company) string {
	if len(companies) == 0 {
		return "Nu am găsit firme IMM în baza de date."
	}

	lines := make([]string, 0, len(companies))
	for i, c := range companies {
		name := "N/A"
		if c.Name != nil && *c.Name != "" {
			name = *c.Name
		}
		caen := "N/A"
		if c.CAEN != nil && *c.CAEN != "" {
			caen = *c.CAEN
		}
		employees := "N/A"
		if c.AvgEmployees != nil {
			employees = fmt.Sprintf("%.0f angajați", *c.AvgEmployees)
		}
		turnover := "N/A"
		if c.NetTurnover != nil {
			turnover = fmt.Sprintf("%.1fM RON", *c.NetTurnover/1_000_000)
		}
		lines = append(lines, fmt.Sprintf("%d. %s (CUI: %s, CAEN: %s) - %s, %s cifră afaceri",
			i+1, name, c.CUI, caen, employees, turnover))
	}
	return strings.Join(lines, "\n")
}

// FormatWebResults renders ranked candidates for the prompt, including the
// Imagine line the client-side product extraction depends on.
func FormatWebResults(results []Candidate) string {
	entries := make([]string, 0, len(results))
	for i, r := range results {
		var b strings.Builder
		fmt.Fprintf(&b, "%d. **%s**", i+1, r.Title)
		if r.Source != "" {
			fmt.Fprintf(&b, " (%s)", r.Source)
		}
		if r.Rating != nil {
			reviews := 0
			if r.ReviewCount != nil {
				reviews = *r.ReviewCount
			}
			fmt.Fprintf(&b, " ⭐ %.1f/5 (%d recenzii)", *r.Rating, reviews)
		}
		fmt.Fprintf(&b, "\n   Link: %s", r.URL)
		if r.Description != "" {
			fmt.Fprintf(&b, "\n   %s", r.Description)
		}
		if r.Thumbnail != "" {
			fmt.Fprintf(&b, "\n   Imagine: %s", r.Thumbnail)
		}
		entries = append(entries, b.String())
	}
	return strings.Join(entries, "\n\n")
}
