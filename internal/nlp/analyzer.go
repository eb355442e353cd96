package nlp

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/mikey/threat-verdict/internal/core"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Intent labels offered to the zero-shot classifier
const (
	IntentPersonalInfo = "request personal information"
	IntentUrgency      = "create urgency"
	IntentThreats      = "make threats"
	IntentRewards      = "offer rewards"
	IntentVerify       = "verify account"
	IntentBusiness     = "business communication"
	IntentMarketing    = "marketing"
	IntentGeneral      = "general information"
)

// IntentLabels is the candidate label set in the order it is sent to the backend
var IntentLabels = []string{
	IntentPersonalInfo,
	IntentUrgency,
	IntentThreats,
	IntentRewards,
	IntentVerify,
	IntentBusiness,
	IntentMarketing,
	IntentGeneral,
}

type riskIntent struct {
	threshold float64
	weight    float64
	keywords  *regexp.Regexp
}

// riskIntents lists the labels that add risk, in evaluation order
var riskIntents = []struct {
	label string
	riskIntent
}{
	{IntentPersonalInfo, riskIntent{0.6, 0.8, regexp.MustCompile(`(?i)(password|bank\s*account|credit\s*card|ssn|social\s*security|pin\s*number)`)}},
	{IntentUrgency, riskIntent{0.6, 0.6, nil}},
	{IntentThreats, riskIntent{0.7, 0.9, regexp.MustCompile(`(?i)(suspend|terminate|arrest|punish|kill|die|terror|lawsuit|blackmail)`)}},
	{IntentVerify, riskIntent{0.5, 0.5, nil}},
	{IntentRewards, riskIntent{0.6, 0.6, regexp.MustCompile(`(?i)(prize|reward|won|lottery|jackpot|giveaway)`)}},
}

const (
	emotionThreshold   = 0.5
	emotionRisk        = 0.3
	coherenceThreshold = 0.3
	coherenceRisk      = 0.2
	formalWordLength   = 6
)

var informalWords = map[string]struct{}{"hey": {}, "hi": {}, "hello": {}, "thanks": {}}

// Label is a scored class returned by a backend
type Label struct {
	Name  string  `json:"label"`
	Score float64 `json:"score"`
}

// Backend provides the models behind the analyzer
type Backend interface {
	// ClassifyIntents scores every label independently (multi-label zero-shot)
	ClassifyIntents(ctx context.Context, text string, labels []string) ([]Label, error)
	Sentiment(ctx context.Context, text string) (Label, error)
	// Emotion returns the dominant emotion
	Emotion(ctx context.Context, text string) (Label, error)
	// Embed returns one vector per sentence
	Embed(ctx context.Context, sentences []string) ([][]float64, error)
}

// Analyzer is the optional NLP enrichment stage
type Analyzer struct {
	backend Backend
	logger  *zap.Logger
}

// NewAnalyzer creates a new Analyzer
func NewAnalyzer(backend Backend, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		backend: backend,
		logger:  logger,
	}
}

// Analyze runs intent, emotion, sentiment and coherence analysis concurrently.
// Any backend failure fails the whole stage.
func (a *Analyzer) Analyze(ctx context.Context, text string) (*core.AdvancedSignal, error) {
	var (
		intents   []Label
		emotion   Label
		sentiment Label
		coherence float64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if intents, err = a.backend.ClassifyIntents(gctx, text, IntentLabels); err != nil {
			return fmt.Errorf("failed to classify intents: %w", err)
		}
		if len(intents) == 0 {
			return fmt.Errorf("failed to classify intents: empty result")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if emotion, err = a.backend.Emotion(gctx, text); err != nil {
			return fmt.Errorf("failed to classify emotion: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if sentiment, err = a.backend.Sentiment(gctx, text); err != nil {
			return fmt.Errorf("failed to classify sentiment: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if coherence, err = a.coherence(gctx, text); err != nil {
			return fmt.Errorf("failed to measure coherence: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(intents, func(i, j int) bool { return intents[i].Score > intents[j].Score })
	all := make(map[string]float64, len(intents))
	for _, l := range intents {
		all[l.Name] = round3(l.Score)
	}

	signal := &core.AdvancedSignal{
		PrimaryIntent:       intents[0].Name,
		IntentConfidence:    round3(intents[0].Score),
		AllIntents:          all,
		DominantEmotion:     emotion.Name,
		EmotionConfidence:   round3(emotion.Score),
		Sentiment:           sentiment.Name,
		SentimentConfidence: round3(sentiment.Score),
		Coherence:           round3(coherence),
		Formality:           round3(Formality(text)),
	}
	assessRisk(signal, intents, emotion, coherence, text)

	a.logger.Debug("Content analyzed",
		zap.String("primary_intent", signal.PrimaryIntent),
		zap.String("emotion", signal.DominantEmotion),
		zap.Float64("risk_score", signal.RiskScore))

	return signal, nil
}

func assessRisk(signal *core.AdvancedSignal, intents []Label, emotion Label, coherence float64, text string) {
	scores := make(map[string]float64, len(intents))
	for _, l := range intents {
		scores[l.Name] = l.Score
	}

	signal.RiskFactors = []string{}
	signal.ManipulationIndicators = []core.ManipulationIndicator{}
	risk := 0.0

	for _, ri := range riskIntents {
		score, ok := scores[ri.label]
		if !ok || score < ri.threshold {
			continue
		}
		if ri.keywords != nil && !ri.keywords.MatchString(text) {
			continue
		}
		signal.RiskFactors = append(signal.RiskFactors, fmt.Sprintf("High-risk intent: %s (%.2f)", ri.label, score))
		signal.ManipulationIndicators = append(signal.ManipulationIndicators, core.ManipulationIndicator{
			Type: "intent", Detail: ri.label, Confidence: round3(score),
		})
		risk += ri.weight
	}

	name := strings.ToLower(emotion.Name)
	if (name == "fear" || name == "anger") && emotion.Score > emotionThreshold {
		signal.RiskFactors = append(signal.RiskFactors, "Emotional manipulation: "+name)
		signal.ManipulationIndicators = append(signal.ManipulationIndicators, core.ManipulationIndicator{
			Type: "emotion", Detail: name, Confidence: round3(emotion.Score),
		})
		risk += emotionRisk
	}

	if coherence < coherenceThreshold {
		signal.RiskFactors = append(signal.RiskFactors, "Low text coherence (potentially spammy or unclear)")
		signal.ManipulationIndicators = append(signal.ManipulationIndicators, core.ManipulationIndicator{
			Type: "coherence", Detail: "inconsistent_text", Confidence: round3(1 - coherence),
		})
		risk += coherenceRisk
	}

	signal.RiskScore = round3(math.Min(1, risk))
}

// coherence is the mean cosine similarity of consecutive sentence embeddings
func (a *Analyzer) coherence(ctx context.Context, text string) (float64, error) {
	sentences := Sentences(text)
	if len(sentences) < 2 {
		return 1, nil
	}

	vectors, err := a.backend.Embed(ctx, sentences)
	if err != nil {
		return 0, err
	}
	if len(vectors) != len(sentences) {
		return 0, fmt.Errorf("got %d embeddings for %d sentences", len(vectors), len(sentences))
	}

	total := 0.0
	for i := 0; i < len(vectors)-1; i++ {
		total += Cosine(vectors[i], vectors[i+1])
	}
	return total / float64(len(vectors)-1), nil
}

// Sentences splits text on periods and drops empty pieces
func Sentences(text string) []string {
	var out []string
	for _, s := range strings.Split(text, ".") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Cosine returns the cosine similarity of two vectors, 0 when either is zero or they differ in length
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Formality favours long words and penalises casual greetings, in [0,1]
func Formality(text string) float64 {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return 1
	}

	formal, informal := 0, 0
	for _, w := range words {
		if len(w) > formalWordLength {
			formal++
		}
		if _, ok := informalWords[w]; ok {
			informal++
		}
	}

	score := float64(formal-informal)/float64(len(words)) + 0.5
	return math.Max(0, math.Min(1, score))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
