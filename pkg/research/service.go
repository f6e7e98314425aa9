package research

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/CyberWeaverX/poly-survivor/pkg/provider"
)

const maxWebSearches = 3
const maxSources = 5

// Service performs paid market research with web search and stores the
// result. A research call that fails still writes a zero-confidence
// placeholder so the spend is not silently repeated.
type Service struct {
	oracle provider.Oracle
	store  *Store
	model  string
	logger zerolog.Logger
}

// NewService creates a research service
func NewService(oracle provider.Oracle, store *Store, model string, logger zerolog.Logger) *Service {
	return &Service{
		oracle: oracle,
		store:  store,
		model:  model,
		logger: logger,
	}
}

// Store returns the underlying cache
func (s *Service) Store() *Store {
	return s.store
}

// ResearchAndSave researches a market and caches the result. The
// returned result is always usable; research failure degrades to a
// neutral probability with zero confidence.
func (s *Service) ResearchAndSave(ctx context.Context, marketID, marketTitle, focus, marketDescription string) (*Result, error) {
	result := s.research(ctx, marketTitle, focus, marketDescription)
	result.MarketID = marketID
	result.MarketTitle = marketTitle

	if err := s.store.Save(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) research(ctx context.Context, marketTitle, focus, marketDescription string) *Result {
	resp, err := s.oracle.CreateMessage(ctx, &provider.Request{
		Model:     s.model,
		MaxTokens: 2048,
		ServerTools: []provider.ServerTool{{
			Type:    "web_search_20250305",
			Name:    "web_search",
			MaxUses: maxWebSearches,
		}},
		Messages: []provider.Message{{
			Role: provider.RoleUser,
			Content: []provider.ContentBlock{
				&provider.TextBlock{Text: buildResearchPrompt(marketTitle, focus, marketDescription)},
			},
		}},
	})
	if err != nil {
		s.logger.Error().Err(err).Str("market", marketTitle).Msg("research failed")
		return &Result{
			Summary:              fmt.Sprintf("Research failed: %v", err),
			EstimatedProbability: 0.5,
			Confidence:           0,
			KeyFactors:           []string{"Unable to research"},
			Sources:              []Source{},
		}
	}

	result := parseResearchResponse(resp.Text())
	result.Sources = extractSources(resp.Content)
	return result
}

func buildResearchPrompt(marketTitle, focus, marketDescription string) string {
	var sb strings.Builder

	sb.WriteString("Analyze this prediction market and provide your assessment:\n\n")
	fmt.Fprintf(&sb, "**Market Question:** %s\n\n", marketTitle)

	if marketDescription != "" {
		if len(marketDescription) > 1000 {
			marketDescription = marketDescription[:1000]
		}
		fmt.Fprintf(&sb, "**Market Rules:** %s\n\n", marketDescription)
	}
	if focus != "" {
		fmt.Fprintf(&sb, "**Research Focus:** %s\n\n", focus)
	}

	sb.WriteString(`Please search for the latest relevant information and provide:
1. A brief summary of the current situation (3-5 sentences)
2. Your estimated probability that this resolves "Yes" (0.0 to 1.0)
3. Your confidence level in this estimate (0.0 to 1.0)
4. Key factors affecting this outcome (list of 3-5 factors)

Respond in this exact JSON format:
{
    "summary": "Your analysis summary...",
    "estimated_probability": 0.XX,
    "confidence": 0.XX,
    "key_factors": ["Factor 1", "Factor 2", "Factor 3"]
}

Be honest about uncertainty. If you cannot find enough information, set confidence below 0.5.`)

	return sb.String()
}

var (
	jsonPattern       = regexp.MustCompile(`(?s)\{[^{}]*"summary"[^{}]*\}`)
	probPattern       = regexp.MustCompile(`probability["\s:]+(\d\.\d+)`)
	confidencePattern = regexp.MustCompile(`confidence["\s:]+(\d\.\d+)`)
)

// parseResearchResponse pulls the structured assessment out of the
// model's text, falling back to regex scraping when the JSON is
// malformed.
func parseResearchResponse(text string) *Result {
	if match := jsonPattern.FindString(text); match != "" {
		var data struct {
			Summary              string      `json:"summary"`
			EstimatedProbability json.Number `json:"estimated_probability"`
			Confidence           json.Number `json:"confidence"`
			KeyFactors           []string    `json:"key_factors"`
		}
		if err := json.Unmarshal([]byte(match), &data); err == nil {
			prob, _ := data.EstimatedProbability.Float64()
			conf, _ := data.Confidence.Float64()
			if data.EstimatedProbability == "" {
				prob = 0.5
			}
			if data.Confidence == "" {
				conf = 0.5
			}
			return &Result{
				Summary:              data.Summary,
				EstimatedProbability: prob,
				Confidence:           conf,
				KeyFactors:           data.KeyFactors,
				Sources:              []Source{},
			}
		}
	}

	lower := strings.ToLower(text)
	prob := 0.5
	if m := probPattern.FindStringSubmatch(lower); m != nil {
		prob, _ = strconv.ParseFloat(m[1], 64)
	}
	conf := 0.3
	if m := confidencePattern.FindStringSubmatch(lower); m != nil {
		conf, _ = strconv.ParseFloat(m[1], 64)
	}

	summary := text
	if len(summary) > 500 {
		summary = summary[:500]
	}
	if summary == "" {
		summary = "Unable to parse response"
	}

	return &Result{
		Summary:              summary,
		EstimatedProbability: prob,
		Confidence:           conf,
		KeyFactors:           []string{"Research result unclear"},
		Sources:              []Source{},
	}
}

// extractSources collects citations from web search result blocks
func extractSources(content []provider.ContentBlock) []Source {
	sources := make([]Source, 0, maxSources)
	for _, block := range content {
		wsr, ok := block.(*provider.WebSearchResultBlock)
		if !ok {
			continue
		}

		var results []struct {
			Title string `json:"title"`
			URL   string `json:"url"`
		}
		if err := json.Unmarshal(wsr.Content, &results); err != nil {
			continue
		}
		for _, r := range results {
			if r.URL == "" || r.Title == "" {
				continue
			}
			sources = append(sources, Source{Title: r.Title, URL: r.URL})
			if len(sources) >= maxSources {
				return sources
			}
		}
	}
	return sources
}
