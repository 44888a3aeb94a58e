package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/tripwise-ai/tripwise/internal/llm"
)

// TripRequest describes what the traveler asked for in free text plus any
// structured hints the caller already extracted.
type TripRequest struct {
	Query       string `json:"query"`
	Destination string `json:"destination,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	Budget      string `json:"budget,omitempty"`
	Travelers   int    `json:"travelers,omitempty"`
}

// TripIntent is the structured reading of a trip request.
type TripIntent struct {
	Destination string   `json:"destination"`
	TripType    string   `json:"trip_type"`
	Interests   []string `json:"interests"`
	Constraints []string `json:"constraints"`
}

// TripPlan is the full planning output: the parsed intent plus a generated
// itinerary grounded in it.
type TripPlan struct {
	Intent    TripIntent `json:"intent"`
	Itinerary string     `json:"itinerary"`
	Provider  string     `json:"provider"`
	Model     string     `json:"model"`
}

const (
	intentSystemMessage = "You are a travel request analyzer. Extract the structured intent from the user's request. " +
		"Respond with a single JSON object with keys: destination (string), trip_type (string), " +
		"interests (string array), constraints (string array). Respond with JSON only, no prose."

	itinerarySystemMessage = "You are an experienced travel planner. Produce a practical day-by-day itinerary. " +
		"Be specific about neighborhoods, transit and realistic timing. Note when a suggestion depends on season or booking ahead."
)

// PlanTrip runs the two-step planning workflow: parse the request into a
// structured intent, then generate an itinerary from it. A malformed intent
// payload falls back to planning directly from the raw query.
func (a *Assistant) PlanTrip(ctx context.Context, req TripRequest, providerName string) (*TripPlan, error) {
	logger := logutil.GetLogger(ctx)
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("trip query is required")
	}

	intent := TripIntent{Destination: req.Destination}
	intentResult := a.GenerateResponse(ctx, buildIntentPrompt(req), providerName, intentSystemMessage, 0, 0)
	if intentResult.Success {
		if err := json.Unmarshal([]byte(extractJSON(intentResult.Response)), &intent); err != nil {
			logger.Warn("intent response not parseable, planning from raw query", zap.Error(err))
		}
	} else {
		return nil, fmt.Errorf("intent analysis failed: %w", intentResult.Err)
	}

	planResult := a.GenerateResponse(ctx, buildItineraryPrompt(req, intent), providerName, itinerarySystemMessage, 0, 0)
	if !planResult.Success {
		return nil, fmt.Errorf("itinerary generation failed: %w", planResult.Err)
	}
	return &TripPlan{
		Intent:    intent,
		Itinerary: planResult.Response,
		Provider:  planResult.Provider,
		Model:     planResult.Model,
	}, nil
}

// ConsensusAnswer is one provider's contribution to a consensus round.
type ConsensusAnswer struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ConsensusResult holds every provider's answer plus, when more than one
// provider answered, a synthesized combined answer.
type ConsensusResult struct {
	Answers   []ConsensusAnswer `json:"answers"`
	Consensus string            `json:"consensus,omitempty"`
}

const consensusSystemMessage = "You are given several answers to the same question from different assistants. " +
	"Combine them into a single answer: keep points they agree on, flag contradictions, drop filler."

// Consensus asks several providers the same question. With no explicit
// provider list, all registered providers participate. At least one answer
// must succeed; with two or more, a synthesis pass merges them.
func (a *Assistant) Consensus(ctx context.Context, prompt, systemMessage string, providers []string) (*ConsensusResult, error) {
	if len(providers) == 0 {
		providers = a.registry.ListProviders()
	}
	if len(providers) == 0 {
		return nil, llm.ErrNoProvidersAvailable
	}

	answers := make([]ConsensusAnswer, 0, len(providers))
	var succeeded []ConsensusAnswer
	for _, name := range providers {
		result := a.registry.GenerateResponse(ctx, prompt, name, systemMessage, a.buildOptions(0, 0))
		answer := ConsensusAnswer{Provider: name, Model: result.Model}
		if result.Success {
			answer.Response = result.Response
			answer.Provider = result.Provider
			succeeded = append(succeeded, answer)
		} else {
			answer.Error = result.Error
		}
		answers = append(answers, answer)
	}
	if len(succeeded) == 0 {
		return &ConsensusResult{Answers: answers}, fmt.Errorf("consensus: every provider failed")
	}

	out := &ConsensusResult{Answers: answers}
	if len(succeeded) == 1 {
		out.Consensus = succeeded[0].Response
		return out, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Question: %s\n", prompt)
	for i, ans := range succeeded {
		fmt.Fprintf(&sb, "\nAnswer %d (%s):\n%s\n", i+1, ans.Provider, ans.Response)
	}
	synth := a.registry.GenerateResponse(ctx, sb.String(), "", consensusSystemMessage, a.buildOptions(0, 0))
	if synth.Success {
		out.Consensus = synth.Response
	} else {
		logutil.GetLogger(ctx).Warn("consensus synthesis failed, returning raw answers", zap.Error(synth.Err))
	}
	return out, nil
}

func buildIntentPrompt(req TripRequest) string {
	var sb strings.Builder
	sb.WriteString("Request: ")
	sb.WriteString(req.Query)
	if req.Destination != "" {
		fmt.Fprintf(&sb, "\nDestination hint: %s", req.Destination)
	}
	if req.StartDate != "" || req.EndDate != "" {
		fmt.Fprintf(&sb, "\nDates: %s to %s", req.StartDate, req.EndDate)
	}
	if req.Budget != "" {
		fmt.Fprintf(&sb, "\nBudget: %s", req.Budget)
	}
	if req.Travelers > 0 {
		fmt.Fprintf(&sb, "\nTravelers: %d", req.Travelers)
	}
	return sb.String()
}

func buildItineraryPrompt(req TripRequest, intent TripIntent) string {
	var sb strings.Builder
	sb.WriteString("Plan a trip.\n")
	fmt.Fprintf(&sb, "Original request: %s\n", req.Query)
	if intent.Destination != "" {
		fmt.Fprintf(&sb, "Destination: %s\n", intent.Destination)
	}
	if intent.TripType != "" {
		fmt.Fprintf(&sb, "Trip type: %s\n", intent.TripType)
	}
	if len(intent.Interests) > 0 {
		fmt.Fprintf(&sb, "Interests: %s\n", strings.Join(intent.Interests, ", "))
	}
	if len(intent.Constraints) > 0 {
		fmt.Fprintf(&sb, "Constraints: %s\n", strings.Join(intent.Constraints, ", "))
	}
	if req.StartDate != "" || req.EndDate != "" {
		fmt.Fprintf(&sb, "Dates: %s to %s\n", req.StartDate, req.EndDate)
	}
	if req.Budget != "" {
		fmt.Fprintf(&sb, "Budget: %s\n", req.Budget)
	}
	if req.Travelers > 0 {
		fmt.Fprintf(&sb, "Travelers: %d\n", req.Travelers)
	}
	return sb.String()
}

// extractJSON pulls the outermost JSON object out of a response that may be
// wrapped in markdown fences or prose.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}
