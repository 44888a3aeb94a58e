package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "bare object",
			input: `{"destination":"Kyoto"}`,
			want:  `{"destination":"Kyoto"}`,
		},
		{
			name:  "fenced object",
			input: "```json\n{\"destination\":\"Kyoto\"}\n```",
			want:  `{"destination":"Kyoto"}`,
		},
		{
			name:  "object with surrounding prose",
			input: `Sure, here you go: {"destination":"Kyoto"} hope that helps`,
			want:  `{"destination":"Kyoto"}`,
		},
		{
			name:  "no object at all",
			input: "no json here",
			want:  "no json here",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, extractJSON(tt.input))
		})
	}
}

func TestPlanTripParsesIntent(t *testing.T) {
	provider := &fixedProvider{
		name:     "ollama",
		response: `{"destination":"Kyoto","trip_type":"cultural","interests":["temples"],"constraints":["no flights after 8pm"]}`,
	}
	assistant := newTestAssistant(t, provider)

	plan, err := assistant.PlanTrip(context.Background(), TripRequest{Query: "a week of temples in Kyoto"}, "")
	require.NoError(t, err)
	require.Equal(t, "Kyoto", plan.Intent.Destination)
	require.Equal(t, "cultural", plan.Intent.TripType)
	require.Equal(t, []string{"temples"}, plan.Intent.Interests)
	require.NotEmpty(t, plan.Itinerary)
	require.Equal(t, "ollama", plan.Provider)
	// Intent analysis plus itinerary generation.
	require.Equal(t, 2, provider.calls)
}

func TestPlanTripMalformedIntentStillPlans(t *testing.T) {
	provider := &fixedProvider{name: "ollama", response: "not json at all"}
	assistant := newTestAssistant(t, provider)

	plan, err := assistant.PlanTrip(context.Background(), TripRequest{Query: "somewhere warm", Destination: "Lisbon"}, "")
	require.NoError(t, err)
	require.Equal(t, "Lisbon", plan.Intent.Destination)
	require.NotEmpty(t, plan.Itinerary)
}

func TestPlanTripRequiresQuery(t *testing.T) {
	assistant := newTestAssistant(t, &fixedProvider{name: "ollama", response: "x"})
	_, err := assistant.PlanTrip(context.Background(), TripRequest{}, "")
	require.Error(t, err)
}

func TestConsensusSingleProvider(t *testing.T) {
	provider := &fixedProvider{name: "ollama", response: "answer"}
	assistant := newTestAssistant(t, provider)

	result, err := assistant.Consensus(context.Background(), "prompt", "", nil)
	require.NoError(t, err)
	require.Len(t, result.Answers, 1)
	require.Equal(t, "ollama", result.Answers[0].Provider)
	require.Equal(t, "answer", result.Answers[0].Response)
	// A single successful answer is the consensus; no synthesis call.
	require.Equal(t, "answer", result.Consensus)
	require.Equal(t, 1, provider.calls)
}

func TestConsensusUnknownProviderReported(t *testing.T) {
	provider := &fixedProvider{name: "ollama", response: "answer"}
	assistant := newTestAssistant(t, provider)

	result, err := assistant.Consensus(context.Background(), "prompt", "", []string{"ollama", "nope"})
	require.NoError(t, err)
	require.Len(t, result.Answers, 2)
	require.Equal(t, "answer", result.Answers[0].Response)
	require.NotEmpty(t, result.Answers[1].Error)
	require.Equal(t, "answer", result.Consensus)
}
