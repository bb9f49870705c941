package llm

// pricing holds USD per 1K tokens as [input, output].
var pricing = map[string][2]float64{
	"gpt-3.5-turbo": {0.0005, 0.0015},
	"gpt-4o":        {0.005, 0.015},
	"gpt-4o-mini":   {0.00015, 0.0006},

	"text-embedding-3-small": {0.00002, 0},
	"text-embedding-3-large": {0.00013, 0},

	"claude-3-haiku-20240307":  {0.00025, 0.00125},
	"claude-sonnet-4-20250514": {0.003, 0.015},
}

// CalculateCost returns the USD cost of a call; unknown models (including
// local Ollama models) cost 0.
func CalculateCost(model string, inputTokens, outputTokens int) float64 {
	prices, ok := pricing[model]
	if !ok {
		return 0
	}
	return float64(inputTokens)/1000.0*prices[0] + float64(outputTokens)/1000.0*prices[1]
}
