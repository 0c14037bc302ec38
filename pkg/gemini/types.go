package gemini

import (
	"encoding/json"

	"github.com/papercomputeco/chatrelay/pkg/framing"
)

// finishReasonStop is the finish reason of a normally completed candidate.
const finishReasonStop = "STOP"

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text,omitempty"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates    []candidate    `json:"candidates"`
	UsageMetadata *usageMetadata `json:"usageMetadata,omitempty"`
}

type candidate struct {
	Content      *content `json:"content,omitempty"`
	FinishReason string   `json:"finishReason,omitempty"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

func newGenerateRequest(prompt string, gc GenerationConfig) generateRequest {
	return generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     gc.Temperature,
			TopK:            gc.TopK,
			TopP:            gc.TopP,
			MaxOutputTokens: gc.MaxOutputTokens,
		},
	}
}

// ParsePayload extracts candidates[0].content.parts[0].text and whether
// candidates[0] finished with STOP from one response object. Any part or
// candidate beyond the first is ignored.
func ParsePayload(data []byte) (framing.Payload, error) {
	var resp generateResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return framing.Payload{}, err
	}

	if len(resp.Candidates) == 0 {
		return framing.Payload{}, nil
	}

	c := resp.Candidates[0]
	p := framing.Payload{Finished: c.FinishReason == finishReasonStop}
	if c.Content != nil && len(c.Content.Parts) > 0 {
		p.Text = c.Content.Parts[0].Text
	}

	return p, nil
}
