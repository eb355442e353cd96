package textproc

import (
	"fmt"
	"math"
)

// ClassifierPrompt asks a chat model for a phishing probability.
// The single %s receives the (already truncated) message text.
const ClassifierPrompt = `You are a phishing detection system. Analyze the following email and estimate how likely it is to be a phishing attempt.
Respond with a JSON object containing:
- phishing_probability: number between 0 and 1 (higher means more likely to be phishing)

Email:
%s

Respond only with the JSON object and nothing else.`

type probabilityReply struct {
	Probability *float64 `json:"phishing_probability"`
}

// ParseProbability extracts phishing_probability from a chat model reply
func ParseProbability(reply string) (float64, error) {
	var r probabilityReply
	if err := DecodeJSONObject(reply, &r); err != nil {
		return 0, err
	}
	if r.Probability == nil {
		return 0, fmt.Errorf("model reply has no phishing_probability")
	}
	p := *r.Probability
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, fmt.Errorf("phishing_probability %v out of range", p)
	}
	return p, nil
}
