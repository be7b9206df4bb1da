package kernel

import "encoding/json"

// StatusError marks an envelope produced by a failed turn.
const StatusError = "error"

// Envelope is the unified response returned from ProcessMessage. Extra
// carries non-colliding keys from a specialized agent's response; they
// are flattened into the top-level JSON object.
type Envelope struct {
	Message     string         `json:"message"`
	SessionID   string         `json:"session_id"`
	Intent      string         `json:"intent,omitempty"`
	Sentiment   string         `json:"sentiment,omitempty"`
	Urgency     string         `json:"urgency,omitempty"`
	ToolsUsed   []string       `json:"tools_used,omitempty"`
	ElapsedTime float64        `json:"elapsed_time"`
	AgentUsed   string         `json:"agent_used"`
	Status      string         `json:"status,omitempty"`
	Extra       map[string]any `json:"-"`
}

// MarshalJSON flattens Extra into the envelope, skipping keys that
// collide with envelope fields.
func (e *Envelope) MarshalJSON() ([]byte, error) {
	type plain Envelope
	base, err := json.Marshal((*plain)(e))
	if err != nil {
		return nil, err
	}
	if len(e.Extra) == 0 {
		return base, nil
	}

	var out map[string]any
	if err := json.Unmarshal(base, &out); err != nil {
		return nil, err
	}
	for key, val := range e.Extra {
		if _, taken := out[key]; !taken {
			out[key] = val
		}
	}
	return json.Marshal(out)
}
