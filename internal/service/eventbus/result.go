package eventbus

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Outcome is the result of handing one listener to the backend. Token is
// "sync" for inline execution or the task id for queued execution.
type Outcome struct {
	Listener string
	Token    string
	Err      error
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	out := struct {
		Listener string `json:"listener"`
		Token    string `json:"token,omitempty"`
		Error    string `json:"error,omitempty"`
	}{Listener: o.Listener, Token: o.Token}
	if o.Err != nil {
		out.Error = o.Err.Error()
	}
	return json.Marshal(out)
}

type DispatchResult struct {
	EventID  uuid.UUID `json:"event_id"`
	Outcomes []Outcome `json:"outcomes"`
}

// AnySucceeded reports whether at least one listener ran or was queued.
func (r *DispatchResult) AnySucceeded() bool {
	for _, o := range r.Outcomes {
		if o.Err == nil {
			return true
		}
	}
	return false
}

func (r *DispatchResult) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// Tokens lists the outcome tokens of successful listeners in order.
func (r *DispatchResult) Tokens() []string {
	var out []string
	for _, o := range r.Outcomes {
		if o.Err == nil {
			out = append(out, o.Token)
		}
	}
	return out
}
