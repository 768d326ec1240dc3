package lending

// OutcomeKind classifies a workflow result for the caller's notification
// surface: exactly one transient notification per attempt.
type OutcomeKind string

const (
	OutcomeSuccess OutcomeKind = "success"
	OutcomeError   OutcomeKind = "error"
	OutcomeInfo    OutcomeKind = "info"
)

// Outcome is the result surfaced to the caller for one lend or return
// attempt. Store-level errors never escape the workflows; they are folded
// into an error outcome with a human-readable message.
type Outcome struct {
	Kind    OutcomeKind `json:"kind"`
	Message string      `json:"message"`
}

func success(msg string) Outcome { return Outcome{Kind: OutcomeSuccess, Message: msg} }
func failure(msg string) Outcome { return Outcome{Kind: OutcomeError, Message: msg} }
func info(msg string) Outcome    { return Outcome{Kind: OutcomeInfo, Message: msg} }
