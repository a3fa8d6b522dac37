package step

// Result is the outcome of handling a step: a status, an exit, or a
// question rendered for the client (produced by the question package).
type Result interface {
	ResultType() string
}

// Status is a non-terminal step outcome. The strings are the wire form used
// by hook responses.
type Status string

const (
	// StatusSkipped means the step did not fire; scanning continues.
	StatusSkipped Status = "skipped"
	// StatusChanged means the step updated the state; scanning restarts.
	StatusChanged Status = "changed"
	// StatusCompleted means a full scan made no change; the interview is done.
	StatusCompleted Status = "completed"
)

// ResultType returns the wire form of the status.
func (s Status) ResultType() string {
	return string(s)
}

// ExitResult halts the interview with a message, without marking it
// complete.
type ExitResult struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// ResultType identifies this result as an exit on the wire.
func (r *ExitResult) ResultType() string {
	return "exit"
}

// Terminal reports whether a result ends the current advance: an ask or an
// exit goes back to the client as-is.
func Terminal(r Result) bool {
	switch r.ResultType() {
	case "question", "exit":
		return true
	}
	return false
}
