// Package state holds the interview continuation state and its encrypted
// token codec. The engine is stateless between requests; the token is the
// only persistence.
package state

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long a state stays valid unless configured otherwise.
const DefaultTTL = 1800 * time.Second

// State is an interview continuation. Steppers never mutate a State in
// place; every mutation produces a new snapshot.
type State struct {
	AnsweredQuestionIDs []string       `json:"answered_question_ids"`
	Complete            bool           `json:"complete"`
	Context             map[string]any `json:"context"`
	Data                map[string]any `json:"data"`
	ExpirationDate      time.Time      `json:"expiration_date"`
	InterviewID         string         `json:"interview_id"`
	InterviewVersion    string         `json:"interview_version"`
	QuestionID          string         `json:"question_id,omitempty"`
	SubmissionID        string         `json:"submission_id"`
	TargetURL           string         `json:"target_url"`
}

// Options configures a new State.
type Options struct {
	InterviewID      string
	InterviewVersion string
	TargetURL        string
	SubmissionID     string         // generated when empty
	ExpirationDate   time.Time      // now+DefaultTTL when zero
	Context          map[string]any // immutable per session
	Data             map[string]any
}

// New creates a State. Timestamps are truncated to second precision so the
// token round-trips exactly.
func New(opts Options) *State {
	submissionID := opts.SubmissionID
	if submissionID == "" {
		submissionID = uuid.NewString()
	}
	expiration := opts.ExpirationDate
	if expiration.IsZero() {
		expiration = time.Now().Add(DefaultTTL)
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = map[string]any{}
	}
	data := opts.Data
	if data == nil {
		data = map[string]any{}
	}
	return &State{
		AnsweredQuestionIDs: []string{},
		Context:             ctx,
		Data:                data,
		ExpirationDate:      expiration.UTC().Truncate(time.Second),
		InterviewID:         opts.InterviewID,
		InterviewVersion:    opts.InterviewVersion,
		SubmissionID:        submissionID,
		TargetURL:           opts.TargetURL,
	}
}

// TemplateContext returns the context for evaluating templates and
// conditions: session context overlaid with interview data, data winning.
func (s *State) TemplateContext() map[string]any {
	merged := make(map[string]any, len(s.Data)+len(s.Context))
	for k, v := range s.Context {
		merged[k] = v
	}
	for k, v := range s.Data {
		merged[k] = v
	}
	return merged
}

// Answered reports whether the question was already asked.
func (s *State) Answered(questionID string) bool {
	return slices.Contains(s.AnsweredQuestionIDs, questionID)
}

// WithQuestion returns a snapshot with questionID as the current question,
// recorded as answered. Recording happens at ask time, before the answer
// arrives, so a rejected answer is retried against the same question rather
// than re-discovered by a fresh step scan.
func (s *State) WithQuestion(questionID string) *State {
	next := s.clone()
	next.QuestionID = questionID
	if !next.Answered(questionID) {
		next.AnsweredQuestionIDs = append(next.AnsweredQuestionIDs, questionID)
		slices.Sort(next.AnsweredQuestionIDs)
	}
	return next
}

// WithData returns a snapshot with the given data tree.
func (s *State) WithData(data map[string]any) *State {
	next := s.clone()
	next.Data = data
	return next
}

// WithoutQuestion returns a snapshot with no current question.
func (s *State) WithoutQuestion() *State {
	next := s.clone()
	next.QuestionID = ""
	return next
}

// WithComplete returns a snapshot marked complete.
func (s *State) WithComplete() *State {
	next := s.clone()
	next.Complete = true
	return next
}

// CloneData returns a deep copy of the data tree for mutation.
func (s *State) CloneData() map[string]any {
	return deepCopyMap(s.Data)
}

// clone returns a shallow snapshot sharing data and context trees; callers
// replace those maps rather than mutating them.
func (s *State) clone() *State {
	next := *s
	next.AnsweredQuestionIDs = slices.Clone(s.AnsweredQuestionIDs)
	return &next
}

// deepCopyMap deep-copies a JSON-shaped tree of maps, slices and scalars.
func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, el := range t {
			out[i] = deepCopyValue(el)
		}
		return out
	default:
		return v
	}
}
