package question

import (
	"github.com/parley-stack/parley/internal/field"
	"github.com/parley-stack/parley/internal/template"
)

// AskResult is the client-facing rendering of a question, produced against a
// concrete template context.
type AskResult struct {
	Type        string                    `json:"type"`
	Title       string                    `json:"title,omitempty"`
	Description string                    `json:"description,omitempty"`
	Fields      map[string]field.AskField `json:"fields"`
	Buttons     []AskButton               `json:"buttons,omitempty"`
}

// AskButton is a rendered button.
type AskButton struct {
	Label   string `json:"label"`
	Primary bool   `json:"primary"`
	Default bool   `json:"default"`
}

// ResultType identifies this result as a question on the wire.
func (r *AskResult) ResultType() string {
	return "question"
}

// Ask renders the question against ctx. An undefined variable anywhere in
// the title, description, field labels or defaults propagates so the caller
// can resolve it first.
func (q *Question) Ask(ctx map[string]any) (*AskResult, error) {
	result := &AskResult{Type: "question"}

	var err error
	if result.Title, err = renderOptional(q.Title, ctx); err != nil {
		return nil, err
	}
	if result.Description, err = renderOptional(q.Description, ctx); err != nil {
		return nil, err
	}
	if result.Fields, err = q.AskFields(ctx); err != nil {
		return nil, err
	}

	for _, b := range q.Buttons {
		label, err := renderOptional(b.Label, ctx)
		if err != nil {
			return nil, err
		}
		result.Buttons = append(result.Buttons, AskButton{
			Label:   label,
			Primary: b.Primary,
			Default: b.Default,
		})
	}
	return result, nil
}

func renderOptional(t *template.Template, ctx map[string]any) (string, error) {
	if t == nil {
		return "", nil
	}
	return t.Render(ctx)
}
