package question

import (
	"log/slog"

	"github.com/parley-stack/parley/internal/location"
)

// Bank indexes questions by id and by the locations their fields provide.
// Lookups by location go through a trie keyed by location prefixes so that
// parameterized questions (a field setting f[x]) match concrete lookups
// (f[0]) whenever the index variables evaluate equal in the caller's context.
type Bank struct {
	questions []*Question
	byID      map[string]*Question
	root      *trieNode
}

type trieNode struct {
	edges     []trieEdge
	questions []*Question
}

// trieEdge keys are the full prefix locations as declared, unevaluated.
// Index expressions inside them are resolved against the lookup context.
type trieEdge struct {
	key   location.Location
	child *trieNode
}

// NewBank builds a bank from questions in declaration order. A duplicate id
// logs a warning and the later question wins.
func NewBank(questions []*Question, logger *slog.Logger) *Bank {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bank{
		byID: make(map[string]*Question, len(questions)),
		root: &trieNode{},
	}
	for _, q := range questions {
		if _, exists := b.byID[q.ID]; exists {
			logger.Warn("duplicate question id, replacing earlier definition", "question_id", q.ID)
			b.remove(q.ID)
		}
		b.byID[q.ID] = q
		b.questions = append(b.questions, q)
		for _, loc := range q.Provides() {
			b.insert(loc, q)
		}
	}
	return b
}

// Len returns the number of questions in the bank.
func (b *Bank) Len() int {
	return len(b.questions)
}

// Questions returns all questions in declaration order.
func (b *Bank) Questions() []*Question {
	return b.questions
}

// ByID returns the question with the given id, or nil.
func (b *Bank) ByID(id string) *Question {
	return b.byID[id]
}

func (b *Bank) insert(loc location.Location, q *Question) {
	node := b.root
	for _, prefix := range location.Prefixes(loc) {
		var child *trieNode
		for _, edge := range node.edges {
			if edge.key.Equal(prefix) {
				child = edge.child
				break
			}
		}
		if child == nil {
			child = &trieNode{}
			node.edges = append(node.edges, trieEdge{key: prefix, child: child})
		}
		node = child
	}
	node.questions = append(node.questions, q)
}

// Providing returns the questions whose fields write to loc, evaluated
// against ctx, in declaration order. Edge keys are canonicalized per lookup,
// so an edge declared as f[x] matches a query for f[0] when x is 0 in ctx;
// distinct declared keys that evaluate equal all contribute their questions.
// An undefined variable in the query or in an edge index propagates as an
// undefined-location error; resolving it may make the lookup succeed later.
func (b *Bank) Providing(loc location.Location, ctx map[string]any) ([]*Question, error) {
	canonical, err := location.EvaluateIndexes(loc, ctx)
	if err != nil {
		return nil, err
	}

	nodes := []*trieNode{b.root}
	for _, prefix := range location.Prefixes(canonical) {
		var next []*trieNode
		for _, node := range nodes {
			for _, edge := range node.edges {
				key, err := location.EvaluateIndexes(edge.key, ctx)
				if err != nil {
					return nil, err
				}
				if key.Equal(prefix) {
					next = append(next, edge.child)
				}
			}
		}
		if len(next) == 0 {
			return nil, nil
		}
		nodes = next
	}

	matched := make(map[*Question]bool)
	for _, node := range nodes {
		for _, q := range node.questions {
			matched[q] = true
		}
	}
	var out []*Question
	for _, q := range b.questions {
		if matched[q] {
			out = append(out, q)
		}
	}
	return out, nil
}

// remove drops a question from the order and the trie; the id map entry is
// overwritten by the caller.
func (b *Bank) remove(id string) {
	old := b.byID[id]
	for i, q := range b.questions {
		if q == old {
			b.questions = append(b.questions[:i], b.questions[i+1:]...)
			break
		}
	}
	b.root.removeQuestion(old)
}

func (n *trieNode) removeQuestion(q *Question) {
	for i, candidate := range n.questions {
		if candidate == q {
			n.questions = append(n.questions[:i], n.questions[i+1:]...)
			break
		}
	}
	for _, edge := range n.edges {
		edge.child.removeQuestion(q)
	}
}
