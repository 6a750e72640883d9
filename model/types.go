package model

import (
	"fmt"
)

// SourceID is the query and reference id of the source sentinel.
const SourceID = -1

// Key identifies a node by its (query, reference) pairing.
type Key struct {
	QueryID int
	RefID   int
}

// String returns a string representation of the Key.
func (k Key) String() string {
	return fmt.Sprintf("(%d,%d)", k.QueryID, k.RefID)
}

// SourceKey is the key of the source sentinel.
var SourceKey = Key{QueryID: SourceID, RefID: SourceID}

// Node is a hypothesis that query QueryID depicts reference place RefID.
//
// Identity is by Key only; Cost and AccCost are payload.
type Node struct {
	QueryID int
	RefID   int
	// Cost is the individual matching cost of the pairing.
	Cost float64
	// AccCost is the sum of individual costs along the best known path from the source.
	AccCost float64
}

// Source returns the source sentinel node.
func Source() Node {
	return Node{QueryID: SourceID, RefID: SourceID}
}

// NewNode creates a node with an unset accumulated cost.
func NewNode(queryID, refID int, cost float64) Node {
	return Node{QueryID: queryID, RefID: refID, Cost: cost}
}

// Key returns the identity of the node.
func (n Node) Key() Key {
	return Key{QueryID: n.QueryID, RefID: n.RefID}
}

// IsSource reports whether n is the source sentinel.
func (n Node) IsSource() bool {
	return n.QueryID == SourceID && n.RefID == SourceID
}

// String returns a string representation of the Node.
func (n Node) String() string {
	return fmt.Sprintf("Node(%d,%d cost=%g acc=%g)", n.QueryID, n.RefID, n.Cost, n.AccCost)
}

// State classifies a node on the extracted path.
type State uint8

const (
	// StateReal marks a pairing whose cost does not exceed the non-matching cost.
	StateReal State = iota
	// StateHidden marks a pairing considered a non-match.
	StateHidden
)

// String returns the name of the state.
func (s State) String() string {
	switch s {
	case StateReal:
		return "REAL"
	case StateHidden:
		return "HIDDEN"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Classify returns StateHidden iff cost is strictly greater than nonMatchingCost.
func Classify(cost, nonMatchingCost float64) State {
	if cost > nonMatchingCost {
		return StateHidden
	}
	return StateReal
}

// Match is one element of an extracted path.
type Match struct {
	QueryID int
	RefID   int
	State   State
}

// Real reports whether the match is a real match.
func (m Match) Real() bool {
	return m.State == StateReal
}

// Matches is a path, ordered most recent first.
type Matches []Match

// Reverse returns a copy ordered oldest first.
func (m Matches) Reverse() Matches {
	out := make(Matches, len(m))
	for i := range m {
		out[len(m)-1-i] = m[i]
	}
	return out
}

// RealCount returns the number of real matches.
func (m Matches) RealCount() int {
	n := 0
	for _, e := range m {
		if e.Real() {
			n++
		}
	}
	return n
}
