package localizer

import (
	"slices"

	"github.com/hupe1980/seqloc/model"
)

type vertex struct {
	node     model.Node
	parent   model.Key
	children []model.Key
	expanded bool
}

// graph is the data association tree rooted at the source. It owns the
// predecessor and accumulated cost of every visited node.
type graph struct {
	vertices map[model.Key]*vertex
}

func newGraph() *graph {
	g := &graph{vertices: make(map[model.Key]*vertex)}
	g.vertices[model.SourceKey] = &vertex{node: model.Source(), parent: model.SourceKey}
	return g
}

func (g *graph) get(k model.Key) (*vertex, bool) {
	v, ok := g.vertices[k]
	return v, ok
}

func (g *graph) len() int { return len(g.vertices) }

// attach records child under parent with acc as its accumulated cost.
func (g *graph) attach(parent model.Key, child model.Node, acc float64) *vertex {
	child.AccCost = acc
	v := &vertex{node: child, parent: parent}
	g.vertices[child.Key()] = v
	p := g.vertices[parent]
	p.children = append(p.children, child.Key())
	return v
}

// reparent moves v under parent with acc as its new accumulated cost.
func (g *graph) reparent(v *vertex, parent model.Key, acc float64) {
	key := v.node.Key()
	if old, ok := g.vertices[v.parent]; ok {
		old.children = slices.DeleteFunc(old.children, func(k model.Key) bool { return k == key })
	}
	v.parent = parent
	p := g.vertices[parent]
	p.children = append(p.children, key)
	v.node.AccCost = acc
}

// walk visits the ancestors of k starting with k itself, excluding the source,
// until fn returns false.
func (g *graph) walk(k model.Key, fn func(v *vertex) bool) {
	for k != model.SourceKey {
		v, ok := g.vertices[k]
		if !ok || !fn(v) {
			return
		}
		k = v.parent
	}
}

// descendants visits every descendant of k in breadth-first order, so a
// parent is always visited before its children.
func (g *graph) descendants(k model.Key, fn func(v *vertex)) {
	pending := slices.Clone(g.vertices[k].children)
	for len(pending) > 0 {
		v := g.vertices[pending[0]]
		pending = pending[1:]
		fn(v)
		pending = append(pending, v.children...)
	}
}
