// Package thread turns flat parent-linked records into reply trees and keeps
// cached trees patchable one node at a time.
package thread

// Item is anything that can sit in a thread: it has an id and an optional
// parent id ("" for a top-level node).
type Item interface {
	NodeID() string
	ParentNodeID() string
}

// Tree is one node of a built forest.
type Tree[T Item] struct {
	Value    T
	Children []*Tree[T]
}

// BuildForest links items to their parents in two passes. A node whose parent
// is not in items is returned as a root, so replies to a removed node surface
// at the top level instead of disappearing. Roots and children keep the input
// order. Repeated ids are linked once, at their first occurrence.
func BuildForest[T Item](items []T) []*Tree[T] {
	index := make(map[string]*Tree[T], len(items))
	for _, item := range items {
		id := item.NodeID()
		if _, seen := index[id]; seen {
			continue
		}
		index[id] = &Tree[T]{Value: item, Children: []*Tree[T]{}}
	}

	roots := make([]*Tree[T], 0, len(items))
	linked := make(map[string]bool, len(items))
	for _, item := range items {
		id := item.NodeID()
		if linked[id] {
			continue
		}
		linked[id] = true

		node := index[id]
		parent, ok := index[item.ParentNodeID()]
		if !ok || parent == node {
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}
	return roots
}

// Walk visits every node of the forest depth-first, parents before children.
func Walk[T Item](forest []*Tree[T], fn func(node *Tree[T], depth int)) {
	var visit func(nodes []*Tree[T], depth int)
	visit = func(nodes []*Tree[T], depth int) {
		for _, n := range nodes {
			fn(n, depth)
			visit(n.Children, depth+1)
		}
	}
	visit(forest, 0)
}
