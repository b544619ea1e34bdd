package datamodel

import (
	"strings"
)

// ListNode is a node of a controlled vocabulary tree.
type ListNode struct {
	Name     string
	Labels   map[string]string
	Children []*ListNode
}

// List is a controlled vocabulary. It has at least one label and one node.
type List struct {
	Name   string
	Labels map[string]string
	Nodes  []*ListNode

	names  map[string]struct{}
	labels map[string]string // label -> node name, exact
	folded map[string]string // lower-cased trimmed label -> node name
}

func (l *List) index() {
	l.names = make(map[string]struct{})
	l.labels = make(map[string]string)
	l.folded = make(map[string]string)
	var walk func(nodes []*ListNode)
	walk = func(nodes []*ListNode) {
		for _, n := range nodes {
			l.names[n.Name] = struct{}{}
			for _, label := range n.Labels {
				if _, ok := l.labels[label]; !ok {
					l.labels[label] = n.Name
				}
				key := strings.ToLower(strings.TrimSpace(label))
				if _, ok := l.folded[key]; !ok {
					l.folded[key] = n.Name
				}
			}
			walk(n.Children)
		}
	}
	walk(l.Nodes)
}

// HasNode reports whether some node anywhere in the tree is called name.
func (l *List) HasNode(name string) bool {
	_, ok := l.names[name]
	return ok
}

// NameForLabel returns the name of the node carrying label in any language.
// An exact match wins over a case-insensitive match of the trimmed label.
func (l *List) NameForLabel(label string) (string, bool) {
	if name, ok := l.labels[label]; ok {
		return name, true
	}
	name, ok := l.folded[strings.ToLower(strings.TrimSpace(label))]
	return name, ok
}

// Walk calls fn for every node in depth-first order.
func (l *List) Walk(fn func(*ListNode)) {
	var walk func(nodes []*ListNode)
	walk = func(nodes []*ListNode) {
		for _, n := range nodes {
			fn(n)
			walk(n.Children)
		}
	}
	walk(l.Nodes)
}
