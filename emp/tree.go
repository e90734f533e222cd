package emp

import (
	"github.com/emptools/empfile"
)

// noLink indicates the absence of a sibling or child in the arena.
const noLink = -1

// arenaNode is a node of the arena. Links are indices into the arena.
type arenaNode struct {
	Node  *empfile.Node
	Next  int
	Child int

	// Owner is the shape of the nearest emitter ancestor.
	Owner empfile.EmitterShape

	// Offset is the position of the decoded record.
	Offset int64
	// Header is the decoded record header.
	Header nodeHeader

	// Label marks the position of the encoded record.
	Label label
}

// arena holds the nodes of a file, linked by index in the same way that
// records are linked by offset.
type arena struct {
	nodes []arenaNode
}

// add appends a node without links, returning its index.
func (a *arena) add(n arenaNode) int {
	n.Next = noLink
	n.Child = noLink
	a.nodes = append(a.nodes, n)
	return len(a.nodes) - 1
}

// checkNodes returns an error if nodes contains a nil node, or a node that is
// its own ancestor.
func checkNodes(nodes []*empfile.Node, path map[*empfile.Node]bool) error {
	for i, node := range nodes {
		if node == nil {
			return formatError(-1, "node %d is nil", i)
		}
		if path[node] {
			return formatError(-1, "node %q is its own ancestor", node.Name)
		}
		path[node] = true
		if err := checkNodes(node.Children, path); err != nil {
			return err
		}
		delete(path, node)
	}
	return nil
}

// linearize adds nodes and their descendants to the arena in depth-first
// pre-order, returning the index of the first node, or noLink if nodes is
// empty.
func (a *arena) linearize(nodes []*empfile.Node, owner empfile.EmitterShape) int {
	first, prev := noLink, noLink
	for _, node := range nodes {
		i := a.add(arenaNode{Node: node, Owner: owner})
		if prev == noLink {
			first = i
		} else {
			a.nodes[prev].Next = i
		}
		prev = i

		childOwner := owner
		if e := node.Emitter(); e != nil {
			childOwner = e.Shape()
		}
		a.nodes[i].Child = a.linearize(node.Children, childOwner)
	}
	return first
}

// siblings returns the chain of nodes starting at i.
func (a *arena) siblings(i int) []*empfile.Node {
	var nodes []*empfile.Node
	for ; i != noLink; i = a.nodes[i].Next {
		nodes = append(nodes, a.nodes[i].Node)
	}
	return nodes
}

// tree sets the Children of every node from the links of the arena, and
// returns the chain of root nodes starting at root.
func (a *arena) tree(root int) []*empfile.Node {
	for i := range a.nodes {
		a.nodes[i].Node.Children = a.siblings(a.nodes[i].Child)
	}
	return a.siblings(root)
}

////////////////////////////////////////////////////////////////

// parseSiblings decodes the chain of sibling records starting at off, along
// with their descendants. Returns the arena index of the first node and the
// length of the chain.
func (s *decodeState) parseSiblings(off int64, owner empfile.EmitterShape) (first, count int, err error) {
	first, prev := noLink, noLink
	for {
		i, err := s.parseNode(off, owner)
		if err != nil {
			return noLink, 0, err
		}
		if prev == noLink {
			first = i
		} else {
			s.arena.nodes[prev].Next = i
		}
		prev = i
		count++

		h := s.arena.nodes[i].Header
		if h.FirstChild != 0 {
			child, _, err := s.parseChildren(off, h.FirstChild, i)
			if err != nil {
				return noLink, 0, err
			}
			s.arena.nodes[i].Child = child
		}

		if h.NextSibling == 0 {
			return first, count, nil
		}
		if off, err = s.rel(off, h.NextSibling); err != nil {
			return noLink, 0, err
		}
	}
}

// parseChildren decodes the children of the node at off, whose record
// declares the first child at the relative offset child. parent is the arena
// index of the node.
func (s *decodeState) parseChildren(off int64, child uint32, parent int) (first, count int, err error) {
	pos, err := s.rel(off, child)
	if err != nil {
		return noLink, 0, err
	}
	owner := s.arena.nodes[parent].Owner
	if e := s.arena.nodes[parent].Node.Emitter(); e != nil {
		owner = e.Shape()
	}
	return s.parseSiblings(pos, owner)
}
