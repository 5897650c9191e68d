package merkle

// nodeIndex addresses a node in the breadth-first node array of a complete
// binary tree. Children of node i are 2i+1 and 2i+2.
type nodeIndex uint32

const rootIndex nodeIndex = 0

func (i nodeIndex) left() nodeIndex {
	return 2*i + 1
}

func (i nodeIndex) right() nodeIndex {
	return 2*i + 2
}

// span is a node together with the inclusive range of leaf positions its
// subtree covers.
type span struct {
	node   nodeIndex
	lo, hi int
}

func (s span) children() (span, span) {
	mid := s.lo + (s.hi-s.lo)/2
	return span{node: s.node.left(), lo: s.lo, hi: mid},
		span{node: s.node.right(), lo: mid + 1, hi: s.hi}
}
