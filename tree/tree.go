package tree

import (
	"math/rand/v2"
	"slices"

	"github.com/outofforest/iradix"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/outofforest/treecipher/id"
)

var (
	// ErrInvalidNodeCount is returned when a tree of less than one node is requested.
	ErrInvalidNodeCount = errors.New("node count must be positive")

	// ErrRootExists is returned when a second root is added.
	ErrRootExists = errors.New("root already exists")

	// ErrDuplicateID is returned when a node with an already used identifier is added.
	ErrDuplicateID = errors.New("node with such identifier is present")

	// ErrNodeNotFound is returned when the requested node is not in the tree.
	ErrNodeNotFound = errors.New("no node with such identifier")

	// ErrMalformedTree is returned when an adjacency mapping does not describe
	// a connected acyclic tree.
	ErrMalformedTree = errors.New("malformed tree")
)

// Node is a single tree node: an identifier, the identifiers of its
// neighbours and an optional data slot. Neighbour lists are kept sorted
// by identifier.
type Node struct {
	id         id.ID
	neighbours []id.ID
	value      int64
	hasValue   bool
}

// ID returns the identifier of the node.
func (n *Node) ID() id.ID {
	return n.id
}

// Neighbours returns the identifiers of the neighbours of the node,
// sorted ascending.
func (n *Node) Neighbours() []id.ID {
	return append([]id.ID(nil), n.neighbours...)
}

// Data returns the value stored in the data slot of the node.
func (n *Node) Data() (int64, bool) {
	return n.value, n.hasValue
}

// SetData stores a value in the data slot of the node.
func (n *Node) SetData(v int64) {
	n.value = v
	n.hasValue = true
}

// ClearData empties the data slot of the node.
func (n *Node) ClearData() {
	n.value = 0
	n.hasValue = false
}

// New creates new empty tree.
func New() *Tree {
	return &Tree{
		nodes: iradix.NewTxn(iradix.New[Node]()),
	}
}

// Tree is an undirected connected acyclic graph of nodes. The topology is
// built once and never changes afterwards; only the data slots of the nodes
// are mutable. Nodes are stored in an immutable radix tree keyed by the
// big-endian encoding of their identifiers, so iterating the store visits
// nodes in ascending identifier order.
//
// A tree must not be used by concurrent writers of its data slots without
// external synchronization.
type Tree struct {
	root    id.ID
	hasRoot bool
	size    int
	nodes   *iradix.Txn[Node]
}

// AddRoot adds the first node of the tree and designates it as the root.
func (t *Tree) AddRoot(rootID id.ID) error {
	if t.hasRoot {
		return ErrRootExists
	}
	t.nodes.Insert(rootID.Key(), &Node{id: rootID})
	t.root = rootID
	t.hasRoot = true
	t.size = 1
	return nil
}

// Add adds a node to the tree and makes an edge between it and the node
// with the given ancestor identifier.
func (t *Tree) Add(ancestorID, newID id.ID) error {
	ancestor, ok := t.lookup(ancestorID)
	if !ok {
		return ErrNodeNotFound
	}
	if _, ok := t.lookup(newID); ok {
		return ErrDuplicateID
	}

	t.nodes.Insert(newID.Key(), &Node{
		id:         newID,
		neighbours: []id.ID{ancestorID},
	})

	pos, _ := slices.BinarySearch(ancestor.neighbours, newID)
	ancestor.neighbours = slices.Insert(ancestor.neighbours, pos, newID)
	t.size++
	return nil
}

// Root returns the identifier of the root node.
func (t *Tree) Root() id.ID {
	return t.root
}

// Size returns the number of nodes.
func (t *Tree) Size() int {
	return t.size
}

// Node returns the node with the given identifier.
func (t *Tree) Node(nodeID id.ID) (*Node, bool) {
	return t.lookup(nodeID)
}

// IDs returns all node identifiers, sorted ascending.
func (t *Tree) IDs() []id.ID {
	ids := make([]id.ID, 0, t.size)
	iter := t.nodes.Root().Iterator()
	for n := iter.Next(); n != nil; n = iter.Next() {
		ids = append(ids, n.id)
	}
	return ids
}

// Walk traverses the tree breadth-first starting at the given node and calls
// fn for every visited node. Nodes on the same frontier are visited in
// ascending identifier order. The traversal is a pure function of the
// topology; it never modifies the tree.
func (t *Tree) Walk(from id.ID, fn func(n *Node)) error {
	start, ok := t.lookup(from)
	if !ok {
		return ErrNodeNotFound
	}

	visited := map[id.ID]bool{from: true}
	queue := []*Node{start}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		fn(n)

		for _, neighbourID := range n.neighbours {
			if visited[neighbourID] {
				continue
			}
			visited[neighbourID] = true
			neighbour, _ := t.lookup(neighbourID)
			queue = append(queue, neighbour)
		}
	}
	return nil
}

// BFSIDs returns all node identifiers in breadth-first order starting at the
// given node.
func (t *Tree) BFSIDs(from id.ID) ([]id.ID, error) {
	ids := make([]id.ID, 0, t.size)
	if err := t.Walk(from, func(n *Node) {
		ids = append(ids, n.id)
	}); err != nil {
		return nil, err
	}
	return ids, nil
}

// WriteData stores values in the data slots of the nodes in breadth-first
// order starting at the given node. If there are fewer values than nodes,
// the data slots of the remaining nodes are emptied.
func (t *Tree) WriteData(from id.ID, values []int64) error {
	var i int
	return t.Walk(from, func(n *Node) {
		if i < len(values) {
			n.SetData(values[i])
		} else {
			n.ClearData()
		}
		i++
	})
}

// ReadData returns the data slots of the nodes in breadth-first order
// starting at the given node. Empty slots are returned as nil.
func (t *Tree) ReadData(from id.ID) ([]*int64, error) {
	values := make([]*int64, 0, t.size)
	if err := t.Walk(from, func(n *Node) {
		if v, ok := n.Data(); ok {
			values = append(values, lo.ToPtr(v))
		} else {
			values = append(values, nil)
		}
	}); err != nil {
		return nil, err
	}
	return values, nil
}

// WriteDataByID stores values in the data slots of the nodes in ascending
// identifier order. If there are fewer values than nodes, the data slots of
// the remaining nodes are emptied.
func (t *Tree) WriteDataByID(values []int64) {
	var i int
	iter := t.nodes.Root().Iterator()
	for n := iter.Next(); n != nil; n = iter.Next() {
		if i < len(values) {
			n.SetData(values[i])
		} else {
			n.ClearData()
		}
		i++
	}
}

// ReadDataByID returns the data slots of the nodes in ascending identifier
// order. Empty slots are returned as nil.
func (t *Tree) ReadDataByID() []*int64 {
	values := make([]*int64, 0, t.size)
	iter := t.nodes.Root().Iterator()
	for n := iter.Next(); n != nil; n = iter.Next() {
		if v, ok := n.Data(); ok {
			values = append(values, lo.ToPtr(v))
		} else {
			values = append(values, nil)
		}
	}
	return values
}

// ClearData empties the data slots of all nodes.
func (t *Tree) ClearData() {
	iter := t.nodes.Root().Iterator()
	for n := iter.Next(); n != nil; n = iter.Next() {
		n.ClearData()
	}
}

// Adjacency converts the tree to a mapping from node identifier to the
// sorted identifiers of its neighbours. Data values are not included.
func (t *Tree) Adjacency() map[id.ID][]id.ID {
	adj := make(map[id.ID][]id.ID, t.size)
	iter := t.nodes.Root().Iterator()
	for n := iter.Next(); n != nil; n = iter.Next() {
		adj[n.id] = append([]id.ID(nil), n.neighbours...)
	}
	return adj
}

// FromAdjacency builds a tree from an adjacency mapping and a designated
// root. The mapping must describe a connected acyclic undirected graph with
// a symmetric neighbour relation containing the root.
func FromAdjacency(adj map[id.ID][]id.ID, root id.ID) (*Tree, error) {
	if len(adj) == 0 {
		return nil, ErrMalformedTree
	}
	if _, ok := adj[root]; !ok {
		return nil, ErrMalformedTree
	}

	var edges int
	t := New()
	for nodeID, neighbourIDs := range adj {
		neighbours := append([]id.ID(nil), neighbourIDs...)
		slices.Sort(neighbours)
		neighbours = slices.Compact(neighbours)
		for _, neighbourID := range neighbours {
			others, ok := adj[neighbourID]
			if !ok || neighbourID == nodeID || !slices.Contains(others, nodeID) {
				return nil, ErrMalformedTree
			}
		}
		edges += len(neighbours)
		t.nodes.Insert(nodeID.Key(), &Node{
			id:         nodeID,
			neighbours: neighbours,
		})
	}

	// Every edge is counted once from each end.
	if edges != 2*(len(adj)-1) {
		return nil, ErrMalformedTree
	}

	t.root = root
	t.hasRoot = true
	t.size = len(adj)

	reached, err := t.BFSIDs(root)
	if err != nil {
		return nil, err
	}
	if len(reached) != t.size {
		return nil, ErrMalformedTree
	}
	return t, nil
}

// Generate builds a random tree of the given size. Every new node is
// attached to a uniformly chosen existing node, so the result is connected
// and acyclic by construction. The first generated node becomes the root.
// The same source state always produces the same tree.
func Generate(nodeCount int, r *rand.Rand) (*Tree, error) {
	if nodeCount < 1 {
		return nil, ErrInvalidNodeCount
	}
	return GenerateRooted(id.Random(r), nodeCount, r)
}

// GenerateRooted builds a random tree of the given size rooted at the given
// identifier.
func GenerateRooted(root id.ID, nodeCount int, r *rand.Rand) (*Tree, error) {
	if nodeCount < 1 {
		return nil, ErrInvalidNodeCount
	}

	t := New()
	lo.Must0(t.AddRoot(root))

	ids := make([]id.ID, 1, nodeCount)
	ids[0] = root
	for len(ids) < nodeCount {
		newID := id.Random(r)
		if _, ok := t.lookup(newID); ok {
			continue
		}
		ancestorID := ids[r.IntN(len(ids))]
		lo.Must0(t.Add(ancestorID, newID))
		ids = append(ids, newID)
	}
	return t, nil
}

func (t *Tree) lookup(nodeID id.ID) (*Node, bool) {
	if t.size == 0 {
		return nil, false
	}
	iter := t.nodes.Root().Iterator()
	iter.SeekPrefix(nodeID.Key())
	if n := iter.Next(); n != nil {
		return n, true
	}
	return nil, false
}
