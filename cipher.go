// Package treecipher implements a toy substitution cipher driven by the
// shape of a random tree.
//
// A block of plaintext values is assigned to the nodes of a shared secret
// tree in ascending identifier order and read back in breadth-first order
// starting at the root. The root identifier is the key. Reconciling the two
// orderings yields a permutation of positions; decryption applies its
// inverse. This is a pedagogical permutation toy, not a secure cipher.
package treecipher

import (
	"math/rand/v2"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/outofforest/treecipher/id"
	"github.com/outofforest/treecipher/tree"
)

// BlockSize is the number of values encrypted in one block.
const BlockSize = 16

var (
	// ErrKeyMismatch is returned when the key does not identify the tree root.
	ErrKeyMismatch = errors.New("key does not match tree root")

	// ErrPlaintextTooLarge is returned when a plaintext does not fit in the tree.
	ErrPlaintextTooLarge = errors.New("plaintext larger than tree")

	// ErrMalformedCiphertext is returned when a ciphertext does not match the
	// shape of the tree.
	ErrMalformedCiphertext = errors.New("malformed ciphertext")
)

// Ciphertext is an encrypted block: one value per tree node, indexed by the
// breadth-first position of the node, together with the original plaintext
// length. Positions beyond the plaintext length carry zero values; Length
// makes them distinguishable from real zeros.
type Ciphertext struct {
	Length int
	Values []int64
}

// Cipher encrypts and decrypts blocks of values using a shared secret tree.
// The tree and the key must be exchanged out of band between the encrypting
// and the decrypting party.
//
// Encrypt and Decrypt mutate the data slots of the tree, so a single Cipher
// must not be used concurrently.
type Cipher struct {
	blockTree *tree.Tree
	key       id.ID
}

// New creates new cipher on top of an existing tree. The key must be the
// identifier of the tree root.
func New(t *tree.Tree, key id.ID) (*Cipher, error) {
	if t.Size() == 0 || key != t.Root() {
		return nil, ErrKeyMismatch
	}
	return &Cipher{
		blockTree: t,
		key:       key,
	}, nil
}

// Generate creates new cipher on top of a random tree of the given size.
// The same seed and node count always produce the same tree, so both
// parties may regenerate the shared tree from a shared seed instead of
// exchanging the serialized tree.
func Generate(nodeCount int, seed uint64) (*Cipher, error) {
	t, err := tree.Generate(nodeCount, rand.New(rand.NewPCG(seed, seed)))
	if err != nil {
		return nil, err
	}
	return New(t, t.Root())
}

// NewBlock creates new cipher on top of a random tree of BlockSize nodes
// rooted at the given key.
func NewBlock(key id.ID, r *rand.Rand) *Cipher {
	t := lo.Must(tree.GenerateRooted(key, BlockSize, r))
	return &Cipher{
		blockTree: t,
		key:       key,
	}
}

// FromAdjacency creates new cipher on top of a tree received in its
// serialized adjacency form.
func FromAdjacency(adj map[id.ID][]id.ID, key id.ID) (*Cipher, error) {
	t, err := tree.FromAdjacency(adj, key)
	if err != nil {
		return nil, err
	}
	return New(t, key)
}

// Key returns the key of the cipher.
func (c *Cipher) Key() id.ID {
	return c.key
}

// Tree returns the tree of the cipher.
func (c *Cipher) Tree() *tree.Tree {
	return c.blockTree
}

// Adjacency returns the serialized form of the tree of the cipher.
func (c *Cipher) Adjacency() map[id.ID][]id.ID {
	return c.blockTree.Adjacency()
}

// Encrypt assigns the plaintext values to the nodes in ascending identifier
// order and reads the ciphertext back in breadth-first order starting at the
// key. The plaintext must not be longer than the number of nodes.
func (c *Cipher) Encrypt(plaintext []int64) (Ciphertext, error) {
	if len(plaintext) > c.blockTree.Size() {
		return Ciphertext{}, ErrPlaintextTooLarge
	}

	c.blockTree.WriteDataByID(plaintext)
	slots := lo.Must(c.blockTree.ReadData(c.key))

	values := make([]int64, len(slots))
	for i, v := range slots {
		if v != nil {
			values[i] = *v
		}
	}
	return Ciphertext{
		Length: len(plaintext),
		Values: values,
	}, nil
}

// Decrypt assigns the ciphertext values to the nodes in breadth-first order
// starting at the key and reads the plaintext back in ascending identifier
// order. The ciphertext must carry exactly one value per tree node.
func (c *Cipher) Decrypt(ciphertext Ciphertext) ([]int64, error) {
	size := c.blockTree.Size()
	if len(ciphertext.Values) != size || ciphertext.Length < 0 || ciphertext.Length > size {
		return nil, ErrMalformedCiphertext
	}

	lo.Must0(c.blockTree.WriteData(c.key, ciphertext.Values))
	slots := c.blockTree.ReadDataByID()

	plaintext := make([]int64, ciphertext.Length)
	for i := range plaintext {
		plaintext[i] = *slots[i]
	}
	return plaintext, nil
}

// Permutation returns the position mapping applied by Encrypt: the value
// assigned to the node with the i-th smallest identifier ends up at
// ciphertext position Permutation()[i]. The result is always a permutation
// of {0, ..., Size-1}.
func (c *Cipher) Permutation() []int {
	ids := c.blockTree.IDs()
	posByID := make(map[id.ID]int, len(ids))
	for i, nodeID := range ids {
		posByID[nodeID] = i
	}

	permutation := make([]int, len(ids))
	for bfsPos, nodeID := range lo.Must(c.blockTree.BFSIDs(c.key)) {
		permutation[posByID[nodeID]] = bfsPos
	}
	return permutation
}
