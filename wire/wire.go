// Package wire defines the exchange formats shared between the encrypting
// and the decrypting party.
package wire

import (
	"bytes"

	"github.com/hashicorp/go-msgpack/codec"
	"github.com/pkg/errors"

	"github.com/outofforest/treecipher"
	"github.com/outofforest/treecipher/id"
	"github.com/outofforest/treecipher/tree"
)

// msgpackHandle is a shared handle for encoding and decoding of envelopes.
var msgpackHandle = &codec.MsgpackHandle{}

// Tree is the serialized form of a tree: the adjacency mapping from node
// identifier to neighbour identifiers plus the designated root. Data values
// are never part of it.
type Tree struct {
	Root      uint64
	Adjacency map[uint64][]uint64
}

// Ciphertext is the serialized form of an encrypted block, ordered by
// breadth-first position.
type Ciphertext struct {
	Length int64
	Values []int64
}

// MarshalTree encodes a tree into its exchange form.
func MarshalTree(t *tree.Tree) ([]byte, error) {
	adj := t.Adjacency()
	envelope := Tree{
		Root:      uint64(t.Root()),
		Adjacency: make(map[uint64][]uint64, len(adj)),
	}
	for nodeID, neighbourIDs := range adj {
		neighbours := make([]uint64, 0, len(neighbourIDs))
		for _, neighbourID := range neighbourIDs {
			neighbours = append(neighbours, uint64(neighbourID))
		}
		envelope.Adjacency[uint64(nodeID)] = neighbours
	}

	var buf bytes.Buffer
	if err := codec.NewEncoder(&buf, msgpackHandle).Encode(envelope); err != nil {
		return nil, errors.WithStack(err)
	}
	return buf.Bytes(), nil
}

// UnmarshalTree decodes a tree from its exchange form and validates that it
// describes a connected acyclic tree.
func UnmarshalTree(buf []byte) (*tree.Tree, error) {
	var envelope Tree
	if err := codec.NewDecoder(bytes.NewReader(buf), msgpackHandle).Decode(&envelope); err != nil {
		return nil, errors.WithStack(err)
	}

	adj := make(map[id.ID][]id.ID, len(envelope.Adjacency))
	for nodeID, neighbourIDs := range envelope.Adjacency {
		neighbours := make([]id.ID, 0, len(neighbourIDs))
		for _, neighbourID := range neighbourIDs {
			neighbours = append(neighbours, id.ID(neighbourID))
		}
		adj[id.ID(nodeID)] = neighbours
	}
	return tree.FromAdjacency(adj, id.ID(envelope.Root))
}

// MarshalCiphertext encodes an encrypted block into its exchange form.
func MarshalCiphertext(ciphertext treecipher.Ciphertext) ([]byte, error) {
	envelope := Ciphertext{
		Length: int64(ciphertext.Length),
		Values: ciphertext.Values,
	}

	var buf bytes.Buffer
	if err := codec.NewEncoder(&buf, msgpackHandle).Encode(envelope); err != nil {
		return nil, errors.WithStack(err)
	}
	return buf.Bytes(), nil
}

// UnmarshalCiphertext decodes an encrypted block from its exchange form.
func UnmarshalCiphertext(buf []byte) (treecipher.Ciphertext, error) {
	var envelope Ciphertext
	if err := codec.NewDecoder(bytes.NewReader(buf), msgpackHandle).Decode(&envelope); err != nil {
		return treecipher.Ciphertext{}, errors.WithStack(err)
	}
	return treecipher.Ciphertext{
		Length: int(envelope.Length),
		Values: envelope.Values,
	}, nil
}
