package treecipher_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/outofforest/treecipher"
	"github.com/outofforest/treecipher/id"
	"github.com/outofforest/treecipher/tree"
)

// Tree where breadth-first order and identifier order coincide.
func treeStraight(t *testing.T) *tree.Tree {
	requireT := require.New(t)
	tr := tree.New()
	requireT.NoError(tr.AddRoot(1))
	requireT.NoError(tr.Add(1, 2))
	requireT.NoError(tr.Add(1, 3))
	requireT.NoError(tr.Add(3, 4))
	return tr
}

// Tree where the two orders diverge.
func treeTwisted(t *testing.T) *tree.Tree {
	requireT := require.New(t)
	tr := tree.New()
	requireT.NoError(tr.AddRoot(1))
	requireT.NoError(tr.Add(1, 3))
	requireT.NoError(tr.Add(1, 4))
	requireT.NoError(tr.Add(4, 2))
	return tr
}

func TestEncryptStraight(t *testing.T) {
	t.Parallel()

	requireT := require.New(t)

	c, err := treecipher.New(treeStraight(t), 1)
	requireT.NoError(err)

	ciphertext, err := c.Encrypt([]int64{10, 20, 30, 40})
	requireT.NoError(err)
	requireT.Equal(4, ciphertext.Length)
	requireT.Equal([]int64{10, 20, 30, 40}, ciphertext.Values)

	plaintext, err := c.Decrypt(ciphertext)
	requireT.NoError(err)
	requireT.Equal([]int64{10, 20, 30, 40}, plaintext)

	requireT.Equal([]int{0, 1, 2, 3}, c.Permutation())
}

func TestEncryptTwisted(t *testing.T) {
	t.Parallel()

	requireT := require.New(t)

	c, err := treecipher.New(treeTwisted(t), 1)
	requireT.NoError(err)

	ciphertext, err := c.Encrypt([]int64{10, 20, 30, 40})
	requireT.NoError(err)
	requireT.Equal([]int64{10, 30, 40, 20}, ciphertext.Values)

	plaintext, err := c.Decrypt(ciphertext)
	requireT.NoError(err)
	requireT.Equal([]int64{10, 20, 30, 40}, plaintext)

	requireT.Equal([]int{0, 3, 1, 2}, c.Permutation())
}

func TestEncryptShortPlaintext(t *testing.T) {
	t.Parallel()

	requireT := require.New(t)

	c, err := treecipher.New(treeTwisted(t), 1)
	requireT.NoError(err)

	ciphertext, err := c.Encrypt([]int64{10, 20})
	requireT.NoError(err)
	requireT.Equal(2, ciphertext.Length)
	requireT.Equal([]int64{10, 0, 0, 20}, ciphertext.Values)

	plaintext, err := c.Decrypt(ciphertext)
	requireT.NoError(err)
	requireT.Equal([]int64{10, 20}, plaintext)
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	requireT := require.New(t)

	r := rand.New(rand.NewPCG(3, 3))
	for nodeCount := 1; nodeCount <= treecipher.BlockSize; nodeCount++ {
		c, err := treecipher.Generate(nodeCount, uint64(nodeCount))
		requireT.NoError(err)

		for length := 0; length <= nodeCount; length++ {
			plaintext := make([]int64, length)
			for i := range plaintext {
				plaintext[i] = r.Int64()
			}

			ciphertext, err := c.Encrypt(plaintext)
			requireT.NoError(err)
			requireT.Equal(length, ciphertext.Length)
			requireT.Len(ciphertext.Values, nodeCount)

			decrypted, err := c.Decrypt(ciphertext)
			requireT.NoError(err)
			requireT.Equal(plaintext, decrypted)
		}
	}
}

func TestPermutationIsBijection(t *testing.T) {
	t.Parallel()

	requireT := require.New(t)

	for nodeCount := 1; nodeCount <= 64; nodeCount++ {
		c, err := treecipher.Generate(nodeCount, uint64(1000+nodeCount))
		requireT.NoError(err)

		permutation := c.Permutation()
		requireT.Len(permutation, nodeCount)

		seen := make([]bool, nodeCount)
		for _, pos := range permutation {
			requireT.GreaterOrEqual(pos, 0)
			requireT.Less(pos, nodeCount)
			requireT.False(seen[pos])
			seen[pos] = true
		}
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	t.Parallel()

	requireT := require.New(t)

	c1, err := treecipher.Generate(treecipher.BlockSize, 99)
	requireT.NoError(err)
	c2, err := treecipher.Generate(treecipher.BlockSize, 99)
	requireT.NoError(err)

	requireT.Equal(c1.Key(), c2.Key())
	requireT.Equal(c1.Adjacency(), c2.Adjacency())

	ciphertext1, err := c1.Encrypt([]int64{1, 2, 3})
	requireT.NoError(err)
	ciphertext2, err := c2.Encrypt([]int64{1, 2, 3})
	requireT.NoError(err)
	requireT.Equal(ciphertext1, ciphertext2)
}

func TestNewBlock(t *testing.T) {
	t.Parallel()

	requireT := require.New(t)

	key := id.ID(12345)
	c := treecipher.NewBlock(key, rand.New(rand.NewPCG(8, 8)))
	requireT.Equal(key, c.Key())
	requireT.Equal(key, c.Tree().Root())
	requireT.Equal(treecipher.BlockSize, c.Tree().Size())
}

func TestFromAdjacency(t *testing.T) {
	t.Parallel()

	requireT := require.New(t)

	c1, err := treecipher.Generate(treecipher.BlockSize, 7)
	requireT.NoError(err)

	c2, err := treecipher.FromAdjacency(c1.Adjacency(), c1.Key())
	requireT.NoError(err)

	ciphertext, err := c1.Encrypt([]int64{5, 6, 7, 8})
	requireT.NoError(err)
	plaintext, err := c2.Decrypt(ciphertext)
	requireT.NoError(err)
	requireT.Equal([]int64{5, 6, 7, 8}, plaintext)

	_, err = treecipher.FromAdjacency(map[id.ID][]id.ID{1: {2}, 2: {}}, 1)
	requireT.ErrorIs(err, tree.ErrMalformedTree)
}

func TestKeyMismatch(t *testing.T) {
	t.Parallel()

	requireT := require.New(t)

	_, err := treecipher.New(treeStraight(t), 2)
	requireT.ErrorIs(err, treecipher.ErrKeyMismatch)

	_, err = treecipher.New(tree.New(), 0)
	requireT.ErrorIs(err, treecipher.ErrKeyMismatch)
}

func TestPlaintextTooLarge(t *testing.T) {
	t.Parallel()

	requireT := require.New(t)

	c, err := treecipher.New(treeStraight(t), 1)
	requireT.NoError(err)

	_, err = c.Encrypt([]int64{1, 2, 3, 4, 5})
	requireT.ErrorIs(err, treecipher.ErrPlaintextTooLarge)
}

func TestMalformedCiphertext(t *testing.T) {
	t.Parallel()

	requireT := require.New(t)

	c, err := treecipher.New(treeStraight(t), 1)
	requireT.NoError(err)

	_, err = c.Decrypt(treecipher.Ciphertext{Length: 2, Values: []int64{1, 2}})
	requireT.ErrorIs(err, treecipher.ErrMalformedCiphertext)

	_, err = c.Decrypt(treecipher.Ciphertext{Length: -1, Values: []int64{1, 2, 3, 4}})
	requireT.ErrorIs(err, treecipher.ErrMalformedCiphertext)

	_, err = c.Decrypt(treecipher.Ciphertext{Length: 5, Values: []int64{1, 2, 3, 4}})
	requireT.ErrorIs(err, treecipher.ErrMalformedCiphertext)
}

func TestGenerateInvalidNodeCount(t *testing.T) {
	t.Parallel()

	requireT := require.New(t)

	_, err := treecipher.Generate(0, 1)
	requireT.ErrorIs(err, tree.ErrInvalidNodeCount)
}
