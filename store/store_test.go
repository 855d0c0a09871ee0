package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resoltico/htmlconv/astree"
)

func sampleDoc() *astree.Node {
	doc := astree.NewDocument()
	h := astree.NewHeading(1)
	h.AppendChild(astree.NewText("Title"))
	doc.AppendChild(h)
	astree.Establish([]*astree.Node{doc})
	return doc
}

func TestMemStorageRoundtrip(t *testing.T) {
	s := NewMemStorage()
	doc := sampleDoc()

	require.NoError(t, s.Store("doc1", []*astree.Node{doc}))
	assert.True(t, s.Exists("doc1"))

	got, err := s.Retrieve("doc1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Title", got[0].Children[0].Children[0].TextValue)
	// The retrieved tree is an independent copy.
	assert.NotSame(t, doc, got[0])

	ids, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"doc1"}, ids)

	require.NoError(t, s.Delete("doc1"))
	assert.False(t, s.Exists("doc1"))
}

func TestMemStorageRetrieveMissing(t *testing.T) {
	s := NewMemStorage()
	_, err := s.Retrieve("missing")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestFileStorageRoundtripReestablishesParents(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStorage(dir)
	require.NoError(t, err)
	doc := sampleDoc()

	require.NoError(t, s.Store("doc1", []*astree.Node{doc}))
	got, err := s.Retrieve("doc1")
	require.NoError(t, err)

	ok, mismatches := astree.Verify(got)
	assert.True(t, ok, "mismatches: %+v", mismatches)
	assert.Equal(t, "Title", got[0].Children[0].Children[0].TextValue)
}

func TestFileStorageList(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStorage(dir)
	require.NoError(t, err)
	require.NoError(t, s.Store("a", []*astree.Node{sampleDoc()}))
	require.NoError(t, s.Store("b", []*astree.Node{sampleDoc()}))

	ids, err := s.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
}
