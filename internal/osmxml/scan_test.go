package osmxml

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScannerRejectsMissingProlog(t *testing.T) {
	_, err := NewScanner(strings.NewReader("<osm></osm>"))
	require.Error(t, err)
}

func TestScannerStreamsTopLevelEntities(t *testing.T) {
	s, err := NewScanner(strings.NewReader(sampleXML))
	require.NoError(t, err)

	ent1, err := s.Next()
	require.NoError(t, err)
	require.Equal(t, EntityNode, ent1.Kind)
	assert.Equal(t, int64(1), ent1.Node.ID)

	ent2, err := s.Next()
	require.NoError(t, err)
	require.Equal(t, EntityWay, ent2.Kind)
	assert.Equal(t, int64(2), ent2.Way.ID)
	require.Len(t, ent2.Way.Refs, 2)

	ent3, err := s.Next()
	require.NoError(t, err)
	require.Equal(t, EntityRelation, ent3.Kind)
	assert.Equal(t, int64(4), ent3.Relation.ID)

	_, err = s.Next()
	assert.Equal(t, io.EOF, err)
}

func TestScannerSelfClosingNode(t *testing.T) {
	doc := `<?xml version="1.0"?><osm><node id="9" lat="1.0" lon="2.0"/></osm>`
	s, err := NewScanner(strings.NewReader(doc))
	require.NoError(t, err)

	ent, err := s.Next()
	require.NoError(t, err)
	require.Equal(t, EntityNode, ent.Kind)
	assert.Equal(t, int64(9), ent.Node.ID)
}
