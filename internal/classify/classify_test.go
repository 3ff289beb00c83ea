package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/location-microservice/osmgeo/internal/osmtypes"
)

func TestClassifyPicksFirstMatchingLayer(t *testing.T) {
	tags := []osmtypes.Tag{
		{K: "shop", V: "bakery"},
		{K: "amenity", V: "cafe"},
		{K: "name", V: "Foo"},
	}
	res := Classify(tags)
	require.True(t, res.HasLayer)
	// "amenity" precedes "shop" in the fixed taxonomy order.
	assert.Equal(t, "amenity", res.Layer)
	assert.Equal(t, "cafe", res.SubType)
	assert.Equal(t, "Foo", res.Name)
}

func TestClassifyAddressFields(t *testing.T) {
	tags := []osmtypes.Tag{
		{K: "addr:city", V: "Rome"},
		{K: "addr:street", V: "Via Lata"},
		{K: "addr:housenumber", V: "12"},
	}
	res := Classify(tags)
	assert.False(t, res.HasLayer)
	require.True(t, res.HasAddress)
	assert.Nil(t, res.Address[0]) // country
	assert.Equal(t, "Rome", *res.Address[1])
	assert.Nil(t, res.Address[2]) // postcode
	assert.Equal(t, "Via Lata", *res.Address[3])
	assert.Nil(t, res.Address[4]) // housename
	assert.Equal(t, "12", *res.Address[5])
}

func TestWayIsArealByAreaTag(t *testing.T) {
	tags := []osmtypes.Tag{{K: "area", V: "yes"}}
	assert.True(t, WayIsAreal(tags, "", false))
}

func TestWayIsArealByLayerAndClosure(t *testing.T) {
	assert.True(t, WayIsAreal(nil, "building", true))
	assert.False(t, WayIsAreal(nil, "building", false))
	assert.False(t, WayIsAreal(nil, "highway", true))
}

func TestRelationIsAreal(t *testing.T) {
	assert.True(t, RelationIsAreal([]osmtypes.Tag{{K: "type", V: "multipolygon"}}))
	assert.False(t, RelationIsAreal([]osmtypes.Tag{{K: "type", V: "route"}}))
}
