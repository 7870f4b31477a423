package schema_test

import (
	"testing"

	"github.com/agentmesh/uagents-go/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDigestCrossLanguageCompatibility reproduces the canonical-schema
// digest for a Query{guests:int, time_start:int, duration:int} model. The
// expected hash is fixed across languages: any implementation of §4.2's
// canonicalization rules must reach the same bytes before hashing.
func TestDigestCrossLanguageCompatibility(t *testing.T) {
	m := schema.New("Query",
		schema.Integer("guests"),
		schema.Integer("time_start"),
		schema.Integer("duration"),
	)

	digest, err := schema.Digest(m)
	require.NoError(t, err)
	assert.Equal(t, "model:a5d89c603e42a2a86137899457b5adc99d8d3502d332ccf0dda859ed736530a1", digest)
}

func TestDigestStableUnderFieldReordering(t *testing.T) {
	a := schema.New("Query", schema.Integer("guests"), schema.Integer("time_start"), schema.Integer("duration"))
	b := schema.New("Query", schema.Integer("duration"), schema.Integer("guests"), schema.Integer("time_start"))

	da, err := schema.Digest(a)
	require.NoError(t, err)
	db, err := schema.Digest(b)
	require.NoError(t, err)
	assert.Equal(t, da, db)
}

func TestDigestDistinguishesOptionalFields(t *testing.T) {
	required := schema.New("Note", schema.String("body"))
	optional := schema.New("Note", schema.Optional(schema.String("body")))

	dr, err := schema.Digest(required)
	require.NoError(t, err)
	do, err := schema.Digest(optional)
	require.NoError(t, err)
	assert.NotEqual(t, dr, do)
}

func TestDigestDistinguishesIntegerFromNumber(t *testing.T) {
	intModel := schema.New("Amount", schema.Integer("value"))
	numModel := schema.New("Amount", schema.Number("value"))

	di, err := schema.Digest(intModel)
	require.NoError(t, err)
	dn, err := schema.Digest(numModel)
	require.NoError(t, err)
	assert.NotEqual(t, di, dn)
}

func TestDigestListOfModel(t *testing.T) {
	item := schema.NestedModel("", schema.New("Item", schema.String("sku"), schema.Integer("qty")))
	cart := schema.New("Cart", schema.ListOf("items", item))

	digest, err := schema.Digest(cart)
	require.NoError(t, err)
	assert.Contains(t, digest, "model:")
}

func TestDigestRejectsMalformedArrayField(t *testing.T) {
	bad := &schema.Model{
		Title: "Bad",
		Fields: []schema.Field{
			{Name: "items", Kind: schema.KindArray},
		},
	}
	_, err := schema.Digest(bad)
	assert.Error(t, err)
}
