package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueAccessorsAreKindSafe(t *testing.T) {
	v := StringValue("life")
	s, ok := v.AsString()
	assert.True(t, ok)
	assert.Equal(t, "life", s)

	_, ok = v.AsNumber()
	assert.False(t, ok)
	_, ok = v.AsList()
	assert.False(t, ok)
	_, ok = v.AsMap()
	assert.False(t, ok)
}

func TestValueDisplayForms(t *testing.T) {
	assert.Equal(t, "life", StringValue("life").String())
	assert.Equal(t, "500000", NumberValue(500000).String())
	assert.Equal(t, "2.5", NumberValue(2.5).String())
	assert.Equal(t, "life, health", ListValue("life", "health").String())
	assert.Equal(t, "max: 65; min: 18", MapValue(map[string]Value{
		"min": NumberValue(18),
		"max": NumberValue(65),
	}).String())
}

func TestValueJSONRoundTrip(t *testing.T) {
	original := MapValue(map[string]Value{
		"coverage": NumberValue(500000),
		"types":    ListValue("life", "health"),
		"note":     StringValue("preferred"),
	})

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Value
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original, decoded)
}

func TestFromAnyConversions(t *testing.T) {
	assert.Equal(t, StringValue("x"), FromAny("x"))
	assert.Equal(t, NumberValue(3), FromAny(3))
	assert.Equal(t, NumberValue(1.5), FromAny(1.5))
	assert.Equal(t, ListValue("a", "b"), FromAny([]any{"a", "b"}))
	assert.Equal(t, StringValue("true"), FromAny(true))

	m := FromAny(map[string]any{"k": "v"})
	inner, ok := m.AsMap()
	require.True(t, ok)
	assert.Equal(t, StringValue("v"), inner["k"])
}

func TestMergeNeedsRequestWins(t *testing.T) {
	request := Needs{
		NeedBudget: StringValue("$50/month"),
	}
	session := Needs{
		NeedBudget:          StringValue("$10/month"),
		NeedFamilySituation: StringValue("young family"),
	}

	merged := MergeNeeds(request, session)
	assert.Equal(t, StringValue("$50/month"), merged[NeedBudget])
	assert.Equal(t, StringValue("young family"), merged[NeedFamilySituation])
}

func TestMergeNeedsEmptySides(t *testing.T) {
	assert.Empty(t, MergeNeeds(nil, nil))
	merged := MergeNeeds(nil, Needs{NeedBudget: StringValue("$10")})
	assert.Equal(t, StringValue("$10"), merged[NeedBudget])
}

func TestNeedsStringList(t *testing.T) {
	needs := Needs{
		NeedInsuranceTypes: ListValue("life", "health"),
		NeedConcerns:       StringValue("affordable"),
	}
	assert.Equal(t, []string{"life", "health"}, needs.StringList(NeedInsuranceTypes))
	assert.Equal(t, []string{"affordable"}, needs.StringList(NeedConcerns))
	assert.Nil(t, needs.StringList("missing"))
}
