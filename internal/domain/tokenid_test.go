package domain

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIDPacking(t *testing.T) {
	tests := []struct {
		name       string
		activityID uint64
		localIndex uint64
		want       string
	}{
		{name: "zero", activityID: 0, localIndex: 0, want: "0"},
		{name: "first activity third ticket", activityID: 0, localIndex: 2, want: "2"},
		{name: "second activity first ticket", activityID: 1, localIndex: 0, want: "18446744073709551616"},
		{name: "second activity second ticket", activityID: 1, localIndex: 1, want: "18446744073709551617"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := NewTokenID(tt.activityID, tt.localIndex)
			assert.Equal(t, tt.want, id.String())
		})
	}
}

func TestTokenIDPackedLayout(t *testing.T) {
	// The packed form is (activityID << 64) | localIndex.
	id := NewTokenID(7, 13)
	want := new(big.Int).Lsh(big.NewInt(7), 64)
	want.Or(want, big.NewInt(13))
	assert.Zero(t, id.BigInt().Cmp(want))
}

func TestParseTokenIDRoundTrip(t *testing.T) {
	ids := []TokenID{
		NewTokenID(0, 0),
		NewTokenID(0, 41),
		NewTokenID(3, 0),
		NewTokenID(^uint64(0), ^uint64(0)),
	}
	for _, id := range ids {
		parsed, err := ParseTokenID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	}
}

func TestParseTokenIDRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "abc", "-1", "0x10", "3.5"} {
		_, err := ParseTokenID(s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestParseTokenIDRejectsOverflow(t *testing.T) {
	// 2^128 does not fit the packed form.
	over := new(big.Int).Lsh(big.NewInt(1), 128)
	_, err := ParseTokenID(over.String())
	assert.Error(t, err)
}

func TestTokenIDJSONRoundTrip(t *testing.T) {
	id := NewTokenID(2, 9)

	data, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `"36893488147419103241"`, string(data))

	var back TokenID
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, id, back)
}
