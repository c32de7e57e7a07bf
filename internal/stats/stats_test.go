package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyThenUndoIsIdentity(t *testing.T) {
	start := BoxScore{Points: 10, Rebounds: 4, OffRebounds: 1, DefRebounds: 3, FGMade: 4, FGAttempted: 9, FTMade: 2, FTAttempted: 2}
	for _, st := range All() {
		t.Run(st.String(), func(t *testing.T) {
			d, ok := Lookup(st)
			require.True(t, ok)
			applied := start.Add(d.Fields, 1)
			assert.NotEqual(t, start, applied, "every stat type must change at least one field")
			assert.Equal(t, start, applied.Add(d.Fields, -1))
		})
	}
}

func TestMade3Delta(t *testing.T) {
	d, ok := Lookup(Made3)
	require.True(t, ok)
	assert.Equal(t, 3, d.Points)
	assert.Equal(t, BoxScore{Points: 3, FGMade: 1, FGAttempted: 1, FG3Made: 1, FG3Attempted: 1}, d.Fields)
}

func TestScoringTypes(t *testing.T) {
	scoring := map[StatType]int{Made2: 2, Made3: 3, MadeFT: 1}
	for _, st := range All() {
		want, isScoring := scoring[st]
		assert.Equal(t, isScoring, st.IsScoring(), st)
		assert.Equal(t, want, st.PointValue(), st)
	}
}

func TestReboundsSplit(t *testing.T) {
	off, _ := Lookup(OffRebound)
	def, _ := Lookup(DefRebound)
	assert.Equal(t, BoxScore{OffRebounds: 1, Rebounds: 1}, off.Fields)
	assert.Equal(t, BoxScore{DefRebounds: 1, Rebounds: 1}, def.Fields)
}

func TestParse(t *testing.T) {
	st, err := Parse(" pts_3 ")
	require.NoError(t, err)
	assert.Equal(t, Made3, st)

	_, err = Parse("DUNK")
	assert.Error(t, err)
}

func TestNegative(t *testing.T) {
	b := BoxScore{}.Add(BoxScore{Points: 2, FGMade: 1}, -1)
	assert.Equal(t, []string{"points", "fg_made"}, b.Negative())
	assert.Empty(t, BoxScore{}.Negative())
}

func TestColumnsMatchValues(t *testing.T) {
	var b BoxScore
	assert.Len(t, b.Values(), len(Columns))
	assert.Len(t, b.Pointers(), len(Columns))
}
