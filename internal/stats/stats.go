package stats

import (
	"fmt"
	"strings"
)

// StatType is one of the closed set of actions a scorekeeper can record.
type StatType string

const (
	Made2      StatType = "PTS_2"
	Made3      StatType = "PTS_3"
	MadeFT     StatType = "PTS_FT"
	Miss2      StatType = "FG_MISS"
	Miss3      StatType = "FG3_MISS"
	MissFT     StatType = "FT_MISS"
	OffRebound StatType = "OREB"
	DefRebound StatType = "DREB"
	Assist     StatType = "AST"
	Steal      StatType = "STL"
	Block      StatType = "BLK"
	Turnover   StatType = "TO"
	Foul       StatType = "FOUL"
)

// Delta is what a single stat event adds to a player's box score and to
// the scoring team's total. Undo subtracts exactly the same values.
type Delta struct {
	Fields BoxScore
	Points int
}

// table is the only place stat semantics are defined.
var table = []struct {
	Type  StatType
	Delta Delta
}{
	{Made2, Delta{Fields: BoxScore{Points: 2, FGMade: 1, FGAttempted: 1}, Points: 2}},
	{Made3, Delta{Fields: BoxScore{Points: 3, FGMade: 1, FGAttempted: 1, FG3Made: 1, FG3Attempted: 1}, Points: 3}},
	{MadeFT, Delta{Fields: BoxScore{Points: 1, FTMade: 1, FTAttempted: 1}, Points: 1}},
	{Miss2, Delta{Fields: BoxScore{FGAttempted: 1}}},
	{Miss3, Delta{Fields: BoxScore{FGAttempted: 1, FG3Attempted: 1}}},
	{MissFT, Delta{Fields: BoxScore{FTAttempted: 1}}},
	{OffRebound, Delta{Fields: BoxScore{OffRebounds: 1, Rebounds: 1}}},
	{DefRebound, Delta{Fields: BoxScore{DefRebounds: 1, Rebounds: 1}}},
	{Assist, Delta{Fields: BoxScore{Assists: 1}}},
	{Steal, Delta{Fields: BoxScore{Steals: 1}}},
	{Block, Delta{Fields: BoxScore{Blocks: 1}}},
	{Turnover, Delta{Fields: BoxScore{Turnovers: 1}}},
	{Foul, Delta{Fields: BoxScore{Fouls: 1}}},
}

var byType = func() map[StatType]Delta {
	m := make(map[StatType]Delta, len(table))
	for _, row := range table {
		m[row.Type] = row.Delta
	}
	return m
}()

// Lookup returns the delta for a stat type.
func Lookup(t StatType) (Delta, bool) {
	d, ok := byType[t]
	return d, ok
}

// All returns every stat type in table order.
func All() []StatType {
	types := make([]StatType, 0, len(table))
	for _, row := range table {
		types = append(types, row.Type)
	}
	return types
}

// Parse accepts a stat type name, case-insensitively.
func Parse(s string) (StatType, error) {
	t := StatType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown stat type %q", s)
	}
	return t, nil
}

func (t StatType) Valid() bool {
	_, ok := byType[t]
	return ok
}

// IsScoring reports whether the stat adds to the team score.
func (t StatType) IsScoring() bool {
	return byType[t].Points > 0
}

// PointValue is the number of points the stat adds to the team score.
func (t StatType) PointValue() int {
	return byType[t].Points
}

func (t StatType) String() string {
	return string(t)
}
