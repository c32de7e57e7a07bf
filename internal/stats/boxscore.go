package stats

// BoxScore holds the running totals tracked for one player in one game.
type BoxScore struct {
	Points       int `json:"points" msgpack:"points"`
	Rebounds     int `json:"rebounds" msgpack:"rebounds"`
	OffRebounds  int `json:"offRebounds" msgpack:"off_rebounds"`
	DefRebounds  int `json:"defRebounds" msgpack:"def_rebounds"`
	Assists      int `json:"assists" msgpack:"assists"`
	Steals       int `json:"steals" msgpack:"steals"`
	Blocks       int `json:"blocks" msgpack:"blocks"`
	Turnovers    int `json:"turnovers" msgpack:"turnovers"`
	Fouls        int `json:"fouls" msgpack:"fouls"`
	FGMade       int `json:"fgMade" msgpack:"fg_made"`
	FGAttempted  int `json:"fgAttempted" msgpack:"fg_attempted"`
	FG3Made      int `json:"fg3Made" msgpack:"fg3_made"`
	FG3Attempted int `json:"fg3Attempted" msgpack:"fg3_attempted"`
	FTMade       int `json:"ftMade" msgpack:"ft_made"`
	FTAttempted  int `json:"ftAttempted" msgpack:"ft_attempted"`
}

// Columns lists the storage column of every box score field, in the same
// order as Values and Pointers.
var Columns = []string{
	"points", "rebounds", "off_rebounds", "def_rebounds", "assists", "steals",
	"blocks", "turnovers", "fouls", "fg_made", "fg_attempted", "fg3_made",
	"fg3_attempted", "ft_made", "ft_attempted",
}

// Values returns the field values in Columns order.
func (b BoxScore) Values() []int {
	return []int{
		b.Points, b.Rebounds, b.OffRebounds, b.DefRebounds, b.Assists, b.Steals,
		b.Blocks, b.Turnovers, b.Fouls, b.FGMade, b.FGAttempted, b.FG3Made,
		b.FG3Attempted, b.FTMade, b.FTAttempted,
	}
}

// Pointers returns pointers to the fields in Columns order, for row scanning.
func (b *BoxScore) Pointers() []any {
	return []any{
		&b.Points, &b.Rebounds, &b.OffRebounds, &b.DefRebounds, &b.Assists, &b.Steals,
		&b.Blocks, &b.Turnovers, &b.Fouls, &b.FGMade, &b.FGAttempted, &b.FG3Made,
		&b.FG3Attempted, &b.FTMade, &b.FTAttempted,
	}
}

// Add returns b plus sign times d. Pass +1 to apply and -1 to undo.
func (b BoxScore) Add(d BoxScore, sign int) BoxScore {
	return BoxScore{
		Points:       b.Points + sign*d.Points,
		Rebounds:     b.Rebounds + sign*d.Rebounds,
		OffRebounds:  b.OffRebounds + sign*d.OffRebounds,
		DefRebounds:  b.DefRebounds + sign*d.DefRebounds,
		Assists:      b.Assists + sign*d.Assists,
		Steals:       b.Steals + sign*d.Steals,
		Blocks:       b.Blocks + sign*d.Blocks,
		Turnovers:    b.Turnovers + sign*d.Turnovers,
		Fouls:        b.Fouls + sign*d.Fouls,
		FGMade:       b.FGMade + sign*d.FGMade,
		FGAttempted:  b.FGAttempted + sign*d.FGAttempted,
		FG3Made:      b.FG3Made + sign*d.FG3Made,
		FG3Attempted: b.FG3Attempted + sign*d.FG3Attempted,
		FTMade:       b.FTMade + sign*d.FTMade,
		FTAttempted:  b.FTAttempted + sign*d.FTAttempted,
	}
}

// Negative returns the columns whose value is below zero.
func (b BoxScore) Negative() []string {
	var cols []string
	for i, v := range b.Values() {
		if v < 0 {
			cols = append(cols, Columns[i])
		}
	}
	return cols
}
