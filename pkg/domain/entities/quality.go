package entities

import "fmt"

// Table names the input table an issue was found in
type Table string

const (
	VolumeTable     Table = "volume"
	AdjustmentTable Table = "adjustment"
)

// DataQualityIssue flags a row whose product code lacks the separator.
// The row is still processed with an empty resistance.
type DataQualityIssue struct {
	Week  WeekKey `json:"week"`
	Table Table   `json:"table"`
	// Row is the source row of the record, 0 when the record was not loaded from a table
	Row  int         `json:"row,omitempty"`
	Code ProductCode `json:"code"`
}

// String renders the issue for logs
func (i DataQualityIssue) String() string {
	if i.Row == 0 {
		return fmt.Sprintf("%s table: malformed product code %q (week %s)", i.Table, i.Code, i.Week)
	}
	return fmt.Sprintf("%s row %d: malformed product code %q (week %s)", i.Table, i.Row, i.Code, i.Week)
}
