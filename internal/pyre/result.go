package pyre

// InconsistentOutput holds both error sequences verbatim when they differ.
// Order matters: no sorting is applied before or after the comparison.
type InconsistentOutput struct {
	FullCheckOutput        []Error
	IncrementalCheckOutput []Error
}

func (o InconsistentOutput) ToJSON() map[string]any {
	return map[string]any{
		"full_check_output":        errorList(o.FullCheckOutput),
		"incremental_check_output": errorList(o.IncrementalCheckOutput),
	}
}

// ProfileLogs is the timing telemetry of one run: one record per
// incremental update plus the cold-start phase record.
type ProfileLogs struct {
	IncrementalUpdateLogs []ProfileRecord
	ColdStartLog          ProfileRecord
}

// TotalOfTotals sums the "total" measurement across all update logs. Any
// record without a "total" fails the lookup; an empty log sums to 0.
func (l ProfileLogs) TotalOfTotals() (int, error) {
	sum := 0
	for _, record := range l.IncrementalUpdateLogs {
		total, err := record.Total()
		if err != nil {
			return 0, err
		}
		sum += total
	}
	return sum, nil
}

func (l ProfileLogs) ToJSON() map[string]any {
	logs := l.IncrementalUpdateLogs
	if logs == nil {
		logs = []ProfileRecord{}
	}
	return map[string]any{
		"incremental_update_logs": logs,
		"cold_start_log":          l.ColdStartLog,
	}
}

// ResultComparison is the verdict of one compare run. Discrepancy is nil
// when and only when the incremental and full error sequences were exactly
// equal.
type ResultComparison struct {
	Discrepancy     *InconsistentOutput
	FullCheckTimeMS int
	ProfileLogs     ProfileLogs
}

// ToJSON renders the stable output shape. The incremental_check_time field
// is derived from the profile logs, so a broken telemetry record surfaces
// here as an error rather than a silent zero. With suppressDiscrepancy the
// discrepancy key is omitted entirely, whether or not one exists.
func (c ResultComparison) ToJSON(suppressDiscrepancy bool) (map[string]any, error) {
	incrementalTime, err := c.ProfileLogs.TotalOfTotals()
	if err != nil {
		return nil, err
	}
	result := map[string]any{
		"full_check_time":        c.FullCheckTimeMS,
		"incremental_check_time": incrementalTime,
		"profile_logs":           c.ProfileLogs.ToJSON(),
	}
	if suppressDiscrepancy {
		return result, nil
	}
	if c.Discrepancy == nil {
		result["discrepancy"] = "none"
	} else {
		result["discrepancy"] = c.Discrepancy.ToJSON()
	}
	return result, nil
}

func errorList(errors []Error) []Error {
	if errors == nil {
		return []Error{}
	}
	return errors
}

// equalErrors is the discrepancy test: element-wise structural equality in
// order.
func equalErrors(a, b []Error) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
