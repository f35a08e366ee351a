package scheduler

import "errors"

// ErrNoReportData is returned when the report window holds no observations.
var ErrNoReportData = errors.New("scheduler: no observations in report window")
