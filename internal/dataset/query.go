package dataset

import (
	"log"
	"os"

	"github.com/stratadb/strata/internal/container"
	strataerrors "github.com/stratadb/strata/internal/errors"
	"github.com/stratadb/strata/internal/lockfile"
	"github.com/stratadb/strata/pkg/ntptime"
	"github.com/stratadb/strata/pkg/types"
)

// Query reads a bounded trailing window of the requested variables under a
// shared lock. A missing container yields an empty result, not an error.
// Combined layout is not queryable and fails with an unsupported-operation
// error rather than returning partial data.
func (p *Persistence) Query(filter *types.QueryFilter) (types.QueryResult, error) {
	if filter == nil {
		filter = &types.QueryFilter{}
	}

	path := p.FilePath()
	if _, err := os.Stat(path); err != nil {
		return types.QueryResult{}, nil
	}

	if p.schema.Layout == types.LayoutCombined {
		return nil, strataerrors.NewUnsupportedOperation(
			"querying a combined-layout dataset is not supported")
	}

	lock, err := lockfile.AcquireShared(lockfile.SidecarPath(path), p.readLock)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	c, err := container.Open(path, true)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	vars, ok := c.Root().Group(varsGroupName)
	if !ok {
		return nil, strataerrors.NewStorageError(strataerrors.CodeCorruptedFile,
			"container has no variables group", nil)
	}

	readVars := filter.Variables
	if len(readVars) == 0 {
		readVars = p.schema.VariableNames()
	}
	timeFormat := filter.TimeFormat
	if timeFormat == "" {
		timeFormat = types.TimeFormatUnixMillis
	}
	maxRows := filter.MaxRows
	if maxRows <= 0 {
		maxRows = types.DefaultMaxRows
	}

	result := types.QueryResult{}
	for _, varName := range readVars {
		ext, ok := vars.Extent(varName)
		if !ok {
			log.Printf("dataset: variable %q not in dataset - ignored", varName)
			continue
		}

		curIdx := lastRow(ext)
		start := curIdx - maxRows
		if start < 0 {
			start = 0
		}
		values, err := ext.ReadValues(start, curIdx)
		if err != nil {
			return nil, err
		}

		if varName == p.schema.TimeVariable && p.varBaseType(varName) == types.BaseTypeNTPTime &&
			timeFormat == types.TimeFormatUnixMillis {
			values = convertToUnixMillis(values)
		}
		result[varName] = values
	}

	if filter.TransposeTime {
		if err := transposeTime(result, p.schema.TimeVariable); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (p *Persistence) varBaseType(name string) string {
	if vi := p.schema.Variable(name); vi != nil {
		return vi.BaseType
	}
	return ""
}

// convertToUnixMillis converts raw NTP64 time cells to integer
// milliseconds since the unix epoch.
func convertToUnixMillis(values []interface{}) []interface{} {
	converted := make([]interface{}, len(values))
	for i, v := range values {
		switch x := v.(type) {
		case uint64:
			converted[i] = ntptime.NTP64(x).UnixMillis()
		case int64:
			converted[i] = ntptime.NTP64(uint64(x)).UnixMillis()
		case float64:
			converted[i] = ntptime.NTP64(uint64(x)).UnixMillis()
		default:
			converted[i] = v
		}
	}
	return converted
}

// transposeTime removes the standalone time series from the result and
// pairs every remaining series with it positionally. Individual-layout
// variables can have diverged high-water marks, so mismatched lengths are
// possible; the pairing truncates to the shorter series with a warning
// rather than fabricating values.
func transposeTime(result types.QueryResult, timeVar string) error {
	timeSeries, ok := result[timeVar]
	if !ok {
		return strataerrors.NewQueryError(strataerrors.CodeMissingTimeSeries,
			"transpose_time requires the time variable in the result")
	}
	delete(result, timeVar)

	for varName, series := range result {
		n := len(series)
		if len(timeSeries) < n {
			n = len(timeSeries)
		}
		if n != len(series) || n != len(timeSeries) {
			log.Printf("dataset: series %q and time series have diverged lengths (%d vs %d) - truncating to %d",
				varName, len(series), len(timeSeries), n)
		}
		paired := make([]interface{}, n)
		for i := 0; i < n; i++ {
			paired[i] = types.TimedValue{Time: timeSeries[i], Value: series[i]}
		}
		result[varName] = paired
	}
	return nil
}
