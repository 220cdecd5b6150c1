package csvdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homepulse/housing-market-data/internal/market"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		want   Format
		fails  bool
	}{
		{
			name:   "wide with region columns",
			header: []string{"RegionID", "RegionName", "State", "2020-01-31", "2021-01-31"},
			want:   FormatWide,
		},
		{
			name:   "simple city state",
			header: []string{"city", "state", "medianPrice"},
			want:   FormatSimple,
		},
		{
			name:   "case insensitive simple",
			header: []string{"City", "STATE", "zipCode"},
			want:   FormatSimple,
		},
		{
			name:   "single date column is not wide",
			header: []string{"RegionID", "2020-01-31"},
			fails:  true,
		},
		{
			name:   "dates without identifier",
			header: []string{"foo", "2020-01-31", "2021-01-31"},
			fails:  true,
		},
		{
			name:   "unrelated columns",
			header: []string{"alpha", "beta"},
			fails:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format, err := DetectFormat(tt.header)
			if tt.fails {
				assert.ErrorIs(t, err, ErrFormatUnrecognized)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, format)
		})
	}
}

func TestParseWideFormat(t *testing.T) {
	raw := "RegionID,RegionName,State,2020-01-31,2021-01-31\n" +
		`999,"Springfield, IL",IL,100000,110000` + "\n"

	result, err := Parse(raw, Options{})
	require.NoError(t, err)
	assert.Equal(t, FormatWide, result.Format)
	require.Len(t, result.Records, 1)
	assert.Empty(t, result.Diagnostics)

	record := result.Records[0]
	assert.Equal(t, "999", record.ID)
	assert.Equal(t, "Springfield, IL", record.Label)
	assert.Equal(t, "Springfield", record.City)
	assert.Equal(t, "IL", record.State)

	series := result.Series["999"]
	require.Len(t, series, 2)
	assert.Equal(t, 100000.0, series[0].Value)
	assert.Equal(t, 110000.0, series[1].Value)

	stats := market.ComputeStats(record, series, market.Window1Y)
	assert.Equal(t, 110000.0, stats.CurrentValue)
	assert.InDelta(t, 10.0, stats.PercentChange, 0.001)
	assert.Equal(t, market.DirectionUp, stats.Direction)
}

func TestParseWideSortsSeriesAscending(t *testing.T) {
	// header dates deliberately out of order
	raw := "RegionID,RegionName,State,2022-01-31,2020-01-31,2021-01-31\n" +
		"1,Austin,TX,300,100,200\n"

	result, err := Parse(raw, Options{})
	require.NoError(t, err)

	series := result.Series["1"]
	require.Len(t, series, 3)
	for i := 1; i < len(series); i++ {
		assert.True(t, series[i].Date.After(series[i-1].Date),
			"series must be sorted ascending by date")
	}
	assert.Equal(t, 100.0, series[0].Value)
	assert.Equal(t, 300.0, series[2].Value)
}

func TestParseWideSkipsBadCellsAndRows(t *testing.T) {
	raw := "RegionID,RegionName,State,2020-01-31,2021-01-31\n" +
		"1,Austin,TX,,110000\n" + // empty cell: absent point, not an error
		"2,Denver,CO,abc,220000\n" + // non-numeric cell: skipped
		"3,Tampa,FL,100\n" + // column count mismatch: diagnostic
		"4,Boise,ID,150000,160000\n"

	result, err := Parse(raw, Options{})
	require.NoError(t, err)

	assert.Len(t, result.Records, 3)
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, 4, result.Diagnostics[0].Line)

	assert.Len(t, result.Series["1"], 1)
	assert.Len(t, result.Series["2"], 1)
	assert.Len(t, result.Series["4"], 2)
}

func TestParseSimpleFormat(t *testing.T) {
	raw := "city,state,medianPrice\nAustin,TX,550000\n"

	result, err := Parse(raw, Options{})
	require.NoError(t, err)
	assert.Equal(t, FormatSimple, result.Format)
	require.Len(t, result.Records, 1)

	record := result.Records[0]
	assert.Equal(t, "austin-tx", record.ID)
	assert.Equal(t, "Austin", record.City)
	assert.Equal(t, "TX", record.State)
	assert.Equal(t, "Austin, TX", record.Label)

	series := result.Series[record.ID]
	require.Len(t, series, 1, "simple format yields at most one point")

	stats := market.ComputeStats(record, series, market.Window1Y)
	assert.Equal(t, 550000.0, stats.CurrentValue)
	assert.Equal(t, market.DirectionNeutral, stats.Direction)
}

func TestParseSimpleOptionalFields(t *testing.T) {
	raw := "city,state,zipCode,medianPrice,percentChange,lastUpdatedDate\n" +
		"Austin,TX,78701,550000,4.2,2023-06-30\n" +
		"Denver,CO,,notanumber,,\n"

	result, err := Parse(raw, Options{})
	require.NoError(t, err)
	require.Len(t, result.Records, 2)
	assert.Empty(t, result.Diagnostics, "bad numeric cells omit the field, not the row")

	austin := result.Records[0]
	assert.Equal(t, "78701", austin.ZipCode)
	series := result.Series[austin.ID]
	require.Len(t, series, 1)
	assert.Equal(t, time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC), series[0].Date)
	assert.Equal(t, 4.2, result.PercentChange[austin.ID])

	denver := result.Records[1]
	assert.Empty(t, denver.ZipCode)
	assert.Empty(t, result.Series[denver.ID], "unparseable price leaves the series empty")
	_, hasChange := result.PercentChange[denver.ID]
	assert.False(t, hasChange)
}

func TestParseSimpleSkipsRowsMissingRequiredFields(t *testing.T) {
	raw := "city,state,medianPrice\n,TX,550000\nAustin,,100\nDenver,CO,200\n"

	result, err := Parse(raw, Options{})
	require.NoError(t, err)
	assert.Len(t, result.Records, 1)
	assert.Len(t, result.Diagnostics, 2)
}

func TestParseRecordCap(t *testing.T) {
	raw := "city,state,medianPrice\n" +
		"Austin,TX,1\nDenver,CO,2\nTampa,FL,3\nBoise,ID,4\n"

	result, err := Parse(raw, Options{MaxRecords: 2})
	require.NoError(t, err)
	require.Len(t, result.Records, 2, "cap keeps the first N by input order")
	assert.Equal(t, "Austin", result.Records[0].City)
	assert.Equal(t, "Denver", result.Records[1].City)
}

func TestParseUnrecognizedFormat(t *testing.T) {
	_, err := Parse("alpha,beta\n1,2\n", Options{})
	assert.ErrorIs(t, err, ErrFormatUnrecognized)

	_, err = Parse("", Options{})
	assert.ErrorIs(t, err, ErrFormatUnrecognized)
}

func TestParseIsIdempotent(t *testing.T) {
	raw := "RegionID,RegionName,State,2020-01-31,2020-02-29,2021-01-31\n" +
		"1,Austin,TX,100,105,200\n" +
		"2,Denver,CO,300,,330\n"

	first, err := Parse(raw, Options{})
	require.NoError(t, err)
	second, err := Parse(raw, Options{})
	require.NoError(t, err)

	assert.Equal(t, first.Records, second.Records)
	assert.Equal(t, first.Series, second.Series)
	assert.Equal(t, first.Diagnostics, second.Diagnostics)
}
