package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validBar(day int, close string) Bar {
	c := decimal.RequireFromString(close)
	return Bar{
		Time:   time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC),
		Open:   c,
		High:   c,
		Low:    c,
		Close:  c,
		Volume: decimal.NewFromInt(1000),
	}
}

func TestValidate(t *testing.T) {
	assert.Error(t, BarSeries{}.Validate(), "empty series is invalid")

	good := BarSeries{validBar(2, "10.5"), validBar(3, "10.6")}
	assert.NoError(t, good.Validate())

	noTime := BarSeries{validBar(2, "10.5")}
	noTime[0].Time = time.Time{}
	assert.Error(t, noTime.Validate())

	zeroClose := BarSeries{validBar(2, "10.5")}
	zeroClose[0].Close = decimal.Zero
	assert.Error(t, zeroClose.Validate())

	negVolume := BarSeries{validBar(2, "10.5")}
	negVolume[0].Volume = decimal.NewFromInt(-1)
	assert.Error(t, negVolume.Validate())

	zeroVolume := BarSeries{validBar(2, "10.5")}
	zeroVolume[0].Volume = decimal.Zero
	assert.NoError(t, zeroVolume.Validate(), "zero volume is a valid quiet day")
}

func TestLatest(t *testing.T) {
	_, ok := BarSeries{}.Latest()
	assert.False(t, ok)

	s := BarSeries{validBar(2, "10"), validBar(3, "11")}
	last, ok := s.Latest()
	require.True(t, ok)
	assert.True(t, last.Close.Equal(decimal.NewFromInt(11)))
}

func TestCloses(t *testing.T) {
	s := BarSeries{validBar(2, "10.5"), validBar(3, "11.25")}
	assert.Equal(t, []float64{10.5, 11.25}, s.Closes())
}

func TestDayTruncatesToUTCDate(t *testing.T) {
	loc := time.FixedZone("X", 5*3600)
	ts := time.Date(2024, 3, 1, 23, 45, 0, 0, loc)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Day(ts))
}
