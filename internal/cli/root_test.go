package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/cadence/internal/models"
)

func TestParseWeekdays(t *testing.T) {
	tests := []struct {
		input   string
		want    models.WeekdayMask
		wantErr bool
	}{
		{"mon,fri", models.NewWeekdayMask(time.Monday, time.Friday), false},
		{"Monday, Wednesday", models.NewWeekdayMask(time.Monday, time.Wednesday), false},
		{"0,6", models.NewWeekdayMask(time.Sunday, time.Saturday), false},
		{"mon,mon", models.NewWeekdayMask(time.Monday), false},
		{"funday", 0, true},
		{"7", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseWeekdays(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseOffset(t *testing.T) {
	tests := []struct {
		input   string
		want    *models.Offset
		wantErr bool
	}{
		{"", nil, false},
		{"30m", &models.Offset{Value: 30, Unit: models.UnitMinute}, false},
		{"2 days", &models.Offset{Value: 2, Unit: models.UnitDay}, false},
		{"1W", &models.Offset{Value: 1, Unit: models.UnitWeek}, false},
		{"3mo", &models.Offset{Value: 3, Unit: models.UnitMonth}, false},
		{"1y", &models.Offset{Value: 1, Unit: models.UnitYear}, false},
		{"h", nil, true},
		{"5 parsecs", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseOffset(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRepeatFlagsFillFromAnchor(t *testing.T) {
	// Wednesday
	anchor := time.Date(2024, 3, 13, 9, 0, 0, 0, time.UTC)

	r, err := RepeatFlags{Every: 1, Unit: "week"}.Repeat(anchor)
	require.NoError(t, err)
	assert.Equal(t, models.NewWeekdayMask(time.Wednesday), r.WeekDays)

	r, err = RepeatFlags{Every: 2, Unit: "week", Weekdays: "tue,thu"}.Repeat(anchor)
	require.NoError(t, err)
	assert.Equal(t, models.NewWeekdayMask(time.Tuesday, time.Thursday), r.WeekDays)

	r, err = RepeatFlags{Every: 1, Unit: "month"}.Repeat(anchor)
	require.NoError(t, err)
	assert.Equal(t, 13, r.MonthDay)

	r, err = RepeatFlags{Every: 1, Unit: "year", Day: 1}.Repeat(anchor)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Month)
	assert.Equal(t, 1, r.Day)

	_, err = RepeatFlags{Every: 1, Unit: "week", Weekdays: "someday"}.Repeat(anchor)
	assert.Error(t, err)
}

func TestRepeatFlagsEnd(t *testing.T) {
	ctx := &Context{Location: time.UTC}

	end, err := RepeatFlags{}.End(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.EndNever, end.Type)

	end, err = RepeatFlags{Count: 5}.End(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.AfterCount(5), end)

	end, err = RepeatFlags{Until: "2024-06-01 12:00"}.End(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.EndUntil, end.Type)
	assert.True(t, end.Until.Equal(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)))

	_, err = RepeatFlags{Count: 5, Until: "2024-06-01"}.End(ctx)
	assert.Error(t, err)
}

func TestFormatRepeat(t *testing.T) {
	assert.Equal(t, "every day", FormatRepeat(models.RepeatConfig{Every: 1, Unit: models.RepeatDay}))
	assert.Equal(t, "every 2 weeks on Mon,Fri", FormatRepeat(models.RepeatConfig{
		Every: 2, Unit: models.RepeatWeek, WeekDays: models.NewWeekdayMask(time.Friday, time.Monday),
	}))
	assert.Equal(t, "every month on day 31", FormatRepeat(models.RepeatConfig{Every: 1, Unit: models.RepeatMonth, MonthDay: 31}))
	assert.Equal(t, "every year on February 29", FormatRepeat(models.RepeatConfig{Every: 1, Unit: models.RepeatYear, Month: 2, Day: 29}))
}

func TestContextTime(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	now := time.Date(2024, 1, 2, 15, 30, 0, 0, time.UTC)
	ctx := &Context{Location: loc, Now: func() time.Time { return now }}

	got, err := ctx.ParseTime("now")
	require.NoError(t, err)
	assert.True(t, got.Equal(now))

	got, err = ctx.ParseTime("today")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, loc), got)

	got, err = ctx.ParseTime("2024-01-05 09:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 5, 9, 0, 0, 0, loc), got)

	from, until, err := ctx.Window("2024-01-05", 3)
	require.NoError(t, err)
	assert.Equal(t, 72*time.Hour, until.Sub(from))

	_, _, err = ctx.Window("", 0)
	assert.Error(t, err)

	assert.Equal(t, "Tue 2024-01-02 10:30", ctx.FormatTime(now))
}
