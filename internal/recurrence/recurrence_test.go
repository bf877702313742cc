package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/cadence/internal/constants"
	"github.com/julianstephens/cadence/internal/models"
)

var anchor = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func daily(end models.EndConfig) models.RepeatingActivity {
	return models.RepeatingActivity{
		Template: models.ActivityTemplate{
			Name:        "Stretch",
			Kind:        models.ActivityKindTask,
			At:          anchor,
			DurationMin: 15,
			Deadline:    &models.Offset{Value: 2, Unit: models.UnitHour},
		},
		Repeat: models.RepeatConfig{Every: 1, Unit: models.RepeatDay},
		End:    end,
	}
}

func days(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }

func TestUnitToMillis(t *testing.T) {
	assert.Equal(t, int64(86_400_000), UnitToMillis(models.RepeatDay))
	assert.Equal(t, int64(604_800_000), UnitToMillis(models.RepeatWeek))
	assert.Equal(t, int64(2_592_000_000), UnitToMillis(models.RepeatMonth))
	assert.Equal(t, int64(31_536_000_000), UnitToMillis(models.RepeatYear))
	assert.Equal(t, int64(0), UnitToMillis("fortnight"))
}

func TestIndexForInstant(t *testing.T) {
	every2Days := models.RepeatConfig{Every: 2, Unit: models.RepeatDay}

	tests := []struct {
		name    string
		repeat  models.RepeatConfig
		end     models.EndConfig
		instant time.Time
		want    int
	}{
		{"at anchor", every2Days, models.Never(), anchor, 0},
		{"exactly one stride", every2Days, models.Never(), anchor.Add(days(2)), 1},
		{"partial stride rounds up", every2Days, models.Never(), anchor.Add(days(3)), 2},
		{"one millisecond in", every2Days, models.Never(), anchor.Add(time.Millisecond), 1},
		{"before anchor clamps to zero", every2Days, models.Never(), anchor.Add(-days(30)), 0},
		{"count end reached", every2Days, models.AfterCount(3), anchor.Add(days(6)), NoOccurrence},
		{"inside count end", every2Days, models.AfterCount(3), anchor.Add(days(4)), 2},
		{"until end passed", every2Days, models.Until(anchor.Add(days(10))), anchor.Add(days(11)), NoOccurrence},
		{"instant equal to until", every2Days, models.Until(anchor.Add(days(10))), anchor.Add(days(10)), 5},
		{"monthly approximation", models.RepeatConfig{Every: 1, Unit: models.RepeatMonth}, models.Never(), anchor.Add(days(31)), 2},
		{"yearly approximation", models.RepeatConfig{Every: 1, Unit: models.RepeatYear}, models.Never(), anchor.Add(days(365)), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IndexForInstant(anchor, tt.repeat, tt.end, tt.instant))
		})
	}
}

func TestIndexForInstant_UntilIgnoresStride(t *testing.T) {
	until := anchor.Add(days(3))
	for _, unit := range []models.RepeatUnit{models.RepeatDay, models.RepeatWeek, models.RepeatMonth, models.RepeatYear} {
		for _, every := range []int{1, 2, 7} {
			repeat := models.RepeatConfig{Every: every, Unit: unit}
			got := IndexForInstant(anchor, repeat, models.Until(until), until.Add(time.Second))
			assert.Equal(t, NoOccurrence, got, "every %d %s", every, unit)
		}
	}
}

func TestIndexForInstant_BeforeAnchorNeverNegative(t *testing.T) {
	repeat := models.RepeatConfig{Every: 3, Unit: models.RepeatWeek}
	for _, back := range []time.Duration{time.Millisecond, time.Hour, days(100), days(4000)} {
		assert.Equal(t, 0, IndexForInstant(anchor, repeat, models.Never(), anchor.Add(-back)))
	}
}

func TestExpandOccurrences_Daily(t *testing.T) {
	got := ExpandOccurrences(daily(models.Never()), 3)
	require.Len(t, got, 3)

	wantDates := []string{"2024-01-01", "2024-01-02", "2024-01-03"}
	for i, occ := range got {
		assert.Equal(t, wantDates[i], occ.Activity.At.Format(constants.DateFormat))
		assert.Equal(t, i, occ.Index)
		assert.Equal(t, "Stretch", occ.Activity.Name)
		assert.Equal(t, virtualID(i), occ.ID)
	}
}

func TestExpandOccurrences_CountEndTruncates(t *testing.T) {
	for _, requested := range []int{1, 5, 6, 100} {
		got := ExpandOccurrences(daily(models.AfterCount(5)), requested)
		assert.LessOrEqual(t, len(got), 5)
		assert.Len(t, got, min(requested, 5))
	}
}

func TestExpandOccurrences_UntilEndIsExclusive(t *testing.T) {
	got := ExpandOccurrences(daily(models.Until(anchor.Add(days(2)))), 10)
	require.Len(t, got, 2)
	assert.Equal(t, anchor.Add(days(1)), got[1].Activity.At)
}

func TestExpandOccurrences_NonPositiveCount(t *testing.T) {
	assert.Empty(t, ExpandOccurrences(daily(models.Never()), 0))
	assert.Empty(t, ExpandOccurrences(daily(models.Never()), -3))
}

func TestExpandOccurrences_CopiesTemplate(t *testing.T) {
	rep := daily(models.Never())
	got := ExpandOccurrences(rep, 2)
	require.Len(t, got, 2)

	got[0].Activity.Name = "Changed"
	got[0].Activity.Deadline.Value = 99

	assert.Equal(t, "Stretch", rep.Template.Name)
	assert.Equal(t, 2, rep.Template.Deadline.Value)
	assert.Equal(t, 2, got[1].Activity.Deadline.Value)
	assert.Equal(t, anchor, rep.Template.At)
}

func TestExpandFrom(t *testing.T) {
	got := ExpandFrom(daily(models.AfterCount(5)), 3, 10)
	require.Len(t, got, 2)
	assert.Equal(t, 3, got[0].Index)
	assert.Equal(t, 4, got[1].Index)
	assert.Equal(t, virtualID(0), got[0].ID)
	assert.Equal(t, anchor.Add(days(3)), got[0].Activity.At)

	assert.Empty(t, ExpandFrom(daily(models.AfterCount(5)), 5, 3))
	assert.Empty(t, ExpandFrom(daily(models.Never()), -1, 3))
}

func TestExpandWindow(t *testing.T) {
	t.Run("mid series", func(t *testing.T) {
		got, truncated := ExpandWindow(daily(models.Never()), anchor.Add(days(10)), anchor.Add(days(13)))
		assert.False(t, truncated)
		require.Len(t, got, 3)
		assert.Equal(t, 10, got[0].Index)
		assert.Equal(t, 12, got[2].Index)
		assert.Equal(t, anchor.Add(days(10)), got[0].Activity.At)
	})

	t.Run("from between occurrences", func(t *testing.T) {
		got, _ := ExpandWindow(daily(models.Never()), anchor.Add(days(1)+time.Hour), anchor.Add(days(3)+time.Hour))
		require.Len(t, got, 2)
		assert.Equal(t, 2, got[0].Index)
		assert.Equal(t, 3, got[1].Index)
	})

	t.Run("window before anchor", func(t *testing.T) {
		got, _ := ExpandWindow(daily(models.Never()), anchor.Add(-days(5)), anchor.Add(days(1)))
		require.Len(t, got, 1)
		assert.Equal(t, 0, got[0].Index)
	})

	t.Run("count end inside window", func(t *testing.T) {
		got, _ := ExpandWindow(daily(models.AfterCount(4)), anchor.Add(days(2)), anchor.Add(days(20)))
		require.Len(t, got, 2)
		assert.Equal(t, 3, got[1].Index)
	})

	t.Run("until end inside window", func(t *testing.T) {
		got, _ := ExpandWindow(daily(models.Until(anchor.Add(days(5)))), anchor, anchor.Add(days(20)))
		assert.Len(t, got, 5)
	})

	t.Run("empty window", func(t *testing.T) {
		got, truncated := ExpandWindow(daily(models.Never()), anchor.Add(days(3)), anchor.Add(days(3)))
		assert.Empty(t, got)
		assert.False(t, truncated)
	})

	t.Run("cap reports truncation", func(t *testing.T) {
		got, truncated := ExpandWindow(daily(models.Never()), anchor, anchor.Add(days(constants.MaxWindowOccurrences+10)))
		assert.True(t, truncated)
		assert.Len(t, got, constants.MaxWindowOccurrences)
	})
}

func TestApplyExceptions(t *testing.T) {
	rep := daily(models.Never())
	moved := rep.Template
	moved.Name = "Stretch (late)"
	moved.At = anchor.Add(days(1) + 6*time.Hour)
	rep.Exceptions = map[int]models.ExceptionRecord{
		0: {ID: "x0", Kind: models.ExceptionSkip},
		1: {ID: "x1", Kind: models.ExceptionOverride, Template: &moved},
	}

	raw := ExpandOccurrences(rep, 3)
	got := ApplyExceptions(raw, rep.Exceptions)

	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Index)
	assert.True(t, got[0].Overridden)
	assert.Equal(t, "Stretch (late)", got[0].Activity.Name)
	assert.Equal(t, moved.At, got[0].Activity.At)
	assert.Equal(t, raw[1].ID, got[0].ID)
	assert.Equal(t, 2, got[1].Index)
	assert.False(t, got[1].Overridden)

	// Raw expansion output is left alone
	assert.Len(t, raw, 3)
	assert.Equal(t, "Stretch", raw[1].Activity.Name)
}

func TestFixedStride_OccurrenceAt(t *testing.T) {
	rep := daily(models.AfterCount(3))
	at, ok := FixedStride{}.OccurrenceAt(rep, 2)
	require.True(t, ok)
	assert.Equal(t, anchor.Add(days(2)), at)

	_, ok = FixedStride{}.OccurrenceAt(rep, 3)
	assert.False(t, ok)
	_, ok = FixedStride{}.OccurrenceAt(rep, -1)
	assert.False(t, ok)
}

func TestExpandOccurrences_CenturiesStayMonotonic(t *testing.T) {
	rep := daily(models.Never())
	rep.Repeat = models.RepeatConfig{Every: 1, Unit: models.RepeatYear}

	occs := ExpandOccurrences(rep, 300)
	require.Len(t, occs, 300)
	for i := 1; i < len(occs); i++ {
		require.True(t, occs[i].Activity.At.After(occs[i-1].Activity.At), "index %d at %s not after %s", i, occs[i].Activity.At, occs[i-1].Activity.At)
	}
	// 299 nominal years of 365 days
	assert.Equal(t, anchor.AddDate(0, 0, 299*365), occs[299].Activity.At)

	window, truncated := ExpandWindow(rep, anchor.AddDate(0, 0, 293*365), anchor.AddDate(0, 0, 296*365))
	assert.False(t, truncated)
	require.Len(t, window, 3)
	assert.Equal(t, 293, window[0].Index)
	assert.Equal(t, anchor.AddDate(0, 0, 293*365), window[0].Activity.At)
}

func TestOccurrenceAt_LongOffsets(t *testing.T) {
	perDay := models.RepeatConfig{Every: 1, Unit: models.RepeatDay}
	zone := time.FixedZone("UTC+2", 2*60*60)
	start := time.Date(2024, 1, 1, 9, 30, 0, 250_000, zone)

	at, ok := OccurrenceAt(start, perDay, 106_800)
	require.True(t, ok)
	assert.Equal(t, start.UTC().AddDate(0, 0, 106_800), at.UTC())
	assert.Equal(t, zone, at.Location())
	assert.Equal(t, 250_000, at.Nanosecond())

	every36Days := models.RepeatConfig{Every: 36, Unit: models.RepeatDay}
	at, ok = OccurrenceAt(start, every36Days, 1)
	require.True(t, ok)
	assert.Equal(t, start.Add(days(36)), at)

	yearly := models.RepeatConfig{Every: 1, Unit: models.RepeatYear}
	_, ok = OccurrenceAt(start, yearly, 300_000_000)
	assert.False(t, ok)
	_, ok = FixedStride{}.OccurrenceAt(models.RepeatingActivity{Template: models.ActivityTemplate{At: start}, Repeat: yearly, End: models.Never()}, 300_000_000)
	assert.False(t, ok)
}

func TestForMode(t *testing.T) {
	e, err := ForMode("")
	require.NoError(t, err)
	assert.IsType(t, FixedStride{}, e)

	e, err = ForMode(constants.StrideCalendar)
	require.NoError(t, err)
	assert.IsType(t, Calendar{}, e)

	_, err = ForMode("lunar")
	assert.Error(t, err)
}
