package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/cadence/internal/backup"
	"github.com/julianstephens/cadence/internal/config"
	"github.com/julianstephens/cadence/internal/logger"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/planner"
	"github.com/julianstephens/cadence/internal/storage"
	"github.com/julianstephens/cadence/internal/storage/sqlite"
	"github.com/julianstephens/cadence/internal/utils"
)

type Context struct {
	Store     storage.Provider
	Planner   *planner.Service
	Config    config.Config
	ConfigDir string
	Location  *time.Location
	Out       io.Writer
	In        io.Reader
	// Now defaults to time.Now.
	Now func() time.Time
}

// Migrator is implemented by the SQL stores.
type Migrator interface {
	Migrate(logFn func(string)) (int, error)
}

func (c *Context) Printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out(), format, args...)
}

func (c *Context) Println(args ...interface{}) {
	fmt.Fprintln(c.out(), args...)
}

// Writer is where command output goes, stdout unless Out is set.
func (c *Context) Writer() io.Writer {
	return c.out()
}

func (c *Context) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c *Context) Input() io.Reader {
	if c.In == nil {
		return os.Stdin
	}
	return c.In
}

func (c *Context) Loc() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// Clock returns the current instant in the configured zone.
func (c *Context) Clock() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return now().In(c.Loc())
}

// ParseTime parses an instant in the configured zone. "now" and "today"
// are accepted as shortcuts.
func (c *Context) ParseTime(value string) (time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "now":
		return c.Clock(), nil
	case "today":
		return utils.StartOfDay(c.Clock()), nil
	}
	return utils.ParseInstant(value, c.Loc())
}

// Window resolves a --from/--days pair into [from, from+days).
func (c *Context) Window(from string, days int) (time.Time, time.Time, error) {
	if days < 1 {
		return time.Time{}, time.Time{}, fmt.Errorf("days must be at least 1")
	}
	if from == "" {
		from = "today"
	}
	start, err := c.ParseTime(from)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.AddDate(0, 0, days), nil
}

// FormatTime renders an instant in the configured zone.
func (c *Context) FormatTime(t time.Time) string {
	return t.In(c.Loc()).Format("Mon 2006-01-02 15:04")
}

// PerformAutomaticBackup creates an automatic backup and silently handles errors
func (c *Context) PerformAutomaticBackup() {
	if _, ok := c.Store.(*sqlite.Store); !ok {
		return
	}
	mgr := backup.NewManager(c.Store.GetConfigPath())
	if _, err := mgr.Create(); err != nil {
		// Log warning but don't interrupt user workflow
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// ParseWeekdays parses a comma-separated list of weekdays into a mask
func ParseWeekdays(s string) (models.WeekdayMask, error) {
	dayMap := map[string]time.Weekday{
		"sun":       time.Sunday,
		"sunday":    time.Sunday,
		"mon":       time.Monday,
		"monday":    time.Monday,
		"tue":       time.Tuesday,
		"tuesday":   time.Tuesday,
		"wed":       time.Wednesday,
		"wednesday": time.Wednesday,
		"thu":       time.Thursday,
		"thursday":  time.Thursday,
		"fri":       time.Friday,
		"friday":    time.Friday,
		"sat":       time.Saturday,
		"saturday":  time.Saturday,
	}

	var mask models.WeekdayMask
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part == "" {
			continue
		}
		if wd, ok := dayMap[part]; ok {
			mask |= models.NewWeekdayMask(wd)
			continue
		}
		// Try parsing as number (0=Sunday, 6=Saturday)
		num, err := strconv.Atoi(part)
		if err != nil || num < 0 || num > 6 {
			return 0, fmt.Errorf("invalid weekday: %s", part)
		}
		mask |= models.NewWeekdayMask(time.Weekday(num))
	}
	if mask == 0 {
		return 0, fmt.Errorf("no weekdays given")
	}
	return mask, nil
}

var offsetUnits = map[string]models.TimeUnit{
	"m":       models.UnitMinute,
	"min":     models.UnitMinute,
	"minute":  models.UnitMinute,
	"minutes": models.UnitMinute,
	"h":       models.UnitHour,
	"hour":    models.UnitHour,
	"hours":   models.UnitHour,
	"d":       models.UnitDay,
	"day":     models.UnitDay,
	"days":    models.UnitDay,
	"w":       models.UnitWeek,
	"week":    models.UnitWeek,
	"weeks":   models.UnitWeek,
	"mo":      models.UnitMonth,
	"month":   models.UnitMonth,
	"months":  models.UnitMonth,
	"y":       models.UnitYear,
	"year":    models.UnitYear,
	"years":   models.UnitYear,
}

// ParseOffset parses values like "30m", "2d" or "1 week". An empty value
// yields nil.
func ParseOffset(s string) (*models.Offset, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return nil, nil
	}
	split := strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' })
	if split <= 0 {
		return nil, fmt.Errorf("invalid offset %q: expected a number followed by a unit", s)
	}
	value, err := strconv.Atoi(s[:split])
	if err != nil {
		return nil, fmt.Errorf("invalid offset %q: %w", s, err)
	}
	unit, ok := offsetUnits[strings.TrimSpace(s[split:])]
	if !ok {
		return nil, fmt.Errorf("invalid offset unit in %q", s)
	}
	return &models.Offset{Value: value, Unit: unit}, nil
}

// FormatOffset renders an offset as "<n> <unit>(s)".
func FormatOffset(o *models.Offset) string {
	if o == nil {
		return "-"
	}
	if o.Value == 1 {
		return fmt.Sprintf("1 %s", o.Unit)
	}
	return fmt.Sprintf("%d %ss", o.Value, o.Unit)
}

// RepeatFlags are the recurrence options shared by commands creating
// repeating activities.
type RepeatFlags struct {
	Every    int    `help:"Repeat every N units. Zero creates a one-off activity." default:"0"`
	Unit     string `help:"Repeat unit (day|week|month|year)." enum:"day,week,month,year" default:"day"`
	Weekdays string `short:"w" help:"Comma-separated weekdays for weekly repeats. Defaults to the weekday of --at."`
	MonthDay int    `help:"Day of month (1-31) for monthly repeats. Defaults to the day of --at."`
	Month    int    `help:"Month (1-12) for yearly repeats. Defaults to the month of --at."`
	Day      int    `help:"Day (1-31) for yearly repeats. Defaults to the day of --at."`
	Count    int    `help:"End after this many occurrences."`
	Until    string `help:"End at this instant."`
}

// Repeat builds the repeat config, filling variant fields from anchor.
func (f RepeatFlags) Repeat(anchor time.Time) (models.RepeatConfig, error) {
	r := models.RepeatConfig{Every: f.Every, Unit: models.RepeatUnit(f.Unit)}
	switch r.Unit {
	case models.RepeatWeek:
		if f.Weekdays == "" {
			r.WeekDays = models.NewWeekdayMask(anchor.Weekday())
			break
		}
		mask, err := ParseWeekdays(f.Weekdays)
		if err != nil {
			return models.RepeatConfig{}, err
		}
		r.WeekDays = mask
	case models.RepeatMonth:
		r.MonthDay = f.MonthDay
		if r.MonthDay == 0 {
			r.MonthDay = anchor.Day()
		}
	case models.RepeatYear:
		r.Month, r.Day = f.Month, f.Day
		if r.Month == 0 {
			r.Month = int(anchor.Month())
		}
		if r.Day == 0 {
			r.Day = anchor.Day()
		}
	}
	return r, nil
}

// End builds the end condition. --count and --until are exclusive.
func (f RepeatFlags) End(ctx *Context) (models.EndConfig, error) {
	switch {
	case f.Count != 0 && f.Until != "":
		return models.EndConfig{}, fmt.Errorf("--count and --until cannot be combined")
	case f.Count != 0:
		return models.AfterCount(f.Count), nil
	case f.Until != "":
		until, err := ctx.ParseTime(f.Until)
		if err != nil {
			return models.EndConfig{}, fmt.Errorf("invalid --until: %w", err)
		}
		return models.Until(until), nil
	}
	return models.Never(), nil
}

// FormatRepeat formats a repeat config into a human-readable string
func FormatRepeat(r models.RepeatConfig) string {
	unit := string(r.Unit)
	base := "every " + unit
	if r.Every > 1 {
		base = fmt.Sprintf("every %d %ss", r.Every, unit)
	}
	switch r.Unit {
	case models.RepeatWeek:
		var days []string
		for _, wd := range r.WeekDays.Weekdays() {
			days = append(days, wd.String()[:3])
		}
		return fmt.Sprintf("%s on %s", base, strings.Join(days, ","))
	case models.RepeatMonth:
		return fmt.Sprintf("%s on day %d", base, r.MonthDay)
	case models.RepeatYear:
		return fmt.Sprintf("%s on %s %d", base, time.Month(r.Month), r.Day)
	}
	return base
}

// FormatEnd formats an end condition into a human-readable string
func (c *Context) FormatEnd(e models.EndConfig) string {
	switch e.Type {
	case models.EndCount:
		return fmt.Sprintf("%d occurrence(s)", e.Count)
	case models.EndUntil:
		return "until " + c.FormatTime(e.Until)
	default:
		return "never ends"
	}
}
