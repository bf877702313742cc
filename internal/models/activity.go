package models

import (
	"time"
)

type TimeUnit string

const (
	UnitMinute TimeUnit = "minute"
	UnitHour   TimeUnit = "hour"
	UnitDay    TimeUnit = "day"
	UnitWeek   TimeUnit = "week"
	UnitMonth  TimeUnit = "month"
	UnitYear   TimeUnit = "year"
)

type ActivityKind string

const (
	ActivityKindTask  ActivityKind = "task"
	ActivityKindEvent ActivityKind = "event"
)

type DefinitionKind string

const (
	DefinitionSingle    DefinitionKind = "single"
	DefinitionRepeating DefinitionKind = "repeating"
)

// Offset is a relative amount of time such as "2 days" or "30 minutes".
type Offset struct {
	Value int      `json:"value" validate:"gte=0"`
	Unit  TimeUnit `json:"unit" validate:"oneof=minute hour day week month year"`
}

// AddTo returns t shifted by the offset. Months and years use calendar
// arithmetic, smaller units are fixed durations.
func (o Offset) AddTo(t time.Time) time.Time {
	switch o.Unit {
	case UnitMinute:
		return t.Add(time.Duration(o.Value) * time.Minute)
	case UnitHour:
		return t.Add(time.Duration(o.Value) * time.Hour)
	case UnitDay:
		return t.Add(time.Duration(o.Value) * 24 * time.Hour)
	case UnitWeek:
		return t.Add(time.Duration(o.Value) * 7 * 24 * time.Hour)
	case UnitMonth:
		return t.AddDate(0, o.Value, 0)
	case UnitYear:
		return t.AddDate(o.Value, 0, 0)
	default:
		return t
	}
}

// SubtractFrom returns t shifted back by the offset.
func (o Offset) SubtractFrom(t time.Time) time.Time {
	return Offset{Value: -o.Value, Unit: o.Unit}.AddTo(t)
}

// ActivityTemplate is the payload of a single occurrence. It is copied by
// value into every generated occurrence.
type ActivityTemplate struct {
	Name        string       `json:"name" validate:"required,max=200"`
	Kind        ActivityKind `json:"kind" validate:"oneof=task event"`
	At          time.Time    `json:"at" validate:"required"`
	DurationMin int          `json:"duration_min" validate:"gte=0"`
	Deadline    *Offset      `json:"deadline,omitempty"`
	Reminder    *Offset      `json:"reminder,omitempty"`
	Start       *Offset      `json:"start,omitempty"`
	Category    string       `json:"category,omitempty" validate:"max=100"`
	Zone        string       `json:"zone,omitempty" validate:"max=100"`
}

// EndAt is when the activity stops occupying time.
func (t ActivityTemplate) EndAt() time.Time {
	return t.At.Add(time.Duration(t.DurationMin) * time.Minute)
}

// DeadlineAt returns the task deadline, which falls the deadline offset after At.
func (t ActivityTemplate) DeadlineAt() (time.Time, bool) {
	if t.Deadline == nil {
		return time.Time{}, false
	}
	return t.Deadline.AddTo(t.At), true
}

// ReminderAt returns when a reminder fires, the reminder offset before At.
func (t ActivityTemplate) ReminderAt() (time.Time, bool) {
	if t.Reminder == nil {
		return time.Time{}, false
	}
	return t.Reminder.SubtractFrom(t.At), true
}

// StartAt returns the earliest moment work on a task may begin.
func (t ActivityTemplate) StartAt() (time.Time, bool) {
	if t.Start == nil {
		return time.Time{}, false
	}
	return t.Start.SubtractFrom(t.At), true
}

// Clone returns a deep copy so occurrences never share offset pointers
// with the definition they came from.
func (t ActivityTemplate) Clone() ActivityTemplate {
	out := t
	if t.Deadline != nil {
		d := *t.Deadline
		out.Deadline = &d
	}
	if t.Reminder != nil {
		r := *t.Reminder
		out.Reminder = &r
	}
	if t.Start != nil {
		s := *t.Start
		out.Start = &s
	}
	return out
}

type ExceptionKind string

const (
	ExceptionSkip     ExceptionKind = "skip"
	ExceptionOverride ExceptionKind = "override"
)

// ExceptionRecord replaces or cancels one occurrence of a repeating
// activity without touching the recurrence rule.
type ExceptionRecord struct {
	ID       string            `json:"id"`
	Kind     ExceptionKind     `json:"kind" validate:"oneof=skip override"`
	Template *ActivityTemplate `json:"template,omitempty" validate:"required_if=Kind override"`
}

// RepeatingActivity is the recurrence rule of a repeating definition.
type RepeatingActivity struct {
	Template   ActivityTemplate        `json:"template"`
	Repeat     RepeatConfig            `json:"repeat"`
	End        EndConfig               `json:"end"`
	Exceptions map[int]ExceptionRecord `json:"exceptions,omitempty"`
}

// ActivityDefinition is the stored rule generating one or more activities.
type ActivityDefinition struct {
	ID          string               `json:"id"`
	Kind        DefinitionKind       `json:"kind" validate:"oneof=single repeating"`
	Single      *ActivityTemplate    `json:"single,omitempty"`
	Repeating   *RepeatingActivity   `json:"repeating,omitempty"`
	Completions *ActivityCompletions `json:"completions,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	DeletedAt   *time.Time           `json:"deleted_at,omitempty"`
}

// Template returns the base template regardless of definition kind.
func (d ActivityDefinition) Template() ActivityTemplate {
	if d.Kind == DefinitionRepeating && d.Repeating != nil {
		return d.Repeating.Template
	}
	if d.Single != nil {
		return *d.Single
	}
	return ActivityTemplate{}
}

// IsRepeating reports whether the definition carries a recurrence rule.
func (d ActivityDefinition) IsRepeating() bool {
	return d.Kind == DefinitionRepeating && d.Repeating != nil
}

// Occurrence is one concrete instance generated from a definition. ID is a
// synthetic per-call identifier and must never be persisted.
type Occurrence struct {
	ID           string           `json:"id"`
	DefinitionID string           `json:"definition_id"`
	Index        int              `json:"index"`
	Overridden   bool             `json:"overridden,omitempty"`
	Activity     ActivityTemplate `json:"activity"`
}
