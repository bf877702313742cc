package models

import (
	"encoding/json"
	"slices"
)

// ActivityCompletions tracks which occurrences of a repeating activity are
// done. Every index up to LatestFinishedIndex is done by default; an index in
// Exceptions has that default flipped.
type ActivityCompletions struct {
	LatestFinishedIndex int
	Exceptions          map[int]struct{}
}

// NewCompletions returns the empty state: nothing finished, no exceptions.
func NewCompletions() ActivityCompletions {
	return ActivityCompletions{LatestFinishedIndex: -1, Exceptions: map[int]struct{}{}}
}

// HasException reports whether index flips the high-water-mark default.
func (c ActivityCompletions) HasException(index int) bool {
	_, ok := c.Exceptions[index]
	return ok
}

// IsCompleted derives the completion state of a single occurrence.
func (c ActivityCompletions) IsCompleted(index int) bool {
	if index < 0 {
		return false
	}
	return (index <= c.LatestFinishedIndex) != c.HasException(index)
}

// SortedExceptions returns the exception indices in ascending order.
func (c ActivityCompletions) SortedExceptions() []int {
	out := make([]int, 0, len(c.Exceptions))
	for i := range c.Exceptions {
		out = append(out, i)
	}
	slices.Sort(out)
	return out
}

// Clone returns an independent copy of the state.
func (c ActivityCompletions) Clone() ActivityCompletions {
	out := ActivityCompletions{
		LatestFinishedIndex: c.LatestFinishedIndex,
		Exceptions:          make(map[int]struct{}, len(c.Exceptions)),
	}
	for i := range c.Exceptions {
		out.Exceptions[i] = struct{}{}
	}
	return out
}

// Apply returns the state produced by delta. The receiver is left untouched.
func (c ActivityCompletions) Apply(delta CompletionsDelta) ActivityCompletions {
	out := c.Clone()
	for _, i := range delta.Removed {
		delete(out.Exceptions, i)
	}
	for _, i := range delta.Added {
		out.Exceptions[i] = struct{}{}
	}
	out.LatestFinishedIndex = delta.NewLatestFinishedIndex
	return out
}

type completionsJSON struct {
	LatestFinishedIndex int   `json:"latest_finished_index"`
	Exceptions          []int `json:"exceptions"`
}

func (c ActivityCompletions) MarshalJSON() ([]byte, error) {
	return json.Marshal(completionsJSON{
		LatestFinishedIndex: c.LatestFinishedIndex,
		Exceptions:          c.SortedExceptions(),
	})
}

func (c *ActivityCompletions) UnmarshalJSON(data []byte) error {
	raw := completionsJSON{LatestFinishedIndex: -1}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.LatestFinishedIndex = raw.LatestFinishedIndex
	c.Exceptions = make(map[int]struct{}, len(raw.Exceptions))
	for _, i := range raw.Exceptions {
		c.Exceptions[i] = struct{}{}
	}
	return nil
}

// CompletionsDelta is the minimal mutation turning one completions state
// into the next: indices to insert into and delete from the exception set,
// and the replacement high-water mark.
type CompletionsDelta struct {
	Added                  []int `json:"added"`
	Removed                []int `json:"removed"`
	NewLatestFinishedIndex int   `json:"new_latest_finished_index"`
}

// IsNoop reports whether applying the delta changes nothing but the frontier
// value it already had.
func (d CompletionsDelta) IsNoop(previous int) bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && d.NewLatestFinishedIndex == previous
}
