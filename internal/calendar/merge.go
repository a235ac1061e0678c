package calendar

import "dayplan/internal/model"

// Sources holds the per-type snapshots loaded from the store. A nil slice
// means the source has not resolved (or failed) and contributes nothing.
type Sources struct {
	Task     []model.Entry
	Reminder []model.Entry
	Note     []model.Entry
}

// Set stores entries as the snapshot for t. Unknown types are ignored.
func (s *Sources) Set(t model.Type, entries []model.Entry) {
	switch t {
	case model.TypeTask:
		s.Task = entries
	case model.TypeReminder:
		s.Reminder = entries
	case model.TypeNote:
		s.Note = entries
	}
}

// Loaded reports whether the source for t has resolved.
func (s Sources) Loaded(t model.Type) bool {
	switch t {
	case model.TypeTask:
		return s.Task != nil
	case model.TypeReminder:
		return s.Reminder != nil
	case model.TypeNote:
		return s.Note != nil
	}
	return false
}

// Merge concatenates the sources as reminders, tasks, notes, keeping each
// source's order. Every merged entry is tagged with the type of the source it
// came from. No de-duplication is done.
func Merge(s Sources) []model.Entry {
	out := make([]model.Entry, 0, len(s.Reminder)+len(s.Task)+len(s.Note))
	out = appendTagged(out, s.Reminder, model.TypeReminder)
	out = appendTagged(out, s.Task, model.TypeTask)
	out = appendTagged(out, s.Note, model.TypeNote)
	return out
}

func appendTagged(out, src []model.Entry, t model.Type) []model.Entry {
	for _, e := range src {
		e.Type = t
		if t != model.TypeReminder {
			e.Rule = nil
		}
		out = append(out, e)
	}
	return out
}
