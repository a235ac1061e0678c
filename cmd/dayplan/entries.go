package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"dayplan/internal/calendar"
	"dayplan/internal/model"
	"dayplan/internal/store"
)

// loadEntries returns owner's merged entries straight from the store.
func (a *app) loadEntries(ctx context.Context, st *store.Store) ([]model.Entry, error) {
	sources, errs := store.NewCache(st).Sources(ctx, a.cfg.Owner)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return calendar.Merge(sources), nil
}

func addCmd(a *app) *cobra.Command {
	var (
		date     string
		desc     string
		tags     []string
		priority string
		repeat   string
		days     []int
		until    string
	)

	cmd := &cobra.Command{
		Use:   "add <task|reminder|note> <title...>",
		Short: "Add an entry",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := model.ParseType(args[0])
			if err != nil {
				return err
			}

			rec := store.Record{
				OwnerID:     a.cfg.Owner,
				Type:        string(t),
				Title:       strings.Join(args[1:], " "),
				Description: desc,
				Date:        date,
				Priority:    priority,
				Tags:        tags,
				RepeatType:  repeat,
				RepeatDays:  days,
				RepeatUntil: until,
			}
			if rec.Date == "" {
				rec.Date = time.Now().Format(store.DateLayout)
			}
			if _, err := store.ParseDate(rec.Date); err != nil {
				return fmt.Errorf("invalid --date: %w", err)
			}
			if until != "" {
				if _, err := store.ParseDate(until); err != nil {
					return fmt.Errorf("invalid --until: %w", err)
				}
			}
			if repeat != "" && t != model.TypeReminder {
				return fmt.Errorf("only reminders can repeat")
			}

			e := rec.Entry()
			if t == model.TypeReminder {
				e.Time = e.Date.Format("15:04")
			}

			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Create(cmd.Context(), &e); err != nil {
				return err
			}
			a.printf("added %s %s\n", e.Type, e.ID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&date, "date", "", "date or date-time, e.g. 2025-04-15T09:00 (default now)")
	f.StringVar(&desc, "desc", "", "description")
	f.StringSliceVar(&tags, "tags", nil, "comma-separated tags")
	f.StringVar(&priority, "priority", "", "low, medium or high")
	f.StringVar(&repeat, "repeat", "", "reminders only: daily, weekly or monthly")
	f.IntSliceVar(&days, "days", nil, "weekly repeat days, 0=Sunday .. 6=Saturday")
	f.StringVar(&until, "until", "", "last day of the repeat (inclusive)")
	return cmd
}

func listCmd(a *app) *cobra.Command {
	var typ string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries (reminders, tasks, notes)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			all, err := a.loadEntries(cmd.Context(), st)
			if err != nil {
				return err
			}
			if typ != "" {
				tab, err := calendar.ParseTab(typ)
				if err != nil {
					return err
				}
				all = calendar.Filter(all, tab)
			}
			a.printEntries(all, true)
			return nil
		},
	}

	cmd.Flags().StringVar(&typ, "type", "", "task, reminder, note, done or open")
	return cmd
}

func dayCmd(a *app) *cobra.Command {
	var tab string

	cmd := &cobra.Command{
		Use:   "day [date]",
		Short: "Show what is on a day (default today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := model.DayOf(time.Now())
			if len(args) == 1 {
				parsed, err := store.ParseDate(args[0])
				if err != nil {
					return err
				}
				d = model.DayOf(parsed)
			}
			t, err := calendar.ParseTab(tab)
			if err != nil {
				return err
			}

			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			all, err := a.loadEntries(cmd.Context(), st)
			if err != nil {
				return err
			}

			a.printf("%s\n", d.Format("Monday, January 2 2006"))
			day := calendar.SortByTimeOfDay(calendar.Filter(calendar.EntriesOnDay(all, d), t))
			if len(day) == 0 {
				a.printf("nothing planned\n")
				return nil
			}
			a.printEntries(day, false)
			return nil
		},
	}

	cmd.Flags().StringVar(&tab, "tab", "all", "all, task, reminder, note, done or open")
	return cmd
}

func gridCmd(a *app) *cobra.Command {
	var (
		kind   string
		anchor string
	)

	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Print a week or month grid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			k, err := model.ParsePeriodKind(kind)
			if err != nil {
				return err
			}
			co := calendar.NewCoordinator(k, a.cfg.FirstWeekday(), nil)
			if anchor != "" {
				d, err := store.ParseDate(anchor)
				if err != nil {
					return err
				}
				co.Restore(d, d)
			}

			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			all, err := a.loadEntries(cmd.Context(), st)
			if err != nil {
				return err
			}
			a.printGrid(co.Render(all))
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "month", "week or month")
	cmd.Flags().StringVar(&anchor, "anchor", "", "a day inside the period (default today)")
	return cmd
}

func doneCmd(a *app) *cobra.Command {
	var undo bool

	cmd := &cobra.Command{
		Use:   "done <task-id>",
		Short: "Mark a task completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.SetCompleted(cmd.Context(), args[0], !undo); err != nil {
				return err
			}
			state := "done"
			if undo {
				state = "reopened"
			}
			a.printf("task %s %s\n", args[0], state)
			return nil
		},
	}

	cmd.Flags().BoolVar(&undo, "undo", false, "reopen the task instead")
	return cmd
}

func rmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <type> <id>",
		Short: "Delete an entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := model.ParseType(args[0])
			if err != nil {
				return err
			}
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Delete(cmd.Context(), t, args[1]); err != nil {
				return err
			}
			a.printf("deleted %s %s\n", t, args[1])
			return nil
		},
	}
}

func (a *app) printEntries(entries []model.Entry, withDate bool) {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, e := range entries {
		when := e.Date.Format("15:04")
		if withDate {
			when = e.Date.Format("2006-01-02 15:04")
		}
		if e.Malformed() {
			when = "?"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", when, e.Type, mark(e), e.Title, e.ID)
	}
	w.Flush()
}

func mark(e model.Entry) string {
	switch {
	case e.Type == model.TypeTask && e.Done():
		return "[x]"
	case e.Type == model.TypeTask:
		return "[ ]"
	case e.Recurring():
		return string(e.Rule.Freq)
	}
	return ""
}

// printGrid renders cells seven to a row. Each cell shows the day number,
// one letter per entry type present, * for the selection and brackets
// around today. Days outside the period are dimmed with a dot.
func (a *app) printGrid(v calendar.View) {
	if v.Period.Kind == model.PeriodWeek {
		a.printf("%s – %s\n", v.RangeStart.Format("Jan 2"), v.RangeEnd.Format("Jan 2 2006"))
	} else {
		a.printf("%s\n", v.Period.Anchor.Format("January 2006"))
	}

	for i := 0; i < 7; i++ {
		a.printf("%-8s", time.Weekday((int(a.cfg.FirstWeekday())+i)%7).String()[:3])
	}
	a.printf("\n")

	for i, c := range v.Cells {
		a.printf("%-8s", cellLabel(c))
		if i%7 == 6 {
			a.printf("\n")
		}
	}

	if len(v.Day) > 0 {
		a.printf("\n%s\n", v.Selected.Format("Monday, January 2"))
		a.printEntries(calendar.SortByTimeOfDay(v.Day), false)
	}
}

func cellLabel(c model.CalendarCell) string {
	var b strings.Builder
	day := strconv.Itoa(c.Date.Day())
	if c.IsToday {
		day = "[" + day + "]"
	}
	if !c.InCurrentPeriod {
		day = "." + day
	}
	b.WriteString(day)
	for _, t := range c.Types {
		b.WriteString(strings.ToUpper(string(t)[:1]))
	}
	if c.IsSelected {
		b.WriteString("*")
	}
	return b.String()
}
