package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dayplan/internal/agenda"
	"dayplan/internal/capture"
	"dayplan/internal/ics"
	"dayplan/internal/model"
	"dayplan/internal/store"
)

func exportCmd(a *app) *cobra.Command {
	var (
		format string
		out    string
		kind   string
		anchor string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export entries as ICS or an xlsx agenda",
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

			var buf bytes.Buffer
			switch format {
			case "ics":
				buf.WriteString(ics.Export(all, ics.ExportOptions{Name: "dayplan " + a.cfg.Owner}))
			case "xlsx":
				if out == "" || out == "-" {
					return fmt.Errorf("xlsx export needs --out")
				}
				k, err := model.ParsePeriodKind(kind)
				if err != nil {
					return err
				}
				at := time.Now()
				if anchor != "" {
					if at, err = store.ParseDate(anchor); err != nil {
						return err
					}
				}
				p := model.Period{Kind: k, Anchor: model.DayOf(at)}
				if err := agenda.Write(&buf, p, all, a.cfg.FirstWeekday()); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown format %q (want ics or xlsx)", format)
			}

			if out == "" || out == "-" {
				_, err = io.Copy(a.out, &buf)
				return err
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			a.printf("wrote %s\n", out)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&format, "format", "ics", "ics or xlsx")
	f.StringVarP(&out, "out", "o", "", "output file (default stdout, required for xlsx)")
	f.StringVar(&kind, "kind", "month", "xlsx period: week or month")
	f.StringVar(&anchor, "anchor", "", "xlsx period anchor day (default today)")
	return cmd
}

func importCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|url>",
		Short: "Import VEVENTs from an ICS file or URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			importer := ics.NewImporter(st, ics.NewFetcher(a.cfg.ICSCacheDir, nil))
			src := args[0]

			var stats ics.ImportStats
			if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
				stats, err = importer.ImportFeed(cmd.Context(), ics.Feed{ID: src, URL: src, Owner: a.cfg.Owner})
			} else {
				stats, err = importer.ImportFile(cmd.Context(), a.cfg.Owner, src)
			}
			if err != nil {
				return err
			}
			a.printf("imported: %d created, %d updated, %d failed\n", stats.Created, stats.Updated, stats.Failed)
			return nil
		},
	}
}

func captureCmd(a *app) *cobra.Command {
	var (
		out    string
		base   string
		kind   string
		anchor string
		width  int
		height int
	)

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Screenshot the /calendar page of a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				out = a.cfg.CapturePath
			}
			if base == "" {
				base = "http://" + a.cfg.Listen
			}
			k, err := model.ParsePeriodKind(kind)
			if err != nil {
				return err
			}
			var at time.Time
			if anchor != "" {
				if at, err = store.ParseDate(anchor); err != nil {
					return err
				}
			}

			target, err := capture.CalendarURL(base, a.cfg.Owner, k, at)
			if err != nil {
				return err
			}
			opts := capture.Options{
				URL:        target,
				OutputPath: out,
				Width:      width,
				Height:     height,
			}
			if a.cfg.BasicAuth != nil {
				opts.Username = a.cfg.BasicAuth.Username
				opts.Password = a.cfg.BasicAuth.Password
			}
			if err := capture.CalendarPNG(cmd.Context(), opts); err != nil {
				return err
			}
			a.printf("wrote %s\n", out)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&out, "out", "o", "", "PNG path (default capture_path from config)")
	f.StringVar(&base, "base", "", "server base URL (default http://<listen>)")
	f.StringVar(&kind, "kind", "month", "week or month")
	f.StringVar(&anchor, "anchor", "", "day to show and select (default today)")
	f.IntVar(&width, "width", capture.DefaultWidth, "viewport width")
	f.IntVar(&height, "height", capture.DefaultHeight, "viewport height")
	return cmd
}
