// Package capture screenshots the /calendar page with headless Chromium.
package capture

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"dayplan/internal/model"
)

// Default capture parameters. They fit a month grid plus the day list.
const (
	DefaultWidth   = 1200
	DefaultHeight  = 1400
	DefaultTimeout = 30 * time.Second
)

// Options defines one capture.
type Options struct {
	// URL to capture, usually built with CalendarURL.
	URL string

	// OutputPath is where the PNG is written. Its directory is created.
	OutputPath string

	// Width and Height are the viewport in pixels; zero uses the defaults.
	Width  int
	Height int

	// Timeout bounds the whole capture; zero uses DefaultTimeout.
	Timeout time.Duration

	// Username and Password are sent as HTTP basic auth when both are set.
	Username string
	Password string
}

// CalendarURL builds the /calendar URL for owner's period around anchor,
// selecting anchor. A zero anchor shows today.
func CalendarURL(base, owner string, kind model.PeriodKind, anchor time.Time) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("base URL %q needs scheme and host", base)
	}
	u.Path = "/calendar"

	q := url.Values{}
	if owner != "" {
		q.Set("owner", owner)
	}
	q.Set("kind", string(kind))
	if anchor.IsZero() {
		q.Set("today", "1")
	} else {
		q.Set("anchor", anchor.Format("2006-01-02"))
		q.Set("selected", anchor.Format("2006-01-02"))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// CalendarPNG navigates headless Chromium to opts.URL, waits for the page
// root to report data-ready="true" and writes a full-page PNG.
func CalendarPNG(parent context.Context, opts Options) error {
	if opts.URL == "" {
		return errors.New("capture: URL is required")
	}
	if opts.OutputPath == "" {
		return errors.New("capture: OutputPath is required")
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	ctx, cancel := chromedp.NewContext(parent)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
	}
	if opts.Username != "" && opts.Password != "" {
		token := base64.StdEncoding.EncodeToString([]byte(opts.Username + ":" + opts.Password))
		tasks = append(tasks,
			network.Enable(),
			network.SetExtraHTTPHeaders(network.Headers{"Authorization": "Basic " + token}),
		)
	}
	tasks = append(tasks,
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(`[data-ready="true"]`, chromedp.ByQuery),
		chromedp.FullScreenshot(&png, 100),
	)

	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(opts.OutputPath), 0o755); err != nil {
		return fmt.Errorf("capture: create output dir: %w", err)
	}
	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: write PNG: %w", err)
	}
	return nil
}
