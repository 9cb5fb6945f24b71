package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/hamed0406/slotwatch/internal/domain"
)

// Columns maps table cells to record fields. A negative index means the
// source has no such column.
type Columns struct {
	Location     int
	TotalDates   int
	EarliestDate int
}

// ChromeFetcher renders the page in headless Chrome and reads the table rows.
type ChromeFetcher struct {
	URL         string
	RowSelector string
	Columns     Columns
	Logger      *zap.Logger

	allocCtx    context.Context
	cancelAlloc context.CancelFunc
}

func NewChromeFetcher(logger *zap.Logger, url, rowSelector string, cols Columns) *ChromeFetcher {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(1920, 1080),
		chromedp.NoSandbox,
		chromedp.Headless,
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &ChromeFetcher{
		URL:         url,
		RowSelector: rowSelector,
		Columns:     cols,
		Logger:      logger,
		allocCtx:    allocCtx,
		cancelAlloc: cancel,
	}
}

// Close shuts down the browser allocator.
func (c *ChromeFetcher) Close() { c.cancelAlloc() }

// Fetch opens a fresh tab per call; ctx bounds the whole fetch.
func (c *ChromeFetcher) Fetch(ctx context.Context) (domain.Snapshot, error) {
	start := time.Now()

	tabCtx, cancelTab := chromedp.NewContext(c.allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			msg := fmt.Sprintf(format, args...)
			if strings.Contains(msg, "error") || strings.Contains(msg, "failed") {
				c.Logger.Debug("chrome_log", zap.String("msg", msg))
			}
		}),
	)
	defer cancelTab()

	// Tie the tab to the caller's deadline.
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	if err := chromedp.Run(tabCtx, chromedp.Navigate(c.URL)); err != nil {
		if ctx.Err() == nil {
			dns := CheckDNS(ctx, HostOf(c.URL))
			c.Logger.Info("source_dns",
				zap.String("host", dns.Host),
				zap.String("class", dns.Class),
				zap.Strings("nameservers", dns.Nameservers),
				zap.String("resolver_error", dns.ResolverError),
			)
		}
		return domain.Snapshot{}, c.fail(ctx, "navigate", err)
	}
	if err := chromedp.Run(tabCtx, chromedp.WaitReady(c.RowSelector, chromedp.ByQuery)); err != nil {
		return domain.Snapshot{}, c.fail(ctx, "wait_selector", err)
	}

	var rows [][]string
	if err := chromedp.Run(tabCtx, chromedp.Evaluate(rowScript(c.RowSelector), &rows)); err != nil {
		return domain.Snapshot{}, c.fail(ctx, "extract", err)
	}

	snap := RowsToSnapshot(rows, c.Columns, time.Now().UTC())
	if snap.Len() == 0 {
		return domain.Snapshot{}, &RetrievalError{Stage: "empty", URL: c.URL}
	}

	c.Logger.Debug("chrome_fetch_done",
		zap.Int("rows", len(rows)),
		zap.Int("records", snap.Len()),
		zap.Duration("took", time.Since(start)),
	)
	return snap, nil
}

// fail prefers the caller's deadline error over chromedp's own cancellation.
func (c *ChromeFetcher) fail(ctx context.Context, stage string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, context.Canceled) {
		err = ctxErr
	}
	return &RetrievalError{Stage: stage, URL: c.URL, Err: err}
}

func rowScript(selector string) string {
	return fmt.Sprintf(`Array.from(document.querySelectorAll(%q)).map(
		row => Array.from(row.querySelectorAll("td")).map(td => td.innerText.trim())
	)`, selector)
}

// RowsToSnapshot maps raw cell text to records. Rows without a location
// cell, or with a blank one, are dropped.
func RowsToSnapshot(rows [][]string, cols Columns, takenAt time.Time) domain.Snapshot {
	records := make([]domain.SlotRecord, 0, len(rows))
	for _, cells := range rows {
		loc := cellAt(cells, cols.Location)
		if strings.TrimSpace(loc) == "" {
			continue
		}
		records = append(records, domain.NewSlotRecord(
			loc,
			cellAt(cells, cols.TotalDates),
			cellAt(cells, cols.EarliestDate),
		))
	}
	return domain.NewSnapshot(records, takenAt)
}

func cellAt(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return cells[i]
}
