package newsfeed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
)

const (
	// fetchConcurrency bounds each crawl phase (search, article).
	fetchConcurrency = 4

	fetchRetries      = 3
	fetchBackoffStart = 600 * time.Millisecond
	fetchBackoffCap   = 5 * time.Second

	maxResponseBytes = 4 << 20
)

// fetcher retrieves pages as markdown. The plain path is an http.Client
// GET converted through html-to-markdown; the rendered path drives a
// headless browser for script-built search pages.
type fetcher struct {
	client    *http.Client
	converter *md.Converter
	userAgent string
	render    bool
	logger    arbor.ILogger
}

func newFetcher(timeout time.Duration, userAgent string, render bool, logger arbor.ILogger) *fetcher {
	return &fetcher{
		client:    &http.Client{Timeout: timeout},
		converter: md.NewConverter("", true, nil),
		userAgent: userAgent,
		render:    render,
		logger:    logger,
	}
}

// Markdown fetches one URL with retries and exponential backoff and
// returns the page as markdown text.
func (f *fetcher) Markdown(ctx context.Context, url string) (string, error) {
	url = normalizeArticleURL(url)

	var lastErr error
	delay := fetchBackoffStart
	for attempt := 0; attempt < fetchRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > fetchBackoffCap {
				delay = fetchBackoffCap
			}
		}

		html, err := f.page(ctx, url)
		if err != nil {
			lastErr = err
			continue
		}
		out, err := f.converter.ConvertString(html)
		if err != nil {
			// Conversion failures do not improve on retry; fall back to
			// the stripped HTML.
			return cleanPageText(html), nil
		}
		return out, nil
	}
	return "", lastErr
}

// HTML fetches one URL with retries and returns the raw document.
func (f *fetcher) HTML(ctx context.Context, url string) (string, error) {
	url = normalizeArticleURL(url)

	var lastErr error
	delay := fetchBackoffStart
	for attempt := 0; attempt < fetchRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > fetchBackoffCap {
				delay = fetchBackoffCap
			}
		}
		html, err := f.page(ctx, url)
		if err != nil {
			lastErr = err
			continue
		}
		return html, nil
	}
	return "", lastErr
}

func (f *fetcher) page(ctx context.Context, url string) (string, error) {
	if f.render {
		return f.renderPage(ctx, url)
	}
	return f.httpPage(ctx, url)
}

func (f *fetcher) httpPage(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// renderPage drives a one-shot headless browser for pages that assemble
// their results with JavaScript.
func (f *fetcher) renderPage(ctx context.Context, url string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.UserAgent(f.userAgent),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(browserCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": "zh-CN,zh;q=0.9"}),
		chromedp.Navigate(url),
		chromedp.Sleep(800*time.Millisecond),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", err
	}
	return html, nil
}

// articlePage is the outcome of one article fetch: a recovered publish
// time (empty when none) and the cleaned body text (empty when the page is
// not substantive Chinese).
type articlePage struct {
	PublishedAt string
	PageText    string
}

// fetchArticle pulls one article and recovers its publish time by
// priority: metadata fields, visible-text date, URL path date. Relative
// times are the caller's last resort since they need the snippet.
func (f *fetcher) fetchArticle(ctx context.Context, url string) articlePage {
	var out articlePage

	html, err := f.HTML(ctx, url)
	if err != nil {
		f.logger.Debug().Err(err).Str("url", url).Msg("Article fetch failed")
		return out
	}

	if ts, ok := timeFromMeta(html); ok {
		out.PublishedAt = formatPublished(ts)
	}

	page, err := f.converter.ConvertString(html)
	if err != nil || page == "" {
		page = html
	}
	cleaned := cleanPageText(page)
	if hasEnoughChinese(cleaned) {
		out.PageText = capText(cleaned, pageTextCap)
	}

	if out.PublishedAt == "" {
		if m := timeFragmentRe.FindString(page); m != "" {
			if ts, ok := parseAnyTime(m); ok {
				out.PublishedAt = formatPublished(ts)
			}
		}
	}
	if out.PublishedAt == "" {
		if ts, ok := timeFromURL(url); ok {
			out.PublishedAt = formatPublished(ts)
		}
	}
	return out
}

// timeFromMeta scans document metadata for a publish time: meta tags whose
// name, property or itemprop carries one of the known keys, then
// <time datetime=...> elements.
func timeFromMeta(html string) (time.Time, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return time.Time{}, false
	}

	var found time.Time
	var ok bool
	for _, key := range timeMetaKeys {
		lower := strings.ToLower(key)
		doc.Find("meta").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			name := strings.ToLower(sel.AttrOr("name", "") + sel.AttrOr("property", "") + sel.AttrOr("itemprop", ""))
			if !strings.Contains(name, lower) {
				return true
			}
			if ts, parsed := parseAnyTime(sel.AttrOr("content", "")); parsed {
				found, ok = ts, true
				return false
			}
			return true
		})
		if ok {
			return found, true
		}
	}

	doc.Find("time[datetime]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if ts, parsed := parseAnyTime(sel.AttrOr("datetime", "")); parsed {
			found, ok = ts, true
			return false
		}
		return true
	})
	return found, ok
}
