package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DriverConfig configures the chromedp-backed driver.
type DriverConfig struct {
	Headless       bool    `json:"headless" yaml:"headless"`
	ViewportWidth  int     `json:"viewport_width" yaml:"viewport_width"`
	ViewportHeight int     `json:"viewport_height" yaml:"viewport_height"`
	UserAgent      string  `json:"user_agent" yaml:"user_agent"`
	ProxyURL       string  `json:"proxy_url" yaml:"proxy_url"`
	DiagnosticsDir string  `json:"diagnostics_dir" yaml:"diagnostics_dir"`
	ActionsPerSec  float64 `json:"actions_per_sec" yaml:"actions_per_sec"`
}

// DefaultDriverConfig returns the default browser settings.
func DefaultDriverConfig() DriverConfig {
	return DriverConfig{
		Headless:       true,
		ViewportWidth:  1280,
		ViewportHeight: 800,
		DiagnosticsDir: "diagnostics",
		ActionsPerSec:  5,
	}
}

// ChromeDriver implements Driver on top of chromedp. A driver owns one
// browser tab and serves one session; calls are serialized internally.
type ChromeDriver struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	config      DriverConfig
	limiter     *rate.Limiter
	logger      *zap.Logger
	mu          sync.Mutex
}

// NewChromeDriver starts a browser and returns a driver bound to it.
func NewChromeDriver(config DriverConfig, logger *zap.Logger) (*ChromeDriver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.ViewportWidth <= 0 || config.ViewportHeight <= 0 {
		def := DefaultDriverConfig()
		config.ViewportWidth = def.ViewportWidth
		config.ViewportHeight = def.ViewportHeight
	}
	if config.ActionsPerSec <= 0 {
		config.ActionsPerSec = DefaultDriverConfig().ActionsPerSec
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", config.Headless),
		chromedp.WindowSize(config.ViewportWidth, config.ViewportHeight),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(config.UserAgent))
	}
	if config.ProxyURL != "" {
		opts = append(opts, chromedp.ProxyServer(config.ProxyURL))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...))
		}),
	)

	d := &ChromeDriver{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		ctx:         ctx,
		cancel:      cancel,
		config:      config,
		limiter:     rate.NewLimiter(rate.Limit(config.ActionsPerSec), 1),
		logger:      logger.With(zap.String("component", "chrome_driver")),
	}

	if err := chromedp.Run(ctx); err != nil {
		allocCancel()
		cancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	logger.Info("browser started",
		zap.Bool("headless", config.Headless),
		zap.Int("viewport_w", config.ViewportWidth),
		zap.Int("viewport_h", config.ViewportHeight))
	return d, nil
}

// Navigate loads a URL.
func (d *ChromeDriver) Navigate(ctx context.Context, url string) error {
	d.logger.Debug("navigating", zap.String("url", url))
	return d.run(ctx, "navigate", chromedp.Navigate(url))
}

// Click clicks the element addressed by selector.
func (d *ChromeDriver) Click(ctx context.Context, selector string) error {
	d.logger.Debug("clicking", zap.String("selector", selector))
	return d.run(ctx, "click", chromedp.Click(selector, d.queryOption(selector)))
}

// ClickViaScript dispatches a click through script evaluation, reaching
// elements the protocol-level click cannot interact with.
func (d *ChromeDriver) ClickViaScript(ctx context.Context, selector string) error {
	expr := fmt.Sprintf(`(() => {
	const el = %s;
	if (!el) return "not_found";
	el.click();
	return "ok";
})()`, lookupJS(selector))
	return d.evalStatus(ctx, "click_script", expr)
}

// Type clears the element and sends text through the input pipeline.
func (d *ChromeDriver) Type(ctx context.Context, selector, text string) error {
	d.logger.Debug("typing", zap.String("selector", selector))
	opt := d.queryOption(selector)
	return d.run(ctx, "type",
		chromedp.Clear(selector, opt),
		chromedp.SendKeys(selector, text, opt),
	)
}

// TypeViaScript sets the element value directly and fires the input and
// change events frameworks listen for.
func (d *ChromeDriver) TypeViaScript(ctx context.Context, selector, text string) error {
	expr := fmt.Sprintf(`(() => {
	const el = %s;
	if (!el) return "not_found";
	el.focus();
	el.value = %s;
	el.dispatchEvent(new Event("input", {bubbles: true}));
	el.dispatchEvent(new Event("change", {bubbles: true}));
	return "ok";
})()`, lookupJS(selector), jsString(text))
	return d.evalStatus(ctx, "type_script", expr)
}

// Scroll scrolls the window vertically by deltaY pixels.
func (d *ChromeDriver) Scroll(ctx context.Context, deltaY int) error {
	d.logger.Debug("scrolling", zap.Int("deltaY", deltaY))
	return d.run(ctx, "scroll",
		chromedp.ActionFunc(func(ctx context.Context) error {
			return input.DispatchMouseEvent(input.MouseWheel,
				float64(d.config.ViewportWidth)/2,
				float64(d.config.ViewportHeight)/2,
			).WithDeltaY(float64(deltaY)).Do(ctx)
		}),
	)
}

// ExtractText returns the element's visible text.
func (d *ChromeDriver) ExtractText(ctx context.Context, selector string) (string, error) {
	var text string
	err := d.run(ctx, "extract", chromedp.Text(selector, &text, d.queryOption(selector)))
	return text, err
}

// ExtractTextViaScript reads the text through script evaluation.
func (d *ChromeDriver) ExtractTextViaScript(ctx context.Context, selector string) (string, error) {
	expr := fmt.Sprintf(`(() => {
	const el = %s;
	if (!el) return null;
	return el.innerText || el.textContent || "";
})()`, lookupJS(selector))

	var text *string
	if err := d.runEval(ctx, "extract_script", expr, &text); err != nil {
		return "", err
	}
	if text == nil {
		return "", NewDriverError("extract_script", DriverNotFound, fmt.Errorf("no element for %q", selector))
	}
	return *text, nil
}

// ElementVisible reports whether the element exists and takes up layout space.
func (d *ChromeDriver) ElementVisible(ctx context.Context, selector string) (bool, error) {
	expr := fmt.Sprintf(`(() => {
	const el = %s;
	return !!el && el.getClientRects().length > 0;
})()`, lookupJS(selector))

	var visible bool
	err := d.runEval(ctx, "visible", expr, &visible)
	return visible, err
}

// ElementValue returns an input element's current value.
func (d *ChromeDriver) ElementValue(ctx context.Context, selector string) (string, error) {
	var value string
	err := d.run(ctx, "value", chromedp.Value(selector, &value, d.queryOption(selector)))
	return value, err
}

// PageURL returns the current page URL.
func (d *ChromeDriver) PageURL(ctx context.Context) (string, error) {
	var url string
	err := d.run(ctx, "page_url", chromedp.Location(&url))
	return url, err
}

// PageText returns the page body's visible text.
func (d *ChromeDriver) PageText(ctx context.Context) (string, error) {
	var text string
	err := d.runEval(ctx, "page_text", `document.body ? document.body.innerText : ""`, &text)
	return text, err
}

// CaptureDiagnostic writes a full-page screenshot under DiagnosticsDir and
// returns its path.
func (d *ChromeDriver) CaptureDiagnostic(ctx context.Context, label string) (string, error) {
	var buf []byte
	if err := d.run(ctx, "screenshot", chromedp.FullScreenshot(&buf, 90)); err != nil {
		return "", err
	}

	dir := d.config.DiagnosticsDir
	if dir == "" {
		dir = DefaultDriverConfig().DiagnosticsDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create diagnostics dir: %w", err)
	}

	name := fmt.Sprintf("%s-%s.png", sanitizeLabel(label), uuid.NewString()[:8])
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return "", fmt.Errorf("failed to write diagnostic: %w", err)
	}
	d.logger.Info("diagnostic captured", zap.String("path", path))
	return path, nil
}

// Close shuts down the browser.
func (d *ChromeDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.logger.Info("closing browser")
	d.cancel()
	d.allocCancel()
	return nil
}

// run executes chromedp actions on the tab context, honoring the caller's
// deadline and the action rate limit, and classifies failures.
func (d *ChromeDriver) run(ctx context.Context, op string, actions ...chromedp.Action) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return classifyDriverErr(op, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	rctx := d.ctx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		rctx, cancel = context.WithDeadline(d.ctx, deadline)
		defer cancel()
	}
	if err := chromedp.Run(rctx, actions...); err != nil {
		return classifyDriverErr(op, err)
	}
	return nil
}

func (d *ChromeDriver) runEval(ctx context.Context, op, expr string, out any) error {
	return d.run(ctx, op, chromedp.Evaluate(expr, out))
}

// evalStatus runs a script returning "ok" or "not_found" and maps the
// outcome to a driver error.
func (d *ChromeDriver) evalStatus(ctx context.Context, op, expr string) error {
	var status string
	if err := d.runEval(ctx, op, expr, &status); err != nil {
		return err
	}
	if status == "not_found" {
		return NewDriverError(op, DriverNotFound, errors.New("script found no matching element"))
	}
	return nil
}

func (d *ChromeDriver) queryOption(selector string) chromedp.QueryOption {
	if isXPath(selector) {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// lookupJS returns a JS expression evaluating to the first element matched
// by selector, or null.
func lookupJS(selector string) string {
	if isXPath(selector) {
		return fmt.Sprintf(
			`document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue`,
			jsString(selector))
	}
	return fmt.Sprintf(`document.querySelector(%s)`, jsString(selector))
}

func isXPath(selector string) bool {
	return strings.HasPrefix(selector, "/") || strings.HasPrefix(selector, "(")
}

// jsString embeds a Go string as a JS string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func sanitizeLabel(label string) string {
	if label == "" {
		return "step"
	}
	return strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, label)
}

// classifyDriverErr wraps a raw chromedp error as a DriverError with the
// kind the engine's retry policy keys on.
func classifyDriverErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var derr *DriverError
	if errors.As(err, &derr) {
		return err
	}

	kind := DriverActionFailed
	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.DeadlineExceeded) || strings.Contains(msg, "deadline exceeded"):
		kind = DriverTimeout
	case strings.Contains(msg, "could not find node") || strings.Contains(msg, "no nodes"):
		kind = DriverNotFound
	case strings.Contains(msg, "not visible") || strings.Contains(msg, "not clickable") ||
		strings.Contains(msg, "node is detached"):
		kind = DriverNotInteractable
	}
	return NewDriverError(op, kind, err)
}

var _ Driver = (*ChromeDriver)(nil)
