package executor

import (
	"context"
	"errors"
	"sync"
	"time"
)

// fakeDriver is a scripted Driver for engine tests. Behavior is keyed by
// selector: an entry in fail makes the primary invocation return that error,
// an entry in failScript does the same for the script path. Calls are
// recorded in order as "op:selector".
type fakeDriver struct {
	mu         sync.Mutex
	fail       map[string]error
	failScript map[string]error
	values     map[string]string
	texts      map[string]string
	visible    map[string]bool
	url        string
	pageText   string
	calls      []string
	diagnostic string
	diagErr    error
	delay      time.Duration
	closed     bool
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		fail:       make(map[string]error),
		failScript: make(map[string]error),
		values:     make(map[string]string),
		texts:      make(map[string]string),
		visible:    make(map[string]bool),
		url:        "https://shop.example.com/login",
		diagnostic: "diagnostics/fake.png",
	}
}

func (d *fakeDriver) record(op, selector string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, op+":"+selector)
}

func (d *fakeDriver) callLog() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.calls))
	copy(out, d.calls)
	return out
}

func (d *fakeDriver) primary(op, selector string) error {
	d.record(op, selector)
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	if err, ok := d.fail[selector]; ok {
		return err
	}
	return nil
}

func (d *fakeDriver) script(op, selector string) error {
	d.record(op, selector)
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	if err, ok := d.failScript[selector]; ok {
		return err
	}
	return nil
}

func (d *fakeDriver) Navigate(ctx context.Context, url string) error {
	d.record("navigate", url)
	if err, ok := d.fail[url]; ok {
		return err
	}
	d.mu.Lock()
	d.url = url
	d.mu.Unlock()
	return nil
}

func (d *fakeDriver) Click(ctx context.Context, selector string) error {
	return d.primary("click", selector)
}

func (d *fakeDriver) ClickViaScript(ctx context.Context, selector string) error {
	return d.script("click_script", selector)
}

func (d *fakeDriver) Type(ctx context.Context, selector, text string) error {
	if err := d.primary("type", selector); err != nil {
		return err
	}
	d.mu.Lock()
	d.values[selector] = text
	d.mu.Unlock()
	return nil
}

func (d *fakeDriver) TypeViaScript(ctx context.Context, selector, text string) error {
	if err := d.script("type_script", selector); err != nil {
		return err
	}
	d.mu.Lock()
	d.values[selector] = text
	d.mu.Unlock()
	return nil
}

func (d *fakeDriver) Scroll(ctx context.Context, deltaY int) error {
	d.record("scroll", "")
	return nil
}

func (d *fakeDriver) ExtractText(ctx context.Context, selector string) (string, error) {
	if err := d.primary("extract", selector); err != nil {
		return "", err
	}
	return d.texts[selector], nil
}

func (d *fakeDriver) ExtractTextViaScript(ctx context.Context, selector string) (string, error) {
	if err := d.script("extract_script", selector); err != nil {
		return "", err
	}
	return d.texts[selector], nil
}

func (d *fakeDriver) ElementVisible(ctx context.Context, selector string) (bool, error) {
	d.record("visible", selector)
	v, ok := d.visible[selector]
	if !ok {
		return true, nil
	}
	return v, nil
}

func (d *fakeDriver) ElementValue(ctx context.Context, selector string) (string, error) {
	d.record("value", selector)
	return d.values[selector], nil
}

func (d *fakeDriver) PageURL(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url, nil
}

func (d *fakeDriver) PageText(ctx context.Context) (string, error) {
	return d.pageText, nil
}

func (d *fakeDriver) CaptureDiagnostic(ctx context.Context, label string) (string, error) {
	d.record("diagnostic", label)
	if d.diagErr != nil {
		return "", d.diagErr
	}
	return d.diagnostic, nil
}

func (d *fakeDriver) Close() error {
	d.closed = true
	return nil
}

var _ Driver = (*fakeDriver)(nil)

var errBoom = errors.New("boom")
