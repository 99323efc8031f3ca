package executor

import "context"

// Driver is the external automation collaborator the engine acts through.
// Every call is blocking-with-timeout from the engine's perspective: the
// engine suspends until the driver returns or the per-action deadline on ctx
// elapses. Implementations should report failures as *DriverError so the
// engine can distinguish retryable conditions from hard faults.
//
// The *ViaScript variants are the lower-level dispatch path used as the
// in-place fallback when the primary invocation reports a not-found,
// not-interactable, or timeout condition.
type Driver interface {
	// Navigate loads a URL.
	Navigate(ctx context.Context, url string) error

	// Click clicks the element addressed by selector.
	Click(ctx context.Context, selector string) error
	// ClickViaScript dispatches a click through script evaluation.
	ClickViaScript(ctx context.Context, selector string) error

	// Type replaces the element's value with text.
	Type(ctx context.Context, selector, text string) error
	// TypeViaScript sets the value through script evaluation, firing the
	// input and change events the page expects.
	TypeViaScript(ctx context.Context, selector, text string) error

	// Scroll scrolls the window vertically by deltaY pixels.
	Scroll(ctx context.Context, deltaY int) error

	// ExtractText returns the element's visible text.
	ExtractText(ctx context.Context, selector string) (string, error)
	// ExtractTextViaScript reads the text through script evaluation.
	ExtractTextViaScript(ctx context.Context, selector string) (string, error)

	// ElementVisible reports whether the element exists and is visible.
	ElementVisible(ctx context.Context, selector string) (bool, error)
	// ElementValue returns an input element's current value.
	ElementValue(ctx context.Context, selector string) (string, error)

	// PageURL returns the current page URL.
	PageURL(ctx context.Context) (string, error)
	// PageText returns the page's visible text content.
	PageText(ctx context.Context) (string, error)

	// CaptureDiagnostic captures a diagnostic artifact (e.g. a screenshot)
	// labeled with the failing step and returns a reference to it.
	CaptureDiagnostic(ctx context.Context, label string) (string, error)

	// Close releases the driver.
	Close() error
}
