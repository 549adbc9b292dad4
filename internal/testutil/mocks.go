package testutil

import (
	"context"
	"fmt"
	"sync"
)

// FakeDriver is a scripted browser.Driver for tests. Behavior is configured
// through maps keyed by selector; every call is recorded in Calls so tests
// can assert on interaction order. Scripted value slices are consumed one
// element per call, with the last element sticking.
type FakeDriver struct {
	mu    sync.Mutex
	Calls []string

	// Per-selector errors for Click and SetValue.
	ClickErrs    map[string]error
	SetValueErrs map[string]error

	// AttrVals is keyed "selector@attr". A missing key or an empty scripted
	// value means the attribute (or element) is absent for that call.
	AttrVals map[string][]string

	// TextVals is keyed by selector; missing means empty text.
	TextVals map[string][]string

	// ExistsVals is keyed by selector; missing means not present.
	ExistsVals map[string]bool

	// Resources maps URL to the bytes FetchResource returns.
	Resources map[string][]byte

	// TextButtons lists labels ClickByText can find; anything else errors.
	TextButtons map[string]bool

	// Locations is consumed by Location calls; missing means "about:blank".
	Locations []string

	NavigateErr error
	ReloadErr   error

	CloseCount int
}

// NewFakeDriver returns an empty scripted driver.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{
		ClickErrs:    map[string]error{},
		SetValueErrs: map[string]error{},
		AttrVals:     map[string][]string{},
		TextVals:     map[string][]string{},
		ExistsVals:   map[string]bool{},
		Resources:    map[string][]byte{},
		TextButtons:  map[string]bool{},
	}
}

func (d *FakeDriver) record(format string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Calls = append(d.Calls, fmt.Sprintf(format, args...))
}

// CallCount returns how many recorded calls match the given prefix.
func (d *FakeDriver) CallCount(prefix string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.Calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func popString(vals []string) (string, []string) {
	if len(vals) == 0 {
		return "", vals
	}
	if len(vals) == 1 {
		return vals[0], vals
	}
	return vals[0], vals[1:]
}

// Navigate implements browser.Driver.
func (d *FakeDriver) Navigate(ctx context.Context, url string) error {
	d.record("NAVIGATE %s", url)
	return d.NavigateErr
}

// Click implements browser.Driver.
func (d *FakeDriver) Click(ctx context.Context, sel string) error {
	d.record("CLICK %s", sel)
	return d.ClickErrs[sel]
}

// ClickByText implements browser.Driver.
func (d *FakeDriver) ClickByText(ctx context.Context, sel, text string) error {
	d.record("CLICKTEXT %s %s", sel, text)
	if d.TextButtons[text] {
		return nil
	}
	return fmt.Errorf("no %s element with text %q", sel, text)
}

// SetValue implements browser.Driver.
func (d *FakeDriver) SetValue(ctx context.Context, sel, value string) error {
	d.record("SETVALUE %s=%s", sel, value)
	return d.SetValueErrs[sel]
}

// WaitVisible implements browser.Driver.
func (d *FakeDriver) WaitVisible(ctx context.Context, sel string) error {
	d.record("WAIT %s", sel)
	return nil
}

// Exists implements browser.Driver.
func (d *FakeDriver) Exists(ctx context.Context, sel string) (bool, error) {
	d.record("EXISTS %s", sel)
	return d.ExistsVals[sel], nil
}

// Text implements browser.Driver.
func (d *FakeDriver) Text(ctx context.Context, sel string) (string, error) {
	d.record("TEXT %s", sel)
	val, rest := popString(d.TextVals[sel])
	d.TextVals[sel] = rest
	return val, nil
}

// AttrValue implements browser.Driver.
func (d *FakeDriver) AttrValue(ctx context.Context, sel, attr string) (string, bool, error) {
	d.record("ATTR %s@%s", sel, attr)
	vals, ok := d.AttrVals[sel+"@"+attr]
	if !ok {
		return "", false, nil
	}
	val, rest := popString(vals)
	d.AttrVals[sel+"@"+attr] = rest
	if val == "" {
		return "", false, nil
	}
	return val, true, nil
}

// FetchResource implements browser.Driver.
func (d *FakeDriver) FetchResource(ctx context.Context, url string) ([]byte, error) {
	d.record("FETCH %s", url)
	if data, ok := d.Resources[url]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("no scripted resource for %s", url)
}

// Location implements browser.Driver.
func (d *FakeDriver) Location(ctx context.Context) (string, error) {
	d.record("LOCATION")
	val, rest := popString(d.Locations)
	d.Locations = rest
	if val == "" {
		return "about:blank", nil
	}
	return val, nil
}

// Reload implements browser.Driver.
func (d *FakeDriver) Reload(ctx context.Context) error {
	d.record("RELOAD")
	return d.ReloadErr
}

// Close satisfies the runner's Session interface.
func (d *FakeDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CloseCount++
	return nil
}

// ScriptedTranscriber returns pre-scripted transcriptions in order; the last
// entry sticks. A nil entry in Errs means success for that call.
type ScriptedTranscriber struct {
	Results []string
	Errs    []error
	Calls   int
}

// Transcribe pops the next scripted result.
func (t *ScriptedTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	i := t.Calls
	t.Calls++
	if i >= len(t.Results) {
		i = len(t.Results) - 1
	}
	if i < 0 {
		return "", fmt.Errorf("no scripted transcription")
	}
	var err error
	if i < len(t.Errs) {
		err = t.Errs[i]
	}
	return t.Results[i], err
}

// Name returns the double's provider name.
func (t *ScriptedTranscriber) Name() string {
	return "scripted"
}
