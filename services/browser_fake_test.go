package services

import (
	"fmt"
	"strings"
	"sync"
)

// fakeElement is a scriptable Element. Errors can be injected per
// interaction and every call is recorded.
type fakeElement struct {
	clickErr       error
	scriptClickErr error
	typeErr        error
	setValueErr    error
	selectExactErr error
	selectErr      error
	fileErr        error
	scrollErr      error
	boxErr         error
	box            [4]float64
	innerText      string

	onClick func()

	clicks       int
	scriptClicks int
	typed        strings.Builder
	setValues    []string
	selections   []string
	files        []string
}

func (e *fakeElement) Click() error {
	if e.clickErr != nil {
		return e.clickErr
	}
	e.clicks++
	if e.onClick != nil {
		e.onClick()
	}
	return nil
}

func (e *fakeElement) ClickViaScript() error {
	if e.scriptClickErr != nil {
		return e.scriptClickErr
	}
	e.scriptClicks++
	if e.onClick != nil {
		e.onClick()
	}
	return nil
}

func (e *fakeElement) Type(text string) error {
	if e.typeErr != nil {
		return e.typeErr
	}
	e.typed.WriteString(text)
	return nil
}

func (e *fakeElement) SetValue(value string) error {
	if e.setValueErr != nil {
		return e.setValueErr
	}
	e.setValues = append(e.setValues, value)
	return nil
}

func (e *fakeElement) SelectByText(label string, exact bool) error {
	if exact && e.selectExactErr != nil {
		return e.selectExactErr
	}
	if !exact && e.selectErr != nil {
		return e.selectErr
	}
	e.selections = append(e.selections, label)
	return nil
}

func (e *fakeElement) SetFile(path string) error {
	if e.fileErr != nil {
		return e.fileErr
	}
	e.files = append(e.files, path)
	return nil
}

func (e *fakeElement) ScrollIntoView() error { return e.scrollErr }

func (e *fakeElement) BoundingBox() (float64, float64, float64, float64, error) {
	if e.boxErr != nil {
		return 0, 0, 0, 0, e.boxErr
	}
	return e.box[0], e.box[1], e.box[2], e.box[3], nil
}

func (e *fakeElement) Text() (string, error) { return e.innerText, nil }

// fakeBrowser is a scripted Browser. Elements are registered against
// exact lookup keys; page sources advance when scripted clicks fire.
type fakeBrowser struct {
	mu sync.Mutex

	navigateErr       error
	navigated         []string
	cookiesAtNavigate []Cookie

	sources     []string
	sourceIndex int

	css     map[string]*fakeElement
	xpath   map[string]*fakeElement
	byID    map[string]*fakeElement
	byClass map[string]*fakeElement
	byText  map[string]*fakeElement

	cookies    []Cookie
	userAgents []string
	mouseMoves int
	clicksAt   int
	closed     bool
}

func newFakeBrowser(sources ...string) *fakeBrowser {
	return &fakeBrowser{
		sources: sources,
		css:     make(map[string]*fakeElement),
		xpath:   make(map[string]*fakeElement),
		byID:    make(map[string]*fakeElement),
		byClass: make(map[string]*fakeElement),
		byText:  make(map[string]*fakeElement),
	}
}

// advance moves to the next scripted page source.
func (b *fakeBrowser) advance() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sourceIndex < len(b.sources)-1 {
		b.sourceIndex++
	}
}

func (b *fakeBrowser) Navigate(url string) error {
	if b.navigateErr != nil {
		return b.navigateErr
	}
	b.navigated = append(b.navigated, url)
	b.cookiesAtNavigate = append([]Cookie(nil), b.cookies...)
	return nil
}

func (b *fakeBrowser) CurrentURL() (string, error) {
	if len(b.navigated) == 0 {
		return "", fmt.Errorf("no page loaded")
	}
	return b.navigated[len(b.navigated)-1], nil
}

func (b *fakeBrowser) PageSource() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.sources) == 0 {
		return "", fmt.Errorf("no page loaded")
	}
	return b.sources[b.sourceIndex], nil
}

func lookup(m map[string]*fakeElement, key string) (Element, error) {
	if element, ok := m[key]; ok {
		return element, nil
	}
	return nil, fmt.Errorf("no element for %q", key)
}

func (b *fakeBrowser) FindCSS(selector string) (Element, error) { return lookup(b.css, selector) }
func (b *fakeBrowser) FindXPath(expr string) (Element, error)   { return lookup(b.xpath, expr) }
func (b *fakeBrowser) FindByID(id string) (Element, error)      { return lookup(b.byID, id) }
func (b *fakeBrowser) FindByClass(class string) (Element, error) {
	return lookup(b.byClass, class)
}

func (b *fakeBrowser) FindByText(text string, exact bool) (Element, error) {
	return lookup(b.byText, text)
}

func (b *fakeBrowser) Cookies() ([]Cookie, error)            { return b.cookies, nil }
func (b *fakeBrowser) SetCookies(cookies []Cookie) error     { b.cookies = cookies; return nil }
func (b *fakeBrowser) SetUserAgent(userAgent string) error   { b.userAgents = append(b.userAgents, userAgent); return nil }
func (b *fakeBrowser) MoveMouse(x, y float64) error          { b.mouseMoves++; return nil }
func (b *fakeBrowser) ClickAt(x, y float64) error            { b.clicksAt++; return nil }
func (b *fakeBrowser) ExecuteScript(script string) error     { return nil }
func (b *fakeBrowser) Close() error                          { b.closed = true; return nil }
