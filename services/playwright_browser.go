package services

import (
	"fmt"
	"log"
	"strings"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightBrowser implements the Browser interface on top of a Chromium
// instance launched through Playwright.
type PlaywrightBrowser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page

	pageLoadTimeoutMs float64
	elementTimeoutMs  float64
}

type PlaywrightOptions struct {
	Headless          bool
	UserAgent         string
	PageLoadTimeoutMs float64
	ElementTimeoutMs  float64
}

func NewPlaywrightBrowser(opts PlaywrightOptions) (*PlaywrightBrowser, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright: %v", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args: []string{
			"--no-sandbox",
			"--disable-blink-features=AutomationControlled",
			"--disable-extensions",
			"--disable-plugins-discovery",
		},
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("could not launch browser: %v", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: 1920, Height: 1080},
	}
	if opts.UserAgent != "" {
		contextOpts.UserAgent = playwright.String(opts.UserAgent)
	}
	context, err := browser.NewContext(contextOpts)
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("could not create context: %v", err)
	}

	page, err := context.NewPage()
	if err != nil {
		context.Close()
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("could not create page: %v", err)
	}

	pageLoad := opts.PageLoadTimeoutMs
	if pageLoad <= 0 {
		pageLoad = 30000
	}
	elementTimeout := opts.ElementTimeoutMs
	if elementTimeout <= 0 {
		elementTimeout = 10000
	}
	page.SetDefaultTimeout(elementTimeout)

	return &PlaywrightBrowser{
		pw:                pw,
		browser:           browser,
		context:           context,
		page:              page,
		pageLoadTimeoutMs: pageLoad,
		elementTimeoutMs:  elementTimeout,
	}, nil
}

func (b *PlaywrightBrowser) Navigate(url string) error {
	_, err := b.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(b.pageLoadTimeoutMs),
	})
	if err != nil {
		return fmt.Errorf("could not navigate to %s: %v", url, err)
	}
	return nil
}

func (b *PlaywrightBrowser) CurrentURL() (string, error) {
	return b.page.URL(), nil
}

func (b *PlaywrightBrowser) PageSource() (string, error) {
	content, err := b.page.Content()
	if err != nil {
		return "", fmt.Errorf("could not get page content: %v", err)
	}
	return content, nil
}

func (b *PlaywrightBrowser) locatorElement(locator playwright.Locator) (Element, error) {
	count, err := locator.Count()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("no matching element")
	}
	return &playwrightElement{locator: locator.First(), timeoutMs: b.elementTimeoutMs}, nil
}

func (b *PlaywrightBrowser) FindCSS(selector string) (Element, error) {
	return b.locatorElement(b.page.Locator(selector))
}

func (b *PlaywrightBrowser) FindXPath(expression string) (Element, error) {
	return b.locatorElement(b.page.Locator("xpath=" + expression))
}

func (b *PlaywrightBrowser) FindByID(id string) (Element, error) {
	return b.locatorElement(b.page.Locator("#" + id))
}

func (b *PlaywrightBrowser) FindByClass(class string) (Element, error) {
	return b.locatorElement(b.page.Locator("." + class))
}

func (b *PlaywrightBrowser) FindByText(text string, exact bool) (Element, error) {
	if exact {
		return b.locatorElement(b.page.GetByText(text, playwright.PageGetByTextOptions{
			Exact: playwright.Bool(true),
		}))
	}
	selector := fmt.Sprintf("button:has-text(%q), a:has-text(%q), input[type='submit']", text, text)
	return b.locatorElement(b.page.Locator(selector))
}

func (b *PlaywrightBrowser) Cookies() ([]Cookie, error) {
	raw, err := b.context.Cookies()
	if err != nil {
		return nil, fmt.Errorf("could not read cookies: %v", err)
	}
	cookies := make([]Cookie, 0, len(raw))
	for _, c := range raw {
		cookie := Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
		}
		if c.SameSite != nil {
			cookie.SameSite = string(*c.SameSite)
		}
		cookies = append(cookies, cookie)
	}
	return cookies, nil
}

func (b *PlaywrightBrowser) SetCookies(cookies []Cookie) error {
	converted := make([]playwright.OptionalCookie, 0, len(cookies))
	for _, c := range cookies {
		cookie := playwright.OptionalCookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   playwright.String(c.Domain),
			Path:     playwright.String(c.Path),
			Secure:   playwright.Bool(c.Secure),
			HttpOnly: playwright.Bool(c.HTTPOnly),
		}
		if c.Expires > 0 {
			cookie.Expires = playwright.Float(c.Expires)
		}
		switch strings.ToLower(c.SameSite) {
		case "strict":
			cookie.SameSite = playwright.SameSiteAttributeStrict
		case "lax":
			cookie.SameSite = playwright.SameSiteAttributeLax
		case "none":
			cookie.SameSite = playwright.SameSiteAttributeNone
		}
		converted = append(converted, cookie)
	}
	if err := b.context.AddCookies(converted); err != nil {
		return fmt.Errorf("could not set cookies: %v", err)
	}
	return nil
}

// SetUserAgent overrides the UA header for subsequent requests. Playwright
// fixes the context-level UA at creation time, so this goes through extra
// HTTP headers the same way the rest of the app spoofs identity.
func (b *PlaywrightBrowser) SetUserAgent(userAgent string) error {
	return b.page.SetExtraHTTPHeaders(map[string]string{
		"User-Agent": userAgent,
	})
}

func (b *PlaywrightBrowser) MoveMouse(x, y float64) error {
	return b.page.Mouse().Move(x, y)
}

func (b *PlaywrightBrowser) ClickAt(x, y float64) error {
	return b.page.Mouse().Click(x, y)
}

func (b *PlaywrightBrowser) ExecuteScript(script string) error {
	_, err := b.page.Evaluate(script)
	return err
}

func (b *PlaywrightBrowser) Close() error {
	if b.context != nil {
		if err := b.context.Close(); err != nil {
			log.Printf("Error closing browser context: %v", err)
		}
	}
	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			log.Printf("Error closing browser: %v", err)
		}
	}
	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			log.Printf("Error stopping playwright: %v", err)
		}
	}
	return nil
}

type playwrightElement struct {
	locator   playwright.Locator
	timeoutMs float64
}

func (e *playwrightElement) Click() error {
	return e.locator.Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(e.timeoutMs),
	})
}

func (e *playwrightElement) ClickViaScript() error {
	_, err := e.locator.Evaluate("el => el.click()", nil)
	return err
}

func (e *playwrightElement) Type(text string) error {
	return e.locator.PressSequentially(text)
}

func (e *playwrightElement) SetValue(value string) error {
	_, err := e.locator.Evaluate(
		`(el, value) => { el.value = value; el.dispatchEvent(new Event('input', { bubbles: true })); }`,
		value,
	)
	return err
}

func (e *playwrightElement) SelectByText(label string, exact bool) error {
	if exact {
		_, err := e.locator.SelectOption(playwright.SelectOptionValues{
			Labels: playwright.StringSlice(label),
		})
		return err
	}
	// Substring match: walk the options and pick the first containing the
	// label text.
	_, err := e.locator.Evaluate(`(el, label) => {
		const needle = label.toLowerCase();
		for (const opt of el.options) {
			if (opt.text.toLowerCase().includes(needle)) {
				el.value = opt.value;
				el.dispatchEvent(new Event('change', { bubbles: true }));
				return;
			}
		}
		throw new Error('no option matching ' + label);
	}`, label)
	return err
}

func (e *playwrightElement) SetFile(path string) error {
	return e.locator.SetInputFiles(path)
}

func (e *playwrightElement) ScrollIntoView() error {
	return e.locator.ScrollIntoViewIfNeeded()
}

func (e *playwrightElement) BoundingBox() (float64, float64, float64, float64, error) {
	box, err := e.locator.BoundingBox()
	if err != nil {
		return 0, 0, 0, 0, err
	}
	if box == nil {
		return 0, 0, 0, 0, fmt.Errorf("element has no bounding box")
	}
	return box.X, box.Y, box.Width, box.Height, nil
}

func (e *playwrightElement) Text() (string, error) {
	return e.locator.InnerText()
}
