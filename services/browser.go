package services

// Browser is the driver surface the automation core runs against. The
// production implementation wraps Playwright; tests substitute a scripted
// fake so the navigation loop can be exercised without a real browser.
type Browser interface {
	Navigate(url string) error
	CurrentURL() (string, error)
	PageSource() (string, error)

	FindCSS(selector string) (Element, error)
	FindXPath(expression string) (Element, error)
	FindByID(id string) (Element, error)
	FindByClass(class string) (Element, error)
	FindByText(text string, exact bool) (Element, error)

	Cookies() ([]Cookie, error)
	SetCookies(cookies []Cookie) error

	SetUserAgent(userAgent string) error
	MoveMouse(x, y float64) error
	ClickAt(x, y float64) error
	ExecuteScript(script string) error

	Close() error
}

// Element is a handle to a single resolved page element.
type Element interface {
	Click() error
	ClickViaScript() error
	Type(text string) error
	SetValue(value string) error
	SelectByText(label string, exact bool) error
	SetFile(path string) error
	ScrollIntoView() error
	BoundingBox() (x, y, width, height float64, err error)
	Text() (string, error)
}

// Cookie matches the on-disk cookie file shape so sessions can be
// exported and replayed across runs.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expiry,omitempty"`
	Secure   bool    `json:"secure"`
	HTTPOnly bool    `json:"httpOnly"`
	SameSite string  `json:"sameSite,omitempty"`
}
