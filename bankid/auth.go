package bankid

import "gogs.mikescher.com/BlackForestBytes/goext/langext"

// AuthConfig is the request for /auth. Only the end user's IP address is
// required; every With method returns a modified copy.
//
//	cfg := bankid.NewAuthConfig("192.168.1.1").
//		WithReturnURL("https://example.com/callback").
//		WithUserVisibleText("Log in to Example")
type AuthConfig struct {
	endUserIP string
	visibleData
	startOptions
}

func NewAuthConfig(endUserIP string) AuthConfig {
	return AuthConfig{endUserIP: endUserIP}
}

// NewAppAuthConfig starts an authentication from a native app.
func NewAppAuthConfig(endUserIP string, app AppConfig) AuthConfig {
	return NewAuthConfig(endUserIP).WithApp(app)
}

// NewWebAuthConfig starts an authentication from a browser.
func NewWebAuthConfig(endUserIP string, web WebConfig) AuthConfig {
	return NewAuthConfig(endUserIP).WithWeb(web)
}

func (c AuthConfig) EndUserIP() string { return c.endUserIP }

// Requirement returns the configured requirement, if any.
func (c AuthConfig) Requirement() (Requirement, bool) {
	if c.requirement == nil {
		return Requirement{}, false
	}
	return c.requirement.clone(), true
}

func (c AuthConfig) WithReturnRisk(v bool) AuthConfig {
	c.returnRisk = langext.Ptr(v)
	return c
}

func (c AuthConfig) WithReturnURL(v string) AuthConfig {
	c.returnURL = langext.Ptr(v)
	return c
}

func (c AuthConfig) WithRequirement(v Requirement) AuthConfig {
	c.requirement = requirementPtr(v)
	return c
}

// WithApp replaces any previously set app or web descriptor.
func (c AuthConfig) WithApp(v AppConfig) AuthConfig {
	c.device = v
	return c
}

// WithWeb replaces any previously set app or web descriptor.
func (c AuthConfig) WithWeb(v WebConfig) AuthConfig {
	c.device = v
	return c
}

// WithUserVisibleData sets already base64-encoded data.
func (c AuthConfig) WithUserVisibleData(v string) AuthConfig {
	c.userVisibleData = langext.Ptr(v)
	return c
}

func (c AuthConfig) WithUserVisibleText(text string) AuthConfig {
	return c.WithUserVisibleData(EncodeVisibleData(text))
}

func (c AuthConfig) WithUserNonVisibleData(v string) AuthConfig {
	c.userNonVisibleData = langext.Ptr(v)
	return c
}

func (c AuthConfig) WithUserVisibleDataFormat(v VisibleDataFormat) AuthConfig {
	c.userVisibleDataFormat = langext.Ptr(v)
	return c
}

func (c AuthConfig) Payload() Payload {
	p := Payload{"endUserIp": c.endUserIP}
	c.visibleData.put(p)
	c.startOptions.put(p)
	return p
}

// SignConfig is the request for /sign. The text to sign is required.
type SignConfig struct {
	endUserIP string
	visibleData
	startOptions
}

// NewSignConfig takes userVisibleData already base64-encoded; see EncodeVisibleData.
func NewSignConfig(endUserIP string, userVisibleData string) SignConfig {
	return SignConfig{
		endUserIP:   endUserIP,
		visibleData: visibleData{userVisibleData: langext.Ptr(userVisibleData)},
	}
}

func (c SignConfig) EndUserIP() string { return c.endUserIP }

func (c SignConfig) WithReturnRisk(v bool) SignConfig {
	c.returnRisk = langext.Ptr(v)
	return c
}

func (c SignConfig) WithReturnURL(v string) SignConfig {
	c.returnURL = langext.Ptr(v)
	return c
}

func (c SignConfig) WithRequirement(v Requirement) SignConfig {
	c.requirement = requirementPtr(v)
	return c
}

func (c SignConfig) WithApp(v AppConfig) SignConfig {
	c.device = v
	return c
}

func (c SignConfig) WithWeb(v WebConfig) SignConfig {
	c.device = v
	return c
}

func (c SignConfig) WithUserVisibleData(v string) SignConfig {
	c.userVisibleData = langext.Ptr(v)
	return c
}

func (c SignConfig) WithUserNonVisibleData(v string) SignConfig {
	c.userNonVisibleData = langext.Ptr(v)
	return c
}

func (c SignConfig) WithUserVisibleDataFormat(v VisibleDataFormat) SignConfig {
	c.userVisibleDataFormat = langext.Ptr(v)
	return c
}

func (c SignConfig) Payload() Payload {
	p := Payload{"endUserIp": c.endUserIP}
	c.visibleData.put(p)
	c.startOptions.put(p)
	return p
}
