package bankid

import "gogs.mikescher.com/BlackForestBytes/goext/langext"

// PhoneAuthConfig is the request for /phone/auth, used when the user is
// identified during a phone call rather than on the device making the request.
type PhoneAuthConfig struct {
	callInitiator  CallInitiator
	personalNumber *string
	requirement    *Requirement
	visibleData
}

func NewPhoneAuthConfig(callInitiator CallInitiator) PhoneAuthConfig {
	return PhoneAuthConfig{callInitiator: callInitiator}
}

func (c PhoneAuthConfig) WithPersonalNumber(v string) PhoneAuthConfig {
	c.personalNumber = langext.Ptr(v)
	return c
}

func (c PhoneAuthConfig) WithRequirement(v Requirement) PhoneAuthConfig {
	c.requirement = requirementPtr(v)
	return c
}

func (c PhoneAuthConfig) WithUserVisibleData(v string) PhoneAuthConfig {
	c.userVisibleData = langext.Ptr(v)
	return c
}

func (c PhoneAuthConfig) WithUserNonVisibleData(v string) PhoneAuthConfig {
	c.userNonVisibleData = langext.Ptr(v)
	return c
}

func (c PhoneAuthConfig) WithUserVisibleDataFormat(v VisibleDataFormat) PhoneAuthConfig {
	c.userVisibleDataFormat = langext.Ptr(v)
	return c
}

func (c PhoneAuthConfig) Payload() Payload {
	p := Payload{"callInitiator": c.callInitiator}
	putPtr(p, "personalNumber", c.personalNumber)
	if c.requirement != nil {
		p["requirement"] = *c.requirement
	}
	c.visibleData.put(p)
	return p
}

// PhoneSignConfig is the request for /phone/sign.
type PhoneSignConfig struct {
	callInitiator  CallInitiator
	personalNumber *string
	requirement    *Requirement
	visibleData
}

func NewPhoneSignConfig(callInitiator CallInitiator, userVisibleData string) PhoneSignConfig {
	return PhoneSignConfig{
		callInitiator: callInitiator,
		visibleData:   visibleData{userVisibleData: langext.Ptr(userVisibleData)},
	}
}

func (c PhoneSignConfig) WithPersonalNumber(v string) PhoneSignConfig {
	c.personalNumber = langext.Ptr(v)
	return c
}

func (c PhoneSignConfig) WithRequirement(v Requirement) PhoneSignConfig {
	c.requirement = requirementPtr(v)
	return c
}

func (c PhoneSignConfig) WithUserVisibleData(v string) PhoneSignConfig {
	c.userVisibleData = langext.Ptr(v)
	return c
}

func (c PhoneSignConfig) WithUserNonVisibleData(v string) PhoneSignConfig {
	c.userNonVisibleData = langext.Ptr(v)
	return c
}

func (c PhoneSignConfig) WithUserVisibleDataFormat(v VisibleDataFormat) PhoneSignConfig {
	c.userVisibleDataFormat = langext.Ptr(v)
	return c
}

func (c PhoneSignConfig) Payload() Payload {
	p := Payload{"callInitiator": c.callInitiator}
	putPtr(p, "personalNumber", c.personalNumber)
	if c.requirement != nil {
		p["requirement"] = *c.requirement
	}
	c.visibleData.put(p)
	return p
}
