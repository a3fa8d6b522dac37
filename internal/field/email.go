package field

import (
	"fmt"
	"net/mail"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// EmailField accepts a syntactically valid email address. The domain's
// public suffix is looked up and unknown suffixes are rejected; some
// downstream services reject such addresses long after the user typed them,
// so it is better to catch them here. Set check_domain: false to disable.
type EmailField struct {
	Base        `yaml:",inline"`
	CheckDomain *bool `yaml:"check_domain"`
}

// DefaultCheckDomain applies to email fields without an explicit
// check_domain setting. Set once at startup, before interviews load.
var DefaultCheckDomain = true

func (f *EmailField) checkDomain() bool {
	if f.CheckDomain != nil {
		return *f.CheckDomain
	}
	return DefaultCheckDomain
}

func (f *EmailField) Process(raw any) (any, error) {
	if s, ok := raw.(string); ok {
		trimmed := strings.TrimSpace(s)
		if trimmed == "" {
			raw = nil
		} else {
			raw = trimmed
		}
	}
	raw, done, err := f.checkRequired(raw)
	if done {
		return raw, err
	}
	v, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("not a string: %v", raw)
	}

	addr, err := mail.ParseAddress(v)
	if err != nil || addr.Address != v {
		return nil, fmt.Errorf("invalid email: %v", v)
	}
	at := strings.LastIndex(v, "@")
	domain := v[at+1:]
	if domain == "" || strings.Contains(domain, " ") {
		return nil, fmt.Errorf("invalid email: %v", v)
	}

	if f.checkDomain() {
		suffix, icann := publicsuffix.PublicSuffix(strings.ToLower(domain))
		if !icann || suffix == "" {
			return nil, fmt.Errorf("invalid email: %v", v)
		}
	}
	return v, nil
}

func (f *EmailField) Ask(ctx map[string]any) (AskField, error) {
	return f.Base.ask(ctx)
}
