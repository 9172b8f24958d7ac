package parser

import (
	"context"
	"net/url"
	"strings"

	"github.com/yndnr/confkit-go/pkg/errs"
)

// URLParser accepts absolute URLs. Log renderings redact the user info only.
type URLParser struct {
	rules []Rule[*url.URL]
}

// URL creates a URL parser.
func URL(rules ...Rule[*url.URL]) *URLParser {
	return &URLParser{rules: rules}
}

func (p *URLParser) Name() string { return "URL" }

func (p *URLParser) Parse(ctx context.Context, raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errs.InvalidValue(p.Name(), raw).WithCause(err)
	}
	if !u.IsAbs() {
		return nil, errs.InvalidValue(p.Name(), raw)
	}
	if err := applyRules(ctx, p.Name(), u, p.rules); err != nil {
		return nil, err
	}
	return u, nil
}

func (p *URLParser) ToString(v *url.URL) string {
	if v == nil {
		return ""
	}
	return v.String()
}

func (p *URLParser) ToLogString(v *url.URL, format LogFormat) string {
	if v == nil {
		return ""
	}
	return RedactURL(v, format)
}

// RedactURL renders u with its user name and password passed through
// BuildLogValue. The redacted user info is written unescaped.
func RedactURL(u *url.URL, format LogFormat) string {
	if u.User == nil {
		return u.String()
	}
	info := BuildLogValue(u.User.Username(), format)
	if pass, ok := u.User.Password(); ok {
		info += ":" + BuildLogValue(pass, format)
	}

	c := *u
	c.User = nil
	s := c.String()
	prefix := c.Scheme + "://"
	if !strings.HasPrefix(s, prefix) {
		return s
	}
	return prefix + info + "@" + s[len(prefix):]
}

// IsValidURL reports whether raw is an absolute URL.
func IsValidURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.IsAbs()
}
