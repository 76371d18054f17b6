package core

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"casefeed/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/codes"
)

var (
	emailSelectors = []string{
		`input[name="Email"]`,
		`input#Email`,
		`input[type="email"]`,
		`input[name="Username"]`,
	}
	passwordSelectors = []string{
		`input[name="Password"]`,
		`input#Password`,
		`input[type="password"]`,
	}
	submitSelector      = `button[type="submit"], input[type="submit"]`
	roleControlSelector = `button, [role="button"], input[type="button"]`
	signInRegex         = regexp.MustCompile(`(?i)sign in|log in`)
)

func firstMatch(doc *goquery.Document, selectors []string) *goquery.Selection {
	for _, selector := range selectors {
		sel := doc.Find(selector).First()
		if sel.Length() > 0 {
			return sel
		}
	}
	return nil
}

func controlLabel(sel *goquery.Selection) string {
	for _, attr := range []string{"aria-label", "value", "title"} {
		if v := strings.TrimSpace(sel.AttrOr(attr, "")); v != "" {
			return v
		}
	}
	return strings.TrimSpace(sel.Text())
}

// findSubmitter returns the control that would be pressed to submit the
// form, or nil for implicit submission.
func findSubmitter(form *goquery.Selection) *goquery.Selection {
	if submit := form.Find(submitSelector).First(); submit.Length() > 0 {
		return submit
	}
	var found *goquery.Selection
	form.Find(roleControlSelector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if signInRegex.MatchString(controlLabel(sel)) {
			found = sel
			return false
		}
		return true
	})
	return found
}

// formValues collects what a browser would send for form, excluding
// every submit control.
func formValues(form *goquery.Selection) url.Values {
	values := url.Values{}
	form.Find("input[name], select[name], textarea[name]").Each(func(_ int, sel *goquery.Selection) {
		name := sel.AttrOr("name", "")
		if _, disabled := sel.Attr("disabled"); disabled {
			return
		}
		switch goquery.NodeName(sel) {
		case "select":
			option := sel.Find("option[selected]").First()
			if option.Length() == 0 {
				option = sel.Find("option").First()
			}
			if option.Length() > 0 {
				values.Add(name, option.AttrOr("value", strings.TrimSpace(option.Text())))
			}
			return
		case "textarea":
			values.Add(name, sel.Text())
			return
		}

		switch strings.ToLower(sel.AttrOr("type", "text")) {
		case "submit", "button", "image", "reset", "file":
			return
		case "checkbox", "radio":
			if _, checked := sel.Attr("checked"); !checked {
				return
			}
			values.Add(name, sel.AttrOr("value", "on"))
		default:
			values.Add(name, sel.AttrOr("value", ""))
		}
	})
	return values
}

// login fills the sign in form on page and submits it. Problems are
// logged, the caller always requests its target again afterwards.
func (c *Client) login(ctx context.Context, page *Page) {
	ctx, span := tracer.Start(ctx, "client:login")
	defer span.End()

	email := firstMatch(page.Doc, emailSelectors)
	if email == nil {
		slog.WarnContext(ctx, "could not find email input on login page", "url", page.URL.String())
	}
	password := firstMatch(page.Doc, passwordSelectors)
	if password == nil {
		slog.WarnContext(ctx, "could not find password input on login page", "url", page.URL.String())
	}

	var form *goquery.Selection
	for _, input := range []*goquery.Selection{password, email} {
		if input == nil {
			continue
		}
		if f := input.Closest("form"); f.Length() > 0 {
			form = f
			break
		}
	}
	if form == nil {
		span.SetStatus(codes.Error, "no login form")
		slog.WarnContext(ctx, "could not find login form, skipping sign in", "url", page.URL.String())
		return
	}

	values := formValues(form)
	if email != nil {
		if name := email.AttrOr("name", ""); name != "" {
			values.Set(name, c.email)
		}
	}
	if password != nil {
		if name := password.AttrOr("name", ""); name != "" {
			values.Set(name, c.password)
		}
	}

	action := form.AttrOr("action", "")
	method := form.AttrOr("method", "get")
	submitter := findSubmitter(form)
	if submitter != nil {
		if name := submitter.AttrOr("name", ""); name != "" {
			values.Set(name, submitter.AttrOr("value", ""))
		}
		if formAction, ok := submitter.Attr("formaction"); ok {
			action = formAction
		}
		if formMethod, ok := submitter.Attr("formmethod"); ok {
			method = formMethod
		}
	} else {
		slog.DebugContext(ctx, "no submit control found, submitting form implicitly")
	}

	target := page.URL.String()
	if action != "" {
		target = htmlutil.Resolve(page.URL, action)
		if target == "" {
			target = page.URL.String()
		}
	}

	req := c.Http.R().SetContext(ctx)
	var err error
	if strings.EqualFold(method, "post") {
		_, err = req.SetFormDataFromValues(values).Post(target)
	} else {
		_, err = req.SetQueryParamsFromValues(values).Get(target)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to submit login form")
		slog.WarnContext(ctx, "failed to submit login form", "url", target, "err", err)
		return
	}
	slog.DebugContext(ctx, "submitted login form", "url", target)
}
