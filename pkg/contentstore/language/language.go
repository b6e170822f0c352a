// Package language resolves the effective content language for an inbound
// request. Precedence: explicit query parameter, explicit header, browser
// Accept-Language inference, process default. Unresolvable input degrades
// to the default language; there is no failure mode.
package language

import (
	"context"
	"net/http"
	"net/url"

	xlang "golang.org/x/text/language"

	"github.com/duolang/contentstore/pkg/contentstore"
)

// HeaderName is the explicit content-language request header.
const HeaderName = "x-content-language"

// Query parameter names, checked in order.
var queryParams = []string{"language", "lang"}

var supported = []xlang.Tag{
	xlang.Chinese, // primary; also the matcher default
	xlang.English,
}

var matcher = xlang.NewMatcher(supported)

// Signals carries the language hints extracted from a request.
type Signals struct {
	Query          url.Values
	Header         http.Header
	AcceptLanguage string
}

// Resolve computes the effective content language from the signals.
// Out-of-enum values are treated as absent at every stage.
func Resolve(sig Signals) contentstore.Language {
	for _, p := range queryParams {
		if l, ok := contentstore.ParseLanguage(sig.Query.Get(p)); ok {
			return l
		}
	}
	if sig.Header != nil {
		if l, ok := contentstore.ParseLanguage(sig.Header.Get(HeaderName)); ok {
			return l
		}
	}
	if l, ok := fromAcceptLanguage(sig.AcceptLanguage); ok {
		return l
	}
	return contentstore.DefaultLanguage
}

// FromRequest resolves the content language for an HTTP request.
func FromRequest(r *http.Request) contentstore.Language {
	return Resolve(Signals{
		Query:          r.URL.Query(),
		Header:         r.Header,
		AcceptLanguage: r.Header.Get("Accept-Language"),
	})
}

func fromAcceptLanguage(value string) (contentstore.Language, bool) {
	if value == "" {
		return "", false
	}
	tags, _, err := xlang.ParseAcceptLanguage(value)
	if err != nil || len(tags) == 0 {
		return "", false
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == xlang.No {
		return "", false
	}
	if supported[idx] == xlang.English {
		return contentstore.LanguageEN, true
	}
	return contentstore.LanguageZH, true
}

type contextKey struct{}

// NewContext returns a context carrying the resolved language.
func NewContext(ctx context.Context, lang contentstore.Language) context.Context {
	return context.WithValue(ctx, contextKey{}, lang)
}

// FromContext returns the language stored by NewContext, or the default.
func FromContext(ctx context.Context) contentstore.Language {
	if l, ok := ctx.Value(contextKey{}).(contentstore.Language); ok {
		return l
	}
	return contentstore.DefaultLanguage
}
