package api

import (
	"net/http"

	"github.com/duolang/contentstore/pkg/contentstore/language"
)

// ContentLanguage resolves the effective content language for every request
// and stores it in the request context.
func ContentLanguage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := language.FromRequest(r)
		next.ServeHTTP(w, r.WithContext(language.NewContext(r.Context(), lang)))
	})
}
