package handlers

import (
	"fmt"
	"html"
	"net/http"
)

const redirectPage = `<html>
    <head><meta http-equiv="refresh" content="0; url=%[1]s"></head>
    <body style="background-color:#121212; color:#fff; text-align:center; margin-top:100px;">
        <h2>Redirecting to Dashboard...</h2>
    </body>
</html>
`

// NewRedirectHandler returns GET / which sends browsers to the dashboard.
func NewRedirectHandler(dashboardPath string) http.HandlerFunc {
	body := []byte(fmt.Sprintf(redirectPage, html.EscapeString(dashboardPath)))
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}
