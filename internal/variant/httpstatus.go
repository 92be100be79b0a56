// internal/variant/httpstatus.go
//
// http_status: a variant that answers with a bare status code.  Useful as a
// last, weight-heavy fallback ("everyone else gets 403") or to hide a page
// from some visitors with a 404.

package variant

import (
	"context"
	"net/http"

	"github.com/yanizio/pagemanager/internal/pagectx"
)

// HTTPStatus returns `settings.status_code` (default 404).
type HTTPStatus struct {
	selectable
}

// Code is the configured status, clamped to a valid HTTP range.
func (v *HTTPStatus) Code() int {
	code := v.Config().Int("status_code", http.StatusNotFound)
	if code < 100 || code > 599 {
		return http.StatusNotFound
	}
	return code
}

func (v *HTTPStatus) Build(context.Context, *pagectx.Registry, *pagectx.Handler) (*Output, error) {
	return &Output{Status: v.Code(), Title: http.StatusText(v.Code())}, nil
}
