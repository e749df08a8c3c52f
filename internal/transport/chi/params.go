package chi

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

const maxFormBytes = 64 << 10

// formValues merges query string and url-encoded body; the pages accept both GET and POST.
func formValues(w http.ResponseWriter, r *http.Request) (url.Values, error) {
	if r.Method == http.MethodPost {
		r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	}
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("parse form: %w", err)
	}
	return r.Form, nil
}

// bindOptional decodes an optional form-style parameter into dest, leaving it untouched when absent.
func bindOptional(values url.Values, name string, dest any) error {
	return runtime.BindQueryParameter("form", true, false, name, values, dest)
}

// bindRequired decodes a mandatory form-style parameter.
func bindRequired(values url.Values, name string, dest any) error {
	return runtime.BindQueryParameter("form", true, true, name, values, dest)
}

// bindPath decodes a required path parameter.
func bindPath(r *http.Request, name string, dest any) error {
	return runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), dest,
		runtime.BindStyledParameterOptions{
			ParamLocation: runtime.ParamLocationPath,
			Explode:       false,
			Required:      true,
		})
}

// pageParams are the listing parameters shared by browse and search.
type pageParams struct {
	PID  string
	From int
	Size int
}

func bindPage(values url.Values) (pageParams, error) {
	var p pageParams
	for _, b := range []struct {
		name string
		dest any
	}{
		{"pid", &p.PID},
		{"from", &p.From},
		{"size", &p.Size},
	} {
		if err := bindOptional(values, b.name, b.dest); err != nil {
			return pageParams{}, err
		}
	}
	if p.From < 0 || p.Size < 0 {
		return pageParams{}, fmt.Errorf("from and size must not be negative")
	}
	return p, nil
}
