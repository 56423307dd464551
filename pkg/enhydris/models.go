package enhydris

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// Models is generic CRUD over the api/{model}/ endpoints. The field
// set of each model is the server's business; callers pass model names
// and form fields.
type Models struct {
	http *HTTPClient
}

// Get fetches one object as decoded JSON. A missing object surfaces as
// an *HTTPError with status 404 (see IsNotFound).
func (m Models) Get(ctx context.Context, model string, id int) (map[string]any, error) {
	resp, err := m.http.req(ctx).Get(modelPath(model, id))
	if err := m.http.check(resp, err); err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, errors.Wrapf(err, "decoding %s %d", model, id)
	}
	return out, nil
}

// Create posts fields form-encoded and returns the id the server
// assigned. The response is documented to be a JSON object with an
// "id" field; its absence is a *ParseError, not a panic.
func (m Models) Create(ctx context.Context, model string, fields url.Values) (int, error) {
	resp, err := m.http.mutReq(ctx).
		SetFormDataFromValues(fields).
		Post(modelListPath(model))
	if err := m.http.check(resp, err); err != nil {
		return 0, err
	}
	var out struct {
		ID *json.Number `json:"id"`
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return 0, errors.Wrapf(err, "decoding %s creation response", model)
	}
	if out.ID == nil {
		return 0, &ParseError{Msg: fmt.Sprintf("%s creation response has no id field", model)}
	}
	id, err := out.ID.Int64()
	if err != nil {
		return 0, &ParseError{Msg: fmt.Sprintf("%s creation response has non-integer id %q", model, out.ID.String())}
	}
	return int(id), nil
}

// Update rewrites an object: PATCH when partial, PUT otherwise.
func (m Models) Update(ctx context.Context, model string, id int, fields url.Values, partial bool) error {
	r := m.http.mutReq(ctx).SetFormDataFromValues(fields)
	var (
		resp *resty.Response
		err  error
	)
	if partial {
		resp, err = r.Patch(modelPath(model, id))
	} else {
		resp, err = r.Put(modelPath(model, id))
	}
	return m.http.check(resp, err)
}

// Delete removes an object. Success is exactly 204 No Content; any
// other status, 2xx included, is an *HTTPError, because the server is
// expected to return no content on deletion.
func (m Models) Delete(ctx context.Context, model string, id int) error {
	resp, err := m.http.mutReq(ctx).Delete(modelPath(model, id))
	if err != nil {
		return errors.Wrap(err, "executing request")
	}
	if resp.StatusCode() != http.StatusNoContent {
		return &HTTPError{StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}
	return nil
}
