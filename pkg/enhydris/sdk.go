// Package enhydris is a client for the Enhydris hydrological-data web
// service: cookie/CSRF session authentication, generic CRUD over the
// api/{model}/ endpoints, and time-series upload/download in the
// HTimeseries line format.
//
// A Client is one logical connection to one server. It holds mutable
// credential state and is not safe for concurrent use; serialize
// access if you share it.
package enhydris

// Client is the public entry point, grouped by resource.
type Client struct {
	Auth       Auth
	Models     Models
	Timeseries Timeseries

	http *HTTPClient
}

func New(baseURL string, opts ...Option) *Client {
	hc := NewHTTPClient(baseURL, opts...)
	return &Client{
		Auth:       Auth{http: hc},
		Models:     Models{http: hc},
		Timeseries: Timeseries{http: hc},
		http:       hc,
	}
}

// Close releases the client's idle connections.
func (c *Client) Close() {
	c.http.Close()
}
