package enhydris

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/openmeteo/enhydris-api-client/pkg/hts"
)

// Timeseries moves time-series data to and from the server and
// discovers a series' current extent. It serves both the hierarchical
// endpoints (api/stations/{st}/timeseriesgroups/{grp}/timeseries/{ts}/)
// and the legacy flat api/tsdata/{ts}/ form.
type Timeseries struct {
	http *HTTPClient
}

// queryDateFormat is how start_date/end_date bounds go on the wire.
const queryDateFormat = "2006-01-02T15:04:05"

// Read fetches a series' records in the hts block encoding. Both
// bounds are optional and independent; a nil bound is omitted from the
// query. An empty response body is a valid empty block, not an error.
func (t Timeseries) Read(ctx context.Context, stationID, groupID, tsID int, start, end *time.Time) (*hts.Block, error) {
	return t.read(ctx, dataPath(stationID, groupID, tsID), start, end)
}

// ReadFlat is Read against the legacy flat endpoint, which has no
// station/group hierarchy and no format negotiation.
func (t Timeseries) ReadFlat(ctx context.Context, tsID int) (*hts.Block, error) {
	resp, err := t.http.req(ctx).Get(tsdataPath(tsID))
	if err := t.http.check(resp, err); err != nil {
		return nil, err
	}
	return hts.Parse(bytes.NewReader(resp.Body()))
}

func (t Timeseries) read(ctx context.Context, path string, start, end *time.Time) (*hts.Block, error) {
	r := t.http.req(ctx).SetQueryParam("fmt", "hts")
	if start != nil {
		r.SetQueryParam("start_date", start.Format(queryDateFormat))
	}
	if end != nil {
		r.SetQueryParam("end_date", end.Format(queryDateFormat))
	}
	resp, err := r.Get(path)
	if err := t.http.check(resp, err); err != nil {
		return nil, err
	}
	return hts.Parse(bytes.NewReader(resp.Body()))
}

// Write uploads the block's records and returns the server's raw
// acknowledgement body, which is opaque to us.
func (t Timeseries) Write(ctx context.Context, stationID, groupID, tsID int, block *hts.Block) (string, error) {
	return t.write(ctx, dataPath(stationID, groupID, tsID), block)
}

// WriteFlat is Write against the legacy flat endpoint.
func (t Timeseries) WriteFlat(ctx context.Context, tsID int, block *hts.Block) (string, error) {
	return t.write(ctx, tsdataPath(tsID), block)
}

func (t Timeseries) write(ctx context.Context, path string, block *hts.Block) (string, error) {
	resp, err := t.http.mutReq(ctx).
		SetFormData(map[string]string{"timeseries_records": block.String()}).
		Post(path)
	if err := t.http.check(resp, err); err != nil {
		return "", err
	}
	return string(resp.Body()), nil
}

// EndDate returns the timestamp of a series' most recent record, or
// nil when the series has no data yet. It reads the cheap
// tail-rendered bottom/ page and scans its last non-blank line rather
// than downloading the series, which may be large; keep it that way.
func (t Timeseries) EndDate(ctx context.Context, stationID, groupID, tsID int) (*time.Time, error) {
	return t.endDate(t.http.req(ctx), bottomPath(stationID, groupID, tsID))
}

// EndDateFlat is EndDate against the legacy timeseries/d/{ts}/bottom/
// page.
func (t Timeseries) EndDateFlat(ctx context.Context, tsID int) (*time.Time, error) {
	return t.endDate(t.http.req(ctx), fmt.Sprintf("/timeseries/d/%d/bottom/", tsID))
}

func (t Timeseries) endDate(r *resty.Request, path string) (*time.Time, error) {
	resp, err := r.Get(path)
	if err := t.http.check(resp, err); err != nil {
		return nil, err
	}
	return hts.ParseEndDate(string(resp.Body()))
}

func dataPath(stationID, groupID, tsID int) string {
	return fmt.Sprintf("/api/stations/%d/timeseriesgroups/%d/timeseries/%d/data/", stationID, groupID, tsID)
}

func bottomPath(stationID, groupID, tsID int) string {
	return fmt.Sprintf("/api/stations/%d/timeseriesgroups/%d/timeseries/%d/bottom/", stationID, groupID, tsID)
}

func tsdataPath(tsID int) string {
	return fmt.Sprintf("/api/tsdata/%d/", tsID)
}
