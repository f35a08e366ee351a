package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSample queues one reading with a single "value" field at the time
// the instrument recorded it. Empty tag values are omitted.
// The write is non-blocking.
func (c *Client) WriteSample(measurement string, tags map[string]string, value float64, at time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPointWithMeasurement(measurement).
		AddField("value", value).
		SetTime(at)
	for k, v := range tags {
		if v != "" {
			point.AddTag(k, v)
		}
	}

	c.writeAPI.WritePoint(point)
}
