// Package influxdb exports refrigerator readings to an InfluxDB v2 bucket.
//
// It wraps the official influxdb-client-go non-blocking write API. Points
// are batched by the client library according to batch_size and
// flush_interval; failures arrive on the SetOnError callback.
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	client.WriteSample("dspx_reading", tags, 0.0123, at)
package influxdb
