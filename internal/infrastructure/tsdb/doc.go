// Package tsdb exports refrigerator readings to VictoriaMetrics.
//
// Readings are written as InfluxDB line protocol to the /write endpoint
// using only net/http. Each line carries one channel value at the time the
// instrument recorded it:
//
//	dspx_reading,category=temperature,channel=full\ range,site=dspx,unit=K value=0.0123 1718000000000000000
//
// # Usage
//
//	client, err := tsdb.Connect(ctx, cfg.TSDB)
//	if errors.Is(err, tsdb.ErrDisabled) {
//	    // sink not configured
//	}
//	defer client.Close()
//	client.WriteSample("dspx_reading", tags, v, at)
//
// Writes never block on the network. Batch failures are delivered to the
// SetOnError callback.
package tsdb
