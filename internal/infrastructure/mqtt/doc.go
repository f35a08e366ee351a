// Package mqtt connects Dspx-Monitor to an MQTT broker.
//
// The monitor uses MQTT to tell other lab tooling about fresh data and
// delivered reports, and to accept refresh commands:
//
//	dspx/system/status    retained online/offline, also the last will
//	dspx/data/updated     a watched log file changed
//	dspx/report/summary   retained copy of the last report
//	dspx/command/refresh  any message drops the dashboard cache
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if errors.Is(err, mqtt.ErrDisabled) {
//	    // run without a broker
//	}
//	defer client.Close()
//
//	err = client.PublishJSON(client.Topics().DataUpdated(), event, false)
//
// Handlers run on paho goroutines and are wrapped with panic recovery.
package mqtt
