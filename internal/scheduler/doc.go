// Package scheduler runs the monitor's two background jobs.
//
// The file watcher stats yesterday's and today's log files every check
// interval. When a file appears or its size or modification time changes
// it drops the dashboard cache, tells connected dashboards (WebSocket
// event "data.updated") and MQTT subscribers that new data is available,
// and exports the new readings to any configured time-series sinks.
//
// The report job builds the trailing-window report once a day at the
// configured wall-clock time in the site timezone and delivers it
// through the notifier. Its summary is also published, retained, on the
// report summary MQTT topic.
package scheduler
