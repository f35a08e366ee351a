// Package api implements the HTTP JSON API and WebSocket server for Dspx-Monitor.
//
// This package provides:
//   - Read endpoints for the channel registry, available dates, chart series,
//     valve states and summaries
//   - Report preview, delivery and delivery history
//   - A WebSocket hub that pushes data.updated events to the dashboard page
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//   - The embedded dashboard page under /dashboard/
//
// # Graceful Degradation
//
// MQTT, the database and the report notifier are optional. Without them the
// server still serves every read endpoint; report delivery answers 503 and
// the history is empty.
package api
