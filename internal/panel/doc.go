// Package panel serves the dashboard web page.
//
// The page is a small static bundle (HTML, CSS and a script) embedded with
// go:embed. It talks to the JSON API under /api/v1 and listens on the
// WebSocket for data.updated events to redraw itself.
//
// A directory on disk may replace the embedded bundle, which lets the page
// be edited without rebuilding the binary.
package panel
