// Package server exposes the status API of a running projector.
//
// Routes:
//
//	GET  /healthz                liveness
//	GET  /status                 per kind sweep status and the last report
//	POST /sync[?kind=users]      start a full sweep in the background (202)
//	GET  /priorities?pattern=p   resolved template priorities for p
//	GET  /metrics                prometheus exposition
//
// A sweep requested while another one runs is answered with 409 Conflict.
package server
