// Package transport carries edit streams and events between a model process
// and a renderer process over WebSocket.
//
// The model side runs a Server. Each connection becomes a session with its
// own model instance, scheduler, and journal; the session's RemoteRenderer
// sends every stream as a FrameEdits frame and waits for the renderer's
// FrameAck. The renderer side runs a Client, which applies incoming streams
// with a local interpreter and forwards translated events back.
//
// Frame flow:
//
//	model                              renderer
//	  |---- Edits (seq n) ---------------->|  Apply
//	  |<--- Ack (seq n, code) -------------|
//	  |<--- Event -------------------------|  bridge.Queue
//	  |<--- Control RebuildRequest --------|  undecodable stream
//	  |---- Edits (FlagRebuild) ---------->|  Reset + Apply
package transport
