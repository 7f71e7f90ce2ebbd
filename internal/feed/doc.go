// Package feed serves an observed document over HTTP and streams its access
// events over WebSocket.
//
//	GET    /doc          whole document, no events
//	GET    /doc/{path}   read a path (slash separated), emits reads
//	PUT    /doc/{path}   write the JSON body at path
//	DELETE /doc/{path}   delete path
//	GET    /events       WebSocket stream of every root event
//	GET    /events?reads=b.c,a
//	                     WebSocket stream of writes that invalidate those reads
//	GET    /metrics      Prometheus metrics, if a gatherer is configured
//
// All graph access is serialized by the server. Event delivery to clients
// never blocks a write: each client has a bounded buffer, and messages for a
// client whose buffer is full are dropped.
package feed
