// Package relay copies bytes between two duplex streams until both
// directions have ended.
//
// When one direction reaches end-of-stream its destination is half-closed
// with CloseWrite and the opposite direction keeps running, so a client that
// stops sending still receives the rest of the response. An I/O error in
// either direction aborts the relay and closes both streams.
package relay
