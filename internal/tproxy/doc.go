// Package tproxy relays TCP connections that the packet filter redirected to
// this process.
//
// For every accepted connection the Server recovers the original destination,
// dials it (optionally with a routing mark) and relays bytes in both
// directions until both have ended. Failures only ever affect the connection
// they happened on; each one is reported once to the EventLogger.
//
// On Linux, REDIRECT'ed connections are resolved with SO_ORIGINAL_DST. With
// TPROXY rules the listener is opened with IP_TRANSPARENT and the accepted
// connection's local address is the original destination.
//
// On other platforms, the listener and original-destination lookup are stubbed
// out and return errors.
package tproxy
