// Package dialer opens the outbound half of a relayed connection.
//
// The direct dialer connects straight to the original destination. When a
// routing mark is configured it is applied to the socket from the
// net.Dialer Control hook, which runs after the socket is created and before
// connect is issued, so policy routing already applies to the SYN.

package dialer
