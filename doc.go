// Package s7 implements a client for Siemens S7 PLC communication over
// ISO-on-TCP (RFC1006): connecting, reading and writing tagged process
// data, polling a declared tag table on a timer, and decoding the PLC's
// system state list identity records.
package s7
