// Package capture records audio from a device into a single in-memory
// recording.
//
// A Device is opened with a set of Constraints and yields a Stream of raw
// chunks. A Session owns exactly one Stream: it is acquired by Start and
// released on every exit path (Stop, Discard, or a device error).
package capture
