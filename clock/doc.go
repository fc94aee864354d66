// Package clock abstracts time sources so that deadline behavior can be
// driven by a fake clock in tests. Orchestration code takes a Clock and
// never touches the time package directly for waits.
package clock
