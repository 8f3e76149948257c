// Package obslog adapts github.com/sirupsen/logrus to the small
// point-of-use Logger interfaces defined by the transport and layout
// packages (Debug/Info/Error with key-value pairs), so commands and
// examples can hand every package a single configured logger instead
// of each reimplementing its own logger shim.
package obslog
