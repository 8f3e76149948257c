package obslog

import "github.com/sirupsen/logrus"

// Adapter wraps a logrus.Entry to satisfy the Debug/Info/Error Logger
// interfaces transport and layout each declare at their point of use.
type Adapter struct {
	entry *logrus.Entry
}

// New builds an Adapter tagged with component (e.g. "transport",
// "layout"), reusing logrus's standard logger.
func New(component string) *Adapter {
	return &Adapter{entry: logrus.WithField("component", component)}
}

// NewWithLogger builds an Adapter around an already-configured
// *logrus.Logger, for callers that want their own output/formatter
// instead of logrus's package-level defaults.
func NewWithLogger(l *logrus.Logger, component string) *Adapter {
	return &Adapter{entry: l.WithField("component", component)}
}

func (a *Adapter) Debug(msg string, keysAndValues ...interface{}) {
	a.withFields(keysAndValues).Debug(msg)
}

func (a *Adapter) Info(msg string, keysAndValues ...interface{}) {
	a.withFields(keysAndValues).Info(msg)
}

func (a *Adapter) Error(msg string, keysAndValues ...interface{}) {
	a.withFields(keysAndValues).Error(msg)
}

// withFields pairs up keysAndValues (key, value, key, value, ...) into
// logrus.Fields. A trailing unpaired key is logged under "extra".
func (a *Adapter) withFields(keysAndValues []interface{}) *logrus.Entry {
	if len(keysAndValues) == 0 {
		return a.entry
	}
	fields := make(logrus.Fields, len(keysAndValues)/2+1)
	i := 0
	for ; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = "arg"
		}
		fields[key] = keysAndValues[i+1]
	}
	if i < len(keysAndValues) {
		fields["extra"] = keysAndValues[i]
	}
	return a.entry.WithFields(fields)
}
