package logger

import (
	"github.com/sirupsen/logrus"
)

// Logger tags log lines with the driver component emitting them.
// Output is suppressed entirely unless debug mode was requested.
type Logger struct {
	flag      bool
	component string
}

func New(flag bool, component string) *Logger {
	logrus.SetLevel(logrus.DebugLevel)
	return &Logger{
		flag:      flag,
		component: component,
	}
}

func (l *Logger) DebugMode() bool {
	return l.flag
}

func (l *Logger) Info(args ...interface{}) {
	if l.flag {
		logrus.WithFields(logrus.Fields{
			"component": l.component,
		}).Info(args...)
	}
}

func (l *Logger) Debug(args ...interface{}) {
	if l.flag {
		logrus.WithFields(logrus.Fields{
			"component": l.component,
		}).Debug(args...)
	}
}

func (l *Logger) Warn(args ...interface{}) {
	if l.flag {
		logrus.WithFields(logrus.Fields{
			"component": l.component,
		}).Warn(args...)
	}
}

func (l *Logger) Error(args ...interface{}) {
	if l.flag {
		logrus.WithFields(logrus.Fields{
			"component": l.component,
		}).Error(args...)
	}
}

func (l *Logger) Infof(format string, args ...interface{}) {
	if l.flag {
		logrus.WithFields(logrus.Fields{
			"component": l.component,
		}).Infof(format, args...)
	}
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.flag {
		logrus.WithFields(logrus.Fields{
			"component": l.component,
		}).Debugf(format, args...)
	}
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	if l.flag {
		logrus.WithFields(logrus.Fields{
			"component": l.component,
		}).Warnf(format, args...)
	}
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	if l.flag {
		logrus.WithFields(logrus.Fields{
			"component": l.component,
		}).Errorf(format, args...)
	}
}
