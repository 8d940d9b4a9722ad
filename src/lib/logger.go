package lib

import (
	"io"
	"os"
	"path"
	"tourbook/src/config"

	"github.com/covalenthq/lumberjack"
	"github.com/sirupsen/logrus"
)

var logger *logrus.Logger

func GetLogger() *logrus.Logger {
	if logger != nil {
		return logger
	}
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetLevel(logrus.InfoLevel)
	if config.IsDevelopment() {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	logger = l
	return l
}

// NewLogger replaces the shared logger, e.g. with one writing to a buffer.
func NewLogger(l *logrus.Logger) *logrus.Logger {
	logger = l
	return logger
}

// InitFileLogger mirrors the shared logger to a rotated server.log in dir.
func InitFileLogger(dir string) {
	l := GetLogger()
	l.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   path.Join(dir, "server.log"),
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}))
}
