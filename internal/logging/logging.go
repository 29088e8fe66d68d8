package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Init configures the process-wide logger. The level comes from the
// LOG_LEVEL environment variable; the default only shows warnings and
// errors so transfer output stays readable.
func Init() {
	level := logrus.WarnLevel

	if l, ok := os.LookupEnv("LOG_LEVEL"); ok {
		switch l {
		case "dev", "development", "debug":
			level = logrus.DebugLevel
		case "info":
			level = logrus.InfoLevel
		case "warn", "warning":
			level = logrus.WarnLevel
		case "error", "production", "prod":
			level = logrus.ErrorLevel
		}
	}

	logrus.SetLevel(level)
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
}
