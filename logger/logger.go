package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log is usable before InitLogger runs (tests never call it).
var Log = logrus.New()

func InitLogger(level string) {
	Log.Out = os.Stdout
	Log.SetFormatter(&logrus.JSONFormatter{})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)
}

// ForUser is the standard entry for anything scoped to one user.
func ForUser(userID string) *logrus.Entry {
	return Log.WithField("user_id", userID)
}
