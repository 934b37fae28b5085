package ext2

import (
	"io"

	"github.com/sirupsen/logrus"
)

// discardLogger is the default logger for a mount that was not given one:
// every borrow still logs, but nowhere a caller can see unless they ask.
func discardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// log returns fs's logger, falling back to a discard logger for a
// FileSystem a caller assembled without going through Open/Create.
func (fs *FileSystem) log() *logrus.Logger {
	if fs.logger == nil {
		return discardLogger()
	}
	return fs.logger
}
