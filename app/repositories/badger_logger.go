package repositories

import "go.uber.org/zap"

// badgerLogger routes Badger's internal logging through zap.
type badgerLogger struct {
	*zap.SugaredLogger
}

func newBadgerLogger(log *zap.Logger) badgerLogger {
	return badgerLogger{log.Named("badger").WithOptions(zap.IncreaseLevel(zap.WarnLevel)).Sugar()}
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.Warnf(format, args...)
}
