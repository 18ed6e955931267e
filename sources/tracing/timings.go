package tracing

import (
	"time"
)

func ReportExecutionForE(log *Logger, action func() error, report func(l *Logger, err error)) error {
	start := time.Now()
	err := action()
	report(log.With(ExecutionTime, time.Since(start).String()), err)
	return err
}
