package logger

import (
	"fmt"
	"time"
)

// SQLTracer times and logs calls made against the embedded relational
// store, emitting the same JSON entry shape as the rest of the
// application. It plays the role the teacher's gorm_logger.go played for
// GORM, but for the hand-written database/sql store in
// internal/store/sqlstore: that store has no ORM layer to hook, so a
// thin explicit tracer wraps each call site instead.
type SQLTracer struct {
	app      *Logger
	slowWarn time.Duration
}

// NewSQLTracer creates a tracer that warns on queries slower than slowWarn.
func NewSQLTracer(app *Logger, slowWarn time.Duration) *SQLTracer {
	if slowWarn <= 0 {
		slowWarn = 200 * time.Millisecond
	}
	return &SQLTracer{app: app, slowWarn: slowWarn}
}

// Trace logs one statement's outcome. Call it via `defer trace(...)` idiom:
//
//	defer tracer.Trace("insert change_record", time.Now())(&err)
func (t *SQLTracer) Trace(statement string, start time.Time) func(errp *error) {
	return func(errp *error) {
		elapsed := time.Since(start)
		var err error
		if errp != nil {
			err = *errp
		}
		fields := map[string]any{
			"source":   "sqlstore",
			"sql":      statement,
			"duration": fmt.Sprintf("%.3fms", float64(elapsed.Nanoseconds())/1e6),
		}
		switch {
		case err != nil:
			fields["error"] = err.Error()
			t.app.Audit("sql error", fields)
		case elapsed > t.slowWarn:
			t.app.Audit("slow sql query", fields)
		default:
			t.app.Audit("sql query executed", fields)
		}
	}
}
