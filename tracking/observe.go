package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/demo-sequences/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Event suffixes emitted by Observe
const (
	EventStarted   = "started"
	EventCompleted = "completed"
	EventFailed    = "failed"
)

// Observe runs op inside Track and reports it to logger as structured events:
// "<event>.started" before op runs, then "<event>.completed" or "<event>.failed" with
// timing and the sequence values op consumed. op's error is returned unchanged.
func Observe(ctx context.Context, logger logrus.FieldLogger, event string, fields logrus.Fields, op func(ctx context.Context) error) error {
	startTime := utils.UTCNow()
	base := logger.WithFields(fields).WithFields(logrus.Fields{
		"operation_id": uuid.NewString(),
		"start_time":   startTime.Format(time.RFC3339Nano),
	})
	base.WithField("event", event+"."+EventStarted).Info("operation started")

	entries, err := Track(ctx, op)

	endTime := utils.UTCNow()
	done := base.WithFields(logrus.Fields{
		"end_time":             endTime.Format(time.RFC3339Nano),
		"duration_ms":          utils.MillisecondsSince(startTime),
		"sequences_used":       entries,
		"sequences_used_count": len(entries),
	})

	if err != nil {
		done.WithFields(logrus.Fields{
			"event":       event + "." + EventFailed,
			"error":       err.Error(),
			"error_class": fmt.Sprintf("%T", err),
		}).Error("operation failed")
		return err
	}

	done.WithField("event", event+"."+EventCompleted).Info("operation completed")
	return nil
}
