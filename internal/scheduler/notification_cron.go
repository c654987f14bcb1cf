package cron

import (
	"context"

	"github.com/Jkinney331/CombatID-sub001/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// StartNotificationCronJobs schedules the dispatch sweep that advances
// PENDING notifications toward SENT or FAILED. The sweep is built for a
// single scheduler instance; run it from one process only.
func StartNotificationCronJobs(notificationService *services.NotificationService, schedule string) {
	c := cron.New()

	c.AddFunc(schedule, func() {
		processed, err := notificationService.ProcessPendingNotifications(context.Background())
		if err != nil {
			logrus.WithError(err).Error("ProcessPendingNotifications failed")
			return
		}
		if processed > 0 {
			logrus.Infof("Dispatched %d pending notifications", processed)
		}
	})

	c.Start()
}
