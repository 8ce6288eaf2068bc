package worker

import (
	"github.com/spec-kit/election-service/internal/service"
)

// StartNotificationWorker registers stakeholder notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
