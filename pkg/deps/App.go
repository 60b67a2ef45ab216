package deps

import (
	"github.com/Alwanly/service-fleet-monitor/pkg/logger"
	"github.com/Alwanly/service-fleet-monitor/pkg/poll"
	"github.com/Alwanly/service-fleet-monitor/pkg/pubsub"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// App is the set of process-wide dependencies handed to each service's handler.
type App struct {
	Fiber    *fiber.App
	Logger   *logger.CanonicalLogger
	Database *gorm.DB
	Poller   poll.Poller
	Pub      pubsub.PubSub
}
