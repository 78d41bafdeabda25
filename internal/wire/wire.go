package wire

import (
	"Homestead/internal/api"
	"Homestead/internal/api/config"
	"Homestead/internal/api/handler"
	"Homestead/internal/job"
	"Homestead/internal/pkg/cron"
	"Homestead/internal/pkg/kafka"
	"Homestead/internal/pkg/listing"
	pkgmongo "Homestead/internal/pkg/mongo"
	"Homestead/internal/pkg/realtime"
	"Homestead/internal/repository"
	"Homestead/internal/service"
	"context"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router       *gin.Engine
	DB           *gorm.DB
	KafkaManager *kafka.ConsumerManager
	CronMgr      *cron.Manager
	Producer     kafka.ChatEventProducer
}

func BuildApplication(db *gorm.DB, mongoDB *mongo.Database, cfg *config.Config) (*ApplicationContainer, error) {
	convRepo := repository.NewConversationRepo(db)
	reactionRepo := repository.NewReactionRepo(db)
	presenceRepo := repository.NewPresenceRepo()

	msgRepo := pkgmongo.NewMessageRepo(mongoDB)
	if err := msgRepo.EnsureIndexes(context.Background()); err != nil {
		return nil, err
	}

	router := realtime.NewRouter(realtime.NewRedisBroker())
	listingClient := listing.NewClient()

	producer, err := kafka.NewChatEventProducer(cfg)
	if err != nil {
		return nil, err
	}

	convService := service.NewConversationService(convRepo, presenceRepo, msgRepo, listingClient, router)
	msgService := service.NewMessageService(convRepo, msgRepo, convService, router, producer)
	reactionService := service.NewReactionService(reactionRepo, msgRepo, convService, router)
	presenceService := service.NewPresenceService(presenceRepo, router)

	handlers := &api.HandlersGroup{
		ChatHandler:     handler.NewChatHandler(convService, msgService),
		ReactionHandler: handler.NewReactionHandler(reactionService),
		PresenceHandler: handler.NewPresenceHandler(presenceService),
		WsHandler:       handler.NewWsHandler(convService, presenceService, router),
	}

	ginRouter := api.SetupRouter(handlers)

	kafkaMgr, err := kafka.NewConsumerManager(cfg, convRepo)
	if err != nil {
		return nil, err
	}

	cronMgr := cron.NewCronManager(job.NewListingRefreshJob(convRepo, listingClient))

	return &ApplicationContainer{
		Router:       ginRouter,
		DB:           db,
		KafkaManager: kafkaMgr,
		CronMgr:      cronMgr,
		Producer:     producer,
	}, nil
}
