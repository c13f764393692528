package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/signinable/signind/internal/api"
	"github.com/signinable/signind/internal/controller"
	"github.com/signinable/signind/internal/migrations"
	"github.com/signinable/signind/internal/models"
	"github.com/signinable/signind/internal/service"
	"github.com/signinable/signind/internal/storage/memory"
	"github.com/signinable/signind/internal/storage/postgres"
	redisstore "github.com/signinable/signind/internal/storage/redis"
	"github.com/signinable/signind/internal/util"

	_ "github.com/lib/pq"
)

func main() {
	ctx := context.Background()
	logger := util.NewZapLogger()

	db, dbCleanup, err := util.NewDBConnection(logger)
	if err != nil {
		logger.Fatal(zap.Error(err))
	}
	if err := migrations.RunMigrations(db, logger, "./internal/migrations"); err != nil {
		logger.Fatal(zap.Error(err))
	}

	storage := postgres.NewStorage(db)
	cleanupFuncs := []func(){dbCleanup}

	signinCfg := util.NewSigninConfig()
	managerOpts := []service.ManagerOption[models.User]{
		service.WithLogger[models.User](logger),
		service.WithNotifier[models.User](service.NewWebhookService(logger, util.GetWebhookURL())),
	}

	if redisCfg := util.NewRedisConfig(); redisCfg.Addr != "" {
		redisClient, redisCleanup, err := util.NewRedisClient(logger, redisCfg)
		if err != nil {
			logger.Fatal(zap.Error(err))
		}
		cleanupFuncs = append(cleanupFuncs, redisCleanup)
		managerOpts = append(managerOpts, service.WithDenylist[models.User](redisstore.NewBearerDenylist(redisClient)))
	}

	cfg := service.Config[models.User]{
		OwnerType:     "User",
		OwnerID:       func(u models.User) string { return u.GUID },
		Secret:        signinCfg.Secret,
		RefreshTTL:    signinCfg.RefreshTTL,
		BearerTTL:     signinCfg.BearerTTL,
		SingleSession: signinCfg.SingleSession,
	}
	if len(signinCfg.Restrictions) > 0 {
		cfg.Restrictions = service.StaticRestrictions[models.User](signinCfg.Restrictions...)
	}

	sessions, err := service.NewManager(cfg, storage, controller.NewUserResolver(storage), managerOpts...)
	if err != nil {
		logger.Fatal(zap.Error(err))
	}

	apiKeys := memory.NewAPIKeyStore(models.APIKey{Key: util.GetAPIKey(), ClientID: "host"})

	ctrl := controller.NewController(logger, storage, sessions)
	apiServer := api.NewAPI(ctrl, logger, util.NewServerConfig(), apiKeys, cleanupFuncs)
	apiServer.Run(ctx)
}
