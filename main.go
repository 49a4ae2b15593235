package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"quietspot/app/api/httpapi"
	"quietspot/app/api/mcpapi"
	"quietspot/app/client/dynamo"
	"quietspot/app/client/llm"
	"quietspot/app/client/memstore"
	"quietspot/app/config"
	"quietspot/app/model"
	"quietspot/app/service/dialogue"
	"quietspot/app/service/extractor"
	"quietspot/app/service/queue"
	"quietspot/app/service/recommend"
	"quietspot/app/service/turn"
	"quietspot/app/util/mylog"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
	"golang.org/x/sync/errgroup"
)

func main() {
	di := do.New()
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	mylog.Preinit()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	do.Provide(di, newStore)
	do.Provide(di, llm.New)
	do.Provide(di, extractor.New)
	do.Provide(di, recommend.New)
	do.Provide(di, dialogue.New)
	do.Provide(di, turn.New)
	do.Provide(di, queue.New)
	do.Provide(di, mcpapi.New)
	do.Provide(di, httpapi.New)

	server := do.MustInvoke[*httpapi.Server](di)

	slog.Info("Service started",
		"store", cfg.Store.Driver,
		"dialogue", cfg.Dialogue.Mode,
		"llm", do.MustInvoke[*llm.Client](di).Enabled(),
		mylog.TelegramKey, true,
	)

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Info("Shutting down...")

		cancel()
	}()

	group, groupCtx := errgroup.WithContext(appCtx)

	group.Go(server.Run)
	group.Go(func() error {
		<-groupCtx.Done()
		return server.Shutdown()
	})

	if err = group.Wait(); err != nil {
		slog.Error("Service stopped with error", "error", err)
	}
}

// newStore picks the record store backend named in the config.
func newStore(di *do.Injector) (model.Store, error) {
	cfg := do.MustInvoke[*config.Config](di)

	if cfg.Store.Driver == config.StoreDriverDynamoDB {
		store, err := dynamo.New(di)
		if err != nil {
			return nil, err
		}

		return store, nil
	}

	store, err := memstore.New(di)
	if err != nil {
		return nil, err
	}

	return store, nil
}
