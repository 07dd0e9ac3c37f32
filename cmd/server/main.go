package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/ashwinsk01/overkillcah/internal/catalog"
	"github.com/ashwinsk01/overkillcah/internal/config"
	"github.com/ashwinsk01/overkillcah/internal/logger"
	"github.com/ashwinsk01/overkillcah/internal/server"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Warn("config load failed, using defaults")
		cfg = config.Default()
	}
	logger.Init(cfg.Log.Level)

	cat, err := catalog.Load(cfg.Server.CardsPath)
	if err != nil {
		logrus.WithError(err).Fatal("card catalog load failed")
	}
	logrus.WithField("cards", cat.Len()).Info("card catalog loaded")

	srv, err := server.NewServer(cfg, cat)
	if err != nil {
		logrus.WithError(err).Fatal("server init failed")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logrus.Info("shutting down...")
		srv.Shutdown()
		os.Exit(0)
	}()

	logrus.Info("🎮 card game server starting...")
	if err := srv.Start(); err != nil {
		logrus.WithError(err).Fatal("server start failed")
	}
}
