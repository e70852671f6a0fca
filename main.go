package main

import (
	"context"
	"os"
	"time"

	"chatter/global"
	"chatter/logger"
	chathandler "chatter/module/chat"
	chatservice "chatter/module/chat/service"
	translatehandler "chatter/module/translate"
	userhandler "chatter/module/user"
	userservice "chatter/module/user/service"
	gateway "chatter/service/chat"
	"chatter/service/media"
	"chatter/service/notify"
	"chatter/service/storage"
	"chatter/service/translate"
	"chatter/tools/security"
)

func main() {
	cfg, err := global.Load()
	if err != nil {
		fatal("load config", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mgo, err := storage.NewMongo(ctx, storage.MongoConfig{
		URI:         cfg.MongoURI,
		Database:    cfg.MongoDB,
		MaxPoolSize: 100,
		MaxRetry:    3,
	})
	if err != nil {
		fatal("connect mongo", err)
	}

	rdb, err := storage.NewRedis(ctx, storage.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		fatal("connect redis", err)
	}
	pairing := storage.NewPairingStore(rdb)

	objects, err := media.NewDiskStore(cfg.MediaDir)
	if err != nil {
		fatal("media dir", err)
	}

	jwt := security.DefaultOptions([]byte(cfg.JWTSecret))
	jwt.TTL = cfg.JWTTTL

	var notifier notify.Notifier = notify.Noop{}
	if cfg.OneSignalApp != "" {
		notifier = notify.NewOneSignal(cfg.OneSignalApp, cfg.OneSignalKey)
	}

	gw := gateway.NewServer(jwt, pairing, cfg.PairingTTL)

	users := userservice.NewStore(mgo.DB())
	conversations := chatservice.NewStore(mgo.DB())

	r := newRouter(cfg, api{
		users:     userhandler.NewHandler(users, jwt, pairing, objects),
		chats:     chathandler.NewHandler(conversations, users, notifier, gw, objects),
		translate: translatehandler.NewHandler(users, translate.NewRapidAPI(cfg.TranslateHost, cfg.TranslateKey)),
		gateway:   gw,
		jwt:       jwt,
	})

	logger.Infof("listening on %s", cfg.ListenAddr)
	if err := r.Run(cfg.ListenAddr); err != nil {
		fatal("server stopped", err)
	}
}

func fatal(msg string, err error) {
	logger.Errorf("%s: %v", msg, err)
	os.Exit(1)
}
