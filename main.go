package main

import (
	"time"

	"picshelf/auth"
	"picshelf/config"
	"picshelf/db"
	"picshelf/handlers"
	"picshelf/integrity"
	"picshelf/models"
	"picshelf/query"
	"picshelf/storage"
	"picshelf/store"
	"picshelf/store/gormstore"
	"picshelf/store/memstore"
	"picshelf/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	gormsessions "github.com/gin-contrib/sessions/gorm"
	"github.com/gin-gonic/autotls"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	sessionCookieName     = "picshelf"
	sessionExpirationTime = 10 * 60 // the session only lives through a login
)

func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	cfg := &config.Current
	log.Logger = utils.NewLogger(cfg.DebugMode)
	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	catalog, sessionStore := openStore(cfg)
	objects, err := storage.FromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("object storage unavailable")
	}
	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("PICSHELF_JWT_SECRET must be set")
	}
	api := &handlers.API{
		Engine:  integrity.New(catalog, objects, log.Logger),
		Queries: query.New(catalog),
		Objects: objects,
		Gateway: &auth.Gateway{
			Provider: auth.NewGoogle(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.BackendURL),
			Owners:   catalog.Owners(),
			Tokens:   tokens,
		},
		FrontendURL:    cfg.FrontendURL,
		MaxUploadBytes: cfg.MaxUploadMB << 20,
		Log:            log.Logger,
	}

	router := gin.Default()
	_ = router.SetTrustedProxies([]string{})
	if cfg.DebugMode {
		router.Use(utils.ErrorLogMiddleware)
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOriginList(),
		AllowMethods:     []string{"GET", "POST", "DELETE"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "ETag"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	sessionStore.Options(sessions.Options{Path: "/", MaxAge: sessionExpirationTime, HttpOnly: true})
	router.Use(sessions.Sessions(sessionCookieName, sessionStore))
	if !cfg.DebugMode {
		router.Use(gzip.Gzip(gzip.DefaultCompression))
	}
	router.Use((&utils.CacheRouter{CacheTime: utils.CacheNoCache}).Handler()) // No cache by default, individual end-points can override that
	// Custom Auth Router
	authRouter := &auth.Router{Base: router, Tokens: tokens, Owners: catalog.Owners()}
	api.Register(router, authRouter)

	log.Info().Str("db", cfg.DBDriver).Str("bind", cfg.BindAddress).Msg("picshelf starting")
	if domains := cfg.TLSDomainList(); len(domains) > 0 {
		err = autotls.Run(router, domains...)
	} else {
		err = router.Run(cfg.BindAddress)
	}
	log.Fatal().Err(err).Msg("server stopped")
}

// openStore picks the document store and a session store that lives next to it
func openStore(cfg *config.Config) (store.Store, sessions.Store) {
	if cfg.DBDriver == config.DBDriverMemory {
		log.Warn().Msg("using the in-memory store, nothing survives a restart")
		return memstore.New(), cookie.NewStore([]byte(cfg.SessionKey))
	}
	db.Init(cfg)
	if err := models.Migrate(db.Instance); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	return gormstore.New(db.Instance), gormsessions.NewStore(db.Instance, true, []byte(cfg.SessionKey))
}
