package botapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ivankudzin/pairbot/internal/config"
	s3infra "github.com/ivankudzin/pairbot/internal/infra/s3"
	tginfra "github.com/ivankudzin/pairbot/internal/infra/telegram"
	pgrepo "github.com/ivankudzin/pairbot/internal/repo/postgres"
	redrepo "github.com/ivankudzin/pairbot/internal/repo/redis"
	candsvc "github.com/ivankudzin/pairbot/internal/services/candidates"
	geosvc "github.com/ivankudzin/pairbot/internal/services/geo"
	likesvc "github.com/ivankudzin/pairbot/internal/services/likes"
	mediasvc "github.com/ivankudzin/pairbot/internal/services/media"
	obsvc "github.com/ivankudzin/pairbot/internal/services/onboarding"
	ratesvc "github.com/ivankudzin/pairbot/internal/services/rate"
)

type App struct {
	cfg      config.Config
	logger   *zap.Logger
	postgres *pgxpool.Pool
	bot      *tginfra.Bot
	storage  *mediasvc.S3Storage

	userRepo    *pgrepo.UserRepo
	profileRepo *pgrepo.ProfileRepo
	matchRepo   *pgrepo.MatchRepo

	onboarding *obsvc.Service
	candidates *candsvc.Service
	likes      *likesvc.Service
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres for bot app: %w", err)
	}

	s3Client, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init s3 for bot app: %w", err)
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	storage := mediasvc.NewS3Storage(s3Client, cfg.S3.Bucket)
	userRepo := pgrepo.NewUserRepo(pool)
	profileRepo := pgrepo.NewProfileRepo(pool)
	likeRepo := pgrepo.NewLikeRepo(pool)
	matchRepo := pgrepo.NewMatchRepo(pool)
	candidateRepo := pgrepo.NewCandidateRepo(pool)

	geoService := geosvc.NewService(cfg.Remote.Cities, cfg.Remote.Geo.BucketDegrees)
	onboardingService := obsvc.NewService(profileRepo, geoService)
	candidateService := candsvc.NewService(candidateRepository{
		profiles:   profileRepo,
		candidates: candidateRepo,
	})

	rateRepo := redrepo.NewRateRepo(redisClient)
	limiter := ratesvc.NewLimiter(rateRepo,
		cfg.Remote.Limits.LikeRatePerMinute,
		cfg.Remote.Limits.LikeRatePer10Seconds)

	var bot *tginfra.Bot
	if strings.TrimSpace(cfg.Bot.Token) != "" {
		bot, err = tginfra.NewBot(cfg.Bot.Token, cfg.Bot.PollTimeout, logger)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init telegram bot: %w", err)
		}
	} else {
		logger.Warn("BOT_TOKEN is empty, telegram listener disabled")
	}

	likeService := likesvc.NewService(likesvc.Dependencies{
		Tx:       pgrepo.NewTxManager(pool),
		Likes:    likeRepo,
		Matches:  matchRepo,
		Users:    userRepo,
		Notifier: &botNotifier{bot: bot},
		Limiter:  limiter,
		Logger:   logger,
	})

	return &App{
		cfg:         cfg,
		logger:      logger,
		postgres:    pool,
		bot:         bot,
		storage:     storage,
		userRepo:    userRepo,
		profileRepo: profileRepo,
		matchRepo:   matchRepo,
		onboarding:  onboardingService,
		candidates:  candidateService,
		likes:       likeService,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("bot app started")

	errCh := make(chan error, 2)

	go func() {
		errCh <- a.runHealthServer(ctx)
	}()

	if a.bot != nil {
		go func() {
			errCh <- a.bot.Listen(ctx, tginfra.Handlers{
				OnCommand:  a.handleCommand,
				OnText:     a.handleText,
				OnLocation: a.handleLocation,
				OnPhoto:    a.handlePhoto,
				OnCallback: a.handleCallback,
			})
		}()
	}

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("bot app stopped")
			return nil
		case err := <-errCh:
			if err == nil || errors.Is(err, context.Canceled) {
				continue
			}
			return err
		}
	}
}

func (a *App) runHealthServer(ctx context.Context) error {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := a.postgres.Ping(r.Context()); err != nil {
			http.Error(w, "postgres unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:         a.cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
		IdleTimeout:  a.cfg.HTTP.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}

// candidateRepository joins the profile and candidate repos behind the
// selector's single repository dependency.
type candidateRepository struct {
	profiles   *pgrepo.ProfileRepo
	candidates *pgrepo.CandidateRepo
}

func (r candidateRepository) GetProfile(ctx context.Context, userID int64) (pgrepo.ProfileRecord, error) {
	return r.profiles.Get(ctx, userID)
}

func (r candidateRepository) FirstCandidate(ctx context.Context, q pgrepo.CandidateQuery) (pgrepo.CandidateRecord, error) {
	return r.candidates.First(ctx, q)
}

// botNotifier delivers match notifications to private chats, where the chat
// id equals the user id.
type botNotifier struct {
	bot *tginfra.Bot
}

func (n *botNotifier) Notify(ctx context.Context, userID int64, text string) error {
	if n.bot == nil {
		return nil
	}
	return n.bot.SendText(ctx, userID, text)
}

func (a *App) Close() {
	if a.postgres != nil {
		a.postgres.Close()
	}
}
