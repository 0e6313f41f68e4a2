package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/curaious/projectchron/internal/config"
	"github.com/curaious/projectchron/internal/credential"
	"github.com/curaious/projectchron/internal/db"
	"github.com/curaious/projectchron/internal/ratelimit"
	"github.com/curaious/projectchron/internal/services/audit"
	"github.com/curaious/projectchron/internal/services/feed"
	"github.com/curaious/projectchron/internal/services/follow"
	"github.com/curaious/projectchron/internal/services/media"
	"github.com/curaious/projectchron/internal/services/project"
	"github.com/curaious/projectchron/internal/services/session"
	"github.com/curaious/projectchron/internal/services/update"
	"github.com/curaious/projectchron/internal/services/user"
)

type Services struct {
	DB *sqlx.DB

	User    *user.UserService
	Session *session.SessionService
	Project *project.ProjectService
	Update  *update.UpdateService
	Follow  *follow.FollowService
	Feed    *feed.FeedService
	Audit   *audit.AuditService
	Media   *media.MediaService

	RateLimiter   ratelimit.Storage
	AuthRateLimit ratelimit.Limit
	SecureCookies bool
}

// NewServices connects to the configured database and rate limit storage and
// wires every service on top of them.
func NewServices(conf *config.Config) *Services {
	dbconn := db.NewConn(conf)

	var limiter ratelimit.Storage
	if conf.REDIS_ADDR != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     conf.REDIS_ADDR,
			Password: conf.REDIS_PASSWORD,
			DB:       conf.REDIS_DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		redisLimiter := ratelimit.NewRedisStorage(rdb, "projectchron:rate_limit:")
		if err := redisLimiter.Ping(ctx); err != nil {
			slog.Warn("Redis unavailable, falling back to in-memory rate limiting", slog.Any("error", err))
			_ = redisLimiter.Close()
		} else {
			limiter = redisLimiter
			slog.Info("Using Redis for rate limiting", slog.String("addr", conf.REDIS_ADDR))
		}
	}
	if limiter == nil {
		limiter = ratelimit.NewInMemoryStorage()
	}

	svc := New(dbconn, limiter)
	svc.AuthRateLimit = ratelimit.Limit{Requests: conf.AUTH_RATE_LIMIT, Window: time.Minute}
	svc.SecureCookies = conf.IsProduction()

	return svc
}

// New wires services on an open connection.
func New(conn *sqlx.DB, limiter ratelimit.Storage) *Services {
	return &Services{
		DB:            conn,
		User:          user.NewUserService(conn, credential.NewHasher(credential.DefaultParams)),
		Session:       session.NewService(conn),
		Project:       project.NewProjectService(conn),
		Update:        update.NewUpdateService(conn),
		Follow:        follow.NewFollowService(conn),
		Feed:          feed.NewService(conn),
		Audit:         audit.NewService(conn),
		Media:         media.NewMediaService(conn),
		RateLimiter:   limiter,
		AuthRateLimit: ratelimit.Limit{Requests: 10, Window: time.Minute},
	}
}
