package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/nekogravitycat/room-booking-backend/internal/api"
	"github.com/nekogravitycat/room-booking-backend/internal/auth"
	"github.com/nekogravitycat/room-booking-backend/internal/cache"
	"github.com/nekogravitycat/room-booking-backend/internal/config"
	"github.com/nekogravitycat/room-booking-backend/internal/event"
	"github.com/nekogravitycat/room-booking-backend/internal/pkg/storage"
	"github.com/nekogravitycat/room-booking-backend/internal/reservation"
	"github.com/nekogravitycat/room-booking-backend/internal/room"
	"github.com/nekogravitycat/room-booking-backend/internal/user"
)

// Container holds the initialized components that are needed externally.
type Container struct {
	Router       *gin.Engine
	Users        user.Service
	Rooms        room.Service
	Reservations reservation.Service

	closers []func() error
}

// NewContainer initializes all modules. pool may be nil with memory storage.
// Redis and AMQP are optional: when they are not configured or unreachable the
// service runs without caching, rate limiting or event publishing.
func NewContainer(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger *logrus.Logger) (*Container, error) {
	if cfg.Storage != config.StorageMemory && pool == nil {
		return nil, errors.New("postgres storage requires a database pool")
	}

	log := logrus.NewEntry(logger)
	c := &Container{}

	// Init Components
	passwordHasher := auth.NewBcryptPasswordHasher(cfg.BcryptCost)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTokenTTL)

	photos, err := storage.NewLocalStorage(cfg.UploadDir)
	if err != nil {
		return nil, err
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.WithError(err).Warn("redis unavailable; caching and rate limiting disabled")
		} else {
			c.closers = append(c.closers, rdb.Close)
		}
	}

	var publisher event.Publisher = event.NopPublisher{}
	if cfg.AMQPURL != "" {
		p, err := event.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPQueue, log)
		if err != nil {
			log.WithError(err).Warn("rabbitmq unavailable; event publishing disabled")
		} else {
			publisher = p
			c.closers = append(c.closers, p.Close)
		}
	}

	// Repositories. The reservation repository is built before the room
	// service, which asks it about upcoming bookings.
	var (
		userRepo        user.Repository
		roomRepo        room.Repository
		reservationRepo reservation.Repository
	)
	if cfg.Storage == config.StorageMemory {
		log.Warn("using in-memory storage; data is lost on exit")
		userRepo = user.NewMemoryRepository()
		roomRepo = room.NewMemoryRepository()
		reservationRepo = reservation.NewMemoryRepository()
	} else {
		userRepo = user.NewPgxRepository(pool)
		roomRepo = room.NewPgxRepository(pool)
		reservationRepo = reservation.NewPgxRepository(pool, cfg.CommitMaxAttempts)
	}

	// User Module
	c.Users = user.NewService(userRepo, passwordHasher, log)

	// Room Module
	c.Rooms = room.NewService(roomRepo, reservationRepo, photos, log)

	// Reservation Module
	opts := []reservation.Option{reservation.WithPublisher(publisher)}
	if rdb != nil {
		opts = append(opts, reservation.WithCache(cache.NewAvailabilityCache(rdb, cfg.AvailabilityCacheTTL)))
	}
	c.Reservations = reservation.NewService(reservationRepo, c.Rooms, log, opts...)

	routerCfg := api.Config{
		IsProduction: cfg.IsProduction,
		ProdOrigins:  cfg.ProdOrigins,
		RateLimit:    cfg.RateLimit,
		Log:          log,
	}
	if rdb != nil {
		routerCfg.Redis = rdb
	}
	c.Router = api.NewRouter(routerCfg, c.Users, c.Rooms, c.Reservations, jwtManager)

	return c, nil
}

// Close releases the optional Redis and AMQP connections.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close container: %w", err)
	}
	return nil
}
