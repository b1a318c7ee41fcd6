package container

import (
	"fmt"

	"resto-be/internal/config"
	"resto-be/internal/repository"
	"resto-be/internal/service"
	"resto-be/internal/service/identity"
	"resto-be/pkg/database"
	"resto-be/pkg/logger"
	"resto-be/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *logger.Logger
	RedisClient  *redis.Client
	DB           *database.PostgresDB
	Repositories *repository.Repositories
	Services     *service.Services
}

// New creates a new dependency injection container
func New(cfg *config.Config, log *logger.Logger, db *database.PostgresDB) (*Container, error) {
	if cfg.IdentityKey == "" {
		return nil, fmt.Errorf("identity signing key is not configured")
	}

	// Redis is required: session revocation and phone challenges live there
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("redis URL is not configured")
	}

	redisClient, err := redis.NewClient(cfg.RedisURL, cfg.Environment, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Redis client: %w", err)
	}

	repos := &repository.Repositories{
		User:    repository.NewUserRepository(db),
		Profile: repository.NewProfileRepository(db),
	}

	identityService := identity.NewService(repos.User, redisClient, cfg.IdentityKey, cfg.RestaurantID, log)
	profileService := service.NewProfileService(repos.Profile, redisClient, log)

	services := &service.Services{
		Identity: identityService,
		Profile:  profileService,
	}

	return &Container{
		Config:       cfg,
		Logger:       log,
		RedisClient:  redisClient,
		DB:           db,
		Repositories: repos,
		Services:     services,
	}, nil
}

// GetIdentityService returns the identity provider
func (c *Container) GetIdentityService() service.IdentityProvider {
	return c.Services.Identity
}

// GetProfileService returns the profile service
func (c *Container) GetProfileService() service.ProfileService {
	return c.Services.Profile
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.Logger
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// GetRedisClient returns the Redis client
func (c *Container) GetRedisClient() *redis.Client {
	return c.RedisClient
}

// GetDB returns the database handle
func (c *Container) GetDB() *database.PostgresDB {
	return c.DB
}
