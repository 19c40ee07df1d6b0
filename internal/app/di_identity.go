package app

import (
	"context"
	"fmt"

	"github.com/allisson/go-pwdhash"

	identityHTTP "github.com/allisson/resourcegateway/internal/identity/http"
	identityRepository "github.com/allisson/resourcegateway/internal/identity/repository"
	identityService "github.com/allisson/resourcegateway/internal/identity/service"
	identityUseCase "github.com/allisson/resourcegateway/internal/identity/usecase"
)

// SecretService returns the Argon2id password hasher.
func (c *Container) SecretService() identityService.SecretService {
	c.secretServiceInit.Do(func() {
		c.secretService = identityService.NewSecretService(pwdhash.PolicyModerate)
	})
	return c.secretService
}

// TokenService returns the auth token generator.
func (c *Container) TokenService() identityService.TokenService {
	c.tokenServiceInit.Do(func() {
		c.tokenService = identityService.NewTokenService()
	})
	return c.tokenService
}

// KMSService returns the gocloud.dev backed KMS service.
func (c *Container) KMSService() identityService.KMSService {
	c.kmsServiceInit.Do(func() {
		c.kmsService = identityService.NewKMSService()
	})
	return c.kmsService
}

// SystemTokenService returns the system token signer and verifier, or nil when no
// SYSTEM_TOKEN_SECRET is configured. With SYSTEM_TOKEN_KMS_KEY_URI set the secret
// is unsealed through the KMS first.
func (c *Container) SystemTokenService() (identityService.SystemTokenService, error) {
	c.systemTokenServiceInit.Do(func() {
		svc, err := c.initSystemTokenService()
		if err != nil {
			c.setInitError("systemTokenService", err)
			return
		}
		c.systemTokenService = svc
	})
	if err := c.initError("systemTokenService"); err != nil {
		return nil, err
	}
	return c.systemTokenService, nil
}

// TokenRepository returns the token repository for the configured driver.
func (c *Container) TokenRepository() (identityUseCase.TokenRepository, error) {
	c.tokenRepositoryInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.setInitError("tokenRepository", fmt.Errorf("failed to get database for token repository: %w", err))
			return
		}
		switch c.config.DBDriver {
		case "mysql":
			c.tokenRepository = identityRepository.NewMySQLTokenRepository(db)
		case "postgres":
			c.tokenRepository = identityRepository.NewPostgreSQLTokenRepository(db)
		default:
			c.setInitError("tokenRepository", c.unsupportedDriver())
		}
	})
	if err := c.initError("tokenRepository"); err != nil {
		return nil, err
	}
	return c.tokenRepository, nil
}

// TokenUseCase returns the token use case decorated with business metrics.
func (c *Container) TokenUseCase() (identityUseCase.TokenUseCase, error) {
	c.tokenUseCaseInit.Do(func() {
		useCase, err := c.initTokenUseCase()
		if err != nil {
			c.setInitError("tokenUseCase", err)
			return
		}
		c.tokenUseCase = useCase
	})
	if err := c.initError("tokenUseCase"); err != nil {
		return nil, err
	}
	return c.tokenUseCase, nil
}

// ResolverUseCase returns the credential resolver used by the authentication middleware.
func (c *Container) ResolverUseCase() (identityUseCase.ResolverUseCase, error) {
	c.resolverUseCaseInit.Do(func() {
		useCase, err := c.initResolverUseCase()
		if err != nil {
			c.setInitError("resolverUseCase", err)
			return
		}
		c.resolverUseCase = useCase
	})
	if err := c.initError("resolverUseCase"); err != nil {
		return nil, err
	}
	return c.resolverUseCase, nil
}

// TokenHandler returns the HTTP handler of /api/auth.
func (c *Container) TokenHandler() (*identityHTTP.TokenHandler, error) {
	c.tokenHandlerInit.Do(func() {
		tokenUseCase, err := c.TokenUseCase()
		if err != nil {
			c.setInitError("tokenHandler", fmt.Errorf("failed to get token use case for token handler: %w", err))
			return
		}
		c.tokenHandler = identityHTTP.NewTokenHandler(tokenUseCase, c.Logger())
	})
	if err := c.initError("tokenHandler"); err != nil {
		return nil, err
	}
	return c.tokenHandler, nil
}

func (c *Container) initSystemTokenService() (identityService.SystemTokenService, error) {
	if c.config.SystemTokenSecret == "" {
		return nil, nil
	}

	secret := []byte(c.config.SystemTokenSecret)
	if c.config.SystemTokenKMSKeyURI != "" {
		plain, err := c.KMSService().Unseal(context.Background(), c.config.SystemTokenKMSKeyURI, c.config.SystemTokenSecret)
		if err != nil {
			return nil, fmt.Errorf("failed to unseal system token secret: %w", err)
		}
		secret = plain
	}

	svc, err := identityService.NewSystemTokenService(identityService.SystemTokenConfig{
		Secret:  secret,
		Issuer:  c.config.ServerGUID,
		Trusted: c.config.SystemTokenTrustedGUIDs,
		MaxAge:  c.config.SystemTokenMaxAge,
		Skew:    c.config.SystemTokenClockSkew,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create system token service: %w", err)
	}
	return svc, nil
}

func (c *Container) initTokenUseCase() (identityUseCase.TokenUseCase, error) {
	tokenRepo, err := c.TokenRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get token repository for token use case: %w", err)
	}
	dir, err := c.Directory()
	if err != nil {
		return nil, fmt.Errorf("failed to get directory for token use case: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for token use case: %w", err)
	}

	baseUseCase := identityUseCase.NewTokenUseCase(c.config, tokenRepo, dir, c.TokenService())
	return identityUseCase.NewTokenUseCaseWithMetrics(baseUseCase, businessMetrics), nil
}

func (c *Container) initResolverUseCase() (identityUseCase.ResolverUseCase, error) {
	dir, err := c.Directory()
	if err != nil {
		return nil, fmt.Errorf("failed to get directory for resolver: %w", err)
	}
	tokenUseCase, err := c.TokenUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get token use case for resolver: %w", err)
	}
	systemTokens, err := c.SystemTokenService()
	if err != nil {
		return nil, err
	}
	return identityUseCase.NewResolverUseCase(
		dir,
		tokenUseCase,
		c.SecretService(),
		c.TokenService(),
		systemTokens,
	), nil
}
