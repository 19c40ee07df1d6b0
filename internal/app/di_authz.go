package app

import (
	"fmt"

	authzDomain "github.com/allisson/resourcegateway/internal/authz/domain"
	authzRepository "github.com/allisson/resourcegateway/internal/authz/repository"
	authzService "github.com/allisson/resourcegateway/internal/authz/service"
	authzUsecase "github.com/allisson/resourcegateway/internal/authz/usecase"
)

// PolicyTable returns the (collection, scope, action) to feature identifier table
// derived from the registry.
func (c *Container) PolicyTable() (*authzDomain.PolicyTable, error) {
	c.policyTableInit.Do(func() {
		reg, err := c.Registry()
		if err != nil {
			c.setInitError("policyTable", err)
			return
		}
		c.policyTable = authzDomain.NewPolicyTable(reg)
	})
	if err := c.initError("policyTable"); err != nil {
		return nil, err
	}
	return c.policyTable, nil
}

// AuditLogRepository returns the audit log repository for the configured driver.
func (c *Container) AuditLogRepository() (authzUsecase.AuditLogRepository, error) {
	c.auditLogRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.setInitError("auditLogRepository", fmt.Errorf("failed to get database for audit log repository: %w", err))
			return
		}
		switch c.config.DBDriver {
		case "mysql":
			c.auditLogRepository = authzRepository.NewMySQLAuditLogRepository(db)
		case "postgres":
			c.auditLogRepository = authzRepository.NewPostgreSQLAuditLogRepository(db)
		default:
			c.setInitError("auditLogRepository", c.unsupportedDriver())
		}
	})
	if err := c.initError("auditLogRepository"); err != nil {
		return nil, err
	}
	return c.auditLogRepository, nil
}

// AuditLogUseCase returns the audit trail use case decorated with business metrics.
func (c *Container) AuditLogUseCase() (authzUsecase.AuditLogUseCase, error) {
	c.auditLogUseCaseInit.Do(func() {
		repo, err := c.AuditLogRepository()
		if err != nil {
			c.setInitError("auditLogUseCase", fmt.Errorf("failed to get audit log repository for audit log use case: %w", err))
			return
		}
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			c.setInitError("auditLogUseCase", fmt.Errorf("failed to get business metrics for audit log use case: %w", err))
			return
		}

		var secret []byte
		if c.config.AuditSigningSecret != "" {
			secret = []byte(c.config.AuditSigningSecret)
		}
		baseUseCase := authzUsecase.NewAuditLogUseCase(repo, authzService.NewAuditSigner(), secret)
		c.auditLogUseCase = authzUsecase.NewAuditLogUseCaseWithMetrics(baseUseCase, businessMetrics)
	})
	if err := c.initError("auditLogUseCase"); err != nil {
		return nil, err
	}
	return c.auditLogUseCase, nil
}

// Authorizer returns the policy authorizer. Decisions are audited unless
// AUDIT_LOG_ENABLED is false.
func (c *Container) Authorizer() (authzUsecase.Authorizer, error) {
	c.authorizerInit.Do(func() {
		authorizer, err := c.initAuthorizer()
		if err != nil {
			c.setInitError("authorizer", err)
			return
		}
		c.authorizer = authorizer
	})
	if err := c.initError("authorizer"); err != nil {
		return nil, err
	}
	return c.authorizer, nil
}

func (c *Container) initAuthorizer() (authzUsecase.Authorizer, error) {
	table, err := c.PolicyTable()
	if err != nil {
		return nil, fmt.Errorf("failed to get policy table for authorizer: %w", err)
	}
	dir, err := c.Directory()
	if err != nil {
		return nil, fmt.Errorf("failed to get directory for authorizer: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for authorizer: %w", err)
	}

	var auditLogs authzUsecase.AuditLogUseCase
	if c.config.AuditLogEnabled {
		if auditLogs, err = c.AuditLogUseCase(); err != nil {
			return nil, fmt.Errorf("failed to get audit log use case for authorizer: %w", err)
		}
	}

	return authzUsecase.NewAuthorizer(table, dir, auditLogs, businessMetrics, c.Logger()), nil
}
