package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/payrelay/internal/obs"
)

// PoolConfig describes how the relay connects to the ledger database.
type PoolConfig struct {
	DatabaseURL string
	// ServiceRole, when set, is assumed with SET ROLE on every new connection.
	// It is expected to carry BYPASSRLS.
	ServiceRole     string
	ApplicationName string
}

// Connect opens and pings a traced pgx pool.
func Connect(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	appName := strings.TrimSpace(cfg.ApplicationName)
	if appName == "" {
		appName = "payrelay"
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = appName

	if role := strings.TrimSpace(cfg.ServiceRole); role != "" {
		stmt := "SET ROLE " + pgx.Identifier{role}.Sanitize()
		poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, stmt)
			return err
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
