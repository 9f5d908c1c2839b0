/*-------------------------------------------------------------------------
 *
 * connection.go
 *    Database connection management for fernlabs-api
 *
 * Provides PostgreSQL connection pooling, retry logic, and connection
 * management with health checks.
 *
 * Copyright (c) 2024-2026, fernlabs, Inc. <support@fernlabs.ai>
 *
 * IDENTIFICATION
 *    fernlabs-api/internal/db/connection.go
 *
 *-------------------------------------------------------------------------
 */

package db

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/nmkridler/fernlabs-api/internal/metrics"
)

/* ConnectionInfo holds details about the database connection */
type ConnectionInfo struct {
	Host     string
	Port     string
	Database string
	User     string
}

/* DB manages PostgreSQL connections */
type DB struct {
	*sqlx.DB
	poolConfig PoolConfig
	connInfo   *ConnectionInfo
}

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

/* NewDB creates a new database instance */
func NewDB(connStr string, poolConfig PoolConfig) (*DB, error) {
	return NewDBWithRetry(connStr, poolConfig, 3, 2*time.Second)
}

/* NewDBWithRetry creates a new database instance with retry logic */
func NewDBWithRetry(connStr string, poolConfig PoolConfig, maxRetries int, retryDelay time.Duration) (*DB, error) {
	connInfo := parseConnectionInfo(connStr)

	var db *sqlx.DB
	var err error

	for attempt := 0; attempt < maxRetries; attempt++ {
		db, err = sqlx.Connect("postgres", connStr)
		if err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			pingErr := db.PingContext(ctx)
			cancel()
			if pingErr == nil {
				db.SetMaxOpenConns(poolConfig.MaxOpenConns)
				db.SetMaxIdleConns(poolConfig.MaxIdleConns)
				db.SetConnMaxLifetime(poolConfig.ConnMaxLifetime)
				db.SetConnMaxIdleTime(poolConfig.ConnMaxIdleTime)

				metrics.InfoWithContext(context.Background(), "Database connection established", map[string]interface{}{
					"attempt":    attempt + 1,
					"connection": connInfo.Host,
					"database":   connInfo.Database,
				})

				return &DB{
					DB:         db,
					poolConfig: poolConfig,
					connInfo:   connInfo,
				}, nil
			}
			db.Close()
			err = pingErr
		}

		if attempt < maxRetries-1 {
			metrics.WarnWithContext(context.Background(), "Database connection failed, will retry", map[string]interface{}{
				"attempt":     attempt + 1,
				"max_retries": maxRetries,
				"error":       err.Error(),
				"connection":  connInfo.Host,
			})
			delay := retryDelay
			/* Add jitter to prevent thundering herd on shared restarts */
			jitter := float64(delay) * 0.25
			delay += time.Duration(jitter * (rand.Float64()*2 - 1))
			time.Sleep(delay)
			retryDelay *= 2
		}
	}

	return nil, fmt.Errorf("database connection failed after %d attempts: host='%s', database='%s', error=%w",
		maxRetries, connInfo.Host, connInfo.Database, err)
}

/* HealthCheck pings the database */
func (d *DB) HealthCheck(ctx context.Context) error {
	if err := d.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: host='%s', error=%w", d.connInfo.Host, err)
	}
	return nil
}

/* ConnInfo returns a printable connection identity for error context */
func (d *DB) ConnInfo() string {
	return fmt.Sprintf("%s:%s/%s", d.connInfo.Host, d.connInfo.Port, d.connInfo.Database)
}

/* parseConnectionInfo extracts host/port/db/user from a connection string
 * for log and error context. Both URL and key=value forms are handled
 * loosely; unparseable parts stay empty. */
func parseConnectionInfo(connStr string) *ConnectionInfo {
	info := &ConnectionInfo{Host: "localhost", Port: "5432"}

	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		rest := connStr[strings.Index(connStr, "://")+3:]
		if at := strings.LastIndex(rest, "@"); at >= 0 {
			info.User = strings.SplitN(rest[:at], ":", 2)[0]
			rest = rest[at+1:]
		}
		if slash := strings.Index(rest, "/"); slash >= 0 {
			hostPort := rest[:slash]
			dbName := rest[slash+1:]
			if q := strings.Index(dbName, "?"); q >= 0 {
				dbName = dbName[:q]
			}
			info.Database = dbName
			if colon := strings.Index(hostPort, ":"); colon >= 0 {
				info.Host = hostPort[:colon]
				info.Port = hostPort[colon+1:]
			} else if hostPort != "" {
				info.Host = hostPort
			}
		}
		return info
	}

	for _, field := range strings.Fields(connStr) {
		parts := strings.SplitN(field, "=", 2)
		if len(parts) != 2 {
			continue
		}
		switch parts[0] {
		case "host":
			info.Host = parts[1]
		case "port":
			info.Port = parts[1]
		case "dbname":
			info.Database = parts[1]
		case "user":
			info.User = parts[1]
		}
	}
	return info
}
