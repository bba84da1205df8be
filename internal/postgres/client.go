package postgres

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type Client struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	config map[string]string
}

func NewClient(config map[string]string, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dsn := buildConnectionString(config)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
	}

	poolConfig.MaxConns = 4
	poolConfig.MinConns = 0
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	logger.Debug("Created Postgres pool",
		zap.String("host", config["host"]),
		zap.String("database", config["database"]))

	return &Client{
		pool:   pool,
		logger: logger,
		config: config,
	}, nil
}

func (c *Client) Close() {
	if c.pool != nil {
		c.pool.Close()
	}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

func (c *Client) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	return c.pool.Exec(ctx, sql, args...)
}

func (c *Client) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return c.pool.Query(ctx, sql, args...)
}

// GetColumns lists the columns of schema.table in ordinal order. A missing
// table yields no columns.
func (c *Client) GetColumns(ctx context.Context, schema, table string) ([]ColumnInfo, error) {
	query := `
		SELECT
			column_name,
			data_type,
			is_nullable,
			ordinal_position
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`

	rows, err := c.Query(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	var columns []ColumnInfo
	for rows.Next() {
		var col ColumnInfo
		if err := rows.Scan(&col.Name, &col.DataType, &col.IsNullable, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}

	return columns, nil
}

func buildConnectionString(config map[string]string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(config["username"], config["password"]),
		Host:   config["host"] + ":" + config["port"],
		Path:   "/" + config["database"],
	}

	q := url.Values{}
	if sslmode := config["sslmode"]; sslmode != "" {
		q.Set("sslmode", sslmode)
	}

	if connectTimeout := config["connect_timeout"]; connectTimeout != "" {
		// PostgreSQL wants whole seconds
		if duration, err := time.ParseDuration(connectTimeout); err == nil {
			q.Set("connect_timeout", fmt.Sprintf("%d", int(duration.Seconds())))
		}
	}

	u.RawQuery = q.Encode()
	return u.String()
}

type ColumnInfo struct {
	Name       string
	DataType   string
	IsNullable string
	Position   int
}
