package sink

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"handshakewatch/internal/logger"
	"handshakewatch/internal/models"
)

const DefaultTable = "handshake_latency"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// MySQL stores every measurement as one row.
type MySQL struct {
	db     *sql.DB
	insert string
}

// OpenMySQL connects, pings and creates the table if needed.
func OpenMySQL(ctx context.Context, dsn, table string) (*MySQL, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name: %q", table)
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach mysql: %w", err)
	}

	if _, err := db.ExecContext(ctx, createTableQuery(table)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", table, err)
	}

	logger.Info("Connected to MySQL sink", "table", table)

	return &MySQL{db: db, insert: insertQuery(table)}, nil
}

func (s *MySQL) Write(m models.HandshakeMeasurement) error {
	observed := m.ObservedAt
	if observed.IsZero() {
		observed = time.Now()
	}
	if _, err := s.db.Exec(s.insert, m.ServerAddress, m.LatencySeconds, observed); err != nil {
		return fmt.Errorf("failed to insert measurement: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *MySQL) Close() error {
	return s.db.Close()
}

func createTableQuery(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	server_ip VARCHAR(15) NOT NULL,
	latency_seconds DOUBLE NOT NULL,
	observed_at DATETIME(6) NOT NULL,
	INDEX idx_server_ip (server_ip)
)`, table)
}

func insertQuery(table string) string {
	return fmt.Sprintf("INSERT INTO %s (server_ip, latency_seconds, observed_at) VALUES (?, ?, ?)", table)
}
