package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/dnxsqw/physiq-bot/internal/config"
	"github.com/dnxsqw/physiq-bot/internal/logger"
	"github.com/dnxsqw/physiq-bot/internal/profile"
	"log/slog"
)

// PostgresStore persists profiles in a single profiles table. It satisfies
// the same contract as the file store; durability comes from the database
// instead of snapshot rewrites.
type PostgresStore struct {
	db *sqlx.DB
}

type profileRow struct {
	UserID           string         `db:"user_id"`
	Username         string         `db:"username"`
	FirstName        string         `db:"first_name"`
	LastName         string         `db:"last_name"`
	City             string         `db:"city"`
	School           string         `db:"school"`
	NormalizedSchool string         `db:"normalized_school"`
	Grade            string         `db:"grade"`
	Manuls           int            `db:"manuls"`
	Streak           int            `db:"streak"`
	Solved           int            `db:"solved"`
	Achievements     pq.StringArray `db:"achievements"`
}

func (r profileRow) toProfile() profile.Profile {
	return profile.Profile{
		UserID:           r.UserID,
		Username:         r.Username,
		FirstName:        r.FirstName,
		LastName:         r.LastName,
		City:             r.City,
		School:           r.School,
		NormalizedSchool: r.NormalizedSchool,
		Grade:            r.Grade,
		Manuls:           r.Manuls,
		Streak:           r.Streak,
		Solved:           r.Solved,
		Achievements:     append([]string{}, r.Achievements...),
	}.Clamp()
}

// ConnectPostgres opens the connection, configures the pool, and verifies
// connectivity.
func ConnectPostgres(cfg config.PostgresConfig) (*PostgresStore, error) {
	dsn := fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name, cfg.SSLMode,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	took := time.Since(start)
	if err != nil {
		logger.Store.Error("db connect failed",
			slog.String("event", "store.connect"),
			slog.String("backend", "postgres"),
			slog.String("host", cfg.Host),
			slog.String("port", cfg.Port),
			slog.String("db", cfg.Name),
			slog.Duration("duration", logger.RoundMS(took)),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections)

	logger.Store.Info("db connected",
		slog.String("event", "store.connect"),
		slog.String("backend", "postgres"),
		slog.String("host", cfg.Host),
		slog.String("port", cfg.Port),
		slog.String("db", cfg.Name),
		slog.Duration("duration", logger.RoundMS(took)),
	)

	return &PostgresStore{db: db}, nil
}

// Load is a no-op for the database backend; records stay in the table.
func (s *PostgresStore) Load(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Get returns the record for the user, reporting presence explicitly.
func (s *PostgresStore) Get(ctx context.Context, userID string) (profile.Profile, bool, error) {
	var row profileRow
	err := s.db.GetContext(ctx, &row, `
		SELECT user_id, username, first_name, last_name, city, school,
		       normalized_school, grade, manuls, streak, solved, achievements
		FROM profiles WHERE user_id = $1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return profile.Profile{}, false, nil
	}
	if err != nil {
		return profile.Profile{}, false, fmt.Errorf("select profile: %w", err)
	}
	return row.toProfile(), true, nil
}

// Upsert replaces any existing record for the user wholesale.
func (s *PostgresStore) Upsert(ctx context.Context, p profile.Profile) error {
	if p.UserID == "" {
		return fmt.Errorf("storage: empty user id")
	}
	p = p.Clamp()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, username, first_name, last_name, city,
		                      school, normalized_school, grade, manuls, streak,
		                      solved, achievements)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (user_id) DO UPDATE SET
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			city = EXCLUDED.city,
			school = EXCLUDED.school,
			normalized_school = EXCLUDED.normalized_school,
			grade = EXCLUDED.grade,
			manuls = EXCLUDED.manuls,
			streak = EXCLUDED.streak,
			solved = EXCLUDED.solved,
			achievements = EXCLUDED.achievements
	`, p.UserID, p.Username, p.FirstName, p.LastName, p.City,
		p.School, p.NormalizedSchool, p.Grade, p.Manuls, p.Streak,
		p.Solved, pq.Array(p.Achievements))
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// Delete removes a record if present; absent is a no-op.
func (s *PostgresStore) Delete(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}

// All returns every record, order unspecified.
func (s *PostgresStore) All(ctx context.Context) ([]profile.Profile, error) {
	var rows []profileRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT user_id, username, first_name, last_name, city, school,
		       normalized_school, grade, manuls, streak, solved, achievements
		FROM profiles
	`)
	if err != nil {
		return nil, fmt.Errorf("select profiles: %w", err)
	}
	out := make([]profile.Profile, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toProfile())
	}
	return out, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
