package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"taeu.kr/storeadmin/internal/session"
)

var _ session.KV = (*SQLite)(nil)

// SQLite는 kv_entries 테이블 기반 KV
type SQLite struct {
	db  *sql.DB
	qb  sq.StatementBuilderType
	now func() time.Time
}

func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{
		db:  db,
		qb:  sq.StatementBuilder.PlaceholderFormat(sq.Question),
		now: time.Now,
	}
}

func (s *SQLite) Get(ctx context.Context, namespace, key string) (string, error) {
	query, args, err := s.qb.
		Select("value").
		From("kv_entries").
		Where(sq.Eq{"namespace": namespace, "key": key}).
		Where(sq.Or{sq.Eq{"expires_at": nil}, sq.Gt{"expires_at": s.now().Unix()}}).
		ToSql()
	if err != nil {
		return "", err
	}

	var value string
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

func (s *SQLite) Set(ctx context.Context, namespace, key, value string, ttl time.Duration) error {
	now := s.now()
	var expiresAt any
	if ttl > 0 {
		expiresAt = now.Add(ttl).Unix()
	}

	query, args, err := s.qb.
		Insert("kv_entries").
		Columns("namespace", "key", "value", "expires_at", "updated_at").
		Values(namespace, key, value, expiresAt, now.Unix()).
		Suffix("ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *SQLite) Delete(ctx context.Context, namespace string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	query, args, err := s.qb.
		Delete("kv_entries").
		Where(sq.Eq{"namespace": namespace, "key": keys}).
		ToSql()
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// PurgeExpired는 만료된 항목을 삭제하고 삭제 건수를 반환
func (s *SQLite) PurgeExpired(ctx context.Context) (int64, error) {
	query, args, err := s.qb.
		Delete("kv_entries").
		Where(sq.NotEq{"expires_at": nil}).
		Where(sq.LtOrEq{"expires_at": s.now().Unix()}).
		ToSql()
	if err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
