// Package postgres stores links, QR codes and events in PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wadjakorntonsri/lnkzip/pkg/core/domain"
	"github.com/wadjakorntonsri/lnkzip/pkg/ports"
)

//go:embed migrations/*.sql
var migrations embed.FS

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(ctx context.Context, dbURL string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	r := &PostgresRepository{pool: pool}
	if err := r.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

func (r *PostgresRepository) migrate(ctx context.Context) error {
	files, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(files)

	for _, file := range files {
		sqlBytes, err := migrations.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if _, err := r.pool.Exec(ctx, string(sqlBytes)); err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
	}
	return nil
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// --- Short links ---

const linkColumns = `id, original_url, short_code, custom_alias, title, description, click_count, is_active, expires_at, user_id, created_at`

func (r *PostgresRepository) CreateLink(ctx context.Context, link *domain.ShortLink) error {
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}

	_, err := r.pool.Exec(ctx, `INSERT INTO urls (`+linkColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		link.ID, link.OriginalURL, link.ShortCode, link.CustomAlias, link.Title, link.Description,
		link.ClickCount, link.IsActive, link.ExpiresAt, link.UserID, link.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAliasConflict
		}
		return err
	}
	return nil
}

func (r *PostgresRepository) GetLinkByShortCode(ctx context.Context, code string) (*domain.ShortLink, error) {
	return scanLink(r.pool.QueryRow(ctx, `SELECT `+linkColumns+` FROM urls WHERE short_code = $1 LIMIT 1`, code))
}

func (r *PostgresRepository) GetActiveLink(ctx context.Context, code string, now time.Time) (*domain.ShortLink, error) {
	return scanLink(r.pool.QueryRow(ctx, `SELECT `+linkColumns+` FROM urls
		WHERE short_code = $1 AND is_active AND (expires_at IS NULL OR expires_at > $2)
		LIMIT 1`, code, now))
}

func (r *PostgresRepository) GetLinkByID(ctx context.Context, id string) (*domain.ShortLink, error) {
	return scanLink(r.pool.QueryRow(ctx, `SELECT `+linkColumns+` FROM urls WHERE id = $1`, id))
}

func (r *PostgresRepository) ListLinks(ctx context.Context, userID string, limit int) ([]domain.ShortLink, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+linkColumns+` FROM urls
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := []domain.ShortLink{}
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *l)
	}
	return links, rows.Err()
}

func (r *PostgresRepository) DeactivateLink(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE urls SET is_active = FALSE WHERE id = $1`, id)
	return err
}

func (r *PostgresRepository) DumpLinks(ctx context.Context) ([]domain.ShortLink, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+linkColumns+` FROM urls ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []domain.ShortLink
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *l)
	}
	return links, rows.Err()
}

func (r *PostgresRepository) RecordClick(ctx context.Context, click *domain.ClickEvent) error {
	if click.URLID == nil {
		return errors.New("click without url_id")
	}
	return r.recordEvent(ctx, click, `UPDATE urls SET click_count = click_count + 1 WHERE id = $1`, *click.URLID)
}

func (r *PostgresRepository) RecordScan(ctx context.Context, scan *domain.ClickEvent) error {
	if scan.QRCodeID == nil {
		return errors.New("scan without qr_code_id")
	}
	return r.recordEvent(ctx, scan, `UPDATE qr_codes SET scan_count = scan_count + 1 WHERE id = $1`, *scan.QRCodeID)
}

func (r *PostgresRepository) recordEvent(ctx context.Context, ev *domain.ClickEvent, increment, targetID string) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `INSERT INTO clicks (id, url_id, qr_code_id, "timestamp", ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.ID, ev.URLID, ev.QRCodeID, ev.Timestamp, ev.IPAddress, ev.UserAgent)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return domain.ErrNotFound
		}
		return err
	}

	tag, err := tx.Exec(ctx, increment, targetID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return tx.Commit(ctx)
}

func (r *PostgresRepository) GetLinkStats(ctx context.Context, linkID string) (*domain.LinkStats, []domain.AgentCount, error) {
	stats := &domain.LinkStats{DailyClicks: []domain.DailyClick{}}

	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM clicks WHERE url_id = $1`, linkID).Scan(&stats.TotalClicks); err != nil {
		return nil, nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT to_char("timestamp" AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS date, COUNT(*)
		FROM clicks
		WHERE url_id = $1
		GROUP BY date
		ORDER BY date DESC
		LIMIT 30`, linkID)
	if err != nil {
		return nil, nil, err
	}
	for rows.Next() {
		var dc domain.DailyClick
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			rows.Close()
			return nil, nil, err
		}
		stats.DailyClicks = append(stats.DailyClicks, dc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	agentRows, err := r.pool.Query(ctx, `
		SELECT COALESCE(user_agent, ''), COUNT(*)
		FROM clicks
		WHERE url_id = $1
		GROUP BY user_agent`, linkID)
	if err != nil {
		return nil, nil, err
	}
	defer agentRows.Close()

	var agents []domain.AgentCount
	for agentRows.Next() {
		var a domain.AgentCount
		if err := agentRows.Scan(&a.UserAgent, &a.Count); err != nil {
			return nil, nil, err
		}
		agents = append(agents, a)
	}
	return stats, agents, agentRows.Err()
}

// --- QR codes ---

const qrColumns = `id, title, qr_type, content, short_url, qr_color, bg_color, size, frame_style, scan_count, is_active, user_id, created_at, updated_at`

func (r *PostgresRepository) CreateQRCode(ctx context.Context, qr *domain.QRCode) error {
	if qr.ID == "" {
		qr.ID = uuid.NewString()
	}
	if qr.CreatedAt.IsZero() {
		qr.CreatedAt = time.Now()
	}
	if qr.UpdatedAt.IsZero() {
		qr.UpdatedAt = qr.CreatedAt
	}

	_, err := r.pool.Exec(ctx, `INSERT INTO qr_codes (`+qrColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		qr.ID, qr.Title, string(qr.QRType), qr.Content, qr.ShortURL, qr.QRColor, qr.BGColor, qr.Size,
		qr.FrameStyle, qr.ScanCount, qr.IsActive, qr.UserID, qr.CreatedAt, qr.UpdatedAt,
	)
	return err
}

func (r *PostgresRepository) GetQRCode(ctx context.Context, id string) (*domain.QRCode, error) {
	return scanQRCode(r.pool.QueryRow(ctx, `SELECT `+qrColumns+` FROM qr_codes WHERE id = $1`, id))
}

func (r *PostgresRepository) ListQRCodes(ctx context.Context, userID string, limit int) ([]domain.QRCode, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+qrColumns+` FROM qr_codes
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	codes := []domain.QRCode{}
	for rows.Next() {
		qr, err := scanQRCode(rows)
		if err != nil {
			return nil, err
		}
		codes = append(codes, *qr)
	}
	return codes, rows.Err()
}

// --- Dashboard & trials ---

func (r *PostgresRepository) GetSummary(ctx context.Context, userID string) (*domain.Summary, error) {
	var s domain.Summary
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(scan_count), 0)::BIGINT FROM qr_codes WHERE user_id = $1`, userID,
	).Scan(&s.QRCodes, &s.TotalScans)
	if err != nil {
		return nil, err
	}
	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(click_count), 0)::BIGINT FROM urls WHERE user_id = $1`, userID,
	).Scan(&s.ShortLinks, &s.TotalClicks)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PostgresRepository) GetFeatureTrial(ctx context.Context, userID, feature string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT trial_count FROM feature_trials WHERE user_id = $1 AND feature = $2`, userID, feature,
	).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return count, err
}

func (r *PostgresRepository) UseFeatureTrial(ctx context.Context, userID, feature string, max int) (bool, int, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO feature_trials (user_id, feature, trial_count) VALUES ($1, $2, 1)
		ON CONFLICT (user_id, feature) DO UPDATE SET trial_count = feature_trials.trial_count + 1
		WHERE feature_trials.trial_count < $3`, userID, feature, max)
	if err != nil {
		return false, 0, err
	}

	count, err := r.GetFeatureTrial(ctx, userID, feature)
	if err != nil {
		return false, 0, err
	}
	return tag.RowsAffected() > 0, count, nil
}

func scanLink(row pgx.Row) (*domain.ShortLink, error) {
	var l domain.ShortLink
	err := row.Scan(&l.ID, &l.OriginalURL, &l.ShortCode, &l.CustomAlias, &l.Title, &l.Description,
		&l.ClickCount, &l.IsActive, &l.ExpiresAt, &l.UserID, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func scanQRCode(row pgx.Row) (*domain.QRCode, error) {
	var (
		qr     domain.QRCode
		qrType string
	)
	err := row.Scan(&qr.ID, &qr.Title, &qrType, &qr.Content, &qr.ShortURL, &qr.QRColor, &qr.BGColor, &qr.Size,
		&qr.FrameStyle, &qr.ScanCount, &qr.IsActive, &qr.UserID, &qr.CreatedAt, &qr.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	qr.QRType = domain.QRType(qrType)
	return &qr, nil
}

// Ensure interface compliance
var _ ports.Repository = (*PostgresRepository)(nil)
