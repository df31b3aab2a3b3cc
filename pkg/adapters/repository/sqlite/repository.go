package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	"github.com/wadjakorntonsri/lnkzip/pkg/core/domain"
	"github.com/wadjakorntonsri/lnkzip/pkg/ports"
	_ "modernc.org/sqlite" // Local SQLite driver
)

// timestamps are stored as fixed-width UTC text so they sort and compare lexically
const timeLayout = "2006-01-02 15:04:05.000000"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbURL string) (*SQLiteRepository, error) {
	driverName := "sqlite"
	if strings.Contains(dbURL, "libsql://") || strings.Contains(dbURL, "wss://") {
		driverName = "libsql"
	}

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, err
	}

	// A local SQLite file accepts a single writer. Serializing on one connection keeps
	// concurrent click tracking from failing with SQLITE_BUSY.
	if driverName == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := migrate(db); err != nil {
		return nil, err
	}

	return &SQLiteRepository{db: db}, nil
}

func migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS urls (
		id TEXT PRIMARY KEY,
		original_url TEXT NOT NULL,
		short_code TEXT NOT NULL UNIQUE,
		custom_alias TEXT,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		click_count INTEGER NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		expires_at DATETIME,
		user_id TEXT,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_urls_user_id ON urls(user_id, created_at);

	CREATE TABLE IF NOT EXISTS qr_codes (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		qr_type TEXT NOT NULL DEFAULT 'url',
		content TEXT NOT NULL,
		short_url TEXT,
		qr_color TEXT NOT NULL DEFAULT '#3B82F6',
		bg_color TEXT NOT NULL DEFAULT '#FFFFFF',
		size INTEGER NOT NULL DEFAULT 256,
		frame_style TEXT NOT NULL DEFAULT 'none',
		scan_count INTEGER NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		user_id TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_qr_codes_user_id ON qr_codes(user_id, created_at);

	CREATE TABLE IF NOT EXISTS clicks (
		id TEXT PRIMARY KEY,
		url_id TEXT REFERENCES urls(id),
		qr_code_id TEXT REFERENCES qr_codes(id),
		timestamp DATETIME NOT NULL,
		ip_address TEXT,
		user_agent TEXT,
		CHECK ((url_id IS NULL) <> (qr_code_id IS NULL))
	);
	CREATE INDEX IF NOT EXISTS idx_clicks_url_id ON clicks(url_id);
	CREATE INDEX IF NOT EXISTS idx_clicks_qr_code_id ON clicks(qr_code_id);

	CREATE TABLE IF NOT EXISTS feature_trials (
		user_id TEXT NOT NULL,
		feature TEXT NOT NULL,
		trial_count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (user_id, feature)
	);
	`
	_, err := db.Exec(query)
	return err
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// --- Short links ---

const linkColumns = `id, original_url, short_code, custom_alias, title, description, click_count, is_active, expires_at, user_id, created_at`

func (r *SQLiteRepository) CreateLink(ctx context.Context, link *domain.ShortLink) error {
	query := `INSERT INTO urls (` + linkColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, query,
		link.ID, link.OriginalURL, link.ShortCode, link.CustomAlias, link.Title, link.Description,
		link.ClickCount, link.IsActive, formatNullTime(link.ExpiresAt), link.UserID, formatTime(link.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAliasConflict
		}
		return err
	}
	return nil
}

func (r *SQLiteRepository) GetLinkByShortCode(ctx context.Context, code string) (*domain.ShortLink, error) {
	query := `SELECT ` + linkColumns + ` FROM urls WHERE short_code = ? LIMIT 1`
	return scanLink(r.db.QueryRowContext(ctx, query, code))
}

func (r *SQLiteRepository) GetActiveLink(ctx context.Context, code string, now time.Time) (*domain.ShortLink, error) {
	query := `SELECT ` + linkColumns + ` FROM urls
			  WHERE short_code = ? AND is_active = 1 AND (expires_at IS NULL OR expires_at > ?)
			  LIMIT 1`
	return scanLink(r.db.QueryRowContext(ctx, query, code, formatTime(now)))
}

func (r *SQLiteRepository) GetLinkByID(ctx context.Context, id string) (*domain.ShortLink, error) {
	query := `SELECT ` + linkColumns + ` FROM urls WHERE id = ?`
	return scanLink(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteRepository) ListLinks(ctx context.Context, userID string, limit int) ([]domain.ShortLink, error) {
	query := `SELECT ` + linkColumns + ` FROM urls WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
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

func (r *SQLiteRepository) DeactivateLink(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE urls SET is_active = 0 WHERE id = ?`, id)
	return err
}

func (r *SQLiteRepository) DumpLinks(ctx context.Context) ([]domain.ShortLink, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+linkColumns+` FROM urls ORDER BY created_at`)
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

func (r *SQLiteRepository) RecordClick(ctx context.Context, click *domain.ClickEvent) error {
	if click.URLID == nil {
		return errors.New("click without url_id")
	}
	return r.recordEvent(ctx, click, `UPDATE urls SET click_count = click_count + 1 WHERE id = ?`, *click.URLID)
}

// recordEvent inserts the event and bumps the owning counter in one transaction,
// so the counter never moves without a matching event row.
func (r *SQLiteRepository) recordEvent(ctx context.Context, ev *domain.ClickEvent, increment string, targetID string) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// 1. Insert event record
	queryEvent := `INSERT INTO clicks (id, url_id, qr_code_id, timestamp, ip_address, user_agent) VALUES (?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, queryEvent, ev.ID, ev.URLID, ev.QRCodeID, formatTime(ev.Timestamp), ev.IPAddress, ev.UserAgent)
	if err != nil {
		return err
	}

	// 2. Increment counter (atomic, no read-modify-write)
	res, err := tx.ExecContext(ctx, increment, targetID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}

	return tx.Commit()
}

func (r *SQLiteRepository) GetLinkStats(ctx context.Context, linkID string) (*domain.LinkStats, []domain.AgentCount, error) {
	stats := &domain.LinkStats{
		DailyClicks: []domain.DailyClick{},
	}

	// Total Clicks
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clicks WHERE url_id = ?`, linkID).Scan(&stats.TotalClicks)
	if err != nil {
		return nil, nil, err
	}

	// Daily Clicks (Last 30 days with traffic)
	rows, err := r.db.QueryContext(ctx, `
		SELECT strftime('%Y-%m-%d', timestamp) AS date, COUNT(*)
		FROM clicks
		WHERE url_id = ?
		GROUP BY date
		ORDER BY date DESC
		LIMIT 30`, linkID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var dc domain.DailyClick
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, nil, err
		}
		stats.DailyClicks = append(stats.DailyClicks, dc)
	}
	rows.Close()

	agentRows, err := r.db.QueryContext(ctx, `
		SELECT COALESCE(user_agent, ''), COUNT(*)
		FROM clicks
		WHERE url_id = ?
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

func (r *SQLiteRepository) CreateQRCode(ctx context.Context, qr *domain.QRCode) error {
	query := `INSERT INTO qr_codes (` + qrColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if qr.ID == "" {
		qr.ID = uuid.NewString()
	}
	now := time.Now()
	if qr.CreatedAt.IsZero() {
		qr.CreatedAt = now
	}
	if qr.UpdatedAt.IsZero() {
		qr.UpdatedAt = qr.CreatedAt
	}

	_, err := r.db.ExecContext(ctx, query,
		qr.ID, qr.Title, string(qr.QRType), qr.Content, qr.ShortURL, qr.QRColor, qr.BGColor, qr.Size,
		qr.FrameStyle, qr.ScanCount, qr.IsActive, qr.UserID, formatTime(qr.CreatedAt), formatTime(qr.UpdatedAt),
	)
	return err
}

func (r *SQLiteRepository) GetQRCode(ctx context.Context, id string) (*domain.QRCode, error) {
	query := `SELECT ` + qrColumns + ` FROM qr_codes WHERE id = ?`
	return scanQRCode(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteRepository) ListQRCodes(ctx context.Context, userID string, limit int) ([]domain.QRCode, error) {
	query := `SELECT ` + qrColumns + ` FROM qr_codes WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
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

func (r *SQLiteRepository) RecordScan(ctx context.Context, scan *domain.ClickEvent) error {
	if scan.QRCodeID == nil {
		return errors.New("scan without qr_code_id")
	}
	return r.recordEvent(ctx, scan, `UPDATE qr_codes SET scan_count = scan_count + 1 WHERE id = ?`, *scan.QRCodeID)
}

// --- Dashboard & trials ---

func (r *SQLiteRepository) GetSummary(ctx context.Context, userID string) (*domain.Summary, error) {
	var s domain.Summary
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(scan_count), 0) FROM qr_codes WHERE user_id = ?`, userID,
	).Scan(&s.QRCodes, &s.TotalScans)
	if err != nil {
		return nil, err
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(click_count), 0) FROM urls WHERE user_id = ?`, userID,
	).Scan(&s.ShortLinks, &s.TotalClicks)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SQLiteRepository) GetFeatureTrial(ctx context.Context, userID, feature string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT trial_count FROM feature_trials WHERE user_id = ? AND feature = ?`, userID, feature,
	).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return count, err
}

func (r *SQLiteRepository) UseFeatureTrial(ctx context.Context, userID, feature string, max int) (bool, int, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO feature_trials (user_id, feature, trial_count) VALUES (?, ?, 1)
		ON CONFLICT (user_id, feature) DO UPDATE SET trial_count = trial_count + 1
		WHERE feature_trials.trial_count < ?`, userID, feature, max)
	if err != nil {
		return false, 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, 0, err
	}

	count, err := r.GetFeatureTrial(ctx, userID, feature)
	if err != nil {
		return false, 0, err
	}
	return n > 0, count, nil
}

// --- scanning helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (*domain.ShortLink, error) {
	var (
		l           domain.ShortLink
		customAlias sql.NullString
		userID      sql.NullString
		expiresAt   nullTime
		createdAt   nullTime
	)
	err := row.Scan(&l.ID, &l.OriginalURL, &l.ShortCode, &customAlias, &l.Title, &l.Description,
		&l.ClickCount, &l.IsActive, &expiresAt, &userID, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	l.CustomAlias = stringPtr(customAlias)
	l.UserID = stringPtr(userID)
	if expiresAt.Valid {
		l.ExpiresAt = &expiresAt.Time
	}
	l.CreatedAt = createdAt.Time
	return &l, nil
}

func scanQRCode(row rowScanner) (*domain.QRCode, error) {
	var (
		qr        domain.QRCode
		qrType    string
		shortURL  sql.NullString
		userID    sql.NullString
		createdAt nullTime
		updatedAt nullTime
	)
	err := row.Scan(&qr.ID, &qr.Title, &qrType, &qr.Content, &shortURL, &qr.QRColor, &qr.BGColor, &qr.Size,
		&qr.FrameStyle, &qr.ScanCount, &qr.IsActive, &userID, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	qr.QRType = domain.QRType(qrType)
	qr.ShortURL = stringPtr(shortURL)
	qr.UserID = stringPtr(userID)
	qr.CreatedAt = createdAt.Time
	qr.UpdatedAt = updatedAt.Time
	return &qr, nil
}

// nullTime accepts both driver-parsed times and raw text, since libsql hands back strings.
type nullTime struct {
	Time  time.Time
	Valid bool
}

var timeLayouts = []string{
	timeLayout,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

func (n *nullTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		n.Time, n.Valid = time.Time{}, false
		return nil
	case time.Time:
		n.Time, n.Valid = v.UTC(), true
		return nil
	case []byte:
		return n.parse(string(v))
	case string:
		return n.parse(v)
	}
	return fmt.Errorf("cannot scan %T into time", src)
}

func (n *nullTime) parse(s string) error {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			n.Time, n.Valid = t.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("unrecognized time %q", s)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Ensure interface compliance
var _ ports.Repository = (*SQLiteRepository)(nil)
