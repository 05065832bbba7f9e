// Package sqlite implements the traffic archive on an embedded SQLite
// database, preserving the legacy table layout of earlier deployments.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/statwatch-io/statwatch/internal/domain"
)

// legacyTimeLayout is the datetime text format the archive has always used.
const legacyTimeLayout = "2006-01-02 15:04:05"

const defaultRecentLimit = 100

var schema = []string{
	`CREATE TABLE IF NOT EXISTS StatRep_Data (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		datetime TEXT NOT NULL,
		callsign TEXT NOT NULL,
		groupname TEXT,
		grid TEXT,
		SRid TEXT,
		prec TEXT,
		status TEXT,
		commpwr TEXT,
		pubwtr TEXT,
		med TEXT,
		ota TEXT,
		trav TEXT,
		net TEXT,
		fuel TEXT,
		food TEXT,
		crime TEXT,
		civil TEXT,
		political TEXT,
		comments TEXT,
		source TEXT,
		frequency INTEGER
	)`,
	`CREATE INDEX IF NOT EXISTS idx_statrep_callsign ON StatRep_Data(callsign, datetime)`,
	`CREATE TABLE IF NOT EXISTS messages_Data (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		datetime TEXT NOT NULL,
		groupid TEXT,
		idnum TEXT,
		callsign TEXT NOT NULL,
		message TEXT,
		frequency INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS Alert_Data (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		datetime TEXT NOT NULL,
		callsign TEXT NOT NULL,
		groupid TEXT,
		severity INTEGER,
		title TEXT,
		message TEXT,
		frequency INTEGER
	)`,
}

// Open opens the archive database at path, creating the file if needed. The
// busy timeout covers the window where a Recent query overlaps an insert.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open archive database %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach archive database %s: %w", path, err)
	}
	return db, nil
}

// ArchiveRepository implements domain.ArchiveRepository on SQLite.
type ArchiveRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewArchiveRepository creates the repository and the legacy tables if they
// do not exist yet.
func NewArchiveRepository(db *sql.DB, logger *slog.Logger) (*ArchiveRepository, error) {
	repo := &ArchiveRepository{
		db:     db,
		logger: logger.With("component", "sqlite_archive"),
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(context.Background(), stmt); err != nil {
			return nil, fmt.Errorf("failed to create archive schema: %w", err)
		}
	}
	return repo, nil
}

// Save routes the record to the table matching its kind. A record whose
// (callsign, UTC minute, per-kind id) identity already exists is still
// inserted; Save reports it as a duplicate and leaves the policy to the
// caller.
func (r *ArchiveRepository) Save(ctx context.Context, rec *domain.Record) (bool, error) {
	switch rec.Kind {
	case domain.KindStatusReport, domain.KindForwardedReport,
		domain.KindCompactReport8, domain.KindCompactReport9:
		return r.saveStatusReport(ctx, rec)
	case domain.KindAlert:
		return r.saveAlert(ctx, rec)
	case domain.KindBulletin, domain.KindPlainMessage:
		return r.saveMessage(ctx, rec)
	default:
		return false, fmt.Errorf("no archive table for record kind %q", rec.Kind)
	}
}

func (r *ArchiveRepository) saveStatusReport(ctx context.Context, rec *domain.Record) (bool, error) {
	sr := rec.StatusReport
	if sr == nil {
		return false, fmt.Errorf("record of kind %q has no status report payload", rec.Kind)
	}
	datetime := rec.Timestamp.UTC().Format(legacyTimeLayout)
	c := sr.Conditions

	probe := `SELECT EXISTS(SELECT 1 FROM StatRep_Data WHERE callsign = ? AND substr(datetime, 1, 16) = ? AND SRid = ?)`
	probeArgs := []any{rec.Callsign(), datetime[:16], sr.ReportID}

	insert := `INSERT INTO StatRep_Data (
		datetime, callsign, groupname, grid, SRid, prec,
		status, commpwr, pubwtr, med, ota, trav, net,
		fuel, food, crime, civil, political, comments, source, frequency
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	insertArgs := []any{
		datetime, rec.Callsign(), rec.Group, string(sr.Grid), sr.ReportID, sr.Precedence,
		c.Overall, c.Power, c.Water, c.Medical, c.Comms, c.Travel, c.Internet,
		c.Fuel, c.Food, c.Crime, c.Civil, c.Political, sr.Comment, rec.Source, rec.Frequency,
	}

	return r.saveRow(ctx, probe, probeArgs, insert, insertArgs)
}

func (r *ArchiveRepository) saveMessage(ctx context.Context, rec *domain.Record) (bool, error) {
	msg := rec.Message
	if msg == nil {
		return false, fmt.Errorf("record of kind %q has no message payload", rec.Kind)
	}
	datetime := rec.Timestamp.UTC().Format(legacyTimeLayout)

	// Bulletins are keyed by their wire sequence, plain messages by the
	// time-letter record id. The idnum shape is what tells them apart later.
	idnum := rec.ID
	if rec.Kind == domain.KindBulletin {
		idnum = fmt.Sprintf("%03d", msg.BulletinSeq)
	}

	probe := `SELECT EXISTS(SELECT 1 FROM messages_Data WHERE callsign = ? AND substr(datetime, 1, 16) = ? AND idnum = ?)`
	probeArgs := []any{rec.From, datetime[:16], idnum}

	insert := `INSERT INTO messages_Data (datetime, groupid, idnum, callsign, message, frequency)
		VALUES (?, ?, ?, ?, ?, ?)`
	insertArgs := []any{datetime, rec.Group, idnum, rec.From, msg.Body, rec.Frequency}

	return r.saveRow(ctx, probe, probeArgs, insert, insertArgs)
}

func (r *ArchiveRepository) saveAlert(ctx context.Context, rec *domain.Record) (bool, error) {
	alert := rec.Alert
	if alert == nil {
		return false, fmt.Errorf("record of kind %q has no alert payload", rec.Kind)
	}
	datetime := rec.Timestamp.UTC().Format(legacyTimeLayout)

	probe := `SELECT EXISTS(SELECT 1 FROM Alert_Data WHERE callsign = ? AND substr(datetime, 1, 16) = ? AND title = ?)`
	probeArgs := []any{rec.From, datetime[:16], alert.Title}

	insert := `INSERT INTO Alert_Data (datetime, callsign, groupid, severity, title, message, frequency)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	insertArgs := []any{datetime, rec.From, domain.NormalizeGroup(alert.Target), alert.Severity, alert.Title, alert.Body, rec.Frequency}

	return r.saveRow(ctx, probe, probeArgs, insert, insertArgs)
}

// saveRow runs the duplicate probe and the insert in one transaction so a
// concurrent writer cannot slip between them.
func (r *ArchiveRepository) saveRow(ctx context.Context, probe string, probeArgs []any, insert string, insertArgs []any) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback() // Rollback is a no-op if Commit() is called

	var duplicate bool
	if err := tx.QueryRowContext(ctx, probe, probeArgs...).Scan(&duplicate); err != nil {
		return false, fmt.Errorf("duplicate probe failed: %w", err)
	}

	if _, err := tx.ExecContext(ctx, insert, insertArgs...); err != nil {
		return false, fmt.Errorf("archive insert failed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return duplicate, nil
}

// LastKnownGrid returns the most recent usable grid archived for a callsign.
func (r *ArchiveRepository) LastKnownGrid(ctx context.Context, callsign string) (domain.Locator, error) {
	query := `SELECT grid FROM StatRep_Data
		WHERE callsign = ? AND grid <> '' AND grid <> ?
		ORDER BY datetime DESC, id DESC LIMIT 1`

	var grid string
	err := r.db.QueryRowContext(ctx, query, callsign, string(domain.UnknownLocator)).Scan(&grid)
	if err == sql.ErrNoRows {
		return "", domain.ErrLookupUnavailable
	}
	if err != nil {
		return "", fmt.Errorf("last-known-grid query failed: %w", err)
	}
	return domain.Locator(grid), nil
}

// Recent returns archived entries, newest first. The four status-report
// kinds collapse into one family at this boundary: they share a table, and
// the entries come back with kind "statrep".
func (r *ArchiveRepository) Recent(ctx context.Context, filter domain.RecordFilter) ([]domain.ArchiveEntry, error) {
	var selects []string
	var args []any

	if wantsTable(filter.Kind, domain.KindStatusReport, domain.KindForwardedReport, domain.KindCompactReport8, domain.KindCompactReport9) {
		q, qargs := statrepSelect(filter)
		selects = append(selects, q)
		args = append(args, qargs...)
	}
	if wantsTable(filter.Kind, domain.KindPlainMessage, domain.KindBulletin) {
		q, qargs := messageSelect(filter)
		selects = append(selects, q)
		args = append(args, qargs...)
	}
	if wantsTable(filter.Kind, domain.KindAlert) {
		q, qargs := alertSelect(filter)
		selects = append(selects, q)
		args = append(args, qargs...)
	}
	if len(selects) == 0 {
		return nil, nil
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	query := `SELECT kind, datetime, callsign, grp, grid, status, body, frequency FROM (` +
		strings.Join(selects, " UNION ALL ") +
		`) ORDER BY datetime DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("recent query failed: %w", err)
	}
	defer rows.Close()

	var entries []domain.ArchiveEntry
	for rows.Next() {
		var e domain.ArchiveEntry
		var kind string
		if err := rows.Scan(&kind, &e.Datetime, &e.Callsign, &e.Group, &e.Grid, &e.Status, &e.Text, &e.Frequency); err != nil {
			return nil, fmt.Errorf("recent row scan failed: %w", err)
		}
		e.Kind = domain.VariantKind(kind)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// wantsTable reports whether the kind filter selects a table serving any of
// the given kinds. An empty filter selects everything.
func wantsTable(filter domain.VariantKind, kinds ...domain.VariantKind) bool {
	if filter == "" {
		return true
	}
	for _, k := range kinds {
		if filter == k {
			return true
		}
	}
	return false
}

func statrepSelect(filter domain.RecordFilter) (string, []any) {
	q := `SELECT 'statrep' AS kind, datetime, callsign,
		COALESCE(groupname, '') AS grp, COALESCE(grid, '') AS grid,
		COALESCE(status, '') AS status, COALESCE(comments, '') AS body,
		COALESCE(frequency, 0) AS frequency FROM StatRep_Data`
	conds, args := commonConds(filter, "groupname")
	return q + whereClause(conds), args
}

func messageSelect(filter domain.RecordFilter) (string, []any) {
	q := `SELECT CASE WHEN idnum GLOB '[0-9][0-9][0-9]' THEN 'bulletin' ELSE 'message' END AS kind,
		datetime, callsign, COALESCE(groupid, '') AS grp, '' AS grid, '' AS status,
		COALESCE(message, '') AS body, COALESCE(frequency, 0) AS frequency FROM messages_Data`
	conds, args := commonConds(filter, "groupid")
	switch filter.Kind {
	case domain.KindBulletin:
		conds = append(conds, `idnum GLOB '[0-9][0-9][0-9]'`)
	case domain.KindPlainMessage:
		conds = append(conds, `idnum NOT GLOB '[0-9][0-9][0-9]'`)
	}
	return q + whereClause(conds), args
}

func alertSelect(filter domain.RecordFilter) (string, []any) {
	q := `SELECT 'alert' AS kind, datetime, callsign, COALESCE(groupid, '') AS grp,
		'' AS grid, CAST(severity AS TEXT) AS status,
		title || ': ' || COALESCE(message, '') AS body,
		COALESCE(frequency, 0) AS frequency FROM Alert_Data`
	conds, args := commonConds(filter, "groupid")
	return q + whereClause(conds), args
}

func commonConds(filter domain.RecordFilter, groupCol string) ([]string, []any) {
	var conds []string
	var args []any
	if filter.Group != "" {
		conds = append(conds, groupCol+" = ?")
		args = append(args, domain.NormalizeGroup(filter.Group))
	}
	if filter.Callsign != "" {
		conds = append(conds, "callsign = ?")
		args = append(args, filter.Callsign)
	}
	return conds, args
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}
