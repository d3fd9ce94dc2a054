// internal/callback/store.go
//
// MySQL persistence for callback requests.
//
// Save follows the collaborator contract used by the submission handler:
//
//   • (true,  nil) – the row was written.
//   • (false, nil) – the database rejected the write.  The cause is logged
//                    here and never shown to the visitor.
//   • (_,     err) – the store itself is unusable (e.g. no connection pool),
//                    which the handler escalates to a generic 500.

package callback

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/onatrix/internal/logger"
)

// ErrNoDB is returned by Save on a Store without a database handle.
var ErrNoDB = errors.New("callback store: no database")

const insertSQL = `
INSERT INTO callback_request
	(name, email, phone, selected_option, policy, client_ip, country, browser, device, submitted_at)
VALUES
	(:name, :email, :phone, :selected_option, :policy, :client_ip, :country, :browser, :device, :submitted_at)`

// Store writes Requests to the callback_request table.
type Store struct {
	db *sqlx.DB
}

// NewStore wraps db.
func NewStore(db *sqlx.DB) *Store { return &Store{db: db} }

// Save inserts rec and sets rec.ID on success.
func (s *Store) Save(ctx context.Context, rec *Request) (bool, error) {
	if s == nil || s.db == nil {
		return false, ErrNoDB
	}
	log := logger.FromContext(ctx)

	res, err := s.db.NamedExecContext(ctx, insertSQL, rec)
	if err != nil {
		log.Errorw("callback save failed", "err", err)
		return false, nil
	}
	if id, err := res.LastInsertId(); err == nil {
		rec.ID = id
	}
	log.Infow("callback saved", "id", rec.ID, "option", rec.SelectedOption, "policy", rec.Policy)
	return true, nil
}

// Name implements database.Migrator.
func (s *Store) Name() string { return "callback" }

// Migrations implements database.Migrator.  Every statement runs on each
// boot, so each one is idempotent.  Posted values are bounded by the policy
// and the body limit, not by the column width.
func (s *Store) Migrations() []string {
	return []string{`
CREATE TABLE IF NOT EXISTS callback_request (
	id              BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
	name            TEXT            NOT NULL,
	email           TEXT            NOT NULL,
	phone           TEXT            NOT NULL,
	selected_option TEXT            NOT NULL,
	policy          VARCHAR(64)     NOT NULL,
	client_ip       VARCHAR(45)     NOT NULL DEFAULT '',
	country         CHAR(2)         NOT NULL DEFAULT '',
	browser         VARCHAR(64)     NOT NULL DEFAULT '',
	device          VARCHAR(32)     NOT NULL DEFAULT '',
	submitted_at    DATETIME(6)     NOT NULL,
	PRIMARY KEY (id),
	KEY idx_callback_submitted (submitted_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`, `
ALTER TABLE callback_request
	MODIFY name            TEXT NOT NULL,
	MODIFY email           TEXT NOT NULL,
	MODIFY phone           TEXT NOT NULL,
	MODIFY selected_option TEXT NOT NULL`}
}
