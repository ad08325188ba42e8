package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE TABLE IF NOT EXISTS bars (
	symbol  TEXT             NOT NULL,
	ts      TIMESTAMPTZ      NOT NULL,
	open    DOUBLE PRECISION NOT NULL,
	high    DOUBLE PRECISION NOT NULL,
	low     DOUBLE PRECISION NOT NULL,
	close   DOUBLE PRECISION NOT NULL,
	volume  DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (symbol, ts)
);

CREATE TABLE IF NOT EXISTS backtest_results (
	run_id                  TEXT             NOT NULL,
	symbol                  TEXT             NOT NULL,
	trade_count             INTEGER          NOT NULL,
	win_rate_pct            DOUBLE PRECISION NOT NULL,
	profit_factor           DOUBLE PRECISION NOT NULL,
	prediction_accuracy_pct DOUBLE PRECISION NOT NULL,
	total_return_pct        DOUBLE PRECISION NOT NULL,
	detail                  JSONB            NOT NULL,
	created_at              TIMESTAMPTZ      NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, symbol)
);
`

// EnsureSchema creates the tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
