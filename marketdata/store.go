package marketdata

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // postgres driver
)

// PGStore reads CDS spread quotes from a Postgres table:
//
//	CREATE TABLE cds_quotes (
//	    quote_date  date             NOT NULL,
//	    entity      text             NOT NULL,
//	    tenor       text             NOT NULL,
//	    spread_bp   double precision NOT NULL,
//	    tenor_years double precision NOT NULL,
//	    PRIMARY KEY (quote_date, entity, tenor)
//	);
type PGStore struct {
	db     *sql.DB
	entity string
}

// OpenPGStore connects to Postgres and scopes the feed to one reference entity.
func OpenPGStore(dsn, entity string) (*PGStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("marketdata.OpenPGStore: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("marketdata.OpenPGStore: ping: %w", err)
	}
	return &PGStore{db: db, entity: entity}, nil
}

// QuotesOn returns the quote strip for the date, sorted by increasing tenor.
func (s *PGStore) QuotesOn(date time.Time) ([]Quote, bool) {
	rows, err := s.db.Query(
		`SELECT tenor, spread_bp
		   FROM cds_quotes
		  WHERE quote_date = $1 AND entity = $2
		  ORDER BY tenor_years`,
		date.Format("2006-01-02"), s.entity,
	)
	if err != nil {
		return nil, false
	}
	defer rows.Close()

	var quotes []Quote
	for rows.Next() {
		var q Quote
		if err := rows.Scan(&q.Tenor, &q.SpreadBP); err != nil {
			return nil, false
		}
		quotes = append(quotes, q)
	}
	if rows.Err() != nil || len(quotes) == 0 {
		return nil, false
	}
	return quotes, true
}

// Close releases the database connection pool.
func (s *PGStore) Close() error {
	return s.db.Close()
}
