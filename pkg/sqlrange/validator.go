package sqlrange

import (
	"database/sql"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"zrange/pkg/common"
	"zrange/pkg/geometry"
	"zrange/pkg/morton"
)

// Report compares what a range predicate selects with the exact answer.
type Report struct {
	// Candidates is the number of rows the predicate selected.
	Candidates int
	// Inside is the number of candidates from ranges flagged inside.
	Inside int
	// Matches is the number of candidates that lie in the shape.
	Matches int
	// Expected is the number of rows of the table that lie in the shape.
	Expected int
	// InsideMisses counts inside candidates outside the shape; always zero
	// for a correct range list.
	InsideMisses int
}

// Missed is the number of rows in the shape the predicate did not select.
func (r Report) Missed() int { return r.Expected - r.Matches }

// Validator holds a table of records in SQLite and runs range predicates
// against it.
type Validator struct {
	db     *sql.DB
	codec  *morton.Codec
	logger *zap.Logger
}

// NewValidator opens path, ":memory:" for a throwaway database, and creates
// the records table.
func NewValidator(path string, codec *morton.Codec, logger *zap.Logger) (*Validator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// an in-memory database lives as long as its connection
	db.SetMaxOpenConns(1)

	query := `
	CREATE TABLE IF NOT EXISTS records (
		mkey BLOB PRIMARY KEY,
		value BLOB
	) WITHOUT ROWID;`
	if _, err := db.Exec(query); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create records table")
	}
	return &Validator{db: db, codec: codec, logger: logger}, nil
}

// Load inserts records in one transaction.
func (v *Validator) Load(records []common.Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := v.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare("INSERT OR REPLACE INTO records (mkey, value) VALUES (?, ?)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.Exec(common.KeyBytes(rec.Key), rec.Value); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "insert %s", rec.Key.Dec())
		}
	}
	return tx.Commit()
}

// LoadPoints encodes and loads points with empty values.
func (v *Validator) LoadPoints(points [][]uint64) error {
	records := make([]common.Record, 0, len(points))
	for _, p := range points {
		k, err := v.codec.Encode(p)
		if err != nil {
			return err
		}
		records = append(records, common.Record{Key: k})
	}
	return v.Load(records)
}

func (v *Validator) Count() (int, error) {
	var n int
	err := v.db.QueryRow("SELECT COUNT(*) FROM records").Scan(&n)
	return n, err
}

// maxTerms bounds the ranges of one predicate. SQLite refuses expression
// trees 1000 levels deep, and every range adds one OR level.
const maxTerms = 500

// Select returns the keys the range predicate picks, in key order. Long
// range lists are run in chunks of maxTerms ranges.
func (v *Validator) Select(ranges []common.ZRange) ([]common.Key, error) {
	seen := make(map[common.Key]struct{})
	var keys []common.Key
	for len(ranges) > 0 {
		n := min(len(ranges), maxTerms)
		if err := v.selectChunk(ranges[:n], func(k common.Key) {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
		}); err != nil {
			return nil, err
		}
		ranges = ranges[n:]
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Lt(&keys[j]) })
	return keys, nil
}

func (v *Validator) selectChunk(ranges []common.ZRange, fn func(common.Key)) error {
	where, args := Where("mkey", ranges)
	rows, err := v.db.Query("SELECT mkey FROM records WHERE "+where, args...)
	if err != nil {
		return errors.Wrap(err, "select by ranges")
	}
	defer rows.Close()

	for rows.Next() {
		var b []byte
		if err := rows.Scan(&b); err != nil {
			return err
		}
		fn(common.KeyFromBytes(b))
	}
	return rows.Err()
}

// Validate runs the predicate for ranges and checks the selected rows, and
// the whole table, against shape.
func (v *Validator) Validate(shape geometry.Shape, ranges []common.ZRange) (Report, error) {
	var rep Report
	keys, err := v.Select(ranges)
	if err != nil {
		return rep, err
	}

	inside := make([]common.ZRange, 0, len(ranges))
	for _, r := range ranges {
		if r.Inside {
			inside = append(inside, r)
		}
	}

	rep.Candidates = len(keys)
	for _, k := range keys {
		in := geometry.ContainsPoint(shape, v.codec.Decode(k))
		if in {
			rep.Matches++
		}
		if containsKey(inside, k) {
			rep.Inside++
			if !in {
				rep.InsideMisses++
			}
		}
	}

	rows, err := v.db.Query("SELECT mkey FROM records")
	if err != nil {
		return rep, err
	}
	defer rows.Close()
	for rows.Next() {
		var b []byte
		if err := rows.Scan(&b); err != nil {
			return rep, err
		}
		if geometry.ContainsPoint(shape, v.codec.Decode(common.KeyFromBytes(b))) {
			rep.Expected++
		}
	}

	v.logger.Info("validated range predicate",
		zap.Int("ranges", len(ranges)),
		zap.Int("candidates", rep.Candidates),
		zap.Int("matches", rep.Matches),
		zap.Int("expected", rep.Expected),
		zap.Int("inside_misses", rep.InsideMisses))
	return rep, rows.Err()
}

func containsKey(ranges []common.ZRange, k common.Key) bool {
	for _, r := range ranges {
		if r.Contains(k) {
			return true
		}
	}
	return false
}

func (v *Validator) Truncate() error {
	_, err := v.db.Exec("DELETE FROM records")
	return err
}

func (v *Validator) Close() error {
	return v.db.Close()
}
