package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/beentity/internal/ir"
)

// validIdentifier matches attribute names usable in a JSON path.
// Criteria keys are interpolated into json_extract paths, so they must be checked.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type storedRow struct {
	id    string
	attrs ir.IRObject
}

// writeEntity upserts one entity inside a flush transaction.
func (s *Store) writeEntity(ctx context.Context, tx *sql.Tx, e Entity) error {
	attrs, err := e.Attributes()
	if err != nil {
		return fmt.Errorf("attributes of %s %s: %w", e.Kind(), e.Key(), err)
	}
	data, err := ir.MarshalCanonical(attrs)
	if err != nil {
		return fmt.Errorf("marshal %s %s: %w", e.Kind(), e.Key(), err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO entities (id, kind, attributes, revision)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			attributes = excluded.attributes,
			revision = excluded.revision
	`, e.Key(), e.Kind(), string(data), s.clock.Next())
	if err != nil {
		return fmt.Errorf("write %s %s: %w", e.Kind(), e.Key(), err)
	}
	return nil
}

// queryKind returns committed rows of a kind matching the criteria,
// ordered by revision then id.
//
// Scalar criteria are pushed into SQL through json_extract. Composite values
// cannot be compared there, so every row is re-checked against the full
// criteria after decoding.
func (s *Store) queryKind(ctx context.Context, kind string, criteria ir.IRObject) ([]storedRow, error) {
	query, args, err := buildKindQuery(kind, criteria)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var result []storedRow
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		var attrs ir.IRObject
		if err := json.Unmarshal([]byte(raw), &attrs); err != nil {
			return nil, fmt.Errorf("decode %s: %w", id, err)
		}
		if !matchCriteria(attrs, criteria) {
			continue
		}
		result = append(result, storedRow{id: id, attrs: attrs})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return result, nil
}

// buildKindQuery builds the SELECT for queryKind.
func buildKindQuery(kind string, criteria ir.IRObject) (string, []any, error) {
	clauses := []string{"kind = ?"}
	args := []any{kind}

	for _, key := range criteria.SortedKeys() {
		if !validIdentifier.MatchString(key) {
			return "", nil, fmt.Errorf("invalid criteria key %q: must match pattern %s", key, validIdentifier.String())
		}
		path := fmt.Sprintf("json_extract(attributes, '$.%s')", key)

		switch v := criteria[key].(type) {
		case ir.IRString:
			clauses = append(clauses, path+" = ?")
			args = append(args, string(v))
		case ir.IRInt:
			clauses = append(clauses, path+" = ?")
			args = append(args, int64(v))
		case ir.IRBool:
			// json_extract returns 1 or 0 for JSON booleans.
			clauses = append(clauses, path+" = ?")
			if v {
				args = append(args, 1)
			} else {
				args = append(args, 0)
			}
		case ir.IRNull, nil:
			clauses = append(clauses, path+" IS NULL")
		}
	}

	query := "SELECT id, attributes FROM entities WHERE " +
		strings.Join(clauses, " AND ") +
		" ORDER BY revision ASC, id ASC"
	return query, args, nil
}
