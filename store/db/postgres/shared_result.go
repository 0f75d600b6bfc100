package postgres

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/Drgblack/timemeaning/store"
)

func (d *DB) UpsertSharedResult(ctx context.Context, upsert *store.SharedResult) (*store.SharedResult, error) {
	stmt := `INSERT INTO shared_result (id, content_hash, payload, markdown, created_ts, expires_ts)
		VALUES (` + placeholders(6) + `)
		ON CONFLICT (content_hash) DO UPDATE SET
			payload = EXCLUDED.payload,
			markdown = EXCLUDED.markdown,
			expires_ts = EXCLUDED.expires_ts
		RETURNING id, content_hash, payload, markdown, created_ts, expires_ts`

	result := &store.SharedResult{}
	var payload string
	if err := d.db.QueryRowContext(ctx, stmt,
		upsert.ID, upsert.ContentHash, string(upsert.Payload), upsert.Markdown, upsert.CreatedTs, upsert.ExpiresTs,
	).Scan(
		&result.ID,
		&result.ContentHash,
		&payload,
		&result.Markdown,
		&result.CreatedTs,
		&result.ExpiresTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to upsert shared_result")
	}
	result.Payload = []byte(payload)
	return result, nil
}

func (d *DB) ListSharedResults(ctx context.Context, find *store.FindSharedResult) ([]*store.SharedResult, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.ContentHash; v != nil {
		where, args = append(where, "content_hash = "+placeholder(len(args)+1)), append(args, *v)
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, content_hash, payload, markdown, created_ts, expires_ts
		FROM shared_result
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY created_ts DESC`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list shared_result")
	}
	defer rows.Close()

	list := []*store.SharedResult{}
	for rows.Next() {
		result := &store.SharedResult{}
		var payload string
		if err := rows.Scan(
			&result.ID,
			&result.ContentHash,
			&payload,
			&result.Markdown,
			&result.CreatedTs,
			&result.ExpiresTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan shared_result")
		}
		result.Payload = []byte(payload)
		list = append(list, result)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) DeleteSharedResult(ctx context.Context, delete *store.DeleteSharedResult) (int64, error) {
	where, args := []string{}, []any{}
	if v := delete.ID; v != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := delete.ExpiredBefore; v != nil {
		where, args = append(where, "expires_ts > 0 AND expires_ts <= "+placeholder(len(args)+1)), append(args, *v)
	}
	if len(where) == 0 {
		return 0, errors.New("delete shared_result requires a filter")
	}

	result, err := d.db.ExecContext(ctx, "DELETE FROM shared_result WHERE "+strings.Join(where, " AND "), args...)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete shared_result")
	}
	return result.RowsAffected()
}
