// Package postgres provides a pgx-backed implementation of the
// contentstore.Repository interface.
//
// Expected schema:
//
//	CREATE TABLE localized_records (
//	    kind        TEXT        NOT NULL,
//	    natural_key TEXT        NOT NULL,
//	    language    TEXT        NOT NULL,
//	    fields      JSONB       NOT NULL DEFAULT '{}',
//	    assets      JSONB       NOT NULL DEFAULT '{}',
//	    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    PRIMARY KEY (kind, natural_key, language)
//	);
//
// The composite primary key is what makes Upsert a true upsert: a second
// row for the same (kind, natural_key, language) triple cannot exist.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/duolang/contentstore/pkg/contentstore"
)

// Repository implements contentstore.Repository using PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewWithPool creates a repository using an existing connection pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const recordColumns = "kind, natural_key, language, fields, assets, created_at, updated_at"

func (r *Repository) GetByLanguage(ctx context.Context, kind contentstore.RecordKind, naturalKey string, lang contentstore.Language) (*contentstore.Record, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT "+recordColumns+" FROM localized_records WHERE kind = $1 AND natural_key = $2 AND language = $3",
		kind, naturalKey, lang)
	return scanRecord(row)
}

func (r *Repository) List(ctx context.Context, kind contentstore.RecordKind, lang contentstore.Language) ([]*contentstore.Record, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+recordColumns+" FROM localized_records WHERE kind = $1 AND language = $2 ORDER BY created_at DESC",
		kind, lang)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var result []*contentstore.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (r *Repository) Upsert(ctx context.Context, kind contentstore.RecordKind, naturalKey string, lang contentstore.Language, fields map[string]any, assets map[contentstore.SlotName]string) (*contentstore.Record, error) {
	fieldsJSON, err := marshalMap(fields)
	if err != nil {
		return nil, err
	}
	assetsJSON, err := marshalMap(assets)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO localized_records (kind, natural_key, language, fields, assets)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (kind, natural_key, language) DO UPDATE SET
			fields = localized_records.fields || EXCLUDED.fields,
			assets = localized_records.assets || EXCLUDED.assets,
			updated_at = now()
		RETURNING `+recordColumns,
		kind, naturalKey, lang, fieldsJSON, assetsJSON)
	return scanRecord(row)
}

func (r *Repository) SetAssetReference(ctx context.Context, kind contentstore.RecordKind, naturalKey string, lang contentstore.Language, slot contentstore.SlotName, reference string) (*contentstore.Record, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE localized_records
		SET assets = jsonb_set(assets, ARRAY[$4], to_jsonb($5::text)),
		    updated_at = now()
		WHERE kind = $1 AND natural_key = $2 AND language = $3
		RETURNING `+recordColumns,
		kind, naturalKey, lang, string(slot), reference)
	return scanRecord(row)
}

func (r *Repository) DeleteCascade(ctx context.Context, kind contentstore.RecordKind, naturalKey string) ([]contentstore.DeletedAsset, error) {
	rows, err := r.pool.Query(ctx,
		"DELETE FROM localized_records WHERE kind = $1 AND natural_key = $2 RETURNING language, assets",
		kind, naturalKey)
	if err != nil {
		return nil, fmt.Errorf("failed to delete records: %w", err)
	}
	defer rows.Close()

	var deleted []contentstore.DeletedAsset
	for rows.Next() {
		var lang contentstore.Language
		var assetsJSON []byte
		if err := rows.Scan(&lang, &assetsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan deleted record: %w", err)
		}
		assets := make(map[contentstore.SlotName]string)
		if len(assetsJSON) > 0 {
			if err := json.Unmarshal(assetsJSON, &assets); err != nil {
				return nil, fmt.Errorf("failed to decode assets: %w", err)
			}
		}
		for slot, ref := range assets {
			if ref == "" {
				continue
			}
			deleted = append(deleted, contentstore.DeletedAsset{
				Kind:       kind,
				NaturalKey: naturalKey,
				Language:   lang,
				Slot:       slot,
				Reference:  ref,
			})
		}
	}
	return deleted, rows.Err()
}

func marshalMap[M ~map[string]any | ~map[contentstore.SlotName]string](m M) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record payload: %w", err)
	}
	return data, nil
}

func scanRecord(row pgx.Row) (*contentstore.Record, error) {
	var rec contentstore.Record
	var fieldsJSON, assetsJSON []byte
	err := row.Scan(&rec.Kind, &rec.NaturalKey, &rec.Language, &fieldsJSON, &assetsJSON, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contentstore.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to scan record: %w", err)
	}
	rec.Fields = make(map[string]any)
	if len(fieldsJSON) > 0 {
		if err := json.Unmarshal(fieldsJSON, &rec.Fields); err != nil {
			return nil, fmt.Errorf("failed to decode fields: %w", err)
		}
	}
	rec.Assets = make(map[contentstore.SlotName]string)
	if len(assetsJSON) > 0 {
		if err := json.Unmarshal(assetsJSON, &rec.Assets); err != nil {
			return nil, fmt.Errorf("failed to decode assets: %w", err)
		}
	}
	return &rec, nil
}
