package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"windshare/internal/storage"
)

// NumberSequence issues sequential document numbers per tenant and document
// type. The sequence row is locked FOR UPDATE, so numbers issued inside the
// surrounding transaction are monotonic and gap-free once committed; this also
// serializes concurrent emissions for the same tenant.
type NumberSequence struct {
	prefixes map[string]string
}

// NewNumberSequence constructs a sequence issuer. Prefixes map document types
// to number prefixes; unknown types fall back to the type name.
func NewNumberSequence(prefixes map[string]string) *NumberSequence {
	return &NumberSequence{prefixes: prefixes}
}

// Next returns the next number for tenant+docType+year, formatted like
// "GS-2026-000042". Must run inside a transaction.
func (n *NumberSequence) Next(ctx context.Context, q storage.Querier, tenantID, docType string, year int) (string, error) {
	if n == nil || q == nil {
		return "", errors.New("number sequence: nil querier")
	}

	var current int64
	err := q.QueryRowContext(ctx, `
SELECT last_value
FROM document_number_sequences
WHERE tenant_id = $1 AND document_type = $2 AND year = $3
FOR UPDATE`, tenantID, docType, year).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		_, err = q.ExecContext(ctx, `
INSERT INTO document_number_sequences (tenant_id, document_type, year, last_value)
VALUES ($1, $2, $3, 0)
ON CONFLICT (tenant_id, document_type, year) DO NOTHING`, tenantID, docType, year)
		if err != nil {
			return "", err
		}
		err = q.QueryRowContext(ctx, `
SELECT last_value
FROM document_number_sequences
WHERE tenant_id = $1 AND document_type = $2 AND year = $3
FOR UPDATE`, tenantID, docType, year).Scan(&current)
	}
	if err != nil {
		return "", err
	}

	next := current + 1
	_, err = q.ExecContext(ctx, `
UPDATE document_number_sequences
SET last_value = $1
WHERE tenant_id = $2 AND document_type = $3 AND year = $4`, next, tenantID, docType, year)
	if err != nil {
		return "", err
	}

	prefix := n.prefixes[docType]
	if prefix == "" {
		prefix = docType
	}
	return fmt.Sprintf("%s-%d-%06d", prefix, year, next), nil
}
