package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/lherron/recmerge/internal/domain"
	"github.com/lherron/recmerge/internal/events"
	"github.com/lherron/recmerge/internal/record"
)

// ErrNotFound is returned when no record is stored under a uri.
var ErrNotFound = errors.New("record not found")

// RecordStore handles record persistence operations.
type RecordStore struct {
	store *Store
}

// PutResult contains the result of storing a record.
type PutResult struct {
	URI         string `json:"uri"`
	LockVersion int64  `json:"lock_version"`
	Created     bool   `json:"created"`
}

// Link is one reference from a stored record to another uri.
type Link struct {
	SourceURI string `json:"source_uri"`
	TargetURI string `json:"target_uri"`
	Path      string `json:"path"`
}

// AssimilateResult describes what an assimilate changed.
type AssimilateResult struct {
	Target    string   `json:"target"`
	Victims   []string `json:"victims"`
	Repointed []string `json:"repointed,omitempty"`
	Updated   bool     `json:"updated"`
}

// Put inserts or replaces a record keyed by its uri and logs a
// record.created or record.updated event.
func (rs *RecordStore) Put(rec record.Record) (*PutResult, error) {
	ref, err := domain.ParseReference(rec.URI())
	if err != nil {
		return nil, fmt.Errorf("failed to store record: %w", err)
	}

	var result *PutResult
	err = rs.store.withTx(func(tx *sql.Tx, ew *events.Writer) error {
		res, err := putRecord(tx, ref, rec)
		if err != nil {
			return err
		}
		result = res
		if res.Created {
			return ew.LogRecordCreated(tx, ref.URI, ref.Type)
		}
		return ew.LogRecordUpdated(tx, ref.URI, res.LockVersion)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Get loads the record stored under uri.
func (rs *RecordStore) Get(uri string) (record.Record, error) {
	return getRecord(rs.store.db, uri)
}

// Delete removes the record stored under uri along with its outbound links.
func (rs *RecordStore) Delete(uri string) error {
	return rs.store.withTx(func(tx *sql.Tx, ew *events.Writer) error {
		res, err := tx.Exec("DELETE FROM records WHERE uri = ?", uri)
		if err != nil {
			return fmt.Errorf("failed to delete record: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to delete record: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, uri)
		}
		return ew.LogRecordDeleted(tx, uri)
	})
}

// Links lists the stored references pointing at targetURI.
func (rs *RecordStore) Links(targetURI string) ([]Link, error) {
	rows, err := rs.store.db.Query(`
		SELECT source_uri, target_uri, json_path
		FROM record_links
		WHERE target_uri = ?
		ORDER BY source_uri, json_path
	`, targetURI)
	if err != nil {
		return nil, fmt.Errorf("failed to query links: %w", err)
	}
	defer rows.Close()

	var links []Link
	for rows.Next() {
		var l Link
		if err := rows.Scan(&l.SourceURI, &l.TargetURI, &l.Path); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// Assimilate folds the victims into the target: every stored reference to a
// victim is rewritten to the target and the victims are deleted.
func (rs *RecordStore) Assimilate(targetURI string, victimURIs []string) (*AssimilateResult, error) {
	return rs.AssimilateAndUpdate(targetURI, victimURIs, nil)
}

// AssimilateAndUpdate is Assimilate plus replacement of the target's content
// with updated, all in one transaction. A nil updated leaves the target as
// stored.
func (rs *RecordStore) AssimilateAndUpdate(targetURI string, victimURIs []string, updated record.Record) (*AssimilateResult, error) {
	targetRef, err := domain.ParseReference(targetURI)
	if err != nil {
		return nil, fmt.Errorf("failed to assimilate: %w", err)
	}
	if updated != nil && updated.URI() != "" && updated.URI() != targetURI {
		return nil, fmt.Errorf("failed to assimilate: updated record %s is not the target %s", updated.URI(), targetURI)
	}

	result := &AssimilateResult{Target: targetURI, Victims: victimURIs}
	err = rs.store.withTx(func(tx *sql.Tx, ew *events.Writer) error {
		if err := requireRecord(tx, targetURI); err != nil {
			return err
		}
		isVictim := make(map[string]bool, len(victimURIs))
		for _, v := range victimURIs {
			if v == targetURI {
				return fmt.Errorf("cannot assimilate %s into itself", v)
			}
			if err := requireRecord(tx, v); err != nil {
				return err
			}
			isVictim[v] = true
		}

		if updated != nil {
			for _, v := range victimURIs {
				updated.RewriteRefs(v, targetURI)
			}
			res, err := putRecord(tx, targetRef, updated)
			if err != nil {
				return err
			}
			if err := ew.LogRecordUpdated(tx, targetURI, res.LockVersion); err != nil {
				return err
			}
			result.Updated = true
		}

		perVictim := make(map[string]int, len(victimURIs))
		sources, err := linkingSources(tx, victimURIs, perVictim)
		if err != nil {
			return err
		}
		for _, src := range sources {
			if isVictim[src] {
				continue
			}
			changed, err := repoint(tx, ew, src, victimURIs, targetURI)
			if err != nil {
				return err
			}
			if changed {
				result.Repointed = append(result.Repointed, src)
			}
		}

		for _, v := range victimURIs {
			if _, err := tx.Exec("DELETE FROM records WHERE uri = ?", v); err != nil {
				return fmt.Errorf("failed to delete %s: %w", v, err)
			}
			if err := ew.LogRecordAssimilated(tx, v, targetURI, perVictim[v]); err != nil {
				return err
			}
		}
		return ew.LogRecordMerged(tx, targetURI, victimURIs, result.Updated)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// linkingSources returns the distinct records referencing any victim, and
// counts the referencing records per victim into counts.
func linkingSources(tx *sql.Tx, victimURIs []string, counts map[string]int) ([]string, error) {
	seen := map[string]bool{}
	for _, v := range victimURIs {
		rows, err := tx.Query("SELECT DISTINCT source_uri FROM record_links WHERE target_uri = ?", v)
		if err != nil {
			return nil, fmt.Errorf("failed to query links to %s: %w", v, err)
		}
		for rows.Next() {
			var src string
			if err := rows.Scan(&src); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan link: %w", err)
			}
			seen[src] = true
			counts[v]++
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}

	sources := make([]string, 0, len(seen))
	for src := range seen {
		sources = append(sources, src)
	}
	sort.Strings(sources)
	return sources, nil
}

// repoint rewrites src's references to any victim so they name the target.
func repoint(tx *sql.Tx, ew *events.Writer, src string, victimURIs []string, targetURI string) (bool, error) {
	rec, err := getRecord(tx, src)
	if err != nil {
		return false, err
	}
	n := 0
	for _, v := range victimURIs {
		n += rec.RewriteRefs(v, targetURI)
	}
	if n == 0 {
		return false, nil
	}

	ref, err := domain.ParseReference(src)
	if err != nil {
		return false, fmt.Errorf("failed to repoint %s: %w", src, err)
	}
	res, err := putRecord(tx, ref, rec)
	if err != nil {
		return false, err
	}
	return true, ew.LogRecordUpdated(tx, src, res.LockVersion)
}

type queryer interface {
	QueryRow(query string, args ...interface{}) *sql.Row
}

func getRecord(q queryer, uri string) (record.Record, error) {
	var data string
	err := q.QueryRow("SELECT json FROM records WHERE uri = ?", uri).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, uri)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", uri, err)
	}
	rec, err := record.Decode([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", uri, err)
	}
	return rec, nil
}

func requireRecord(tx *sql.Tx, uri string) error {
	var one int
	err := tx.QueryRow("SELECT 1 FROM records WHERE uri = ?", uri).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, uri)
	}
	if err != nil {
		return fmt.Errorf("failed to look up %s: %w", uri, err)
	}
	return nil
}

// putRecord upserts rec under ref and rebuilds its outbound links.
func putRecord(tx *sql.Tx, ref domain.Ref, rec record.Record) (*PutResult, error) {
	data, err := rec.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", ref.URI, err)
	}

	var repoURI *string
	if ref.Repository != "" {
		repoURI = &ref.Repository
	}

	result := &PutResult{URI: ref.URI}
	var lockVersion int64
	err = tx.QueryRow("SELECT lock_version FROM records WHERE uri = ?", ref.URI).Scan(&lockVersion)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.Exec(`
			INSERT INTO records (uri, record_type, repo_uri, record_id, json)
			VALUES (?, ?, ?, ?, ?)
		`, ref.URI, string(ref.Type), repoURI, ref.ID, string(data))
		if err != nil {
			return nil, fmt.Errorf("failed to insert %s: %w", ref.URI, err)
		}
		result.Created = true
	case err != nil:
		return nil, fmt.Errorf("failed to look up %s: %w", ref.URI, err)
	default:
		result.LockVersion = lockVersion + 1
		_, err = tx.Exec(`
			UPDATE records
			SET json = ?, lock_version = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%SZ','now')
			WHERE uri = ?
		`, string(data), result.LockVersion, ref.URI)
		if err != nil {
			return nil, fmt.Errorf("failed to update %s: %w", ref.URI, err)
		}
	}

	if _, err := tx.Exec("DELETE FROM record_links WHERE source_uri = ?", ref.URI); err != nil {
		return nil, fmt.Errorf("failed to clear links of %s: %w", ref.URI, err)
	}
	for _, l := range rec.Refs() {
		_, err := tx.Exec(`
			INSERT INTO record_links (source_uri, target_uri, json_path) VALUES (?, ?, ?)
		`, ref.URI, l.URI, l.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to link %s to %s: %w", ref.URI, l.URI, err)
		}
	}

	return result, nil
}
