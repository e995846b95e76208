package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"reports/internal/domain"
)

// DefaultRevisionLimit is how many revisions are kept per path.
const DefaultRevisionLimit = 40

// ErrRevisionNotFound is returned by Get for an unknown revision id.
var ErrRevisionNotFound = errors.New("revision not found")

// RevisionHistory is the revision chain of one path.
type RevisionHistory struct {
	Revisions []domain.Revision `json:"revisions"`
	CurrentID string            `json:"currentId"`
	RootID    string            `json:"rootId"`
}

// RevisionStore manages report revision history in SQLite.
type RevisionStore struct {
	db    *DB
	limit int
}

func NewRevisionStore(db *DB, limit int) *RevisionStore {
	if limit <= 0 {
		limit = DefaultRevisionLimit
	}
	return &RevisionStore{db: db, limit: limit}
}

// History returns all revisions of path, oldest first. A path without
// revisions yields nil.
func (s *RevisionStore) History(path string) (*RevisionHistory, error) {
	rows, err := s.db.Conn().Query(
		`SELECT id, path, parent_id, label, snapshot_json, created_at
		 FROM report_revisions WHERE path = ? ORDER BY created_at ASC, rowid ASC`, path,
	)
	if err != nil {
		return nil, fmt.Errorf("load revisions: %w", err)
	}
	defer rows.Close()

	var revs []domain.Revision
	var rootID string
	for rows.Next() {
		var r domain.Revision
		if err := rows.Scan(&r.ID, &r.Path, &r.ParentID, &r.Label, &r.Snapshot, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		if r.ParentID == nil {
			rootID = r.ID
		}
		revs = append(revs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(revs) == 0 {
		return nil, nil
	}

	currentID, err := s.headID(path)
	if err != nil {
		currentID = revs[len(revs)-1].ID
	}

	return &RevisionHistory{Revisions: revs, CurrentID: currentID, RootID: rootID}, nil
}

// Push records snapshot as the newest revision of path, parented on the
// current head, and moves the head to it.
func (s *RevisionStore) Push(path, label, snapshot string) (*domain.Revision, error) {
	now := time.Now()
	id := uuid.NewString()

	var parentID *string
	if head, err := s.headID(path); err == nil {
		parentID = &head
	}

	_, err := s.db.Conn().Exec(
		`INSERT INTO report_revisions (id, path, parent_id, label, snapshot_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, path, parentID, label, snapshot, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert revision: %w", err)
	}

	if err := s.GoTo(path, id); err != nil {
		return nil, fmt.Errorf("update revision state: %w", err)
	}

	s.pruneIfNeeded(path)

	return &domain.Revision{
		ID:        id,
		Path:      path,
		ParentID:  parentID,
		Label:     label,
		Snapshot:  snapshot,
		CreatedAt: now,
	}, nil
}

// Get returns a single revision.
func (s *RevisionStore) Get(id string) (*domain.Revision, error) {
	r := &domain.Revision{}
	err := s.db.Conn().QueryRow(
		`SELECT id, path, parent_id, label, snapshot_json, created_at
		 FROM report_revisions WHERE id = ?`, id,
	).Scan(&r.ID, &r.Path, &r.ParentID, &r.Label, &r.Snapshot, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRevisionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get revision: %w", err)
	}
	return r, nil
}

// GoTo moves the head pointer of path.
func (s *RevisionStore) GoTo(path, id string) error {
	_, err := s.db.Conn().Exec(
		`INSERT INTO revision_state (path, current_revision_id) VALUES (?, ?)
		 ON CONFLICT(path) DO UPDATE SET current_revision_id = excluded.current_revision_id`,
		path, id,
	)
	return err
}

// Clear removes all revisions of path.
func (s *RevisionStore) Clear(path string) error {
	_, errState := s.db.Conn().Exec(`DELETE FROM revision_state WHERE path = ?`, path)
	_, errRevs := s.db.Conn().Exec(`DELETE FROM report_revisions WHERE path = ?`, path)
	if err := errors.Join(errState, errRevs); err != nil {
		return fmt.Errorf("clear revisions %s: %w", path, err)
	}
	return nil
}

func (s *RevisionStore) headID(path string) (string, error) {
	var id string
	err := s.db.Conn().QueryRow(
		`SELECT current_revision_id FROM revision_state WHERE path = ?`, path,
	).Scan(&id)
	return id, err
}

// pruneIfNeeded removes the oldest revisions once path exceeds the limit.
// The head is never removed.
func (s *RevisionStore) pruneIfNeeded(path string) {
	var count int
	s.db.Conn().QueryRow(`SELECT COUNT(*) FROM report_revisions WHERE path = ?`, path).Scan(&count)
	if count <= s.limit {
		return
	}

	toDelete := count - s.limit

	// Read the head before opening the rows cursor
	currentID, _ := s.headID(path)

	rows, err := s.db.Conn().Query(
		`SELECT id FROM report_revisions WHERE path = ?
		 ORDER BY created_at ASC, rowid ASC LIMIT ?`, path, toDelete,
	)
	if err != nil {
		return
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		if id != currentID {
			ids = append(ids, id)
		}
	}
	rows.Close()

	for _, id := range ids {
		var parentID sql.NullString
		s.db.Conn().QueryRow(`SELECT parent_id FROM report_revisions WHERE id = ?`, id).Scan(&parentID)

		if parentID.Valid {
			s.db.Conn().Exec(
				`UPDATE report_revisions SET parent_id = ? WHERE parent_id = ?`,
				parentID.String, id,
			)
		} else {
			s.db.Conn().Exec(
				`UPDATE report_revisions SET parent_id = NULL WHERE parent_id = ?`, id,
			)
		}

		s.db.Conn().Exec(`DELETE FROM report_revisions WHERE id = ?`, id)
	}
}
