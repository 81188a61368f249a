package cases

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/netauto/maintcheck/pkg/models"
)

// CaseUpdate carries the fields a human may change. Nil means untouched;
// ClearAssignee removes the assignee and demotes the case to UNASSIGNED.
type CaseUpdate struct {
	Status        *models.CaseStatus `json:"status"`
	Summary       *string            `json:"summary"`
	Assignee      *string            `json:"assignee"`
	ClearAssignee bool               `json:"clear_assignee"`
}

// GetCase loads one case by id.
func (e *Engine) GetCase(ctx context.Context, id int64) (*models.Case, error) {
	var c models.Case
	err := e.db.GetContext(ctx, &c, `SELECT * FROM cases WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: case %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (e *Engine) getUser(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := e.db.GetContext(ctx, &u,
		`SELECT * FROM users WHERE username = $1 AND is_active`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: unknown or inactive user %q", ErrPermission, username)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateCase applies a human change under the permission rules: only the
// assignee edits status or summary; reassignment needs the assignee's own
// hand-off or, for unassigned cases, ROOT or PM; RESOLVED needs a reachable
// endpoint and blocks reassignment.
func (e *Engine) UpdateCase(ctx context.Context, caseID int64, username string, upd CaseUpdate) (*models.Case, error) {
	c, err := e.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	user, err := e.getUser(ctx, username)
	if err != nil {
		return nil, err
	}

	isAssignee := c.Assignee != nil && *c.Assignee == user.Username

	if upd.Status != nil || upd.Summary != nil {
		if !isAssignee {
			return nil, fmt.Errorf("%w: only the assignee may edit", ErrPermission)
		}
	}
	if upd.Status != nil {
		if !upd.Status.Valid() {
			return nil, fmt.Errorf("%w: invalid status %q", ErrValidation, *upd.Status)
		}
		if *upd.Status == models.CaseResolved &&
			(c.LastPingReachable == nil || !*c.LastPingReachable) {
			return nil, fmt.Errorf("%w: cannot resolve while the endpoint is not reachable", ErrValidation)
		}
	}

	newAssignee := c.Assignee
	if upd.Assignee != nil || upd.ClearAssignee {
		if c.Status == models.CaseResolved {
			return nil, fmt.Errorf("%w: a resolved case cannot be reassigned", ErrValidation)
		}
		if c.Assignee != nil {
			if !isAssignee {
				return nil, fmt.Errorf("%w: only the current assignee may reassign", ErrPermission)
			}
		} else if user.Role != models.RoleRoot && user.Role != models.RolePM {
			return nil, fmt.Errorf("%w: only ROOT or PM may assign an open case", ErrPermission)
		}
		if upd.ClearAssignee {
			newAssignee = nil
		} else {
			if _, err := e.getUser(ctx, *upd.Assignee); err != nil {
				return nil, fmt.Errorf("%w: assignee must be an active user", ErrValidation)
			}
			newAssignee = upd.Assignee
		}
	}

	newStatus := c.Status
	if upd.Status != nil {
		newStatus = *upd.Status
	}
	// Keep status and assignee consistent with each other.
	if newAssignee == nil {
		newStatus = models.CaseUnassigned
	} else if newStatus == models.CaseUnassigned {
		newStatus = models.CaseAssigned
	}

	newSummary := c.Summary
	if upd.Summary != nil {
		newSummary = upd.Summary
	}

	now := e.clock.Now().UTC()
	if _, err := e.db.ExecContext(ctx, `
		UPDATE cases
		SET status = $1, assignee = $2, summary = $3, updated_at = $4
		WHERE id = $5`,
		newStatus, newAssignee, newSummary, now, caseID); err != nil {
		return nil, fmt.Errorf("update case %d: %w", caseID, err)
	}
	return e.GetCase(ctx, caseID)
}

// AddNote appends a comment; any authenticated user may do so.
func (e *Engine) AddNote(ctx context.Context, caseID int64, username, content string) (*models.CaseNote, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: note content must not be empty", ErrValidation)
	}
	if _, err := e.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	if _, err := e.getUser(ctx, username); err != nil {
		return nil, err
	}
	now := e.clock.Now().UTC()
	var note models.CaseNote
	err := e.db.GetContext(ctx, &note, `
		INSERT INTO case_notes (case_id, author, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING *`,
		caseID, username, content, now)
	if err != nil {
		return nil, fmt.Errorf("add note: %w", err)
	}
	return &note, nil
}

func (e *Engine) getNote(ctx context.Context, noteID int64) (*models.CaseNote, error) {
	var note models.CaseNote
	err := e.db.GetContext(ctx, &note, `SELECT * FROM case_notes WHERE id = $1`, noteID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: note %d", ErrNotFound, noteID)
	}
	if err != nil {
		return nil, err
	}
	return &note, nil
}

// EditNote rewrites a note's content; author only.
func (e *Engine) EditNote(ctx context.Context, noteID int64, username, content string) (*models.CaseNote, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: note content must not be empty", ErrValidation)
	}
	note, err := e.getNote(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if note.Author != username {
		return nil, fmt.Errorf("%w: only the author may edit a note", ErrPermission)
	}
	now := e.clock.Now().UTC()
	if _, err := e.db.ExecContext(ctx,
		`UPDATE case_notes SET content = $1, updated_at = $2 WHERE id = $3`,
		content, now, noteID); err != nil {
		return nil, err
	}
	return e.getNote(ctx, noteID)
}

// DeleteNote removes a note; author only.
func (e *Engine) DeleteNote(ctx context.Context, noteID int64, username string) error {
	note, err := e.getNote(ctx, noteID)
	if err != nil {
		return err
	}
	if note.Author != username {
		return fmt.Errorf("%w: only the author may delete a note", ErrPermission)
	}
	_, err = e.db.ExecContext(ctx, `DELETE FROM case_notes WHERE id = $1`, noteID)
	return err
}

// ListNotes returns a case's notes oldest first.
func (e *Engine) ListNotes(ctx context.Context, caseID int64) ([]models.CaseNote, error) {
	var notes []models.CaseNote
	err := e.db.SelectContext(ctx, &notes,
		`SELECT * FROM case_notes WHERE case_id = $1 ORDER BY created_at, id`, caseID)
	return notes, err
}
