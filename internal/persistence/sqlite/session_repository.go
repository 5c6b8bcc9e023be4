package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/jeksecret/schedule-coordination-tool/internal/persistence"
)

// CreateSession inserts the full aggregate: facility snapshot, session
// header, evaluator links, and candidate slots.
func (s *Store) CreateSession(ctx context.Context, record persistence.SessionRecord) error {
	if record.Session.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO facilities (id, name, reference_url, contact_name, contact_email, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				name = excluded.name,
				contact_name = excluded.contact_name,
				contact_email = excluded.contact_email,
				updated_at = excluded.updated_at`,
			record.Facility.ID,
			record.Facility.Name,
			record.Facility.ReferenceURL,
			record.Facility.ContactName,
			record.Facility.ContactEmail,
			formatTime(record.Facility.CreatedAt),
			formatTime(record.Facility.UpdatedAt),
		)
		if err != nil {
			return mapError(err)
		}

		_, err = tx.Exec(`
			INSERT INTO sessions (id, facility_id, purpose, response_deadline, presentation_date, proposed_slot_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			record.Session.ID,
			record.Session.FacilityID,
			record.Session.Purpose,
			record.Session.ResponseDeadline,
			record.Session.PresentationDate,
			nullString(record.Session.ProposedSlotID),
			formatTime(record.Session.CreatedAt),
			formatTime(record.Session.UpdatedAt),
		)
		if err != nil {
			return mapError(err)
		}

		for _, evaluator := range record.Evaluators {
			_, err = tx.Exec(`
				INSERT INTO session_evaluators (id, session_id, name, email, note, invite_token, answered_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				evaluator.ID,
				record.Session.ID,
				evaluator.Name,
				evaluator.Email,
				evaluator.Note,
				evaluator.InviteToken,
				nullTime(evaluator.AnsweredAt),
			)
			if err != nil {
				return mapError(err)
			}
		}

		for _, slot := range record.Slots {
			_, err = tx.Exec(`
				INSERT INTO candidate_slots (id, session_id, slot_date, slot_label, sort_order)
				VALUES (?, ?, ?, ?, ?)`,
				slot.ID,
				record.Session.ID,
				slot.SlotDate,
				slot.SlotLabel,
				slot.SortOrder,
			)
			if err != nil {
				return mapError(err)
			}
		}

		return insertResponses(tx, record.Responses)
	})
}

// GetSession loads the aggregate for the given session id.
func (s *Store) GetSession(ctx context.Context, id string) (persistence.SessionRecord, error) {
	var record persistence.SessionRecord
	err := s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		record, err = loadRecord(tx, id)
		return err
	})
	if err != nil {
		return persistence.SessionRecord{}, err
	}
	return record, nil
}

// UpdateSession replaces the mutable parts of the aggregate. Roster
// membership and the slot set are fixed at creation and left untouched.
func (s *Store) UpdateSession(ctx context.Context, record persistence.SessionRecord) error {
	if record.Session.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			UPDATE sessions
			SET purpose = ?, response_deadline = ?, presentation_date = ?, proposed_slot_id = ?, updated_at = ?
			WHERE id = ?`,
			record.Session.Purpose,
			record.Session.ResponseDeadline,
			record.Session.PresentationDate,
			nullString(record.Session.ProposedSlotID),
			formatTime(record.Session.UpdatedAt),
			record.Session.ID,
		)
		if err != nil {
			return mapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}

		_, err = tx.Exec(`
			UPDATE facilities
			SET contact_name = ?, contact_email = ?, updated_at = ?
			WHERE id = ?`,
			record.Facility.ContactName,
			record.Facility.ContactEmail,
			formatTime(record.Facility.UpdatedAt),
			record.Facility.ID,
		)
		if err != nil {
			return mapError(err)
		}

		for _, evaluator := range record.Evaluators {
			_, err = tx.Exec(`
				UPDATE session_evaluators
				SET note = ?, answered_at = ?
				WHERE id = ? AND session_id = ?`,
				evaluator.Note,
				nullTime(evaluator.AnsweredAt),
				evaluator.ID,
				record.Session.ID,
			)
			if err != nil {
				return mapError(err)
			}
		}

		_, err = tx.Exec(`
			DELETE FROM evaluator_responses
			WHERE session_evaluator_id IN (SELECT id FROM session_evaluators WHERE session_id = ?)`,
			record.Session.ID,
		)
		if err != nil {
			return mapError(err)
		}
		if err := insertResponses(tx, record.Responses); err != nil {
			return err
		}

		if record.Reply != nil {
			_, err = tx.Exec(`
				INSERT INTO facility_replies (session_id, selected_slot_id, note, answered_at)
				VALUES (?, ?, ?, ?)
				ON CONFLICT (session_id) DO UPDATE SET
					selected_slot_id = excluded.selected_slot_id,
					note = excluded.note,
					answered_at = excluded.answered_at`,
				record.Reply.SessionID,
				record.Reply.SelectedSlotID,
				record.Reply.Note,
				formatTime(record.Reply.AnsweredAt),
			)
			if err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

// ListSessions returns every stored aggregate, most recently updated first.
func (s *Store) ListSessions(ctx context.Context) ([]persistence.SessionRecord, error) {
	var records []persistence.SessionRecord
	err := s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		rows, err := tx.Query(`SELECT id FROM sessions ORDER BY updated_at DESC, id ASC`)
		if err != nil {
			return mapError(err)
		}
		ids := make([]string, 0)
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			ids = append(ids, id)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		records = make([]persistence.SessionRecord, 0, len(ids))
		for _, id := range ids {
			record, err := loadRecord(tx, id)
			if err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// GetSessionByInviteToken resolves a session aggregate through an evaluator
// invite token and returns the matching session-evaluator id.
func (s *Store) GetSessionByInviteToken(ctx context.Context, token string) (persistence.SessionRecord, string, error) {
	var (
		record      persistence.SessionRecord
		evaluatorID string
	)
	err := s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var sessionID string
		err := tx.QueryRow(`SELECT session_id, id FROM session_evaluators WHERE invite_token = ?`, token).
			Scan(&sessionID, &evaluatorID)
		if err != nil {
			return mapError(err)
		}
		record, err = loadRecord(tx, sessionID)
		return err
	})
	if err != nil {
		return persistence.SessionRecord{}, "", err
	}
	return record, evaluatorID, nil
}

func insertResponses(tx *sql.Tx, responses []persistence.EvaluatorResponse) error {
	for _, response := range responses {
		_, err := tx.Exec(`
			INSERT INTO evaluator_responses (session_evaluator_id, candidate_slot_id, choice)
			VALUES (?, ?, ?)`,
			response.SessionEvaluatorID,
			response.CandidateSlotID,
			response.Choice,
		)
		if err != nil {
			return mapError(err)
		}
	}
	return nil
}

func loadRecord(tx *sql.Tx, id string) (persistence.SessionRecord, error) {
	var (
		record       persistence.SessionRecord
		proposedSlot sql.NullString
		createdAt    string
		updatedAt    string
	)
	err := tx.QueryRow(`
		SELECT id, facility_id, purpose, response_deadline, presentation_date, proposed_slot_id, created_at, updated_at
		FROM sessions WHERE id = ?`, id).
		Scan(
			&record.Session.ID,
			&record.Session.FacilityID,
			&record.Session.Purpose,
			&record.Session.ResponseDeadline,
			&record.Session.PresentationDate,
			&proposedSlot,
			&createdAt,
			&updatedAt,
		)
	if err != nil {
		return persistence.SessionRecord{}, mapError(err)
	}
	if proposedSlot.Valid {
		record.Session.ProposedSlotID = &proposedSlot.String
	}
	record.Session.CreatedAt = parseTime(createdAt)
	record.Session.UpdatedAt = parseTime(updatedAt)

	var facilityCreated, facilityUpdated string
	err = tx.QueryRow(`
		SELECT id, name, reference_url, contact_name, contact_email, created_at, updated_at
		FROM facilities WHERE id = ?`, record.Session.FacilityID).
		Scan(
			&record.Facility.ID,
			&record.Facility.Name,
			&record.Facility.ReferenceURL,
			&record.Facility.ContactName,
			&record.Facility.ContactEmail,
			&facilityCreated,
			&facilityUpdated,
		)
	if err != nil {
		return persistence.SessionRecord{}, mapError(err)
	}
	record.Facility.CreatedAt = parseTime(facilityCreated)
	record.Facility.UpdatedAt = parseTime(facilityUpdated)

	evaluatorRows, err := tx.Query(`
		SELECT id, session_id, name, email, note, invite_token, answered_at
		FROM session_evaluators WHERE session_id = ? ORDER BY id ASC`, id)
	if err != nil {
		return persistence.SessionRecord{}, mapError(err)
	}
	for evaluatorRows.Next() {
		var (
			evaluator  persistence.SessionEvaluator
			answeredAt sql.NullString
		)
		if err := evaluatorRows.Scan(
			&evaluator.ID,
			&evaluator.SessionID,
			&evaluator.Name,
			&evaluator.Email,
			&evaluator.Note,
			&evaluator.InviteToken,
			&answeredAt,
		); err != nil {
			evaluatorRows.Close()
			return persistence.SessionRecord{}, err
		}
		if answeredAt.Valid {
			t := parseTime(answeredAt.String)
			evaluator.AnsweredAt = &t
		}
		record.Evaluators = append(record.Evaluators, evaluator)
	}
	if err := evaluatorRows.Err(); err != nil {
		evaluatorRows.Close()
		return persistence.SessionRecord{}, err
	}
	evaluatorRows.Close()

	slotRows, err := tx.Query(`
		SELECT id, session_id, slot_date, slot_label, sort_order
		FROM candidate_slots WHERE session_id = ? ORDER BY sort_order ASC`, id)
	if err != nil {
		return persistence.SessionRecord{}, mapError(err)
	}
	for slotRows.Next() {
		var slot persistence.CandidateSlot
		if err := slotRows.Scan(&slot.ID, &slot.SessionID, &slot.SlotDate, &slot.SlotLabel, &slot.SortOrder); err != nil {
			slotRows.Close()
			return persistence.SessionRecord{}, err
		}
		record.Slots = append(record.Slots, slot)
	}
	if err := slotRows.Err(); err != nil {
		slotRows.Close()
		return persistence.SessionRecord{}, err
	}
	slotRows.Close()

	responseRows, err := tx.Query(`
		SELECT r.session_evaluator_id, r.candidate_slot_id, r.choice
		FROM evaluator_responses r
		JOIN session_evaluators e ON e.id = r.session_evaluator_id
		WHERE e.session_id = ?`, id)
	if err != nil {
		return persistence.SessionRecord{}, mapError(err)
	}
	for responseRows.Next() {
		var response persistence.EvaluatorResponse
		if err := responseRows.Scan(&response.SessionEvaluatorID, &response.CandidateSlotID, &response.Choice); err != nil {
			responseRows.Close()
			return persistence.SessionRecord{}, err
		}
		record.Responses = append(record.Responses, response)
	}
	if err := responseRows.Err(); err != nil {
		responseRows.Close()
		return persistence.SessionRecord{}, err
	}
	responseRows.Close()

	var reply persistence.FacilityReply
	var replyAnsweredAt string
	err = tx.QueryRow(`
		SELECT session_id, selected_slot_id, note, answered_at
		FROM facility_replies WHERE session_id = ?`, id).
		Scan(&reply.SessionID, &reply.SelectedSlotID, &reply.Note, &replyAnsweredAt)
	switch {
	case err == nil:
		reply.AnsweredAt = parseTime(replyAnsweredAt)
		record.Reply = &reply
	case err == sql.ErrNoRows:
	default:
		return persistence.SessionRecord{}, mapError(err)
	}

	return record, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}
