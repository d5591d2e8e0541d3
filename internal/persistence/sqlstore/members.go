package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/club-reservations/internal/authority"
	"github.com/example/club-reservations/internal/persistence"
)

// CreateMember stores a member.
func (s *Store) CreateMember(ctx context.Context, member persistence.Member) error {
	_, err := sqlx.NamedExecContext(ctx, s.db,
		`INSERT INTO member (id, name, email) VALUES (:id, :name, :email)`,
		memberRow{ID: member.ID, Name: member.Name, Email: member.Email},
	)
	return mapError(err)
}

// GetMember retrieves a member by ID.
func (s *Store) GetMember(ctx context.Context, id string) (persistence.Member, error) {
	var row memberRow
	if err := sqlx.GetContext(ctx, s.db, &row, s.db.Rebind(`SELECT id, name, email FROM member WHERE id = ?`), id); err != nil {
		return persistence.Member{}, mapError(err)
	}
	return persistence.Member{ID: row.ID, Name: row.Name, Email: row.Email}, nil
}

// CreateClubAuthority stores an authority together with its capability grants.
func (s *Store) CreateClubAuthority(ctx context.Context, ca persistence.ClubAuthority) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		tx.Rebind(`INSERT INTO club_authority (id, club_id, name) VALUES (?, ?, ?)`),
		ca.ID, ca.ClubID, ca.Name,
	); err != nil {
		return mapError(err)
	}
	for _, capability := range ca.Capabilities {
		if _, err := tx.ExecContext(ctx,
			tx.Rebind(`INSERT INTO club_authority_capability (club_authority_id, capability) VALUES (?, ?)`),
			ca.ID, string(capability),
		); err != nil {
			return mapError(err)
		}
	}
	return tx.Commit()
}

// CreateClubMember stores a club membership.
func (s *Store) CreateClubMember(ctx context.Context, cm persistence.ClubMember) error {
	_, err := sqlx.NamedExecContext(ctx, s.db,
		`INSERT INTO club_member (`+clubMemberColumns+`)
		 VALUES (:id, :club_id, :member_id, :role, :club_authority_id, :is_confirmed)`,
		clubMemberRow{
			ID:              cm.ID,
			ClubID:          cm.ClubID,
			MemberID:        cm.MemberID,
			Role:            string(cm.Role),
			ClubAuthorityID: nullString(cm.ClubAuthorityID),
			Confirmed:       cm.Confirmed,
		},
	)
	return mapError(err)
}

// GetClubMember retrieves a club membership by ID.
func (s *Store) GetClubMember(ctx context.Context, id string) (persistence.ClubMember, error) {
	var row clubMemberRow
	query := s.db.Rebind(`SELECT ` + clubMemberColumns + ` FROM club_member WHERE id = ?`)
	if err := sqlx.GetContext(ctx, s.db, &row, query, id); err != nil {
		return persistence.ClubMember{}, mapError(err)
	}
	return row.model(), nil
}

// ListClubMembersWithCapability returns the confirmed members of clubID that would
// pass a capability requirement: every ADMIN plus MANAGERs granted the capability.
func (s *Store) ListClubMembersWithCapability(ctx context.Context, clubID string, capability authority.Capability) ([]persistence.ClubMember, error) {
	query := s.db.Rebind(`SELECT ` + clubMemberColumns + ` FROM club_member cm
		WHERE cm.club_id = ? AND cm.is_confirmed = ?
		  AND (cm.role = ?
		       OR (cm.role = ? AND EXISTS (
		           SELECT 1 FROM club_authority_capability c
		           WHERE c.club_authority_id = cm.club_authority_id AND c.capability = ?)))
		ORDER BY cm.id`)

	var rows []clubMemberRow
	if err := sqlx.SelectContext(ctx, s.db, &rows, query,
		clubID, true, string(authority.RoleAdmin), string(authority.RoleManager), string(capability),
	); err != nil {
		return nil, mapError(err)
	}
	members := make([]persistence.ClubMember, 0, len(rows))
	for _, row := range rows {
		members = append(members, row.model())
	}
	return members, nil
}

// LookupSubject implements authority.SubjectLookup.
func (s *Store) LookupSubject(ctx context.Context, clubMemberID string) (authority.Subject, error) {
	cm, err := s.GetClubMember(ctx, clubMemberID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return authority.Subject{}, authority.ErrUnknownMember
		}
		return authority.Subject{}, err
	}

	subject := authority.Subject{
		ClubMemberID: cm.ID,
		ClubID:       cm.ClubID,
		MemberID:     cm.MemberID,
		Role:         cm.Role,
		Capabilities: authority.NewCapabilitySet(),
		Confirmed:    cm.Confirmed,
	}
	if cm.ClubAuthorityID == nil {
		return subject, nil
	}

	var caps []string
	query := s.db.Rebind(`SELECT c.capability FROM club_authority_capability c
		JOIN club_authority a ON a.id = c.club_authority_id
		WHERE c.club_authority_id = ? AND a.club_id = ?`)
	if err := sqlx.SelectContext(ctx, s.db, &caps, query, *cm.ClubAuthorityID, cm.ClubID); err != nil {
		return authority.Subject{}, mapError(err)
	}
	for _, c := range caps {
		subject.Capabilities[authority.Capability(c)] = struct{}{}
	}
	return subject, nil
}

// ListContacts resolves delivery addresses for club members. Unknown IDs are skipped.
func (s *Store) ListContacts(ctx context.Context, clubMemberIDs []string) ([]persistence.MemberContact, error) {
	if len(clubMemberIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT cm.id AS club_member_id, m.id AS member_id, m.name, m.email
		FROM club_member cm JOIN member m ON m.id = cm.member_id
		WHERE cm.id IN (?) ORDER BY cm.id`, clubMemberIDs)
	if err != nil {
		return nil, fmt.Errorf("build contact query: %w", err)
	}

	var rows []contactRow
	if err := sqlx.SelectContext(ctx, s.db, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, mapError(err)
	}
	contacts := make([]persistence.MemberContact, 0, len(rows))
	for _, row := range rows {
		contacts = append(contacts, persistence.MemberContact{
			ClubMemberID: row.ClubMemberID,
			MemberID:     row.MemberID,
			Name:         row.Name,
			Email:        row.Email,
		})
	}
	return contacts, nil
}
