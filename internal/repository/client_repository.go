package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/biletera/client-service/internal/model"
)

type ClientRepo struct{ DB *sql.DB }

func NewClientRepo(db *sql.DB) *ClientRepo { return &ClientRepo{DB: db} }

const clientColumns = "id,idm_user_id,email,first_name,last_name,public_profile,social_links,ticket_codes,version,created_at,updated_at"

// Create inserts a new client with an empty ticket list and returns it.
// Uniqueness of email and idm_user_id is enforced by the table's unique
// keys; MySQL duplicate-key errors (1062) are mapped onto the sentinel
// errors by inspecting the violated key name.
func (r *ClientRepo) Create(ctx context.Context, c model.Client) (model.Client, error) {
	c.ID = uuid.NewString()
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.TicketCodes = []string{}
	c.Version = 1

	links, err := marshalLinks(c.SocialLinks)
	if err != nil {
		return model.Client{}, err
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO clients (id, idm_user_id, email, first_name, last_name, public_profile, social_links, ticket_codes, version) VALUES (?,?,?,?,?,?,?,?,?)",
		c.ID, c.IDMUserID, c.Email, nullable(c.FirstName), nullable(c.LastName), c.PublicProfile, links, "[]", c.Version)
	if err != nil {
		if isDuplicate(err) {
			if strings.Contains(err.Error(), "uq_clients_idm_user") {
				return model.Client{}, ErrOwnerExists
			}
			return model.Client{}, ErrEmailExists
		}
		return model.Client{}, err
	}
	return r.GetByID(ctx, c.ID)
}

// GetByID fetches a client by id.
func (r *ClientRepo) GetByID(ctx context.Context, id string) (model.Client, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+clientColumns+" FROM clients WHERE id=? LIMIT 1", id)
	return scanClient(row)
}

// GetByEmail fetches a client by normalized email.
func (r *ClientRepo) GetByEmail(ctx context.Context, email string) (model.Client, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+clientColumns+" FROM clients WHERE email=? LIMIT 1", email)
	return scanClient(row)
}

// List returns one page of clients ordered by creation time, plus the
// total number of clients for pagination metadata. Page numbering
// starts at zero.
func (r *ClientRepo) List(ctx context.Context, page, size int) ([]model.Client, int, error) {
	if size <= 0 {
		size = 10
	}
	if page < 0 {
		page = 0
	}
	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM clients").Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+clientColumns+" FROM clients ORDER BY created_at, id LIMIT ? OFFSET ?",
		size, page*size)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	clients := make([]model.Client, 0, size)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, 0, err
		}
		clients = append(clients, c)
	}
	return clients, total, rows.Err()
}

// Save persists the client's mutable fields (profile data and ticket
// codes) guarded by an optimistic version check. The row is only
// updated when its stored version equals expectedVersion; otherwise
// ErrVersionConflict is returned and nothing changes. On success the
// version is bumped and the fresh row is returned.
func (r *ClientRepo) Save(ctx context.Context, c model.Client, expectedVersion uint64) (model.Client, error) {
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	links, err := marshalLinks(c.SocialLinks)
	if err != nil {
		return model.Client{}, err
	}
	codes, err := json.Marshal(c.TicketCodes)
	if err != nil {
		return model.Client{}, err
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE clients SET email=?, first_name=?, last_name=?, public_profile=?, social_links=?, ticket_codes=?, version=version+1 WHERE id=? AND version=?",
		c.Email, nullable(c.FirstName), nullable(c.LastName), c.PublicProfile, links, string(codes), c.ID, expectedVersion)
	if err != nil {
		if isDuplicate(err) {
			return model.Client{}, ErrEmailExists
		}
		return model.Client{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Client{}, err
	}
	if n == 0 {
		// Either the row is gone or a concurrent writer bumped the version.
		if _, err := r.GetByID(ctx, c.ID); errors.Is(err, ErrClientNotFound) {
			return model.Client{}, ErrClientNotFound
		}
		return model.Client{}, ErrVersionConflict
	}
	return r.GetByID(ctx, c.ID)
}

// Delete removes a client row. The caller is responsible for the
// no-owned-tickets rule; the repository only reports whether a row
// was actually deleted.
func (r *ClientRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM clients WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrClientNotFound
	}
	return nil
}

// ExistsByEmail reports whether any client uses the given email.
func (r *ClientRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var one int
	err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM clients WHERE email=? LIMIT 1", email).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// ExistsByOwner reports whether a client profile exists for the IDM user.
func (r *ClientRepo) ExistsByOwner(ctx context.Context, idmUserID int) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM clients WHERE idm_user_id=? LIMIT 1", idmUserID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanClient(s scanner) (model.Client, error) {
	var (
		c     model.Client
		first sql.NullString
		last  sql.NullString
		links sql.NullString
		codes string
	)
	err := s.Scan(&c.ID, &c.IDMUserID, &c.Email, &first, &last, &c.PublicProfile,
		&links, &codes, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Client{}, ErrClientNotFound
		}
		return model.Client{}, err
	}
	c.FirstName = first.String
	c.LastName = last.String
	if links.Valid && links.String != "" {
		if err := json.Unmarshal([]byte(links.String), &c.SocialLinks); err != nil {
			return model.Client{}, err
		}
	}
	if err := json.Unmarshal([]byte(codes), &c.TicketCodes); err != nil {
		return model.Client{}, err
	}
	if c.TicketCodes == nil {
		c.TicketCodes = []string{}
	}
	return c, nil
}

func marshalLinks(m map[string]string) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isDuplicate(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
