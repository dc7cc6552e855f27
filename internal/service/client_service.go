package service

import (
	"context"
	"strings"

	"github.com/biletera/client-service/internal/model"
	"github.com/biletera/client-service/internal/repository"
)

// ClientInput carries the mutable profile fields for create and update.
type ClientInput struct {
	Email         string
	FirstName     string
	LastName      string
	PublicProfile bool
	SocialLinks   map[string]string
}

// CreateClient registers a new profile for an IDM user. Email and
// owner uniqueness are enforced; the new client starts with an empty
// ticket list.
func (s *ClientService) CreateClient(ctx context.Context, idmUserID int, in ClientInput) (model.Client, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if taken, err := s.Store.ExistsByEmail(ctx, in.Email); err != nil {
		return model.Client{}, err
	} else if taken {
		return model.Client{}, repository.ErrEmailExists
	}
	if taken, err := s.Store.ExistsByOwner(ctx, idmUserID); err != nil {
		return model.Client{}, err
	} else if taken {
		return model.Client{}, repository.ErrOwnerExists
	}
	return s.Store.Create(ctx, model.Client{
		IDMUserID:     idmUserID,
		Email:         in.Email,
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		PublicProfile: in.PublicProfile,
		SocialLinks:   in.SocialLinks,
	})
}

// GetClient looks up a client by id.
func (s *ClientService) GetClient(ctx context.Context, id string) (model.Client, error) {
	return s.Store.GetByID(ctx, id)
}

// GetClientByEmail looks up a client by email.
func (s *ClientService) GetClientByEmail(ctx context.Context, email string) (model.Client, error) {
	return s.Store.GetByEmail(ctx, email)
}

// ListClients returns one page of clients and the total count.
func (s *ClientService) ListClients(ctx context.Context, page, size int) ([]model.Client, int, error) {
	return s.Store.List(ctx, page, size)
}

// UpdateClient replaces the profile fields of an existing client. The
// ticket list and IDM link are preserved. An email change is re-checked
// for uniqueness before the save.
func (s *ClientService) UpdateClient(ctx context.Context, id string, in ClientInput) (model.Client, error) {
	c, err := s.Store.GetByID(ctx, id)
	if err != nil {
		return model.Client{}, err
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Email != c.Email {
		if taken, err := s.Store.ExistsByEmail(ctx, in.Email); err != nil {
			return model.Client{}, err
		} else if taken {
			return model.Client{}, repository.ErrEmailExists
		}
	}
	c.Email = in.Email
	c.FirstName = in.FirstName
	c.LastName = in.LastName
	c.PublicProfile = in.PublicProfile
	c.SocialLinks = in.SocialLinks
	return s.Store.Save(ctx, c, c.Version)
}

// DeleteClient removes a client. Deletion is blocked while the client
// still owns tickets; the tickets have to be returned first so no
// remote record is left without a reachable owner.
func (s *ClientService) DeleteClient(ctx context.Context, id string) error {
	c, err := s.Store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if len(c.TicketCodes) > 0 {
		return ErrHasTickets
	}
	return s.Store.Delete(ctx, id)
}
