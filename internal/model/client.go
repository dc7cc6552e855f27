package model

import "time"

// Client represents a customer profile as stored in the `clients` table.
// A client owns an ordered list of ticket codes; the tickets themselves
// live in the remote inventory service and are referenced here only by
// code.  The list is a claim of ownership, not the source of truth for
// whether a code is still valid.
//
// Fields:
//  ID            – opaque identifier assigned at creation (UUID), immutable.
//  IDMUserID     – link to the external IDM identity, unique, immutable.
//  Email         – unique email address, mutable.
//  FirstName     – optional given name.
//  LastName      – optional family name.
//  PublicProfile – whether the profile data is publicly visible.
//  SocialLinks   – optional map of platform name to profile URL.
//  TicketCodes   – owned ticket codes in purchase order, no duplicates.
//  Version       – optimistic-concurrency revision, bumped on every save.
//  CreatedAt     – timestamp of creation.
//  UpdatedAt     – timestamp of last update.
type Client struct {
    ID            string            `json:"id"`
    IDMUserID     int               `json:"idmUserId"`
    Email         string            `json:"email"`
    FirstName     string            `json:"firstName,omitempty"`
    LastName      string            `json:"lastName,omitempty"`
    PublicProfile bool              `json:"publicProfile"`
    SocialLinks   map[string]string `json:"socialLinks,omitempty"`
    TicketCodes   []string          `json:"ticketCodes"`
    Version       uint64            `json:"-"`
    CreatedAt     time.Time         `json:"-"`
    UpdatedAt     time.Time         `json:"-"`
}

// OwnsTicket reports whether code is present in the client's ticket list.
func (c *Client) OwnsTicket(code string) bool {
    for _, t := range c.TicketCodes {
        if t == code {
            return true
        }
    }
    return false
}
