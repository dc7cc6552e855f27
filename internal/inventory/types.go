package inventory

// Wire types exchanged with the inventory service. The JSON field names
// are owned by that service and must not be changed here.

// TicketRecord is the inventory's record of one issued ticket. Exactly
// one of EventID/PackageID is set.
type TicketRecord struct {
    Code      string `json:"cod"`
    EventID   *int64 `json:"evenimentId,omitempty"`
    PackageID *int64 `json:"pachetId,omitempty"`
}

// createRequest is the body of the ticket create call. Exactly one of
// the two references is present; the caller guarantees the exclusivity.
type createRequest struct {
    EventID   *int64 `json:"evenimentId,omitempty"`
    PackageID *int64 `json:"pachetId,omitempty"`
}

// EventSummary is the inventory's public view of one event.
type EventSummary struct {
    ID               int64  `json:"id"`
    Name             string `json:"nume"`
    Location         string `json:"locatie"`
    Description      string `json:"descriere"`
    SeatCount        int    `json:"numarLocuri"`
    TicketsAvailable int    `json:"bileteDisponibile"`
}

// PackageSummary is the inventory's public view of one event package.
type PackageSummary struct {
    ID               int64  `json:"id"`
    Name             string `json:"nume"`
    Location         string `json:"locatie"`
    Description      string `json:"descriere"`
    SeatCount        int    `json:"numarLocuri"`
    TicketsAvailable int    `json:"bileteDisponibile"`
}

// packageEventsResponse models the HATEOAS envelope the inventory wraps
// around a package's event list.
type packageEventsResponse struct {
    Embedded struct {
        Events []EventSummary `json:"evenimentDTOes"`
    } `json:"_embedded"`
}
