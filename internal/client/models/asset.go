package models

// Asset is an asset or tool as returned by the backend.
type Asset struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	SerialNumber string     `json:"serial_number,omitempty"`
	Location     string     `json:"location"`
	IsAvailable  bool       `json:"is_available"`
	Status       Status     `json:"status"`
	AssetType    string     `json:"asset_type,omitempty"`
	Description  string     `json:"description,omitempty"`
	CheckedOutBy *int64     `json:"checked_out_by,omitempty"`
	CheckoutDate *Timestamp `json:"checkout_date,omitempty"`
}

// Availability is the part of an asset the checkout flow flips and restores.
type Availability struct {
	IsAvailable bool
	Status      Status
}

func (a Asset) Availability() Availability {
	return Availability{IsAvailable: a.IsAvailable, Status: a.Status}
}

func (a *Asset) SetAvailability(av Availability) {
	a.IsAvailable = av.IsAvailable
	a.Status = av.Status
}

// NewAsset is the body of a create request.
type NewAsset struct {
	Name         string `json:"name"`
	AssetType    string `json:"asset_type,omitempty"`
	Description  string `json:"description,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
	Location     string `json:"location,omitempty"`
}

// AssetUpdate is a partial update; nil fields are not sent.
type AssetUpdate struct {
	Name     *string `json:"name,omitempty"`
	Location *string `json:"location,omitempty"`
	Status   *Status `json:"status,omitempty"`
}

// Page is one page of the asset collection.
type Page struct {
	Items   []Asset
	Total   int
	Page    int
	Pages   int
	PerPage int
}
