package models

// Material is a consumable tracked by count.
type Material struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Unit     string `json:"unit"`
	Quantity int    `json:"quantity"`
	MinStock int    `json:"min_stock"`
}

// NeedsReorder reports quantity < min stock. The backend sends its own
// needs_reorder flag; it is ignored in favour of this.
func (m Material) NeedsReorder() bool {
	return m.Quantity < m.MinStock
}

// NewMaterial is the body of a create request.
type NewMaterial struct {
	Name     string `json:"name"`
	Unit     string `json:"unit,omitempty"`
	Quantity int    `json:"quantity"`
	MinStock int    `json:"min_stock"`
}
