package models

import "fmt"

// Variant describes which backend collection the client talks to and the
// status vocabulary that collection uses.
type Variant struct {
	// Collection is the path segment, "assets" or "tools".
	Collection string
	// FreeStatus is the status of an item that is not checked out.
	FreeStatus Status
	// BusyStatus is applied when an item is checked out.
	BusyStatus Status
	// Tiers lists every status in display order.
	Tiers []Status
}

var (
	AssetsVariant = Variant{
		Collection: "assets",
		FreeStatus: StatusGood,
		BusyStatus: StatusNeedsMaintenance,
		Tiers:      []Status{StatusGood, StatusNeedsMaintenance, StatusDanger},
	}
	ToolsVariant = Variant{
		Collection: "tools",
		FreeStatus: StatusAvailable,
		BusyStatus: StatusMaintenance,
		Tiers:      []Status{StatusAvailable, StatusMaintenance, StatusDamaged},
	}
)

// VariantFor returns the variant for a collection name.
func VariantFor(collection string) (Variant, error) {
	switch collection {
	case AssetsVariant.Collection:
		return AssetsVariant, nil
	case ToolsVariant.Collection:
		return ToolsVariant, nil
	default:
		return Variant{}, fmt.Errorf("unknown collection %q", collection)
	}
}

// StatusFor is the status an item takes when its availability becomes
// available.
func (v Variant) StatusFor(available bool) Status {
	if available {
		return v.FreeStatus
	}
	return v.BusyStatus
}
