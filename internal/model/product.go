package model

import "time"

// InventoryMode selects how a product's stock is laid out on disk.
type InventoryMode string

const (
	// ModeLine keeps every unit as one line of <stock>/<product>.txt.
	ModeLine InventoryMode = "line"
	// ModeFile keeps every unit as its own file inside <stock>/<product>/.
	ModeFile InventoryMode = "file"
)

// Valid reports whether m is a known inventory mode.
func (m InventoryMode) Valid() bool {
	return m == ModeLine || m == ModeFile
}

// Precheck account formats understood by the validator service.
const (
	PrecheckFormatEmailPass = "email:pass"
	PrecheckFormatToken     = "token"
	PrecheckFormatCookie    = "cookie"
)

// Precheck levels.
const (
	PrecheckNone       = 0
	PrecheckCredential = 1
	PrecheckReputation = 2
)

// Product is a sellable stock line.
type Product struct {
	Name            string        `json:"name"`
	Price           float64       `json:"price"`
	CooldownSeconds int64         `json:"cooldown_seconds"`
	Mode            InventoryMode `json:"mode"`
	Stock           int64         `json:"stock"`
	PrecheckLevel   int           `json:"precheck_level"`
	PrecheckFormat  string        `json:"precheck_format"`
	CreatedAt       time.Time     `json:"created_at"`
}

// Cooldown returns the per-user purchase cooldown for the product.
func (p *Product) Cooldown() time.Duration {
	return time.Duration(p.CooldownSeconds) * time.Second
}

// RequiresPrecheck reports whether units must pass the validator before delivery.
func (p *Product) RequiresPrecheck() bool {
	return p.PrecheckLevel > PrecheckNone
}

// StockSyncResult describes one product whose cached stock count was corrected.
type StockSyncResult struct {
	Name       string `json:"name"`
	OldStock   int64  `json:"old_stock"`
	NewStock   int64  `json:"new_stock"`
	Difference int64  `json:"difference"`
}
