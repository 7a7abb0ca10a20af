package domain

// AssetClass classifies a tradable entity. The set is closed; the publisher's
// table never contains anything outside it.
type AssetClass string

const (
	AssetClassStock       AssetClass = "stock"
	AssetClassBond        AssetClass = "bond"
	AssetClassETF         AssetClass = "etf"
	AssetClassFund        AssetClass = "fund"
	AssetClassWarrant     AssetClass = "warrant"
	AssetClassCertificate AssetClass = "certificate"
	AssetClassCommodity   AssetClass = "commodity"
	AssetClassIndex       AssetClass = "index"
	AssetClassCurrency    AssetClass = "currency"
)

// ValidAssetClass reports whether s is a member of the closed asset class set.
func ValidAssetClass(s AssetClass) bool {
	switch s {
	case AssetClassStock, AssetClassBond, AssetClassETF, AssetClassFund,
		AssetClassWarrant, AssetClassCertificate, AssetClassCommodity,
		AssetClassIndex, AssetClassCurrency:
		return true
	}
	return false
}

// Instrument is the catalog entry for a tradable entity. WKN is the broker
// security identifier and is immutable; an instrument is created the first
// time its WKN appears in any publication and is never deleted. Subtype is
// only set for asset classes that need it (call/put for warrants).
type Instrument struct {
	WKN        string     `json:"wkn"`
	Name       string     `json:"name"`
	AssetClass AssetClass `json:"asset_class"`
	Subtype    string     `json:"subtype,omitempty"`
}

func NewInstrument(wkn, name string, class AssetClass, subtype string) Instrument {
	return Instrument{
		WKN:        wkn,
		Name:       name,
		AssetClass: class,
		Subtype:    subtype,
	}
}

func (i Instrument) IsValid() bool {
	return i.WKN != "" && ValidAssetClass(i.AssetClass)
}
