package domain

import (
	"strings"
)

// Currency is an ISO 4217 code from the accepted set
type Currency string

const (
	CurrencyXOF Currency = "XOF"
	CurrencyEUR Currency = "EUR"
	CurrencyUSD Currency = "USD"
	CurrencyGBP Currency = "GBP"
	CurrencyCNY Currency = "CNY"
)

// IsValid checks if the currency is accepted
func (c Currency) IsValid() bool {
	switch c {
	case CurrencyXOF, CurrencyEUR, CurrencyUSD, CurrencyGBP, CurrencyCNY:
		return true
	}
	return false
}

var currencyAliases = map[string]Currency{
	"FCFA":      CurrencyXOF,
	"CFA":       CurrencyXOF,
	"F CFA":     CurrencyXOF,
	"FRANC CFA": CurrencyXOF,
	"EURO":      CurrencyEUR,
	"EUROS":     CurrencyEUR,
	"€":         CurrencyEUR,
	"$":         CurrencyUSD,
	"US$":       CurrencyUSD,
	"USD$":      CurrencyUSD,
	"DOLLAR":    CurrencyUSD,
	"DOLLARS":   CurrencyUSD,
	"£":         CurrencyGBP,
	"RMB":       CurrencyCNY,
	"YUAN":      CurrencyCNY,
}

// NormalizeCurrency maps raw to an accepted currency. The boolean is false
// for anything outside the accepted set; callers must not substitute a default.
func NormalizeCurrency(raw string) (Currency, bool) {
	s := collapse(raw)
	if alias, ok := currencyAliases[s]; ok {
		return alias, true
	}
	c := Currency(s)
	if !c.IsValid() {
		return "", false
	}
	return c, true
}

// Unit is a billing unit. Canonical units are listed below; any other value
// is an upper-cased passthrough of unrecognized input.
type Unit string

const (
	UnitEVP         Unit = "EVP"
	UnitTonne       Unit = "TONNE"
	UnitDeclaration Unit = "DECLARATION"
	UnitVoyage      Unit = "VOYAGE"
	UnitFlat        Unit = "FLAT"
	UnitKG          Unit = "KG"
)

// IsCanonical checks if the unit belongs to the closed vocabulary
func (u Unit) IsCanonical() bool {
	switch u {
	case UnitEVP, UnitTonne, UnitDeclaration, UnitVoyage, UnitFlat, UnitKG:
		return true
	}
	return false
}

var unitAliases = map[string]Unit{
	"EVP": UnitEVP, "EVPS": UnitEVP, "TEU": UnitEVP, "TEUS": UnitEVP,
	"CONTAINER": UnitEVP, "CONTAINERS": UnitEVP, "CONTENEUR": UnitEVP, "CONTENEURS": UnitEVP,
	"CTN": UnitEVP, "CNTR": UnitEVP, "PER CONTAINER": UnitEVP, "PAR CONTENEUR": UnitEVP,

	"TONNE": UnitTonne, "TONNES": UnitTonne, "TON": UnitTonne, "TONS": UnitTonne,
	"T": UnitTonne, "MT": UnitTonne, "METRIC TON": UnitTonne, "PER TONNE": UnitTonne,
	"PAR TONNE": UnitTonne,

	"DECLARATION": UnitDeclaration, "DECLARATIONS": UnitDeclaration, "DÉCLARATION": UnitDeclaration,
	"DÉCLARATIONS": UnitDeclaration, "DECL": UnitDeclaration, "DOSSIER": UnitDeclaration,
	"PER DECLARATION": UnitDeclaration, "PAR DECLARATION": UnitDeclaration,

	"VOYAGE": UnitVoyage, "VOYAGES": UnitVoyage, "TRIP": UnitVoyage, "TRIPS": UnitVoyage,
	"ROTATION": UnitVoyage, "ROTATIONS": UnitVoyage, "TRUCK": UnitVoyage, "CAMION": UnitVoyage,
	"PER TRIP": UnitVoyage, "PAR VOYAGE": UnitVoyage,

	"FLAT": UnitFlat, "FORFAIT": UnitFlat, "FORFAITAIRE": UnitFlat, "LUMPSUM": UnitFlat,
	"LUMP SUM": UnitFlat, "FIXED": UnitFlat, "FIXE": UnitFlat, "PER SHIPMENT": UnitFlat,
	"PAR DOSSIER": UnitFlat, "EACH": UnitFlat, "EA": UnitFlat,

	"KG": UnitKG, "KGS": UnitKG, "KILO": UnitKG, "KILOS": UnitKG, "KILOGRAM": UnitKG,
	"KILOGRAMS": UnitKG, "KILOGRAMME": UnitKG, "KILOGRAMMES": UnitKG, "PER KG": UnitKG,
	"PAR KG": UnitKG,
}

// NormalizeUnit maps raw to a canonical unit. Unrecognized input is returned
// upper-cased so that matching simply finds no card for it.
func NormalizeUnit(raw string) Unit {
	s := collapse(raw)
	if u, ok := unitAliases[s]; ok {
		return u
	}
	return Unit(s)
}

// collapse upper-cases s and reduces runs of whitespace to one space
func collapse(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}
