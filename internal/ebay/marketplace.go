package ebay

import "strings"

// Marketplace is a region-specific eBay site. The currency is implied by the
// site and is what price filters and returned prices are expressed in.
type Marketplace struct {
	ID       string // GLOBAL-ID, e.g. EBAY-GB
	Currency string
	Host     string
}

const DefaultMarketplace = "EBAY-GB"

var marketplaces = map[string]Marketplace{
	"EBAY-GB":   {ID: "EBAY-GB", Currency: "GBP", Host: "www.ebay.co.uk"},
	"EBAY-US":   {ID: "EBAY-US", Currency: "USD", Host: "www.ebay.com"},
	"EBAY-IE":   {ID: "EBAY-IE", Currency: "EUR", Host: "www.ebay.ie"},
	"EBAY-DE":   {ID: "EBAY-DE", Currency: "EUR", Host: "www.ebay.de"},
	"EBAY-AT":   {ID: "EBAY-AT", Currency: "EUR", Host: "www.ebay.at"},
	"EBAY-FR":   {ID: "EBAY-FR", Currency: "EUR", Host: "www.ebay.fr"},
	"EBAY-IT":   {ID: "EBAY-IT", Currency: "EUR", Host: "www.ebay.it"},
	"EBAY-ES":   {ID: "EBAY-ES", Currency: "EUR", Host: "www.ebay.es"},
	"EBAY-NL":   {ID: "EBAY-NL", Currency: "EUR", Host: "www.ebay.nl"},
	"EBAY-FRBE": {ID: "EBAY-FRBE", Currency: "EUR", Host: "www.befr.ebay.be"},
	"EBAY-AU":   {ID: "EBAY-AU", Currency: "AUD", Host: "www.ebay.com.au"},
	"EBAY-ENCA": {ID: "EBAY-ENCA", Currency: "CAD", Host: "www.ebay.ca"},
}

// LookupMarketplace resolves a GLOBAL-ID (case-insensitive).
func LookupMarketplace(id string) (Marketplace, bool) {
	m, ok := marketplaces[strings.ToUpper(strings.TrimSpace(id))]
	return m, ok
}

// BaseURL is the public site root, used by the results-page scraper.
func (m Marketplace) BaseURL() string {
	return "https://" + m.Host
}
