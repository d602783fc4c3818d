package domain

import "time"

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Transaction is one historical sale of a property, as published by the source.
type Transaction struct {
	DisplayPrice string `json:"displayPrice"`
	DateSold     string `json:"dateSold"`
	Tenure       string `json:"tenure"`
	NewBuild     bool   `json:"newBuild"`
}

// PropertyRecord is one listed property from a results page. The derived
// fields are filled in by normalization.
type PropertyRecord struct {
	Address      string        `json:"address"`
	PropertyType string        `json:"propertyType"`
	Bedrooms     *int          `json:"bedrooms"`
	Tenure       string        `json:"tenure"`
	DetailURL    string        `json:"detailUrl"`
	Transactions []Transaction `json:"transactions"`
	Location     *LatLng       `json:"location"`

	Number   string   `json:"-"`
	Road     string   `json:"-"`
	Town     string   `json:"-"`
	Postcode string   `json:"-"`
	Lat, Lon *float64 `json:"-"`
}

// SaleRow is one transaction joined with its parent property's attributes.
type SaleRow struct {
	Address           string    `json:"address"`
	DateSold          time.Time `json:"dateSold"`
	DisplayPrice      int64     `json:"displayPrice"`
	MonthsBeforeToday float64   `json:"monthsBeforeToday"`
	TransactionTenure string    `json:"transactionTenure,omitempty"`
	NewBuild          bool      `json:"newBuild"`

	PropertyType string   `json:"propertyType"`
	Bedrooms     *int     `json:"bedrooms,omitempty"`
	Tenure       string   `json:"tenure"`
	DetailURL    string   `json:"detailUrl,omitempty"`
	Number       string   `json:"number"`
	Road         string   `json:"road"`
	Town         string   `json:"town"`
	Postcode     string   `json:"postcode"`
	Lat          *float64 `json:"lat,omitempty"`
	Lon          *float64 `json:"lon,omitempty"`
}

// PageQuery identifies one results page of a search.
type PageQuery struct {
	Area         string
	PropertyType string
	Tenure       string
	SoldInYears  int
	Page         int
}

// SalesFilter narrows a stored extract on the read path.
type SalesFilter struct {
	PropertyType string
	Bedrooms     *int
	Limit        int
}
