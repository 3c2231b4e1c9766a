package registry

// Mode selects the registry environment.
type Mode string

const (
	ModeSandbox Mode = "sandbox"
	ModeLive    Mode = "live"
)

// Default base URLs per environment mode. Overridable through client config
// for tests and provider migrations.
const (
	sandboxBaseURL = "https://gs1nl-api-acc.gs1.nl/basic-product-data-in"
	liveBaseURL    = "https://gs1nl-api.gs1.nl/basic-product-data-in"
)

// CodeRange is one purchased block of GTIN values as reported by the
// registry's range endpoint.
type CodeRange struct {
	StartNumber    string `json:"startNumber"`
	EndNumber      string `json:"endNumber"`
	ContractNumber string `json:"contractNumber"`
}

// Product is one entry of a batch submission. Field values follow the
// provider's Dutch vocabulary (status "Actief", consumerUnit "Ja"/"Nee");
// the orchestrator is responsible for producing them. Index is the 1-based
// position within the batch, required to be unique by the registry.
type Product struct {
	Index               int      `json:"index"`
	GTIN                string   `json:"gtin"`
	Status              string   `json:"status"`
	Description         string   `json:"description"`
	BrandName           string   `json:"brandName,omitempty"`
	Language            string   `json:"language"`
	TargetMarketCountry string   `json:"targetMarketCountry"`
	ConsumerUnit        string   `json:"consumerUnit"`
	PackagingType       string   `json:"packagingType"`
	ContractNumber      string   `json:"contractNumber"`
	GPC                 string   `json:"gpc,omitempty"`
	NetContent          *float64 `json:"netContent,omitempty"`
	MeasurementUnit     string   `json:"measurementUnit,omitempty"`
	ImageURL            string   `json:"imageUrl,omitempty"`
}

// ResultProduct is a successfully registered product as echoed by the results
// endpoint. The registry may return the GTIN with a leading zero and/or the
// check digit appended; consumers normalize before matching.
type ResultProduct struct {
	GTIN string `json:"gtin"`
}

// ResultError is a per-product rejection. The provider sends both a localized
// and an English message; the localized one is preferred when present.
type ResultError struct {
	ContractNumber string `json:"contractNumber"`
	ErrorMessageNL string `json:"errorMessageNl"`
	ErrorMessageEN string `json:"errorMessageEn"`
}

// ResultSet is the reconciliation payload for one invocation.
type ResultSet struct {
	SuccessfulProducts []ResultProduct `json:"successfulProducts"`
	ErrorMessages      []ResultError   `json:"errorMessages"`
}

// Message returns the preferred human-readable message for a rejection.
func (e ResultError) Message() string {
	if e.ErrorMessageNL != "" {
		return e.ErrorMessageNL
	}
	return e.ErrorMessageEN
}
