package entity

// URLAnalysis holds the display-only fields derived from a website address
type URLAnalysis struct {
	OriginalURL    string `json:"originalUrl"`
	Domain         string `json:"domain"`
	FullDomain     string `json:"fullDomain"`
	Protocol       string `json:"protocol"`
	TLD            string `json:"tld"`
	IsHTTPS        bool   `json:"isHttps"`
	SecurityRating string `json:"securityRating"`
	DomainAge      string `json:"domainAge"`
	DomainType     string `json:"domainType"`
	Subdomain      string `json:"subdomain"`
	Path           string `json:"path"`
	QueryParams    string `json:"queryParams"`
	Fragment       string `json:"fragment"`
	Summary        string `json:"summary"`
}
