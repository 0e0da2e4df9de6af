package trellis

// Partner is a trading-partner profile resource.
type Partner struct {
	ID         string `json:"_id"`
	Name       string `json:"name"`
	MasterID   string `json:"masterid"`
	CoiEmails  string `json:"coi-emails"`
	FsqaEmails string `json:"fsqa-emails"`
}

// Email returns the notification address for the given document collection.
func (p *Partner) Email(collection string) string {
	if collection == CollectionCois {
		return p.CoiEmails
	}
	return p.FsqaEmails
}
