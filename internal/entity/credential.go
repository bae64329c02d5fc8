package entity

// Credentials is the api key triplet issued by the venue. At most one
// triplet is live at a time; a new one invalidates the previous.
type Credentials struct {
	Key        string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

func (c Credentials) IsZero() bool {
	return c.Key == "" && c.Secret == "" && c.Passphrase == ""
}
