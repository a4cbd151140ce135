package domain

// Country is a visa destination and the document labels it requires.
type Country struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	RequiredDocs Labels `json:"required_docs"`
}
