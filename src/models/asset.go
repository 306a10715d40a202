package models

// Asset is one user asset's metadata row, as returned by the metadata
// service. The URL either points at live bytes in the object store or is
// empty; the window where it dangles during a failed write is covered by the
// compensation logic in assetops.
type Asset struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	URL       string `json:"asset_url"`
	Size      int64  `json:"size"`
	Type      string `json:"asset_type"`
	ProjectID string `json:"project_id,omitempty"`
	PosterURL string `json:"poster_url,omitempty"`
	IsPrivate bool   `json:"is_private"`
}
