package models

// OwnerKind tags the kind of record that owns a poster image. It is resolved
// once from the request path and threaded through as a value; nothing
// downstream re-inspects path strings.
type OwnerKind int

const (
	OwnerAsset OwnerKind = iota
	OwnerProject
	OwnerProfile
)

func (k OwnerKind) String() string {
	switch k {
	case OwnerProject:
		return "project"
	case OwnerProfile:
		return "profile"
	default:
		return "asset"
	}
}

// Owner is the resolved poster owner: a project, a profile, or another
// asset. PosterURL is the single URL field the poster workflow reads and
// conditionally overwrites; owners themselves are never created or deleted
// here.
type Owner struct {
	Kind      OwnerKind
	ID        string
	PosterURL string
}

type Project struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	PosterURL string `json:"poster_url"`
}

type Profile struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
	Plan      string `json:"plan"`
}
