package session

// Company as embedded in a user profile.
type Company struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Profile holds the optional employment details of a user.
type Profile struct {
	Company  *Company `json:"company"`
	JobTitle string   `json:"job_title,omitempty"`
	AzureOID string   `json:"azure_oid,omitempty"`
}

// User is the immutable snapshot returned by the profile endpoint. It is
// replaced wholesale on every successful authentication check, never
// partially mutated.
type User struct {
	ID              int      `json:"id"`
	Username        string   `json:"username"`
	Email           string   `json:"email"`
	FirstName       string   `json:"first_name"`
	LastName        string   `json:"last_name"`
	IsAppAuthorized bool     `json:"is_app_authorized"`
	Profile         *Profile `json:"profile,omitempty"`
	AuthProvider    string   `json:"auth_provider,omitempty"`
}

// Validate reports whether the payload looks like a real user object.
// A malformed profile response (e.g. an HTML page from a redirecting
// endpoint) must be treated as unauthenticated rather than rendered.
func (u *User) Validate() error {
	if u == nil {
		return ErrInvalidProfile
	}
	if u.ID <= 0 || u.Username == "" || u.Email == "" {
		return ErrInvalidProfile
	}
	return nil
}
