package models

// User is the owner type the service binary binds sessions to. The core is
// generic over the owner; User only exists for the HTTP glue.
type User struct {
	ID   int64  `json:"id"`
	GUID string `json:"guid"`
}

type APIKey struct {
	Key      string `json:"key"`
	ClientID string `json:"client_id"`
}
