package models

const MwAPIKeyHeader = "X-API-Key"

type SigninRequest struct {
	OwnerGUID  string         `json:"owner_guid"`
	CustomData map[string]any `json:"custom_data,omitempty"`
}

type SigninResponse struct {
	BearerToken string `json:"bearer_token"`
}

type AuthenticateRequest struct {
	BearerToken string `json:"bearer_token"`
}

type AuthenticateResponse struct {
	OwnerGUID   string `json:"owner_guid"`
	BearerToken string `json:"bearer_token"`
}

type SignoutRequest struct {
	BearerToken string `json:"bearer_token"`
}
