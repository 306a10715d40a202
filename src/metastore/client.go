package metastore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/atelierhq/assetgate/src/auth"
	"github.com/atelierhq/assetgate/src/config"
	"github.com/atelierhq/assetgate/src/models"
	"github.com/atelierhq/assetgate/src/oops"
)

// Client implements Store against a PostgREST-style metadata service:
// lookups are REST GETs, writes are named remote procedures under
// /rest/v1/rpc/. Admin procedures are signed with a freshly minted
// service-role token; everything else carries the calling user's bearer
// token, falling back to the anon key.
type Client struct {
	cfg        config.MetadataConfig
	userToken  string
	httpClient *http.Client
}

var _ Store = &Client{}

func NewClient(cfg config.MetadataConfig) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
	}
}

// ForUser returns a copy of the client that authenticates user-scoped calls
// with the given bearer token. Construct one per request.
func (c *Client) ForUser(token string) *Client {
	forUser := *c
	forUser.userToken = token
	return &forUser
}

func (c *Client) GetUserAsset(ctx context.Context, name string) (*models.Asset, error) {
	return restGetOne[models.Asset](ctx, c, "user_assets?select=*&name=eq."+url.QueryEscape(name))
}

func (c *Client) CreateUserAsset(ctx context.Context, in CreateUserAssetInput) (*models.Asset, error) {
	params := map[string]interface{}{
		"asset_is_private":  true,
		"asset_is_resource": false,
		"asset_name":        in.Name,
		"asset_asset_url":   in.URL,
		"asset_asset_type":  in.Type,
		"asset_size":        in.Size,
	}
	if in.ProjectID != "" {
		params["asset_project_id"] = in.ProjectID
	}
	return rpcOne[models.Asset](ctx, c, "create_user_asset", params, false)
}

func (c *Client) UpdateUserAssetURL(ctx context.Context, in UpdateUserAssetURLInput) (*models.Asset, error) {
	return rpcOne[models.Asset](ctx, c, "update_user_asset_url", map[string]interface{}{
		"asset_name":      in.Name,
		"asset_asset_url": in.URL,
		"asset_size":      in.Size,
	}, true)
}

func (c *Client) DeleteUserAsset(ctx context.Context, name string) (*models.Asset, error) {
	return rpcOne[models.Asset](ctx, c, "delete_user_asset", map[string]interface{}{
		"asset_name": name,
	}, true)
}

func (c *Client) GetProject(ctx context.Context, id string) (*models.Project, error) {
	return restGetOne[models.Project](ctx, c, "projects?select=*&id=eq."+url.QueryEscape(id))
}

func (c *Client) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	return restGetOne[models.Profile](ctx, c, "profiles?select=*&id=eq."+url.QueryEscape(id))
}

func (c *Client) UpdateProjectPoster(ctx context.Context, id string, posterUrl string) error {
	_, err := c.rpc(ctx, "update_project", map[string]interface{}{
		"project_id":         id,
		"project_poster_url": posterUrl,
	}, false)
	return err
}

func (c *Client) UpdateProfileAvatar(ctx context.Context, id string, avatarUrl string) error {
	_, err := c.rpc(ctx, "update_profile", map[string]interface{}{
		"profile_id":      id,
		"user_avatar_url": avatarUrl,
	}, false)
	return err
}

func (c *Client) UpdateAssetPoster(ctx context.Context, name string, posterUrl string) error {
	_, err := c.rpc(ctx, "update_user_asset", map[string]interface{}{
		"asset_name":       name,
		"asset_poster_url": posterUrl,
	}, false)
	return err
}

// GetEmailForUID resolves a user id to the account email. Used by billing to
// cross-check checkout requests.
func (c *Client) GetEmailForUID(ctx context.Context, uid string) (string, error) {
	body, err := c.rpc(ctx, "get_email_for_uid", map[string]interface{}{
		"user_id": uid,
	}, true)
	if err != nil {
		return "", err
	}
	var email string
	if err := json.Unmarshal(body, &email); err != nil {
		return "", oops.New(err, "failed to unmarshal email for uid")
	}
	return email, nil
}

// UpdateProfilePlan records an active subscription plan on the profile
// matching email, expiring at the given unix time.
func (c *Client) UpdateProfilePlan(ctx context.Context, email string, plan string, expiry int64) error {
	body, err := c.rpc(ctx, "update_profile_plan", map[string]interface{}{
		"user_email":       email,
		"user_plan":        plan,
		"user_plan_expiry": expiry,
	}, true)
	if err != nil {
		return err
	}
	return requireID(body)
}

// ExpireProfilePlan drops the profile back to the free plan, but only if the
// named plan is still the current one.
func (c *Client) ExpireProfilePlan(ctx context.Context, email string, ifCurrentPlan string) error {
	body, err := c.rpc(ctx, "expire_profile_plan", map[string]interface{}{
		"user_email":      email,
		"if_current_plan": ifCurrentPlan,
	}, true)
	if err != nil {
		return err
	}
	return requireID(body)
}

// Proxy forwards an arbitrary /rest/ or /auth/ request to the metadata
// service, injecting the anon key and patching up empty bearer tokens.
func (c *Client) Proxy(ctx context.Context, req *http.Request) (*http.Response, error) {
	outReq, err := http.NewRequestWithContext(ctx, req.Method, c.cfg.BaseUrl+req.URL.RequestURI(), req.Body)
	if err != nil {
		return nil, oops.New(err, "failed to build proxy request")
	}
	outReq.Header = req.Header.Clone()
	outReq.Header.Set("apikey", c.cfg.AnonKey)
	bearer := outReq.Header.Get("Authorization")
	if bearer == "" || bearer == "Bearer" || bearer == "Bearer 0" {
		outReq.Header.Set("Authorization", "Bearer "+c.cfg.AnonKey)
	}

	res, err := c.httpClient.Do(outReq)
	if err != nil {
		return nil, oops.New(err, "failed to proxy request to metadata service")
	}
	return res, nil
}

func (c *Client) rpc(ctx context.Context, name string, params interface{}, admin bool) ([]byte, error) {
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, oops.New(err, "failed to marshal params for rpc %s", name)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/rest/v1/rpc/%s", c.cfg.BaseUrl, name), bytes.NewReader(payload))
	if err != nil {
		return nil, oops.New(err, "failed to build rpc request")
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.setAuthHeaders(req, admin); err != nil {
		return nil, err
	}

	return c.do(req)
}

func (c *Client) restGet(ctx context.Context, query string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/rest/v1/%s", c.cfg.BaseUrl, query), nil)
	if err != nil {
		return nil, oops.New(err, "failed to build rest request")
	}
	if err := c.setAuthHeaders(req, false); err != nil {
		return nil, err
	}

	return c.do(req)
}

func (c *Client) setAuthHeaders(req *http.Request, admin bool) error {
	token := c.userToken
	if admin {
		serviceToken, err := auth.ServiceToken(c.cfg.JwtSecret)
		if err != nil {
			return err
		}
		token = serviceToken
	}
	if token == "" || token == "0" {
		token = c.cfg.AnonKey
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", c.cfg.AnonKey)
	return nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, oops.New(err, "metadata service request failed")
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, oops.New(err, "failed to read metadata service response")
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &RequestError{Status: res.StatusCode, Body: string(body)}
	}
	return body, nil
}

// restGetOne runs a REST lookup and returns the first matching row, or
// ErrNotFound when the result set is empty.
func restGetOne[T any](ctx context.Context, c *Client, query string) (*T, error) {
	body, err := c.restGet(ctx, query)
	if err != nil {
		return nil, err
	}

	var rows []T
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, oops.New(err, "failed to unmarshal metadata rows")
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

// rpcOne runs a remote procedure whose result is a single record, tolerating
// services that wrap it in a one-element array.
func rpcOne[T any](ctx context.Context, c *Client, name string, params interface{}, admin bool) (*T, error) {
	body, err := c.rpc(ctx, name, params, admin)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var rows []T
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, oops.New(err, "failed to unmarshal rpc %s result", name)
		}
		if len(rows) == 0 {
			return nil, ErrNotFound
		}
		return &rows[0], nil
	}

	var row T
	if err := json.Unmarshal(trimmed, &row); err != nil {
		return nil, oops.New(err, "failed to unmarshal rpc %s result", name)
	}
	return &row, nil
}

func requireID(body []byte) error {
	var row struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &row); err != nil || row.ID == "" {
		return oops.New(err, "metadata service did not return an updated row id")
	}
	return nil
}
