package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"biblioflow/library"
)

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login posts the credentials. Rejected credentials come back either as a
// 2xx body with success=false or as a 401 carrying the same body; both are
// returned as a LoginResult.
func (c *Client) Login(ctx context.Context, email, password string) (*library.LoginResult, error) {
	out := &library.LoginResult{}
	err := c.doJSON(ctx, http.MethodPost, "/auth/login", nil, nil, loginBody{Email: email, Password: password}, out)
	if err == nil {
		return out, nil
	}

	var se *StatusError
	if errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusBadRequest) {
		res := &library.LoginResult{}
		if se.Body != "" && json.UnmarshalFromString(se.Body, res) == nil && res.Error != "" {
			return res, nil
		}
		return &library.LoginResult{Success: false}, nil
	}
	return nil, err
}

func (c *Client) FindUsersByEmail(ctx context.Context, email string) ([]library.User, error) {
	var out []library.User
	q := url.Values{"email": {email}}
	if err := c.doJSON(ctx, http.MethodGet, "/users", q, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateUser(ctx context.Context, user library.User) (*library.User, error) {
	out := &library.User{}
	if err := c.doJSON(ctx, http.MethodPost, "/users", nil, nil, user, out); err != nil {
		return nil, err
	}
	return out, nil
}

// UserRating fetches the aggregate served at /{id}/rating.
func (c *Client) UserRating(ctx context.Context, userID string) (*library.UserRating, error) {
	path, err := pathID("", userID)
	if err != nil {
		return nil, err
	}
	out := &library.UserRating{}
	if err := c.doJSON(ctx, http.MethodGet, path+"/rating", nil, nil, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}
