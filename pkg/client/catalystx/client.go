package catalystx

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/bigredeye/catalystx/api"
)

// SessionCookie is the name of the cookie holding a professor session.
const SessionCookie = "session"

type Client struct {
	client *resty.Client
}

func NewClient(endpoint string) (*Client, error) {
	if endpoint == "" {
		return nil, errors.New("empty endpoint")
	}
	client := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(time.Second * 10).
		SetRetryCount(3)

	return &Client{client}, nil
}

// SetSession attaches a previously saved session cookie value.
func (c *Client) SetSession(value string) {
	c.client.SetCookie(&http.Cookie{Name: SessionCookie, Value: value})
}

// Session returns the session cookie value set by the last Verify.
func (c *Client) Session() string {
	for _, cookie := range c.client.Cookies {
		if cookie.Name == SessionCookie {
			return cookie.Value
		}
	}
	return ""
}

func check(op string, res *resty.Response, status *api.Status) error {
	if !status.Ok {
		msg := status.Error
		if msg == "" {
			msg = res.Status()
		}
		return fmt.Errorf("failed to %s: %s", op, msg)
	}
	return nil
}

// RequestCode asks the server to email a one-time password.
func (c *Client) RequestCode(email string) (*api.LoginResponse, error) {
	res := &api.LoginResponse{}
	resp, err := c.client.R().
		SetResult(res).
		SetError(res).
		SetBody(api.LoginRequest{Email: email}).
		Post("/api/auth/professor/login")
	if err != nil {
		return nil, err
	}
	if err := check("request code", resp, &res.Status); err != nil {
		return nil, err
	}
	return res, nil
}

// Verify exchanges the emailed code for a session.
func (c *Client) Verify(email, code string) error {
	res := &api.VerifyOTPResponse{}
	resp, err := c.client.R().
		SetResult(res).
		SetError(res).
		SetBody(api.VerifyOTPRequest{Email: email, OTP: code}).
		Post("/api/auth/professor/verify-otp")
	if err != nil {
		return err
	}
	if err := check("verify code", resp, &res.Status); err != nil {
		return err
	}

	for _, cookie := range resp.Cookies() {
		if cookie.Name == SessionCookie {
			c.SetSession(cookie.Value)
			return nil
		}
	}
	return errors.New("server did not set a session cookie")
}

func (c *Client) LoadProjects() ([]api.Project, error) {
	res := &api.ProjectsResponse{}
	resp, err := c.client.R().
		SetResult(res).
		SetError(res).
		Get("/api/projects")
	if err != nil {
		return nil, err
	}
	if err := check("fetch projects", resp, &res.Status); err != nil {
		return nil, err
	}
	return res.Projects, nil
}

type Filter struct {
	Status string
	Branch string
	// CV is one of with, without or all.
	CV string
}

func (f Filter) params() map[string]string {
	params := make(map[string]string)
	if f.Status != "" {
		params["status"] = f.Status
	}
	if f.Branch != "" {
		params["branch"] = f.Branch
	}
	if f.CV != "" {
		params["cv"] = f.CV
	}
	return params
}

func (c *Client) LoadApplications(project string, filter Filter) (*api.ApplicationsResponse, error) {
	res := &api.ApplicationsResponse{}
	resp, err := c.client.R().
		SetResult(res).
		SetError(res).
		SetPathParam("project", project).
		SetQueryParams(filter.params()).
		Get("/api/projects/{project}/applications")
	if err != nil {
		return nil, err
	}
	if err := check("fetch applications", resp, &res.Status); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) SetStatus(application, status string) (*api.StatusUpdateResponse, error) {
	res := &api.StatusUpdateResponse{}
	resp, err := c.client.R().
		SetResult(res).
		SetError(res).
		SetPathParam("application", application).
		SetBody(api.StatusUpdateRequest{Status: status}).
		Patch("/api/applications/{application}/status")
	if err != nil {
		return nil, err
	}
	if err := check("update status", resp, &res.Status); err != nil {
		return nil, err
	}
	return res, nil
}

// Export streams the accepted applications of a project in csv or xlsx format into w.
func (c *Client) Export(project, format string, w io.Writer) error {
	resp, err := c.client.R().
		SetDoNotParseResponse(true).
		SetPathParam("project", project).
		SetQueryParam("format", format).
		Get("/api/projects/{project}/applications/export")
	if err != nil {
		return err
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.IsError() {
		status := &api.Status{}
		if err := json.NewDecoder(body).Decode(status); err != nil {
			return fmt.Errorf("failed to export applications: %s", resp.Status())
		}
		return check("export applications", resp, status)
	}

	_, err = io.Copy(w, body)
	return errors.Wrap(err, "failed to save export")
}
