// Package ctl implements the tstatectl operator CLI: a thin HTTP client for
// the daemon plus the cobra command tree.
package ctl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tstated/pkg/types"
)

// Client talks to a running tstated instance.
type Client struct {
	Addr string
	HTTP *http.Client
}

func NewClient(addr string) *Client {
	return &Client{Addr: addr, HTTP: &http.Client{Timeout: 30 * time.Second}}
}

func (c *Client) url(path string) string {
	addr := c.Addr
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return strings.TrimRight(addr, "/") + path
}

func (c *Client) getJSON(path string, out any) error {
	resp, err := c.HTTP.Get(c.url(path))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func (c *Client) postJSON(path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Post(c.url(path), "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var er types.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&er); err == nil && er.Error != "" {
			return fmt.Errorf("daemon: %s (%d)", er.Error, er.Code)
		}
		return fmt.Errorf("daemon: unexpected status %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) Status() (types.StatusResponse, error) {
	var out types.StatusResponse
	err := c.getJSON("/v1/status", &out)
	return out, err
}

func (c *Client) CPUs() (types.CPUsResponse, error) {
	var out types.CPUsResponse
	err := c.getJSON("/v1/cpus", &out)
	return out, err
}

func (c *Client) Notify(mode string) (types.TransitionResponse, error) {
	var out types.TransitionResponse
	err := c.postJSON("/v1/transitions", types.TransitionRequest{Mode: mode}, &out)
	return out, err
}
