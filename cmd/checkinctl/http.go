package main

import (
	"fmt"

	"github.com/go-resty/resty/v2"
)

func newClient() *resty.Client {
	return resty.New().SetBaseURL(apiFlag)
}

// doPostJSON posts payload and returns the raw response body, treating any
// non-2xx status as an error with the server's message attached.
func doPostJSON(path string, payload any) ([]byte, error) {
	resp, err := newClient().R().
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(path)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%s: %s", resp.Status(), resp.String())
	}
	return resp.Body(), nil
}

func doGet(path string, query map[string]string) ([]byte, error) {
	req := newClient().R()
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	resp, err := req.Get(path)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%s: %s", resp.Status(), resp.String())
	}
	return resp.Body(), nil
}
