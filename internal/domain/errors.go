package domain

import (
	"errors"
	"fmt"
)

// ErrNoResults marks a lookup that matched nothing. It is not a failure at the HTTP boundary.
var ErrNoResults = errors.New("no results")

// ConfigError reports a required setting that is absent.
type ConfigError struct {
	Setting string
	Msg     string
	Hint    string
}

func (e *ConfigError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.Setting + " is not configured"
}

// AuthError reports an OAuth exchange or refresh rejected by Google.
type AuthError struct {
	Code        string
	Description string
	Err         error
}

func (e *AuthError) Error() string {
	switch {
	case e.Description != "":
		return "oauth: " + e.Description
	case e.Code != "":
		return "oauth: " + e.Code
	case e.Err != nil:
		return "oauth: " + e.Err.Error()
	}
	return "oauth: token request rejected"
}

func (e *AuthError) Unwrap() error { return e.Err }

// UpstreamError reports a non-success answer from a Google REST API.
type UpstreamError struct {
	Service string
	Op      string
	Status  int
	Body    string
}

func (e *UpstreamError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: failed to %s (%d): %s", e.Service, e.Op, e.Status, e.Body)
	}
	return fmt.Sprintf("%s: failed to %s: %s", e.Service, e.Op, e.Body)
}
