// Package settings resolves the inventory and credential names carried on a
// job into concrete endpoints and secrets. Values live in the process
// environment so the database never holds credentials:
//
//	NI_INVENTORY_ADDRESS_<name>   inventory base URL
//	NI_INVENTORY_TOKEN_<name>     inventory API token
//	NI_NET_CREDS_LOGIN_<name>     device login
//	NI_NET_CREDS_PASSWORD_<name>  device password
package settings

import (
	"errors"
	"fmt"
	"os"
)

// ErrNotFound is returned when a named setting has no backing environment
// variables.
var ErrNotFound = errors.New("setting not found")

// Resolved holds the concrete values for one import run.
type Resolved struct {
	InventoryAddress string
	InventoryToken   string
	NetworkLogin     string
	NetworkPassword  string
}

// Resolver maps setting names to resolved values.
type Resolver interface {
	Resolve(inventory, credentials string) (*Resolved, error)
}

// EnvResolver resolves settings from the process environment.
type EnvResolver struct{}

func NewEnvResolver() *EnvResolver {
	return &EnvResolver{}
}

func (r *EnvResolver) Resolve(inventory, credentials string) (*Resolved, error) {
	address, err := lookup("NI_INVENTORY_ADDRESS_", inventory)
	if err != nil {
		return nil, err
	}
	token, err := lookup("NI_INVENTORY_TOKEN_", inventory)
	if err != nil {
		return nil, err
	}
	login, err := lookup("NI_NET_CREDS_LOGIN_", credentials)
	if err != nil {
		return nil, err
	}
	password, err := lookup("NI_NET_CREDS_PASSWORD_", credentials)
	if err != nil {
		return nil, err
	}

	return &Resolved{
		InventoryAddress: address,
		InventoryToken:   token,
		NetworkLogin:     login,
		NetworkPassword:  password,
	}, nil
}

func lookup(prefix, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty setting name", ErrNotFound)
	}
	v := os.Getenv(prefix + name)
	if v == "" {
		return "", fmt.Errorf("%w: environment variable %s%s is not set", ErrNotFound, prefix, name)
	}
	return v, nil
}
