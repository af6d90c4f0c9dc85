package settings

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_Success(t *testing.T) {
	t.Setenv("NI_INVENTORY_ADDRESS_nautobot_dev", "https://nautobot.example.com")
	t.Setenv("NI_INVENTORY_TOKEN_nautobot_dev", "tok-123")
	t.Setenv("NI_NET_CREDS_LOGIN_lab_devices", "admin")
	t.Setenv("NI_NET_CREDS_PASSWORD_lab_devices", "hunter2")

	r := NewEnvResolver()
	resolved, err := r.Resolve("nautobot_dev", "lab_devices")
	require.NoError(t, err)

	assert.Equal(t, "https://nautobot.example.com", resolved.InventoryAddress)
	assert.Equal(t, "tok-123", resolved.InventoryToken)
	assert.Equal(t, "admin", resolved.NetworkLogin)
	assert.Equal(t, "hunter2", resolved.NetworkPassword)
}

func TestResolve_UnknownInventory(t *testing.T) {
	r := NewEnvResolver()
	_, err := r.Resolve("does_not_exist", "lab_devices")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "NI_INVENTORY_ADDRESS_does_not_exist")
}

func TestResolve_UnknownCredentials(t *testing.T) {
	t.Setenv("NI_INVENTORY_ADDRESS_inv", "https://nautobot.example.com")
	t.Setenv("NI_INVENTORY_TOKEN_inv", "tok")

	r := NewEnvResolver()
	_, err := r.Resolve("inv", "missing_creds")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestResolve_EmptyName(t *testing.T) {
	r := NewEnvResolver()
	_, err := r.Resolve("", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}
