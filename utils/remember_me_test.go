package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptCredentialsRoundtrip(t *testing.T) {
	t.Setenv("REMEMBER_ME_ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")

	credentials := RememberedCredentials{
		Email:      "vendor@example.com",
		UserType:   "vendor",
		UserID:     "64f1c0ffee0000000000abcd",
		ExpiresAt:  time.Now().Add(time.Hour).Truncate(time.Second),
		DeviceInfo: "test-device",
	}

	encrypted, err := EncryptCredentials(credentials)
	require.NoError(t, err)
	require.NotEmpty(t, encrypted)
	assert.NotContains(t, encrypted, credentials.Email)

	decrypted, err := DecryptCredentials(encrypted)
	require.NoError(t, err)
	assert.Equal(t, credentials.Email, decrypted.Email)
	assert.Equal(t, credentials.UserType, decrypted.UserType)
	assert.Equal(t, credentials.UserID, decrypted.UserID)
	assert.Equal(t, credentials.DeviceInfo, decrypted.DeviceInfo)
	assert.True(t, credentials.ExpiresAt.Equal(decrypted.ExpiresAt))
}

func TestDecryptCredentialsRejectsTamperedData(t *testing.T) {
	t.Setenv("REMEMBER_ME_ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")

	encrypted, err := EncryptCredentials(RememberedCredentials{Email: "vendor@example.com"})
	require.NoError(t, err)

	tampered := "A" + encrypted[1:]
	_, err = DecryptCredentials(tampered)
	assert.Error(t, err)
}

func TestDecryptCredentialsRejectsWrongKey(t *testing.T) {
	t.Setenv("REMEMBER_ME_ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")
	encrypted, err := EncryptCredentials(RememberedCredentials{Email: "vendor@example.com"})
	require.NoError(t, err)

	t.Setenv("REMEMBER_ME_ENCRYPTION_KEY", "fedcba9876543210fedcba9876543210")
	_, err = DecryptCredentials(encrypted)
	assert.Error(t, err)
}

func TestRememberedCredentialsRequireRedis(t *testing.T) {
	err := StoreRememberedCredentials(nil, "token", RememberedCredentials{}, time.Hour)
	assert.Error(t, err)

	_, err = RetrieveRememberedCredentials(nil, "token")
	assert.Error(t, err)

	err = RemoveRememberedCredentials(nil, "token")
	assert.Error(t, err)
}
