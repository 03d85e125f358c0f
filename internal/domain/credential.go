package domain

import (
	"fmt"
	"log/slog"
)

// CredentialRole distinguishes the primary credential from the backups.
type CredentialRole string

// Possible credential roles
const (
	RolePrimary CredentialRole = "primary"
	RoleBackup  CredentialRole = "backup"
)

// MaxBackupCredentials caps the persisted backup list.
const MaxBackupCredentials = 10

// Credential is a secret used to authenticate one outbound call to the
// remote generation service.
type Credential struct {
	// Secret is the opaque API key. It must never be logged.
	Secret string

	// Role is primary or backup.
	Role CredentialRole

	// Position is the index in the backup list. It is -1 for the primary.
	Position int
}

// String returns a label that identifies the credential without
// revealing the secret, e.g. "primary" or "backup[2]".
func (c Credential) String() string {
	if c.Role == RolePrimary {
		return string(RolePrimary)
	}
	return fmt.Sprintf("%s[%d]", RoleBackup, c.Position)
}

// LogValue implements slog.LogValuer so secrets stay out of structured logs.
func (c Credential) LogValue() slog.Value {
	return slog.StringValue(c.String())
}
