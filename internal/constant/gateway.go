package constant

const (
	// Credential namespace inside the persisted KEY=VALUE file. Every key
	// with this prefix is replaced on rotation, everything else is kept.
	CredentialKeyPrefix = "POLY_"

	CredentialKeyAPIKey     = "POLY_API_KEY"
	CredentialKeySecret     = "POLY_SECRET"
	CredentialKeyPassphrase = "POLY_PASSPHRASE"

	PushEventConnectionStatus = "connection_status"
	PushEventUserUpdate       = "user_update"

	UserStreamChannel = "user"
)
