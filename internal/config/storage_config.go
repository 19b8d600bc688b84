package config

type StorageConfig interface {
	GetStoragePassphrase() string
}

type SandboxConfig interface {
	GetSandboxPort() string
}

var (
	_ StorageConfig = mainConfig{}
	_ SandboxConfig = mainConfig{}
)

// GetStoragePassphrase returns the passphrase for the encrypted credential
// file. Empty means the caller has to prompt for one.
func (c mainConfig) GetStoragePassphrase() string {
	return c.StorePassphrase
}

func (c mainConfig) GetSandboxPort() string {
	return c.SandboxPort
}
