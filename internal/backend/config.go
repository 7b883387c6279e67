package backend

import (
	"fmt"

	"cashbook/internal/config"
	"cashbook/internal/kv/sheets"
)

// FromAppConfig builds the store config for backendName, which is either
// the primary DATA_BACKEND or the worker's MIRROR_BACKEND.
func FromAppConfig(appConfig *config.Config, backendName string) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(backendName)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s (must be one of %v)", backendName, GetBackendTypes())
	}

	return Config{
		Type:         backendType,
		DataFile:     appConfig.DataFile,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		Sheets: sheets.Config{
			SpreadsheetID:   appConfig.GoogleSpreadsheetID,
			SheetName:       appConfig.GoogleSheetName,
			CredentialsJSON: appConfig.GoogleServiceAccountJSON,
			CredentialsFile: appConfig.GoogleServiceAccountFile,
			OAuthClientJSON: appConfig.GoogleOAuthClientJSON,
			OAuthClientFile: appConfig.GoogleOAuthClientFile,
			OAuthTokenJSON:  appConfig.GoogleOAuthTokenJSON,
			OAuthTokenFile:  appConfig.GoogleOAuthTokenFile,
		},
		CacheTTL:  appConfig.CacheTTL,
		CacheSize: appConfig.CacheSize,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s (must be one of %v)", c.Type, GetBackendTypes())
	}

	switch c.Type {
	case FileBackend:
		if c.DataFile == "" {
			return fmt.Errorf("data file path is required for file backend")
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case SheetsBackend:
		if c.Sheets.SpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
		if !c.Sheets.HasCredentials() {
			return fmt.Errorf("service account or OAuth credentials are required for sheets backend")
		}
	case MemoryBackend:
		// Nothing to configure.
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, FileBackend, SQLiteBackend, SheetsBackend}
}
