package config

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Credentials holds Polymarket API credentials and the signing key.
type Credentials struct {
	Address    string `json:"address"`
	APIKey     string `json:"api_key"`
	APISecret  string `json:"api_secret"`
	Passphrase string `json:"api_passphrase"`

	// PrivateKey is a hex-encoded secp256k1 key loaded from the keys file.
	PrivateKey string `json:"-"`
}

// LoadCredentials reads the JSON credentials file and the CSV keys file.
// Both files are required for live trading; dry-run mode does not call this.
func LoadCredentials(credFile, keysFile string) (*Credentials, error) {
	data, err := os.ReadFile(credFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parse credentials file: %w", err)
	}
	if creds.APIKey == "" || creds.APISecret == "" || creds.Passphrase == "" {
		return nil, fmt.Errorf("credentials file %s is missing api_key, api_secret, or api_passphrase", credFile)
	}

	key, err := loadPrivateKey(keysFile, creds.Address)
	if err != nil {
		return nil, err
	}
	creds.PrivateKey = key

	return &creds, nil
}

// loadPrivateKey finds the private key for address in a CSV of
// address,private_key rows. A header row is skipped if present.
func loadPrivateKey(path, address string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("read keys file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return "", fmt.Errorf("parse keys file: %w", err)
	}

	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		addr := strings.TrimSpace(row[0])
		if strings.EqualFold(addr, "address") {
			continue
		}
		if address == "" || strings.EqualFold(addr, address) {
			key := strings.TrimSpace(row[1])
			return strings.TrimPrefix(key, "0x"), nil
		}
	}

	return "", fmt.Errorf("no private key found for address %q in %s", address, path)
}
