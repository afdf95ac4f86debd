package credstore

import (
	"fmt"
	"time"

	"github.com/nse-datasync/extranet-sync/internal/database"
)

// storage is the slice of the database the store needs: the settings table
// for the vault salt and the credential rows themselves.
type storage interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
	HasSetting(key string) bool
	SaveCredential(cred *database.Credential) error
	LoadCredential() (*database.Credential, error)
}

// Credentials is the decrypted login material handed to callers.
type Credentials struct {
	MemberCode string
	LoginID    string
	Password   string
	SecretKey  string
}

// Store keeps the member's extranet password encrypted at rest. The AES key
// is derived from a vault passphrase with argon2; the salt lives in the
// settings table and is generated on first use.
type Store struct {
	db  storage
	key []byte
}

// Open derives the vault key for this passphrase, creating the salt if the
// vault has never been used.
func Open(db storage, passphrase string) (*Store, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("vault passphrase must not be empty")
	}

	var salt []byte
	if db.HasSetting(database.SettingVaultSalt) {
		encoded, err := db.GetSetting(database.SettingVaultSalt)
		if err != nil {
			return nil, fmt.Errorf("load vault salt: %w", err)
		}
		salt, err = decodeSalt(encoded)
		if err != nil {
			return nil, fmt.Errorf("decode vault salt: %w", err)
		}
	} else {
		var err error
		salt, err = generateSalt()
		if err != nil {
			return nil, err
		}
		if err := db.SetSetting(database.SettingVaultSalt, encodeSalt(salt)); err != nil {
			return nil, fmt.Errorf("store vault salt: %w", err)
		}
	}

	return &Store{db: db, key: deriveKey(passphrase, salt)}, nil
}

// Save encrypts the password and upserts the active credential row.
func (s *Store) Save(creds Credentials) error {
	encrypted, err := encrypt([]byte(creds.Password), s.key)
	if err != nil {
		return fmt.Errorf("encrypt password: %w", err)
	}

	return s.db.SaveCredential(&database.Credential{
		MemberCode:        creds.MemberCode,
		LoginID:           creds.LoginID,
		EncryptedPassword: encrypted,
		SecretKey:         creds.SecretKey,
		IsActive:          true,
	})
}

// Load decrypts the active credential row. A wrong passphrase surfaces as a
// decryption error, not as garbage credentials.
func (s *Store) Load() (*Credentials, error) {
	cred, err := s.db.LoadCredential()
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}

	password, err := decrypt(cred.EncryptedPassword, s.key)
	if err != nil {
		return nil, fmt.Errorf("decrypt password: %w", err)
	}

	return &Credentials{
		MemberCode: cred.MemberCode,
		LoginID:    cred.LoginID,
		Password:   string(password),
		SecretKey:  cred.SecretKey,
	}, nil
}

// MarkVerified stamps the active credential row after a successful login.
func (s *Store) MarkVerified() error {
	cred, err := s.db.LoadCredential()
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}
	now := time.Now()
	cred.LastVerified = &now
	return s.db.SaveCredential(cred)
}
