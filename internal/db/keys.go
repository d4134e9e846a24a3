package db

import (
	"database/sql"
	"time"

	"crowny-exchange/internal/apperr"
	"crowny-exchange/internal/vault"
)

// UpsertKey stores (or replaces) a principal's sealed venue credentials.
func (d *DB) UpsertKey(userID, venue string, sealed vault.SealedKeyPair, permissions string) error {
	_, err := d.sql.Exec(`
		INSERT INTO keys (user_id, venue, access_key_cipher, secret_key_cipher, iv, tag, permissions, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, venue) DO UPDATE SET
			access_key_cipher = excluded.access_key_cipher,
			secret_key_cipher = excluded.secret_key_cipher,
			iv = excluded.iv,
			tag = excluded.tag,
			permissions = excluded.permissions`,
		userID, venue, sealed.AccessKeyCipher, sealed.SecretKeyCipher, sealed.IV, sealed.Tag, permissions, time.Now().Unix())
	return err
}

// GetKey returns the sealed credentials for (userID, venue), or KindNotFound.
func (d *DB) GetKey(userID, venue string) (vault.SealedKeyPair, string, error) {
	var sealed vault.SealedKeyPair
	var permissions string
	err := d.sql.QueryRow(`
		SELECT access_key_cipher, secret_key_cipher, iv, tag, permissions
		FROM keys WHERE user_id = ? AND venue = ?`, userID, venue).
		Scan(&sealed.AccessKeyCipher, &sealed.SecretKeyCipher, &sealed.IV, &sealed.Tag, &permissions)
	if err == sql.ErrNoRows {
		return vault.SealedKeyPair{}, "", apperr.New(apperr.KindNotFound, "key")
	}
	return sealed, permissions, err
}

// DeleteKey removes a principal's stored credentials for one venue.
func (d *DB) DeleteKey(userID, venue string) error {
	_, err := d.sql.Exec(`DELETE FROM keys WHERE user_id = ? AND venue = ?`, userID, venue)
	return err
}
