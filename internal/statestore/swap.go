package statestore

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/cursorkit/switchboard/internal/token"
)

// Credentials is the session material written into the state store.
type Credentials struct {
	Email        string
	AccessToken  string
	RefreshToken string
	// SubjectID is the workos user id; recovered from the access token
	// payload when empty.
	SubjectID string
}

// SwapCredentials replaces the target's session in one transaction:
// stale keys are deleted first, then the new credential keys are
// upserted. Either everything lands or nothing does.
func (s *Store) SwapCredentials(creds Credentials) error {
	if creds.AccessToken == "" {
		return fmt.Errorf("swap credentials: empty access token")
	}

	subjectID := creds.SubjectID
	if subjectID == "" {
		claims, err := token.DecodePayload(creds.AccessToken)
		if err == nil {
			subjectID = claims.SubjectID()
		}
	}
	if subjectID == "" {
		log.Printf("⚠️ No subject id available, cursorAuth/userId will not be written")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, key := range staleKeys {
			if err := tx.Where("key = ?", key).Delete(&Item{}).Error; err != nil {
				return fmt.Errorf("clear %s: %w", key, err)
			}
		}

		updates := []Item{
			{Key: KeySignUpType, Value: SignUpTypeAuth0},
			{Key: KeyCachedEmail, Value: creds.Email},
			{Key: KeyAccessToken, Value: creds.AccessToken},
			{Key: KeyRefreshToken, Value: creds.RefreshToken},
		}
		if subjectID != "" {
			updates = append(updates, Item{Key: KeyUserID, Value: subjectID})
		}
		for _, item := range updates {
			if err := tx.Save(&item).Error; err != nil {
				return fmt.Errorf("write %s: %w", item.Key, err)
			}
		}
		return nil
	})
}

// AuthState is the session currently stored in the target's database.
type AuthState struct {
	Email        string
	AccessToken  string
	RefreshToken string
	SubjectID    string
}

// ReadAuth returns the target's current session. Missing keys come back
// empty rather than erroring, so a signed-out target reads as zero.
func (s *Store) ReadAuth() (AuthState, error) {
	var items []Item
	keys := []string{KeyAccessToken, KeyCachedEmail, KeyRefreshToken, KeyUserID}
	if err := s.db.Where("key IN ?", keys).Find(&items).Error; err != nil {
		return AuthState{}, fmt.Errorf("read auth keys: %w", err)
	}

	var state AuthState
	for _, item := range items {
		switch item.Key {
		case KeyAccessToken:
			state.AccessToken = item.Value
		case KeyCachedEmail:
			state.Email = item.Value
		case KeyRefreshToken:
			state.RefreshToken = item.Value
		case KeyUserID:
			state.SubjectID = item.Value
		}
	}
	return state, nil
}
