package service

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/tazhate/remindbot/internal/domain"
	"github.com/tazhate/remindbot/internal/storage"
)

type ProfileService struct {
	storage       *storage.Storage
	defaultOffset int
}

func NewProfileService(s *storage.Storage, defaultOffset int) *ProfileService {
	return &ProfileService{storage: s, defaultOffset: defaultOffset}
}

// Ensure returns the user's profile, creating it with the default offset on
// first contact.
func (s *ProfileService) Ensure(userID int64, name string) (*domain.UserProfile, error) {
	p, err := s.storage.GetProfile(userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if p != nil {
		return p, nil
	}

	p = &domain.UserProfile{
		UserID:    userID,
		Name:      strings.TrimSpace(name),
		UTCOffset: s.defaultOffset,
	}
	if err := s.storage.CreateProfile(p); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return p, nil
}

// Get returns the profile or nil when the user never wrote to the bot.
func (s *ProfileService) Get(userID int64) (*domain.UserProfile, error) {
	return s.storage.GetProfile(userID)
}

// Location resolves the user's zone once at the boundary. Lookup failures
// degrade to the default offset.
func (s *ProfileService) Location(userID int64) *time.Location {
	p, err := s.storage.GetProfile(userID)
	if err != nil {
		log.Printf("Error getting profile %d: %v", userID, err)
	}
	if p == nil {
		return domain.Zone(s.defaultOffset)
	}
	return p.Location()
}

// SetTimezone parses an offset such as "+5" or "UTC-3" and stores it.
func (s *ProfileService) SetTimezone(userID int64, raw string) (*domain.UserProfile, error) {
	offset, err := domain.ParseOffset(raw)
	if err != nil {
		return nil, err
	}
	p, err := s.Ensure(userID, "")
	if err != nil {
		return nil, err
	}
	if err := s.storage.UpdateProfileOffset(userID, offset); err != nil {
		return nil, fmt.Errorf("update offset: %w", err)
	}
	p.UTCOffset = offset
	return p, nil
}

// SetStyle stores how the assistant should address the user.
func (s *ProfileService) SetStyle(userID int64, addressing, tone string) error {
	if _, err := s.Ensure(userID, ""); err != nil {
		return err
	}
	return s.storage.UpdateProfileStyle(userID, strings.TrimSpace(addressing), strings.TrimSpace(tone))
}
