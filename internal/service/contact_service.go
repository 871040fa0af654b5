package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prperemyshlev/contacts-service/internal/domain"
	"github.com/prperemyshlev/contacts-service/internal/repository"
	"github.com/prperemyshlev/contacts-service/internal/utils"
)

const (
	DefaultContactLimit = 100
	MaxContactLimit     = 1000
	birthdayWindowDays  = 7
)

// contactService implements ContactService interface
type contactService struct {
	contactRepo repository.ContactRepository
	now         func() time.Time
}

// NewContactService creates a new contact service
func NewContactService(contactRepo repository.ContactRepository) ContactService {
	return &contactService{
		contactRepo: contactRepo,
		now:         time.Now,
	}
}

// List returns a page of the owner's contacts
func (s *contactService) List(ctx context.Context, owner *domain.User, filter domain.ContactFilter) ([]*domain.Contact, error) {
	if filter.Skip < 0 {
		return nil, ValidationError("skip must not be negative")
	}
	if filter.Limit < 0 {
		return nil, ValidationError("limit must not be negative")
	}
	if filter.Limit > MaxContactLimit {
		filter.Limit = MaxContactLimit
	}
	filter.Query = strings.TrimSpace(filter.Query)

	contacts, err := s.contactRepo.List(ctx, owner.ID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}

	return contacts, nil
}

// Get returns one of the owner's contacts
func (s *contactService) Get(ctx context.Context, owner *domain.User, contactID int64) (*domain.Contact, error) {
	contact, err := s.contactRepo.GetByID(ctx, owner.ID, contactID)
	if err != nil {
		return nil, contactError(err)
	}
	return contact, nil
}

// Create adds a contact to the owner's address book
func (s *contactService) Create(ctx context.Context, owner *domain.User, fields domain.ContactFields) (*domain.Contact, error) {
	contact, err := s.contactRepo.Create(ctx, owner.ID, sanitizeContact(fields))
	if err != nil {
		return nil, contactError(err)
	}
	return contact, nil
}

// Update replaces all fields of one of the owner's contacts
func (s *contactService) Update(ctx context.Context, owner *domain.User, contactID int64, fields domain.ContactFields) (*domain.Contact, error) {
	contact, err := s.contactRepo.Update(ctx, owner.ID, contactID, sanitizeContact(fields))
	if err != nil {
		return nil, contactError(err)
	}
	return contact, nil
}

// Delete removes one of the owner's contacts and returns it
func (s *contactService) Delete(ctx context.Context, owner *domain.User, contactID int64) (*domain.Contact, error) {
	contact, err := s.contactRepo.Delete(ctx, owner.ID, contactID)
	if err != nil {
		return nil, contactError(err)
	}
	return contact, nil
}

// UpcomingBirthdays returns the owner's contacts with a birthday in the next 7 days, today included
func (s *contactService) UpcomingBirthdays(ctx context.Context, owner *domain.User) ([]*domain.Contact, error) {
	today := domain.DateOf(s.now())

	contacts, err := s.contactRepo.UpcomingBirthdays(ctx, owner.ID, today, today.AddDays(birthdayWindowDays))
	if err != nil {
		return nil, fmt.Errorf("failed to get upcoming birthdays: %w", err)
	}

	return contacts, nil
}

func sanitizeContact(fields domain.ContactFields) domain.ContactFields {
	fields.Email = utils.SanitizeEmail(fields.Email)
	return fields
}

func contactError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrContactNotFound
	case errors.Is(err, repository.ErrDuplicateContactEmail):
		return ErrContactEmailTaken
	default:
		return fmt.Errorf("contact operation failed: %w", err)
	}
}
