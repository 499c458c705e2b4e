package portal

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Identity is the authenticated subject handed over by the session layer.
type Identity struct {
	ID          string
	Email       string
	DisplayName string
}

// Caller is a resolved identity together with its role.
type Caller struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// RequireAdmin accepts ADMIN and SUPER_ADMIN.
func (caller Caller) RequireAdmin() error {
	if !caller.Role.IsAdmin() {
		return ErrAdminRequired
	}
	return nil
}

// RequireSuperAdmin accepts SUPER_ADMIN only.
func (caller Caller) RequireSuperAdmin() error {
	if caller.Role != RoleSuperAdmin {
		return ErrSuperAdminRequired
	}
	return nil
}

// ResolveCaller maps an authenticated identity to its profile role.
func (service *Service) ResolveCaller(ctx context.Context, identityID string) (Caller, error) {
	trimmed := strings.TrimSpace(identityID)
	if trimmed == "" {
		return Caller{}, ErrUnauthenticated
	}
	profile, err := service.store.GetProfile(ctx, trimmed)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Caller{}, fmt.Errorf("%w: %s", ErrProfileNotFound, trimmed)
		}
		return Caller{}, WrapError("service", "profile", operationResolveCaller, err)
	}
	return Caller{ID: profile.ID, Email: profile.Email, Role: profile.Role}, nil
}

// BootstrapProfile creates the USER profile of a first-time identity, or returns the existing one.
func (service *Service) BootstrapProfile(ctx context.Context, identity Identity) (Profile, error) {
	identityID := strings.TrimSpace(identity.ID)
	if identityID == "" {
		return Profile{}, ErrUnauthenticated
	}
	firstName, lastName := splitDisplayName(identity.DisplayName)
	now := service.now()
	profile, err := service.store.CreateProfileIfMissing(ctx, Profile{
		ID:        identityID,
		Email:     strings.ToLower(strings.TrimSpace(identity.Email)),
		FirstName: firstName,
		LastName:  lastName,
		Role:      RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationBootstrapProfile,
		ActorID:   identityID,
		SubjectID: identityID,
		Error:     err,
	})
	return profile, err
}

// Profile returns the caller's own profile.
func (service *Service) Profile(ctx context.Context, caller Caller) (Profile, error) {
	profile, err := service.store.GetProfile(ctx, caller.ID)
	if errors.Is(err, ErrNotFound) {
		return Profile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, caller.ID)
	}
	return profile, err
}

// UpdateContact edits the caller's own contact fields. The role is never touched here.
func (service *Service) UpdateContact(ctx context.Context, caller Caller, update ContactUpdate) (Profile, error) {
	if err := service.validateStruct(update); err != nil {
		return Profile{}, err
	}
	profile, err := service.store.UpdateProfileContact(ctx, caller.ID, trimContact(update), service.now())
	if errors.Is(err, ErrNotFound) {
		err = fmt.Errorf("%w: %s", ErrProfileNotFound, caller.ID)
	}
	service.logOperation(ctx, OperationLog{
		Operation: operationUpdateContact,
		ActorID:   caller.ID,
		SubjectID: caller.ID,
		Error:     err,
	})
	return profile, err
}

func trimContact(update ContactUpdate) ContactUpdate {
	trim := func(value *string) *string {
		if value == nil {
			return nil
		}
		trimmed := strings.TrimSpace(*value)
		return &trimmed
	}
	return ContactUpdate{
		FirstName:  trim(update.FirstName),
		LastName:   trim(update.LastName),
		Phone:      trim(update.Phone),
		Address:    trim(update.Address),
		PostalCode: trim(update.PostalCode),
		City:       trim(update.City),
	}
}

func splitDisplayName(displayName string) (string, string) {
	parts := strings.Fields(displayName)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}
