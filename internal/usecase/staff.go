package usecase

import (
	"errors"
	"fmt"
	"regexp"

	"golang.org/x/crypto/bcrypt"

	"github.com/bakeryhq/ops-backend/internal/domain"
)

var nonDigit = regexp.MustCompile(`\D+`)

// derivedEmail builds the placeholder email used when a staff profile has no
// phone-based account yet (spec.md §4.8: "⟨phone digits⟩@phone.local").
func derivedEmail(phoneNumber string) string {
	return fmt.Sprintf("%s@phone.local", nonDigit.ReplaceAllString(phoneNumber, ""))
}

// StaffService implements staff/account lifecycle management (spec.md §4.8).
type StaffService struct {
	Profiles domain.StaffProfileRepository
	Actors   domain.ActorRepository
}

// NewStaffService constructs a StaffService.
func NewStaffService(profiles domain.StaffProfileRepository, actors domain.ActorRepository) *StaffService {
	return &StaffService{Profiles: profiles, Actors: actors}
}

// CreateAccountInput is the command DTO for linking a login Actor to a
// StaffProfile.
type CreateAccountInput struct {
	ProfileID        int64
	Username         string
	InitialPassword  string
	AdditionalBranch *int64
}

// CreateAccountForProfile links a new or reactivated Actor to an active
// StaffProfile, following spec.md §4.8's resolution order:
//  1. reject if the profile is already linked, or its role preference is
//     "other" (an account cannot be created for a non-login role)
//  2. search for an existing actor by username or the derived placeholder
//     email; an active match is a hard conflict
//  3. an inactive match is reactivated in place rather than creating a
//     duplicate row; whether another profile links to it is not checked
//  4. otherwise a new Actor is created
func (s *StaffService) CreateAccountForProfile(ctx domain.Context, in CreateAccountInput) (domain.Actor, error) {
	profile, err := s.Profiles.Get(ctx, in.ProfileID)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("op=staff.create_account.profile: %w", err)
	}
	if !profile.IsActive {
		return domain.Actor{}, fmt.Errorf("op=staff.create_account.profile_inactive: %w", domain.ErrInvalidArgument)
	}
	if profile.LinkedActorID != nil {
		return domain.Actor{}, fmt.Errorf("op=staff.create_account.already_linked: %w", domain.ErrStaffAlreadyLinked)
	}
	if profile.RolePreference == domain.StaffRoleOther {
		return domain.Actor{}, fmt.Errorf("op=staff.create_account.role_ineligible: %w", domain.ErrInvalidArgument)
	}

	role := domain.RoleCashier
	if profile.RolePreference == domain.StaffRoleManager {
		role = domain.RoleManager
	}
	email := derivedEmail(profile.PhoneNumber)

	existing, found, err := s.findExistingActor(ctx, in.Username, email)
	if err != nil {
		return domain.Actor{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.InitialPassword), bcrypt.DefaultCost)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("op=staff.create_account.hash_password: %w", err)
	}

	var actorID int64
	if found {
		if existing.IsActive {
			return domain.Actor{}, fmt.Errorf("op=staff.create_account.duplicate: %w", domain.ErrAccountAlreadyExists)
		}
		existing.Username = in.Username
		existing.Email = email
		existing.PasswordHash = string(hash)
		existing.Role = role
		existing.BranchID = &profile.BranchID
		existing.IsActive = true
		if err := s.Actors.Update(ctx, existing); err != nil {
			return domain.Actor{}, fmt.Errorf("op=staff.create_account.reactivate: %w", err)
		}
		if err := s.Actors.SetActive(ctx, existing.ID, true); err != nil {
			return domain.Actor{}, fmt.Errorf("op=staff.create_account.reactivate_active_flag: %w", err)
		}
		actorID = existing.ID
	} else {
		actorID, err = s.Actors.Create(ctx, domain.Actor{
			Username: in.Username, Email: email, PasswordHash: string(hash),
			Role: role, BranchID: &profile.BranchID, IsActive: true,
		})
		if err != nil {
			return domain.Actor{}, fmt.Errorf("op=staff.create_account.create: %w", err)
		}
	}

	branches := []int64{profile.BranchID}
	if in.AdditionalBranch != nil {
		branches = append(branches, *in.AdditionalBranch)
	}
	if err := s.Actors.SetBranches(ctx, actorID, branches); err != nil {
		return domain.Actor{}, fmt.Errorf("op=staff.create_account.set_branches: %w", err)
	}
	if err := s.Profiles.LinkActor(ctx, profile.ID, actorID); err != nil {
		return domain.Actor{}, fmt.Errorf("op=staff.create_account.link: %w", err)
	}

	actor, err := s.Actors.Get(ctx, actorID)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("op=staff.create_account.reload: %w", err)
	}
	return actor, nil
}

func (s *StaffService) findExistingActor(ctx domain.Context, username, email string) (domain.Actor, bool, error) {
	a, err := s.Actors.FindByUsername(ctx, username)
	if err == nil {
		return a, true, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Actor{}, false, fmt.Errorf("op=staff.find_existing.by_username: %w", err)
	}
	a, err = s.Actors.FindByEmail(ctx, email)
	if err == nil {
		return a, true, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Actor{}, false, fmt.Errorf("op=staff.find_existing.by_email: %w", err)
	}
	return domain.Actor{}, false, nil
}

// ArchiveAccount deactivates an Actor, clears its branch mappings, and
// unlinks linkedProfileID if the caller knows of one (the profile record
// itself is left active; only its link is cleared). Admin actors cannot be
// archived through this path (spec.md §4.8).
func (s *StaffService) ArchiveAccount(ctx domain.Context, actorID int64, linkedProfileID *int64) error {
	actor, err := s.Actors.Get(ctx, actorID)
	if err != nil {
		return fmt.Errorf("op=staff.archive_account.get: %w", err)
	}
	if actor.Role == domain.RoleAdmin {
		return fmt.Errorf("op=staff.archive_account.admin_protected: %w", domain.ErrInvalidArgument)
	}
	if err := s.Actors.SetActive(ctx, actorID, false); err != nil {
		return fmt.Errorf("op=staff.archive_account.deactivate: %w", err)
	}
	if err := s.Actors.SetBranches(ctx, actorID, nil); err != nil {
		return fmt.Errorf("op=staff.archive_account.clear_branches: %w", err)
	}
	if linkedProfileID != nil {
		if err := s.Profiles.Unlink(ctx, *linkedProfileID); err != nil {
			return fmt.Errorf("op=staff.archive_account.unlink_profile: %w", err)
		}
	}
	return nil
}

// ArchiveProfile deactivates a StaffProfile. It fails if the profile is
// currently linked to an active Actor (the account must be archived first).
func (s *StaffService) ArchiveProfile(ctx domain.Context, profileID int64) error {
	profile, err := s.Profiles.Get(ctx, profileID)
	if err != nil {
		return fmt.Errorf("op=staff.archive_profile.get: %w", err)
	}
	if profile.LinkedActorID != nil {
		linked, err := s.Actors.Get(ctx, *profile.LinkedActorID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("op=staff.archive_profile.check_linked: %w", err)
		}
		if err == nil && linked.IsActive {
			return fmt.Errorf("op=staff.archive_profile.linked_active: %w", domain.ErrStaffAlreadyLinked)
		}
	}
	if err := s.Profiles.SetActive(ctx, profileID, false); err != nil {
		return fmt.Errorf("op=staff.archive_profile.deactivate: %w", err)
	}
	return nil
}
