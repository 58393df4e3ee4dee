package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"family-finance/internal/auth"
	"family-finance/internal/model"
	"family-finance/internal/repository"
)

// AdultAge is the age from which a member's data needs their consent to be
// visible to the account that created them.
const AdultAge = 18

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,32}$`)

// RegisterInput is the body of POST /api/auth/register.
type RegisterInput struct {
	Username         string `json:"username"`
	Password         string `json:"password"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	FamilyName       string `json:"familyName"`
	SecurityQuestion string `json:"securityQuestion"`
	SecurityAnswer   string `json:"securityAnswer"`
}

// RecoverInput resets a password with the security answer.
type RecoverInput struct {
	Username       string `json:"username"`
	SecurityAnswer string `json:"securityAnswer"`
	NewPassword    string `json:"newPassword"`
}

// CreateMemberInput is the body a manager sends to add a family member.
type CreateMemberInput struct {
	Username        string     `json:"username"`
	Password        string     `json:"password"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Role            model.Role `json:"role"`
	BirthDate       *string    `json:"birthDate"`
	AllowParentView bool       `json:"allowParentView"`
}

// UpdateUserInput holds optional changes; nil fields are left alone.
type UpdateUserInput struct {
	Name             *string           `json:"name"`
	Email            *string           `json:"email"`
	Avatar           *string           `json:"avatar"`
	BirthDate        *string           `json:"birthDate"`
	AllowParentView  *bool             `json:"allowParentView"`
	Role             *model.Role       `json:"role"`
	Status           *model.UserStatus `json:"status"`
	Password         *string           `json:"password"`
	CurrentPassword  string            `json:"currentPassword"`
	SecurityQuestion *string           `json:"securityQuestion"`
	SecurityAnswer   *string           `json:"securityAnswer"`
}

// UserService handles accounts, sessions and who may see whom.
type UserService struct {
	users  *repository.UserRepository
	hasher *auth.Hasher
	tokens *auth.Tokens
	now    func() time.Time
}

func NewUserService(users *repository.UserRepository, hasher *auth.Hasher, tokens *auth.Tokens) *UserService {
	return &UserService{users: users, hasher: hasher, tokens: tokens, now: time.Now}
}

// EnsureAdmin creates the "admin" super admin when the user table is empty.
func (s *UserService) EnsureAdmin(ctx context.Context, password string) (bool, error) {
	n, err := s.users.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, err
	}
	family := &model.Family{Name: "Administração"}
	admin := &model.User{
		Username:     "admin",
		PasswordHash: hash,
		Name:         "Administrador",
		Role:         model.RoleSuperAdmin,
		Status:       model.StatusActive,
	}
	if err := s.users.CreateWithFamily(ctx, family, admin); err != nil {
		return false, err
	}
	return true, nil
}

// Register creates a new family whose first user is its manager.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	username := strings.TrimSpace(in.Username)
	if err := validateCredentials(username, in.Password); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = username
	}
	if err := s.ensureUsernameFree(ctx, username); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Username:         username,
		PasswordHash:     hash,
		Name:             name,
		Email:            strings.TrimSpace(in.Email),
		Role:             model.RoleManager,
		Status:           model.StatusActive,
		SecurityQuestion: strings.TrimSpace(in.SecurityQuestion),
	}
	if strings.TrimSpace(in.SecurityAnswer) != "" {
		if user.SecurityAnswerHash, err = s.hasher.Hash(auth.NormalizeAnswer(in.SecurityAnswer)); err != nil {
			return nil, err
		}
	}

	familyName := strings.TrimSpace(in.FamilyName)
	if familyName == "" {
		familyName = "Família " + name
	}
	if err := s.users.CreateWithFamily(ctx, &model.Family{Name: familyName}, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login checks credentials and returns the user with a fresh session token.
func (s *UserService) Login(ctx context.Context, username, password string) (*model.User, string, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}
	if !s.hasher.Matches(user.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}
	if user.Status == model.StatusBlocked {
		return nil, "", ErrForbidden
	}
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Authenticate resolves a session token to its user.
func (s *UserService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if user.Status == model.StatusBlocked {
		return nil, ErrForbidden
	}
	return user, nil
}

// SecurityQuestion returns the recovery question for username.
func (s *UserService) SecurityQuestion(ctx context.Context, username string) (string, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return "", err
	}
	if user.SecurityQuestion == "" || user.SecurityAnswerHash == "" {
		return "", ErrNotFound
	}
	return user.SecurityQuestion, nil
}

// Recover sets a new password when the security answer matches.
func (s *UserService) Recover(ctx context.Context, in RecoverInput) error {
	if err := validatePassword(in.NewPassword); err != nil {
		return err
	}
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(in.Username))
	if errors.Is(err, repository.ErrNotFound) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return err
	}
	if !s.hasher.Matches(user.SecurityAnswerHash, auth.NormalizeAnswer(in.SecurityAnswer)) {
		return ErrInvalidCredentials
	}
	if user.PasswordHash, err = s.hasher.Hash(in.NewPassword); err != nil {
		return err
	}
	return s.users.Update(ctx, user)
}

// Get returns id if viewer may see it.
func (s *UserService) Get(ctx context.Context, viewer *model.User, id string) (*model.User, error) {
	target, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.visible(viewer, target) {
		return nil, ErrNotFound
	}
	return target, nil
}

// List returns every user viewer may see.
func (s *UserService) List(ctx context.Context, viewer *model.User) ([]model.User, error) {
	var (
		candidates []model.User
		err        error
	)
	switch {
	case viewer.Role == model.RoleSuperAdmin || viewer.Role == model.RoleAdmin:
		candidates, err = s.users.ListAll(ctx)
	case viewer.FamilyID != nil:
		candidates, err = s.users.ListByFamily(ctx, *viewer.FamilyID)
	default:
		return []model.User{*viewer}, nil
	}
	if err != nil {
		return nil, err
	}

	out := make([]model.User, 0, len(candidates))
	for i := range candidates {
		if s.visible(viewer, &candidates[i]) {
			out = append(out, candidates[i])
		}
	}
	return out, nil
}

// FamilyMembers lists the users sharing viewer's family.
func (s *UserService) FamilyMembers(ctx context.Context, viewer *model.User) (*model.Family, []model.User, error) {
	if viewer.FamilyID == nil {
		return nil, []model.User{*viewer}, nil
	}
	family, err := s.users.FindFamily(ctx, *viewer.FamilyID)
	if err != nil {
		return nil, nil, err
	}
	members, err := s.users.ListByFamily(ctx, *viewer.FamilyID)
	if err != nil {
		return nil, nil, err
	}
	return family, members, nil
}

// Subject resolves the user whose data a request reads. An empty userID means
// the viewer; another user must pass CanViewData or reads as not found.
func (s *UserService) Subject(ctx context.Context, viewer *model.User, userID string) (*model.User, error) {
	if userID == "" || userID == viewer.ID {
		return viewer, nil
	}
	target, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !CanViewData(viewer, target, s.now()) {
		return nil, ErrNotFound
	}
	return target, nil
}

// CreateMember adds a user to the creator's family.
func (s *UserService) CreateMember(ctx context.Context, creator *model.User, in CreateMemberInput) (*model.User, error) {
	if !creator.Role.CanManageFamily() {
		return nil, ErrForbidden
	}
	username := strings.TrimSpace(in.Username)
	if err := validateCredentials(username, in.Password); err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = model.RoleMember
	}
	if !role.Valid() {
		return nil, invalid("role", "unknown role %q", role)
	}
	if !canGrant(creator, role) {
		return nil, ErrForbidden
	}
	if err := validateBirthDate(in.BirthDate); err != nil {
		return nil, err
	}
	if err := s.ensureUsernameFree(ctx, username); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = username
	}
	user := &model.User{
		Username:        username,
		PasswordHash:    hash,
		Name:            name,
		Email:           strings.TrimSpace(in.Email),
		Role:            role,
		Status:          model.StatusActive,
		CreatedBy:       &creator.ID,
		FamilyID:        creator.FamilyID,
		BirthDate:       in.BirthDate,
		AllowParentView: in.AllowParentView,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Update applies in to user id. Users edit themselves; managers edit the
// members they administer. Changing one's own password needs the current one.
func (s *UserService) Update(ctx context.Context, actor *model.User, id string, in UpdateUserInput) (*model.User, error) {
	target, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	self := actor.ID == target.ID
	if !self && !canManage(actor, target) {
		if s.visible(actor, target) {
			return nil, ErrForbidden
		}
		return nil, ErrNotFound
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, invalid("name", "must not be empty")
		}
		target.Name = name
	}
	if in.Email != nil {
		target.Email = strings.TrimSpace(*in.Email)
	}
	if in.Avatar != nil {
		target.Avatar = *in.Avatar
	}
	if in.BirthDate != nil {
		bd := in.BirthDate
		if strings.TrimSpace(*bd) == "" {
			bd = nil
		}
		if err := validateBirthDate(bd); err != nil {
			return nil, err
		}
		target.BirthDate = bd
	}
	if in.AllowParentView != nil {
		target.AllowParentView = *in.AllowParentView
	}
	if in.Role != nil && *in.Role != target.Role {
		if self && actor.Role != model.RoleSuperAdmin {
			return nil, ErrForbidden
		}
		if !in.Role.Valid() {
			return nil, invalid("role", "unknown role %q", *in.Role)
		}
		if !canGrant(actor, *in.Role) {
			return nil, ErrForbidden
		}
		target.Role = *in.Role
	}
	if in.Status != nil && *in.Status != target.Status {
		if self {
			return nil, ErrForbidden
		}
		switch *in.Status {
		case model.StatusActive, model.StatusPending, model.StatusBlocked:
		default:
			return nil, invalid("status", "unknown status %q", *in.Status)
		}
		target.Status = *in.Status
	}
	if in.Password != nil && *in.Password != "" {
		if self && !s.hasher.Matches(target.PasswordHash, in.CurrentPassword) {
			return nil, ErrInvalidCredentials
		}
		if err := validatePassword(*in.Password); err != nil {
			return nil, err
		}
		if target.PasswordHash, err = s.hasher.Hash(*in.Password); err != nil {
			return nil, err
		}
	}
	if in.SecurityQuestion != nil {
		target.SecurityQuestion = strings.TrimSpace(*in.SecurityQuestion)
	}
	if in.SecurityAnswer != nil && strings.TrimSpace(*in.SecurityAnswer) != "" {
		if target.SecurityAnswerHash, err = s.hasher.Hash(auth.NormalizeAnswer(*in.SecurityAnswer)); err != nil {
			return nil, err
		}
	}

	if err := s.users.Update(ctx, target); err != nil {
		return nil, err
	}
	return target, nil
}

// Delete removes a user with all of their data.
func (s *UserService) Delete(ctx context.Context, actor *model.User, id string) error {
	if actor.ID == id {
		return invalid("id", "cannot delete your own account")
	}
	target, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !canManage(actor, target) {
		if s.visible(actor, target) {
			return ErrForbidden
		}
		return ErrNotFound
	}
	return s.users.Delete(ctx, id)
}

// TelegramLinkCode issues a one-time code the user sends to the bot.
func (s *UserService) TelegramLinkCode(ctx context.Context, user *model.User) (string, error) {
	code := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	if err := s.users.SetTelegramLinkCode(ctx, user.ID, code); err != nil {
		return "", err
	}
	return code, nil
}

func (s *UserService) ensureUsernameFree(ctx context.Context, username string) error {
	_, err := s.users.FindByUsername(ctx, username)
	switch {
	case err == nil:
		return fmt.Errorf("%w: username %q is taken", ErrConflict, username)
	case errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return err
	}
}

// visible is the listing rule: CanViewData, or any member of the same family
// for the family overview.
func (s *UserService) visible(viewer, target *model.User) bool {
	if CanViewData(viewer, target, s.now()) {
		return true
	}
	return viewer.FamilyID != nil && target.FamilyID != nil && *viewer.FamilyID == *target.FamilyID
}

// CanViewData reports whether viewer may read target's financial data.
func CanViewData(viewer, target *model.User, now time.Time) bool {
	switch {
	case viewer.ID == target.ID:
		return true
	case viewer.Role == model.RoleSuperAdmin:
		return true
	case viewer.Role == model.RoleAdmin:
		return target.Role != model.RoleSuperAdmin
	}

	guardian := target.CreatedBy != nil && *target.CreatedBy == viewer.ID
	if !guardian && viewer.Role == model.RoleManager && sameFamily(viewer, target) {
		guardian = target.Role != model.RoleSuperAdmin && target.Role != model.RoleAdmin
	}
	if !guardian {
		return false
	}
	if target.BirthDate == nil || *target.BirthDate == "" {
		return true
	}
	born, err := time.Parse(time.DateOnly, *target.BirthDate)
	if err != nil {
		return true
	}
	if Age(born, now) < AdultAge {
		return true
	}
	return target.AllowParentView
}

// Age is the number of whole years between born and now.
func Age(born, now time.Time) int {
	years := now.Year() - born.Year()
	if now.Month() < born.Month() || (now.Month() == born.Month() && now.Day() < born.Day()) {
		years--
	}
	return years
}

func sameFamily(a, b *model.User) bool {
	return a.FamilyID != nil && b.FamilyID != nil && *a.FamilyID == *b.FamilyID
}

// canManage reports whether actor administers target's account.
func canManage(actor, target *model.User) bool {
	switch actor.Role {
	case model.RoleSuperAdmin:
		return true
	case model.RoleAdmin:
		return target.Role != model.RoleSuperAdmin
	case model.RoleManager:
		if target.Role == model.RoleSuperAdmin || target.Role == model.RoleAdmin {
			return false
		}
		return sameFamily(actor, target) || (target.CreatedBy != nil && *target.CreatedBy == actor.ID)
	}
	return false
}

// canGrant reports whether actor may hand out role.
func canGrant(actor *model.User, role model.Role) bool {
	switch role {
	case model.RoleSuperAdmin:
		return actor.Role == model.RoleSuperAdmin
	case model.RoleAdmin:
		return actor.Role == model.RoleSuperAdmin || actor.Role == model.RoleAdmin
	default:
		return actor.Role.CanManageFamily()
	}
}

func validateCredentials(username, password string) error {
	if !usernamePattern.MatchString(username) {
		return invalid("username", "must be 3-32 letters, digits, '.', '_' or '-'")
	}
	return validatePassword(password)
}

func validatePassword(password string) error {
	if len(password) < 6 {
		return invalid("password", "must be at least 6 characters")
	}
	return nil
}

func validateBirthDate(birthDate *string) error {
	if birthDate == nil {
		return nil
	}
	if _, err := time.Parse(time.DateOnly, *birthDate); err != nil {
		return invalid("birthDate", "must be YYYY-MM-DD")
	}
	return nil
}
