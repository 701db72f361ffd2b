package forms

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/nhle/pmsterm/internal/api"
	"github.com/nhle/pmsterm/internal/model"
)

// LoginBindings holds the login form values.
type LoginBindings struct {
	Email    string
	Password string
}

// NewLoginForm builds the login form.
func NewLoginForm(b *LoginBindings) *huh.Form {
	return huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Email").
			Placeholder("you@company.com").
			Value(&b.Email).
			Validate(validateEmail),
		huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&b.Password).
			Validate(validateRequired("Password")),
	))
}

// EmailBindings holds a single email address, for the forgot-password
// request.
type EmailBindings struct {
	Email string
}

// NewForgotPasswordForm builds the reset-request form.
func NewForgotPasswordForm(b *EmailBindings) *huh.Form {
	return huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Email").
			Description("A reset link will be sent to this address.").
			Value(&b.Email).
			Validate(validateEmail),
	))
}

// ResetBindings holds the reset-password form values.
type ResetBindings struct {
	Token    string
	Password string
	Repeat   string
}

// NewResetPasswordForm builds the form that completes a reset with the
// token from the email.
func NewResetPasswordForm(b *ResetBindings) *huh.Form {
	return huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Reset Token").
			Value(&b.Token).
			Validate(validateRequired("Token")),
		huh.NewInput().
			Title("New Password").
			EchoMode(huh.EchoModePassword).
			Value(&b.Password).
			Validate(validateRequired("Password")),
		huh.NewInput().
			Title("Repeat Password").
			EchoMode(huh.EchoModePassword).
			Value(&b.Repeat).
			Validate(func(s string) error {
				if s != b.Password {
					return fmt.Errorf("passwords do not match")
				}
				return nil
			}),
	))
}

// ProfileBindings holds the profile form values.
type ProfileBindings struct {
	Username string
	Email    string
}

// ProfileBindingsFrom returns bindings prefilled from u.
func ProfileBindingsFrom(u model.User) *ProfileBindings {
	return &ProfileBindings{Username: u.Username, Email: u.Email}
}

// NewProfileForm builds the profile form.
func NewProfileForm(b *ProfileBindings) *huh.Form {
	return huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Username").
			Value(&b.Username).
			Validate(validateRequired("Username")),
		huh.NewInput().
			Title("Email").
			Value(&b.Email).
			Validate(validateEmail),
	))
}

// Input converts the bindings into a ProfileInput.
func (b *ProfileBindings) Input() (api.ProfileInput, error) {
	in := api.ProfileInput{Username: strings.TrimSpace(b.Username), Email: strings.TrimSpace(b.Email)}
	return in, in.Validate()
}

// PasswordBindings holds the change-password form values.
type PasswordBindings struct {
	Current string
	New     string
	Repeat  string
}

// NewPasswordForm builds the change-password form.
func NewPasswordForm(b *PasswordBindings) *huh.Form {
	return huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Current Password").
			EchoMode(huh.EchoModePassword).
			Value(&b.Current).
			Validate(validateRequired("Current password")),
		huh.NewInput().
			Title("New Password").
			EchoMode(huh.EchoModePassword).
			Value(&b.New).
			Validate(validateRequired("New password")),
		huh.NewInput().
			Title("Repeat New Password").
			EchoMode(huh.EchoModePassword).
			Value(&b.Repeat).
			Validate(func(s string) error {
				if s != b.New {
					return fmt.Errorf("passwords do not match")
				}
				return nil
			}),
	))
}

// Input converts the bindings into a PasswordChange.
func (b *PasswordBindings) Input() (api.PasswordChange, error) {
	in := api.PasswordChange{Current: b.Current, New: b.New, Repeat: b.Repeat}
	return in, in.Validate()
}

// RegisterBindings holds the register-user form values.
type RegisterBindings struct {
	Username   string
	Email      string
	Password   string
	Repeat     string
	Role       model.Role
	Department string
}

// NewRegisterBindings returns bindings defaulting to the staff role.
func NewRegisterBindings() *RegisterBindings {
	return &RegisterBindings{Role: model.RoleStaff}
}

// NewRegisterForm builds the register-user form.
func NewRegisterForm(b *RegisterBindings) *huh.Form {
	roleOpts := make([]huh.Option[model.Role], 0, len(model.Roles))
	for _, r := range model.Roles {
		roleOpts = append(roleOpts, huh.NewOption(r.String(), r))
	}

	deptOpts := []huh.Option[string]{huh.NewOption("None", "")}
	for _, code := range model.DepartmentCodes() {
		deptOpts = append(deptOpts, huh.NewOption(model.DepartmentName(code), code))
	}

	return huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Username").
			Value(&b.Username).
			Validate(validateRequired("Username")),
		huh.NewInput().
			Title("Email").
			Value(&b.Email).
			Validate(validateEmail),
		huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&b.Password).
			Validate(validateRequired("Password")),
		huh.NewInput().
			Title("Repeat Password").
			EchoMode(huh.EchoModePassword).
			Value(&b.Repeat).
			Validate(func(s string) error {
				if s != b.Password {
					return fmt.Errorf("passwords do not match")
				}
				return nil
			}),
		huh.NewSelect[model.Role]().
			Title("Role").
			Options(roleOpts...).
			Value(&b.Role),
		huh.NewSelect[string]().
			Title("Department").
			Options(deptOpts...).
			Value(&b.Department),
	))
}

// Input converts the bindings into a RegisterInput.
func (b *RegisterBindings) Input() (api.RegisterInput, error) {
	in := api.RegisterInput{
		Username:       b.Username,
		Email:          b.Email,
		Password:       b.Password,
		RepeatPassword: b.Repeat,
		Role:           b.Role,
		Department:     b.Department,
	}
	return in, in.Validate()
}

func validateEmail(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("email is required")
	}
	if !strings.Contains(s, "@") {
		return fmt.Errorf("enter a valid email address")
	}
	return nil
}
