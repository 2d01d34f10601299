// Package login validates the sign-in form shown before a chat starts.
// No credentials are checked against anything; a valid form simply yields
// the identity used to greet the user.
package login

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Field names a form input.
type Field string

const (
	FieldName     Field = "name"
	FieldEmail    Field = "email"
	FieldPassword Field = "password"
)

// Fields lists the form inputs in display order.
var Fields = []Field{FieldName, FieldEmail, FieldPassword}

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// Form holds the raw form input.
type Form struct {
	Name     string
	Email    string
	Password string
}

// Identity is the result of a successful login.
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Validate returns a message per invalid field. An empty map means the
// form is valid.
func (f Form) Validate() map[Field]string {
	errs := make(map[Field]string)

	if strings.TrimSpace(f.Name) == "" {
		errs[FieldName] = "Name is required"
	}

	switch {
	case strings.TrimSpace(f.Email) == "":
		errs[FieldEmail] = "Email is required"
	case !emailPattern.MatchString(f.Email):
		errs[FieldEmail] = "Email is invalid"
	}

	switch {
	case strings.TrimSpace(f.Password) == "":
		errs[FieldPassword] = "Password is required"
	case utf8.RuneCountInString(f.Password) < MinPasswordLength:
		errs[FieldPassword] = "Password must be at least 6 characters"
	}

	return errs
}

// Submit validates the form and returns the identity on success.
func (f Form) Submit() (Identity, map[Field]string) {
	if errs := f.Validate(); len(errs) > 0 {
		return Identity{}, errs
	}
	return Identity{Name: f.Name, Email: f.Email}, nil
}

// Get returns the value of field.
func (f Form) Get(field Field) string {
	switch field {
	case FieldName:
		return f.Name
	case FieldEmail:
		return f.Email
	case FieldPassword:
		return f.Password
	}
	return ""
}

// Set assigns the value of field.
func (f *Form) Set(field Field, value string) {
	switch field {
	case FieldName:
		f.Name = value
	case FieldEmail:
		f.Email = value
	case FieldPassword:
		f.Password = value
	}
}
