package main

import (
	"regexp"

	"github.com/protomem/mini-crm/internal/model"
	"github.com/protomem/mini-crm/internal/validator"
)

// Validation rules

var _usernameRX = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

func validateCredentials(v *validator.Validator, username, pass string) {
	v.Check(validator.NotBlank(username), "username and password are required")
	v.Check(validator.NotBlank(pass), "username and password are required")

	if username != "" {
		v.Check(validator.MinRunes(username, 3), "username must be between 3 and 20 characters")
		v.Check(validator.MaxRunes(username, 20), "username must be between 3 and 20 characters")
		v.Check(validator.Matches(username, _usernameRX), "username may only contain letters, digits and underscore")
	}

	if pass != "" {
		v.Check(validator.MinRunes(pass, 6), "password must be at least 6 characters")
	}
}

func validateClientFields(v *validator.Validator, input requestClientFields) {
	v.Check(validator.NotBlank(input.ProjectName), "project name and client contact are required")
	v.Check(validator.NotBlank(input.ClientContact), "project name and client contact are required")

	if input.Status != "" {
		v.Check(model.ClientStatus(input.Status).Valid(), "unknown status")
	}
	if input.Price != nil {
		v.Check(*input.Price >= 0, "price must not be negative")
	}
	if input.DeadlineDays != nil {
		v.Check(*input.DeadlineDays >= 0, "deadline must not be negative")
	}
}
