package protocol

import (
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// clientHash is the shape of every password field on the wire: the client's
// own 128-bit hash of the secret, rendered as 32 hex characters.
const clientHash = "required,len=32,hexadecimal"

// Validate checks the field combination required for the request's command.
// Token presence is never checked here; a missing or stale token is an
// authorization concern and answered with a no-permission response instead.
func (r *Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		return errors.Wrap(err, "[Request.Validate]")
	}

	switch r.Command {
	case CommandLogin:
		if err := validate.Var(r.Username, "required"); err != nil {
			return errors.Wrap(err, "[Request.Validate] username")
		}
		if err := validate.Var(r.Password, clientHash); err != nil {
			return errors.Wrap(err, "[Request.Validate] password")
		}

	case CommandAddUser, CommandUpdateUser, CommandDeleteUser:
		if r.User == nil {
			return errors.Errorf("[Request.Validate] %s requires a user record", r.Command)
		}
		if err := validate.Var(r.User.Username, "required"); err != nil {
			return errors.Wrap(err, "[Request.Validate] user.username")
		}
		if r.Command != CommandDeleteUser {
			if err := validate.Var(r.User.Password, clientHash); err != nil {
				return errors.Wrap(err, "[Request.Validate] user.password")
			}
		}

	case CommandAddBillboard, CommandEditBillboard, CommandDeleteBillboard, CommandGetBillboard:
		if r.Billboard == nil {
			return errors.Errorf("[Request.Validate] %s requires a billboard record", r.Command)
		}
		if err := validate.Var(r.Billboard.Name, "required"); err != nil {
			return errors.Wrap(err, "[Request.Validate] billboard.name")
		}

	case CommandAddSchedule:
		if r.Schedule == nil {
			return errors.New("[Request.Validate] add_schedule requires a schedule record")
		}
		if err := validate.Var(r.Schedule.BillboardName, "required"); err != nil {
			return errors.Wrap(err, "[Request.Validate] schedule.billboard_name")
		}

	case CommandLogout, CommandUsers, CommandBillboards, CommandSchedules, CommandTest:
		// No fields beyond the command tag.

	default:
		return errors.Errorf("[Request.Validate] unknown command %q", r.Command)
	}
	return nil
}
